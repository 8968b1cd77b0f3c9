// Package cli provides the portfolio command tree. The root command serves
// the visitor-count API; subcommands inspect or bump the counter directly and
// print the effective configuration.
//
// Configuration sources, highest priority first:
//
//  1. command-line flags (--addr, --storage-path, ...)
//  2. PORTFOLIO_* environment variables (PORTFOLIO_STORAGE_BACKEND=sqlite)
//  3. the config file named by --config or PORTFOLIO_CONFIG_FILE, else ./portfolio.yaml
//  4. built-in defaults
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"portfolio/internal/config"
	"portfolio/internal/logger"

	"github.com/spf13/cobra"
)

// app carries what every command needs once flags are parsed.
type app struct {
	cfg *config.Config
	log logger.Logger
}

func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "portfolio",
		Short: "Visitor counter service for the portfolio site",
		Long: `Serves the portfolio site's visitor counter over HTTP:

  GET  /api/visitor-count   current count
  POST /api/visitor-count   record a visit, returns the new count

Running without a subcommand is the same as "portfolio serve".`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context(), nil)
		},
	}

	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newServeCommand(a),
		newCountCommand(a),
		newConfigCommand(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	v := config.New()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return err
	}

	cfgFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}

	log, err := logger.Build(cfg.Log.Backend, cfg.Log.Level, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	return nil
}

// Execute runs the root command until it returns or the process receives
// SIGINT or SIGTERM.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return NewRootCommand().ExecuteContext(ctx)
}
