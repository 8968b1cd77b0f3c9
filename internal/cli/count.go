package cli

import (
	"fmt"

	"portfolio/internal/model"

	"github.com/spf13/cobra"
)

func newCountCommand(a *app) *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Inspect or bump the stored visitor count",
		Long: `Operates on the configured store without going through HTTP.

Do not bump the file backend while a server is running against the same
file: the two processes serialize independently.`,
	}
	cmd.PersistentFlags().BoolVar(&compact, "compact", false, "print the badge form (1.5K+) instead of digits")

	printCount := func(cmd *cobra.Command, count uint64) {
		if compact {
			fmt.Fprintln(cmd.OutOrStdout(), model.FormatCompact(count))
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), count)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the current count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, stop, err := a.openCounter(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

			printCount(cmd, mgr.Get(cmd.Context()))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "incr",
		Aliases: []string{"increment"},
		Short:   "Record one visit and print the new count",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, stop, err := a.openCounter(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

			printCount(cmd, mgr.Increment(cmd.Context()))
			return nil
		},
	})

	return cmd
}
