package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"portfolio/internal/api"
	"portfolio/internal/engine"
	"portfolio/internal/storage"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Start the visitor-count HTTP server",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context(), nil)
		},
	}
}

// openCounter starts a counter manager over the configured store. The
// returned stop function blocks until the store is closed.
func (a *app) openCounter(ctx context.Context) (*engine.CounterManager, func(), error) {
	store, err := storage.Open(a.cfg.StorageConfig())
	if err != nil {
		return nil, nil, err
	}

	mgr, cancel, err := engine.NewCounterManager(ctx, store, engine.CounterCfg{
		EnqueueTimeout: a.cfg.Counter.EnqueueTimeout,
		MaxPending:     a.cfg.Counter.MaxPending,
	}, a.log)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	return mgr, func() {
		cancel()
		<-mgr.Done()
	}, nil
}

// serve runs the HTTP server until ctx is cancelled. A nil listener means
// listen on the configured address. The counter outlives ctx so requests
// still draining during Shutdown are recorded; it stops once g.Wait returns.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	mgr, stop, err := a.openCounter(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}
	defer stop()

	if ln == nil {
		ln, err = net.Listen("tcp", a.cfg.Server.Addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", a.cfg.Server.Addr, err)
		}
	}

	srv := &http.Server{
		Handler:           api.NewServer(mgr, a.log),
		ReadHeaderTimeout: a.cfg.Server.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("starting server",
			"addr", ln.Addr().String(),
			"storage", a.cfg.Storage.Backend,
			"path", a.cfg.Storage.Path)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
