// Package app wires configuration, storage, the sequencer, the worker pool
// and the HTTP adapter into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/ewilliams-labs/cadence/internal/adapters/memory"
	"github.com/ewilliams-labs/cadence/internal/adapters/rest"
	"github.com/ewilliams-labs/cadence/internal/adapters/sqlite"
	"github.com/ewilliams-labs/cadence/internal/config"
	"github.com/ewilliams-labs/cadence/internal/core/ports"
	"github.com/ewilliams-labs/cadence/internal/core/services"
	"github.com/ewilliams-labs/cadence/internal/worker"
)

// App owns the long-lived components of the service.
type App struct {
	cfg       config.Config
	store     ports.TaskStore
	closeFn   func() error
	Sequencer *services.Sequencer
	Pool      *worker.Pool
	Handler   http.Handler
}

// OpenStore returns the task store selected by cfg and a function that
// releases it.
func OpenStore(cfg config.StorageConfig) (ports.TaskStore, func() error, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		a, err := sqlite.NewAdapter(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("app: opening sqlite store: %w", err)
		}
		return a, a.Close, nil
	case config.DriverMemory:
		s, err := memory.New(cfg.MemorySize)
		if err != nil {
			return nil, nil, fmt.Errorf("app: creating memory store: %w", err)
		}
		return s, func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("app: unknown storage driver %q", cfg.Driver)
}

// New builds the service from cfg. The pool is not started until Serve.
func New(cfg config.Config) (*App, error) {
	store, closeFn, err := OpenStore(cfg.Storage)
	if err != nil {
		return nil, err
	}

	seq := services.NewSequencer(cfg.Compute.Defaults())
	pool, err := worker.NewPool(seq, store, cfg.Workers.QueueSize, cfg.Workers.ResultCache)
	if err != nil {
		_ = closeFn()
		return nil, fmt.Errorf("app: creating worker pool: %w", err)
	}

	return &App{
		cfg:       cfg,
		store:     store,
		closeFn:   closeFn,
		Sequencer: seq,
		Pool:      pool,
		Handler:   rest.NewHandler(pool),
	}, nil
}

// Serve starts the workers and the HTTP server on ln and blocks until ctx is
// cancelled or the server fails. On return the server is shut down and the
// pool stopped; outstanding tasks end cancelled.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	a.Pool.Start(a.cfg.Workers.Count)
	defer a.Pool.Stop()

	srv := &http.Server{
		Handler:           a.Handler,
		ReadHeaderTimeout: a.cfg.Server.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: serving: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("INFO app: shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("app: shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// ListenAndServe listens on the configured address and calls Serve.
func (a *App) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("app: listening on %s: %w", a.cfg.Server.Addr, err)
	}
	log.Printf("INFO app: listening on %s (storage=%s, workers=%d)", ln.Addr(), a.cfg.Storage.Driver, a.cfg.Workers.Count)
	return a.Serve(ctx, ln)
}

// Close releases the task store.
func (a *App) Close() error {
	return a.closeFn()
}
