// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ManuGH/salesinsights/internal/log"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Reloader is the dataset side of the App: it can re-read and watch the CSV.
type Reloader interface {
	Reload(ctx context.Context) error
	Watch(ctx context.Context, debounce time.Duration) error
}

// App owns the long-lived runtime lifecycle (dataset watcher, reload signal)
// and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	dataset      Reloader
	watch        bool
	debounce     time.Duration
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. dataset may be nil.
func NewApp(logger zerolog.Logger, manager Manager, dataset Reloader, watch bool) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		dataset:      dataset,
		watch:        watch,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	// The watcher is best-effort: a failing watch never stops serving.
	if a.dataset != nil && a.watch {
		g.Go(func() error {
			if err := a.dataset.Watch(ctx, a.debounce); err != nil {
				a.logger.Warn().Err(err).Str(log.FieldEvent, "dataset.watch_failed").Msg("dataset watcher stopped")
			}
			return nil
		})
	}

	// SIGHUP trigger for manual reload.
	if a.dataset != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str(log.FieldEvent, "dataset.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading dataset")

					if err := a.dataset.Reload(ctx); err != nil {
						a.logger.Warn().
							Err(err).
							Str(log.FieldEvent, "dataset.reload_failed").
							Msg("dataset reload failed")
					}
				}
			}
		})
	}

	// Main server lifecycle.
	g.Go(func() error {
		return a.manager.Start(ctx)
	})

	return g.Wait()
}
