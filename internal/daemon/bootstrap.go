// SPDX-License-Identifier: MIT

// Package daemon wires the service together and manages its lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ManuGH/salesinsights/internal/api"
	"github.com/ManuGH/salesinsights/internal/cache"
	"github.com/ManuGH/salesinsights/internal/config"
	"github.com/ManuGH/salesinsights/internal/dataset"
	"github.com/ManuGH/salesinsights/internal/health"
	"github.com/ManuGH/salesinsights/internal/insights"
	"github.com/ManuGH/salesinsights/internal/log"
	"github.com/ManuGH/salesinsights/internal/platform/httpx"
	"github.com/ManuGH/salesinsights/internal/sales"
	"github.com/ManuGH/salesinsights/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// ServiceName tags logs and traces.
const ServiceName = "salesinsights"

// Runtime bundles the wired components of a running service.
type Runtime struct {
	Config   config.AppConfig
	Store    *dataset.Store
	Insights *insights.Service
	API      *api.Server
	Manager  Manager
	App      *App
}

// Run serves until ctx is cancelled.
func (r *Runtime) Run(ctx context.Context) error { return r.App.Run(ctx) }

// LoadOptions converts the dataset configuration into ingest options.
func LoadOptions(cfg config.DatasetConfig) (sales.LoadOptions, error) {
	opts := sales.LoadOptions{
		Columns:     cfg.Columns,
		DateLayouts: cfg.DateLayouts,
	}
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return opts, fmt.Errorf("dataset timezone %q: %w", cfg.Timezone, err)
		}
		opts.Location = loc
	}
	return opts, nil
}

// NewGenerator builds the configured provider. A provider that cannot be
// constructed is replaced by one that reports the cause on every call, so the
// dashboard keeps serving.
func NewGenerator(ctx context.Context, cfg config.InsightsConfig, logger zerolog.Logger) insights.Generator {
	gen, err := insights.NewGenerator(ctx, cfg, httpx.NewProviderClient(cfg.Timeout), logger)
	if err == nil {
		return gen
	}
	provider := cfg.ResolvedProvider()
	logger.Warn().Err(err).
		Str(log.FieldEvent, "insights.provider_unavailable").
		Str(log.FieldProvider, provider).
		Msg("insights provider unavailable; generation requests will fail")
	return insights.Unavailable(provider, cfg.ResolvedModel(), err)
}

// Bootstrap configures logging and tracing, loads the dataset and wires every
// component. Resources acquired here are released by manager shutdown hooks.
func Bootstrap(ctx context.Context, cfg config.AppConfig) (rt *Runtime, err error) {
	log.Configure(log.Config{
		Level:   cfg.Log.Level,
		Output:  os.Stdout,
		Service: ServiceName,
		Version: cfg.Version,
		Pretty:  cfg.Log.Pretty,
	})
	logger := log.WithComponent("daemon")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return nil, err
	}

	// Undo partial wiring on failure.
	var cleanups []func()
	defer func() {
		if err != nil {
			for i := len(cleanups) - 1; i >= 0; i-- {
				cleanups[i]()
			}
		}
	}()

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	cleanups = append(cleanups, func() { _ = tp.Shutdown(context.Background()) })

	loadOpts, err := LoadOptions(cfg.Dataset)
	if err != nil {
		return nil, err
	}
	store := dataset.NewStore(dataset.Options{
		Path:   cfg.Dataset.Path,
		Load:   loadOpts,
		Logger: log.WithComponent("dataset"),
	})
	if err := store.Reload(ctx); err != nil {
		// Keep serving; /readyz reports the dataset until a reload succeeds.
		logger.Warn().Err(err).Str(log.FieldEvent, "dataset.initial_load_failed").Msg("initial dataset load failed")
	}

	c, err := cache.New(ctx, cfg.Cache, log.WithComponent("cache"))
	if err != nil {
		return nil, fmt.Errorf("insight cache: %w", err)
	}
	cleanups = append(cleanups, func() { _ = c.Close() })

	var history *insights.SQLiteHistory
	if cfg.History.Enabled {
		history, err = insights.OpenSQLiteHistory(ctx, cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("insight history: %w", err)
		}
		cleanups = append(cleanups, func() { _ = history.Close() })
		if err := history.Verify(ctx); err != nil {
			logger.Warn().Err(err).Str(log.FieldEvent, "history.integrity").Msg("insight history failed its integrity check")
		}
	}

	svcCfg := insights.ServiceConfig{
		Source:    store,
		Generator: NewGenerator(ctx, cfg.Insights, log.WithComponent("insights")),
		Cache:     c,
		CacheTTL:  cfg.Cache.TTL,
		TopN:      cfg.Dataset.TopN,
		// Each provider attempt may take the full timeout.
		Timeout: cfg.Insights.Timeout * time.Duration(cfg.Insights.MaxRetries+1),
		Logger:  log.WithComponent("insights"),
	}
	if history != nil {
		svcCfg.History = history
	}
	svc := insights.NewService(svcCfg)
	store.OnReload(func(ctx context.Context, _ *sales.Dataset) {
		svc.ClearCache(ctx)
	})

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewDatasetChecker(func() health.DatasetState {
		st := store.Status()
		return health.DatasetState{Loaded: st.Loaded, Rows: st.Rows, LoadedAt: st.LoadedAt, LastError: st.LastError}
	}))
	hm.RegisterChecker(health.NewFileChecker("dataset_file", cfg.Dataset.Path))
	if rc, ok := c.(*cache.RedisCache); ok {
		hm.RegisterChecker(health.NewPingChecker("redis", true, rc.HealthCheck))
	}
	if history != nil {
		hm.RegisterChecker(health.NewPingChecker("history", false, history.Ping))
	}

	apiSrv := api.New(api.Deps{
		Config:   cfg,
		Dataset:  store,
		Insights: svc,
		Health:   hm,
	})

	deps := Deps{
		Logger:     logger,
		Config:     cfg,
		APIHandler: apiSrv.Handler(),
	}
	if cfg.Metrics.Enabled {
		deps.MetricsHandler = promhttp.Handler()
		deps.MetricsAddr = cfg.Metrics.ListenAddr
	}
	mgr, err := NewManager(config.ServerConfigFor(cfg), deps)
	if err != nil {
		return nil, err
	}

	// LIFO: history and cache close before tracing flushes.
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	mgr.RegisterShutdownHook("cache", func(context.Context) error { return c.Close() })
	if history != nil {
		mgr.RegisterShutdownHook("history", func(context.Context) error { return history.Close() })
	}

	logger.Info().
		Str(log.FieldEvent, "daemon.bootstrapped").
		Str(log.FieldProvider, svc.Provider()).
		Str("model", svc.Model()).
		Str("cache", c.Name()).
		Bool("history", history != nil).
		Bool("watch", cfg.Dataset.Watch).
		Msg("service wired")

	return &Runtime{
		Config:   cfg,
		Store:    store,
		Insights: svc,
		API:      apiSrv,
		Manager:  mgr,
		App:      NewApp(logger, mgr, store, cfg.Dataset.Watch),
	}, nil
}

// WaitForShutdown returns a context cancelled on interrupt/termination signals.
func WaitForShutdown() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// IsShutdown reports whether err only signals a normal shutdown.
func IsShutdown(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}
