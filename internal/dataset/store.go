// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package dataset holds the live sales dataset and reloads it when the CSV
// source changes.
package dataset

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/salesinsights/internal/log"
	"github.com/ManuGH/salesinsights/internal/metrics"
	"github.com/ManuGH/salesinsights/internal/sales"
	"github.com/ManuGH/salesinsights/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
)

// ErrNotLoaded is returned by Current before the first successful load.
var ErrNotLoaded = errors.New("dataset not loaded")

// Listener is called after every successful reload.
type Listener func(ctx context.Context, ds *sales.Dataset)

// Options configures a Store.
type Options struct {
	Path   string
	Load   sales.LoadOptions
	Logger zerolog.Logger
}

// Status describes the loaded dataset for the API and health checks.
type Status struct {
	Source    string    `json:"source"`
	Loaded    bool      `json:"loaded"`
	Rows      int       `json:"rows"`
	RowsRead  int       `json:"rows_read"`
	Dropped   int       `json:"rows_dropped"`
	HasCity   bool      `json:"has_city"`
	Columns   []string  `json:"columns,omitempty"`
	LoadedAt  time.Time `json:"loaded_at,omitzero"`
	LastError string    `json:"last_error,omitempty"`
}

// Store is safe for concurrent use. Datasets are immutable once published.
type Store struct {
	path   string
	opts   sales.LoadOptions
	logger zerolog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	ds        *sales.Dataset
	loadedAt  time.Time
	lastErr   error
	listeners []Listener
}

// NewStore creates an empty store for the CSV at opts.Path.
func NewStore(opts Options) *Store {
	return &Store{
		path:   opts.Path,
		opts:   opts.Load,
		logger: opts.Logger,
		now:    time.Now,
	}
}

// Path returns the CSV source.
func (s *Store) Path() string { return s.path }

// OnReload registers fn to run after each successful reload.
func (s *Store) OnReload(fn Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Current returns the loaded dataset or ErrNotLoaded.
func (s *Store) Current() (*sales.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ds == nil {
		if s.lastErr != nil {
			return nil, errors.Join(ErrNotLoaded, s.lastErr)
		}
		return nil, ErrNotLoaded
	}
	return s.ds, nil
}

// Reload re-reads the source. On failure the previous dataset stays active
// and the error is remembered for Status.
func (s *Store) Reload(ctx context.Context) error {
	ctx, span := telemetry.Tracer("salesinsights.dataset").Start(ctx, "salesinsights.dataset.reload")
	defer span.End()

	logger := log.WithContext(ctx, s.logger).With().Str(log.FieldSource, s.path).Logger()
	start := s.now()

	ds, err := sales.LoadFile(s.path, s.opts)
	if err != nil {
		metrics.IncDatasetLoadFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		s.mu.Lock()
		s.lastErr = err
		kept := s.ds != nil
		s.mu.Unlock()

		logger.Error().Err(err).
			Str(log.FieldEvent, "dataset.reload_failed").
			Bool("kept_previous", kept).
			Msg("dataset load failed")
		return err
	}

	at := s.now()
	s.mu.Lock()
	s.ds = ds
	s.loadedAt = at
	s.lastErr = nil
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	metrics.RecordDatasetLoad(ds.Len(), ds.Stats.RowsDropped, at)
	span.SetAttributes(telemetry.DatasetAttributes(s.path, ds.Len(), ds.Stats.RowsDropped)...)
	span.SetStatus(codes.Ok, "")
	logger.Info().
		Str(log.FieldEvent, "dataset.loaded").
		Int(log.FieldRows, ds.Len()).
		Int(log.FieldRowsDropped, ds.Stats.RowsDropped).
		Bool("has_city", ds.HasCity).
		Dur(log.FieldDuration, at.Sub(start)).
		Msg("dataset loaded")

	for _, fn := range listeners {
		fn(ctx, ds)
	}
	return nil
}

// Status reports what is currently loaded.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{Source: s.path, LoadedAt: s.loadedAt}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if s.ds != nil {
		st.Loaded = true
		st.Rows = s.ds.Len()
		st.RowsRead = s.ds.Stats.RowsRead
		st.Dropped = s.ds.Stats.RowsDropped
		st.HasCity = s.ds.HasCity
		st.Columns = s.ds.Columns
	}
	return st
}
