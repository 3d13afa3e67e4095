// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package insights

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/salesinsights/internal/cache"
	"github.com/ManuGH/salesinsights/internal/log"
	"github.com/ManuGH/salesinsights/internal/metrics"
	"github.com/ManuGH/salesinsights/internal/sales"
	"github.com/ManuGH/salesinsights/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

// ErrUnknownCity is returned when an insight is requested for a city that
// does not occur in the dataset.
var ErrUnknownCity = errors.New("unknown city")

// DatasetSource provides the dataset insights are generated from.
type DatasetSource interface {
	Current() (*sales.Dataset, error)
}

// Insight is one generated analysis.
type Insight struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	City        string    `json:"city"`
	SummaryHash string    `json:"summary_hash"`
	Text        string    `json:"text"`
	Cached      bool      `json:"cached"`
}

// Request selects the slice of the dataset to analyse. An empty City (or
// "All") uses every transaction.
type Request struct {
	City string `json:"city"`
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Source    DatasetSource
	Generator Generator
	Cache     cache.Cache   // nil disables caching
	CacheTTL  time.Duration // <= 0 uses six hours
	History   HistoryStore  // nil keeps no history
	TopN      int
	// Timeout bounds a shared generation; <= 0 uses two minutes.
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Service builds prompts, calls the generator and remembers the results.
type Service struct {
	source  DatasetSource
	gen     Generator
	cache   cache.Cache
	ttl     time.Duration
	history HistoryStore
	topN    int
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time

	group singleflight.Group

	mu     sync.RWMutex
	latest map[string]Insight
	// epoch advances on ClearCache; results started under an older epoch
	// describe a replaced dataset and are not remembered.
	epoch uint64
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	c := cfg.Cache
	if c == nil {
		c = cache.NewNoOpCache()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	topN := cfg.TopN
	if topN <= 0 {
		topN = sales.DefaultTopN
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Service{
		source:  cfg.Source,
		gen:     cfg.Generator,
		cache:   c,
		ttl:     ttl,
		history: cfg.History,
		topN:    topN,
		timeout: timeout,
		logger:  cfg.Logger,
		now:     time.Now,
		latest:  make(map[string]Insight),
	}
}

// Provider returns the name of the configured generator.
func (s *Service) Provider() string { return s.gen.Name() }

// Model returns the model of the configured generator.
func (s *Service) Model() string { return s.gen.Model() }

// Generate returns insights for req, from the cache when the same summary was
// analysed before by the same provider and model.
func (s *Service) Generate(ctx context.Context, req Request) (*Insight, error) {
	ds, err := s.source.Current()
	if err != nil {
		return nil, err
	}

	city := strings.TrimSpace(req.City)
	if sales.IsAllCities(city) {
		city = sales.AllCities
	}
	filtered := sales.Filter(ds, city)
	if city != sales.AllCities && (!ds.HasCity || filtered.Len() == 0) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCity, city)
	}

	epoch := s.currentEpoch()
	summary := sales.Summary(filtered, s.topN)
	summaryHash := hashOf(summary)
	key := hashOf(s.gen.Name() + "|" + s.gen.Model() + "|" + city + "|" + summary)

	tracer := telemetry.Tracer("salesinsights.insights")
	ctx, span := tracer.Start(ctx, "salesinsights.insights.generate")
	defer span.End()
	span.SetAttributes(telemetry.InsightAttributes(s.gen.Name(), s.gen.Model(), city, summaryHash)...)

	logger := log.WithContext(ctx, s.logger).With().
		Str(log.FieldProvider, s.gen.Name()).
		Str(log.FieldCity, city).
		Str(log.FieldSummaryHash, summaryHash[:12]).
		Logger()

	if in, ok := s.lookup(ctx, key); ok {
		span.SetAttributes(attribute.Bool(telemetry.InsightCachedKey, true))
		metrics.RecordInsight(s.gen.Name(), "cached", 0)
		logger.Debug().Str(log.FieldEvent, "insights.cache_hit").Msg("serving cached insight")
		s.remember(*in, epoch)
		return in, nil
	}

	// The shared call must outlive any single caller: one client going away
	// must not fail the others waiting on the same key.
	ch := s.group.DoChan(key, func() (any, error) {
		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.generate(genCtx, logger, key, city, summary, summaryHash, filtered, epoch)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		return nil, ctx.Err()
	}
	v, err, shared := res.Val, res.Err, res.Shared
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(telemetry.ErrorAttributes("generation")...)
		return nil, err
	}
	span.SetStatus(codes.Ok, "")

	out := v.(Insight)
	if shared {
		logger.Debug().Str(log.FieldEvent, "insights.shared").Msg("joined in-flight generation")
	}
	return &out, nil
}

func (s *Service) generate(ctx context.Context, logger zerolog.Logger, key, city, summary, summaryHash string, ds *sales.Dataset, epoch uint64) (Insight, error) {
	start := s.now()
	text, err := s.gen.Generate(ctx, Input{
		Prompt:   BuildPrompt(summary),
		Summary:  summary,
		Overview: sales.Analyze(ds, sales.AnalyzeOptions{TopN: s.topN}),
	})
	elapsed := s.now().Sub(start)
	if err != nil {
		metrics.RecordInsight(s.gen.Name(), "error", elapsed)
		genErr := &GenerationError{
			Provider: s.gen.Name(),
			Model:    s.gen.Model(),
			Hint:     hintFor(s.gen.Name(), err),
			Err:      err,
		}
		logger.Error().Err(err).Str(log.FieldEvent, "insights.failed").Dur(log.FieldDuration, elapsed).Msg("insight generation failed")
		return Insight{}, genErr
	}
	metrics.RecordInsight(s.gen.Name(), "generated", elapsed)

	in := Insight{
		ID:          uuid.NewString(),
		CreatedAt:   s.now().UTC(),
		Provider:    s.gen.Name(),
		Model:       s.gen.Model(),
		City:        city,
		SummaryHash: summaryHash,
		Text:        text,
	}

	if s.currentEpoch() == epoch {
		if raw, err := json.Marshal(in); err == nil {
			s.cache.Set(ctx, key, raw, s.ttl)
		}
	}
	if s.history != nil {
		if err := s.history.Save(ctx, &in); err != nil {
			logger.Warn().Err(err).Str(log.FieldEvent, "insights.history_failed").Msg("failed to persist insight")
		}
	}
	if !s.remember(in, epoch) {
		logger.Info().Str(log.FieldEvent, "insights.stale").Msg("dataset changed during generation; result not cached")
	}

	logger.Info().
		Str(log.FieldEvent, "insights.generated").
		Str(log.FieldInsightID, in.ID).
		Dur(log.FieldDuration, elapsed).
		Msg("insight generated")
	return in, nil
}

func (s *Service) lookup(ctx context.Context, key string) (*Insight, bool) {
	raw, ok := s.cache.Get(ctx, key)
	metrics.RecordCacheLookup(s.cache.Name(), ok)
	if !ok {
		return nil, false
	}
	var in Insight
	if err := json.Unmarshal(raw, &in); err != nil {
		s.cache.Delete(ctx, key)
		return nil, false
	}
	in.Cached = true
	return &in, true
}

func (s *Service) currentEpoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// remember records in as the latest insight for its city unless the cache
// was cleared since epoch.
func (s *Service) remember(in Insight, epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	s.latest[in.City] = in
	return true
}

// Latest returns the most recent insight for city ("" or "All" for the full
// dataset) produced since the last cache reset.
func (s *Service) Latest(city string) (*Insight, bool) {
	if sales.IsAllCities(city) {
		city = sales.AllCities
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, ok := s.latest[strings.TrimSpace(city)]
	if !ok {
		return nil, false
	}
	return &in, true
}

// History lists stored insights, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]Insight, error) {
	if s.history == nil {
		return []Insight{}, nil
	}
	return s.history.List(ctx, limit)
}

// Get returns a stored insight by id.
func (s *Service) Get(ctx context.Context, id string) (*Insight, error) {
	if s.history == nil {
		return nil, ErrNotFound
	}
	return s.history.Get(ctx, id)
}

// ClearCache drops cached insights; called after the dataset changed.
func (s *Service) ClearCache(ctx context.Context) {
	s.cache.Clear(ctx)
	s.mu.Lock()
	s.latest = make(map[string]Insight)
	s.epoch++
	s.mu.Unlock()
	metrics.IncCacheClear()
	s.logger.Info().Str(log.FieldEvent, "insights.cache_cleared").Str("backend", s.cache.Name()).Msg("insight cache cleared")
}

func hashOf(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
