// SPDX-License-Identifier: MIT

// Package api serves the sales dashboard and its JSON API.
package api

import (
	"context"
	"net/http"

	"github.com/ManuGH/salesinsights/internal/api/middleware"
	"github.com/ManuGH/salesinsights/internal/config"
	"github.com/ManuGH/salesinsights/internal/dataset"
	"github.com/ManuGH/salesinsights/internal/health"
	"github.com/ManuGH/salesinsights/internal/insights"
	"github.com/ManuGH/salesinsights/internal/sales"
	"github.com/go-chi/chi/v5"
)

// DatasetStore is the live dataset the handlers read from.
type DatasetStore interface {
	Current() (*sales.Dataset, error)
	Reload(ctx context.Context) error
	Status() dataset.Status
}

// InsightService generates and recalls AI insights.
type InsightService interface {
	Generate(ctx context.Context, req insights.Request) (*insights.Insight, error)
	Latest(city string) (*insights.Insight, bool)
	History(ctx context.Context, limit int) ([]insights.Insight, error)
	Get(ctx context.Context, id string) (*insights.Insight, error)
	Provider() string
	Model() string
}

// Deps are the collaborators of a Server.
type Deps struct {
	Config   config.AppConfig
	Dataset  DatasetStore
	Insights InsightService
	Health   *health.Manager
}

// Server owns the HTTP routes. It holds no per-request state.
type Server struct {
	cfg      config.AppConfig
	data     DatasetStore
	insights InsightService
	health   *health.Manager
	topN     int
	handler  http.Handler
}

// New builds a Server and its router.
func New(deps Deps) *Server {
	topN := deps.Config.Dataset.TopN
	if topN <= 0 {
		topN = sales.DefaultTopN
	}
	hm := deps.Health
	if hm == nil {
		hm = health.NewManager(deps.Config.Version)
	}
	s := &Server{
		cfg:      deps.Config,
		data:     deps.Dataset,
		insights: deps.Insights,
		health:   hm,
		topN:     topN,
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// HealthManager returns the health check manager
func (s *Server) HealthManager() *health.Manager { return s.health }

func (s *Server) routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:            true,
		AllowedOrigins:        s.cfg.AllowedOrigins,
		EnableSecurityHeaders: true,
		CSP:                   middleware.DefaultCSP,
		EnableMetrics:         s.cfg.Metrics.Enabled,
		TracingService:        "salesinsights.http",
		EnableLogging:         true,
		RateLimitEnabled:      s.cfg.RateLimit.Enabled,
		RateLimitRPM:          s.cfg.RateLimit.RequestsPerMinute,
		RateLimitWhitelist:    s.cfg.RateLimit.Whitelist,
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Get("/", s.handleDashboard)
	r.With(
		middleware.FormOriginGuard(s.cfg.AllowedOrigins),
		middleware.InsightsRateLimit(s.cfg.RateLimit.InsightsPerMinute),
	).Post("/", s.handleDashboardGenerate)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/overview", s.handleOverview)
		r.Get("/kpis", s.handleKPIs)
		r.Get("/revenue/monthly", s.handleMonthlyRevenue)
		r.Get("/products/top", s.handleTopProducts)
		r.Get("/cities/top", s.handleTopCities)
		r.Get("/cities", s.handleCities)
		r.Get("/summary", s.handleSummary)

		r.Route("/insights", func(r chi.Router) {
			r.With(middleware.InsightsRateLimit(s.cfg.RateLimit.InsightsPerMinute)).Post("/", s.handleGenerateInsight)
			r.Get("/", s.handleListInsights)
			r.Get("/{id}", s.handleGetInsight)
		})

		r.Get("/dataset", s.handleDatasetStatus)
		r.Post("/dataset/reload", s.handleDatasetReload)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, codeNotFound, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not supported here")
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.health.ServeHealth(w, r)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.health.ServeReady(w, r)
}
