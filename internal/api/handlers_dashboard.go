// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/ManuGH/salesinsights/internal/insights"
	"github.com/ManuGH/salesinsights/internal/log"
	"github.com/ManuGH/salesinsights/internal/report"
	"github.com/ManuGH/salesinsights/internal/sales"
)

const maxFormBody = 4 << 10

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.renderDashboard(w, r, r.URL.Query().Get("city"), nil, nil)
}

// handleDashboardGenerate runs the "Generate AI Insights" button and renders
// the page with the result or the error in place.
func (s *Server) handleDashboardGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request: invalid form", http.StatusBadRequest)
		return
	}
	city := r.PostForm.Get("city")

	in, err := s.insights.Generate(r.Context(), insights.Request{City: city})
	s.renderDashboard(w, r, city, in, err)
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, rawCity string, in *insights.Insight, genErr error) {
	logger := log.WithComponentFromContext(r.Context(), "dashboard")

	ds, err := s.data.Current()
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "dashboard.no_dataset").Msg("dashboard requested without dataset")
		http.Error(w, "Service Unavailable: "+err.Error(), http.StatusServiceUnavailable)
		return
	}

	// The page is forgiving: an unknown city falls back to all cities.
	city, err := cityParam(ds, rawCity)
	if err != nil {
		city = sales.AllCities
	}

	opts := report.Options{
		TopN:     s.topN,
		Provider: s.insights.Provider(),
		Model:    s.insights.Model(),
		Version:  s.cfg.Version,
	}
	switch {
	case genErr != nil:
		opts.InsightError = genErr.Error()
		var ge *insights.GenerationError
		if errors.As(genErr, &ge) {
			opts.InsightError = ge.Err.Error()
			opts.InsightHint = ge.Hint
		}
	case in != nil:
		opts.Insight = in
	default:
		if latest, ok := s.insights.Latest(city); ok {
			opts.Insight = latest
		}
	}

	var buf bytes.Buffer
	if err := report.RenderHTML(&buf, sales.Analyze(ds, sales.AnalyzeOptions{City: city, TopN: s.topN}), opts); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "dashboard.render_failed").Msg("failed to render dashboard")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
