// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ManuGH/salesinsights/internal/insights"
	"github.com/ManuGH/salesinsights/internal/log"
	"github.com/go-chi/chi/v5"
)

const maxInsightBody = 4 << 10

func (s *Server) handleGenerateInsight(w http.ResponseWriter, r *http.Request) {
	var req insights.Request
	r.Body = http.MaxBytesReader(w, r.Body, maxInsightBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeProblem(w, r, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	in, err := s.insights.Generate(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger := log.WithComponentFromContext(log.ContextWithInsightID(r.Context(), in.ID), "api")
	logger.Info().
		Str(log.FieldEvent, "insights.served").
		Str(log.FieldCity, in.City).
		Bool("cached", in.Cached).
		Msg("insight served")
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) handleListInsights(w http.ResponseWriter, r *http.Request) {
	def := s.cfg.History.Limit
	if def <= 0 || def > maxLimit {
		def = 20
	}
	limit, err := intParam(r, "limit", def)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	list, err := s.insights.History(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []insights.Insight{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"insights": list})
}

func (s *Server) handleGetInsight(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeProblem(w, r, http.StatusBadRequest, codeBadRequest, "missing insight id")
		return
	}
	in, err := s.insights.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}
