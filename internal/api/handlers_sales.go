// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/ManuGH/salesinsights/internal/sales"
)

// view resolves the dataset and city filter shared by the read endpoints.
func (s *Server) view(w http.ResponseWriter, r *http.Request) (*sales.Dataset, string, bool) {
	ds, err := s.data.Current()
	if err != nil {
		writeError(w, r, err)
		return nil, "", false
	}
	city, err := cityParam(ds, r.URL.Query().Get("city"))
	if err != nil {
		writeError(w, r, err)
		return nil, "", false
	}
	return ds, city, true
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ds, city, ok := s.view(w, r)
	if !ok {
		return
	}
	top, err := intParam(r, "top", s.topN)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sales.Analyze(ds, sales.AnalyzeOptions{City: city, TopN: top}))
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	ds, err := s.data.Current()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sales.ComputeKPIs(ds))
}

func (s *Server) handleMonthlyRevenue(w http.ResponseWriter, r *http.Request) {
	ds, city, ok := s.view(w, r)
	if !ok {
		return
	}
	points := sales.MonthlyRevenue(sales.Filter(ds, city))
	if points == nil {
		points = []sales.MonthPoint{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"city": city, "months": points})
}

func (s *Server) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	ds, city, ok := s.view(w, r)
	if !ok {
		return
	}
	limit, err := intParam(r, "limit", s.topN)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"city":     city,
		"products": nonNil(sales.TopProducts(sales.Filter(ds, city), limit)),
	})
}

func (s *Server) handleTopCities(w http.ResponseWriter, r *http.Request) {
	ds, err := s.data.Current()
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := intParam(r, "limit", s.topN)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cities": nonNil(sales.TopCities(ds, limit))})
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	ds, err := s.data.Current()
	if err != nil {
		writeError(w, r, err)
		return
	}
	cities := sales.Cities(ds)
	if cities == nil {
		cities = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"has_city": ds.HasCity, "cities": cities})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ds, city, ok := s.view(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(sales.Summary(sales.Filter(ds, city), s.topN)))
}

func nonNil(r []sales.Ranked) []sales.Ranked {
	if r == nil {
		return []sales.Ranked{}
	}
	return r
}
