// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/ManuGH/salesinsights/internal/log"
)

func (s *Server) handleDatasetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.data.Status())
}

// handleDatasetReload re-reads the CSV. A failed reload keeps serving the
// previous dataset, so the error is reported but the status still shows it.
func (s *Server) handleDatasetReload(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	if err := s.data.Reload(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	st := s.data.Status()
	logger.Info().
		Str(log.FieldEvent, "dataset.reload_requested").
		Int(log.FieldRows, st.Rows).
		Msg("dataset reloaded on request")
	writeJSON(w, http.StatusOK, st)
}
