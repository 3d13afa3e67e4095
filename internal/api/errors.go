// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/salesinsights/internal/dataset"
	"github.com/ManuGH/salesinsights/internal/insights"
	"github.com/ManuGH/salesinsights/internal/log"
	"github.com/ManuGH/salesinsights/internal/sales"
)

// Error codes returned in the "error" field.
const (
	codeBadRequest          = "bad_request"
	codeUnknownCity         = "unknown_city"
	codeNotFound            = "not_found"
	codeGenerationFailed    = "generation_failed"
	codeProviderUnavailable = "provider_unavailable"
	codeDatasetUnavailable  = "dataset_unavailable"
	codeDatasetInvalid      = "dataset_invalid"
	codeTimeout             = "timeout"
	codeInternal            = "internal_error"
)

// APIError is the JSON body of every error response.
type APIError struct {
	Code      string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	Hint      string `json:"hint,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeProblem writes an APIError carrying the request id.
func writeProblem(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	writeJSON(w, status, APIError{
		Code:      code,
		Detail:    detail,
		RequestID: log.RequestIDFromContext(r.Context()),
	})
}

// writeError maps a domain error onto a status code and writes it.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	body.RequestID = log.RequestIDFromContext(r.Context())

	logger := log.WithComponentFromContext(r.Context(), "api")
	evt := logger.Warn()
	if status >= http.StatusInternalServerError {
		evt = logger.Error()
	}
	evt.Err(err).
		Str(log.FieldEvent, "api.error").
		Str("code", body.Code).
		Int(log.FieldStatus, status).
		Msg("request failed")

	writeJSON(w, status, body)
}

func classify(err error) (int, APIError) {
	var genErr *insights.GenerationError
	switch {
	case errors.Is(err, insights.ErrUnknownCity):
		return http.StatusBadRequest, APIError{Code: codeUnknownCity, Detail: err.Error()}
	case errors.Is(err, insights.ErrNotFound):
		return http.StatusNotFound, APIError{Code: codeNotFound, Detail: err.Error()}
	case errors.Is(err, dataset.ErrNotLoaded):
		return http.StatusServiceUnavailable, APIError{Code: codeDatasetUnavailable, Detail: err.Error()}
	case errors.Is(err, insights.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, APIError{Code: codeProviderUnavailable, Detail: err.Error()}
	case errors.As(err, &genErr):
		return http.StatusBadGateway, APIError{Code: codeGenerationFailed, Detail: err.Error(), Hint: genErr.Hint}
	case errors.Is(err, sales.ErrMissingColumn), errors.Is(err, sales.ErrEmptyInput):
		return http.StatusUnprocessableEntity, APIError{Code: codeDatasetInvalid, Detail: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, APIError{Code: codeTimeout, Detail: "request timed out"}
	default:
		return http.StatusInternalServerError, APIError{Code: codeInternal, Detail: "An unexpected error occurred."}
	}
}
