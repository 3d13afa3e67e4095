// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService   = "service"
	FieldVersion   = "version"
	FieldRequestID = "request_id"
	FieldInsightID = "insight_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Dataset fields
	FieldSource      = "source"
	FieldRows        = "rows"
	FieldRowsDropped = "rows_dropped"
	FieldCity        = "city"

	// Insight fields
	FieldProvider    = "provider"
	FieldModel       = "model"
	FieldSummaryHash = "summary_hash"
	FieldCached      = "cached"

	// HTTP fields
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldRemoteAddr = "remote_addr"
	FieldDuration   = "duration"
)
