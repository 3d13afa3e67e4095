// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Dataset attributes
	DatasetSourceKey      = "dataset.source"
	DatasetRowsKey        = "dataset.rows"
	DatasetRowsDroppedKey = "dataset.rows_dropped"

	// Insight attributes
	InsightProviderKey = "insight.provider"
	InsightModelKey    = "insight.model"
	InsightCityKey     = "insight.city"
	InsightCachedKey   = "insight.cached"
	InsightHashKey     = "insight.summary_hash"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// DatasetAttributes describes a dataset load.
func DatasetAttributes(source string, rows, dropped int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(DatasetSourceKey, source),
		attribute.Int(DatasetRowsKey, rows),
		attribute.Int(DatasetRowsDroppedKey, dropped),
	}
}

// InsightAttributes describes an insight generation. Empty city is omitted.
func InsightAttributes(provider, model, city, hash string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(InsightProviderKey, provider),
		attribute.String(InsightModelKey, model),
	}
	if city != "" {
		attrs = append(attrs, attribute.String(InsightCityKey, city))
	}
	if hash != "" {
		attrs = append(attrs, attribute.String(InsightHashKey, hash))
	}
	return attrs
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
