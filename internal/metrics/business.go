// SPDX-License-Identifier: MIT

// Package metrics exposes the Prometheus business metrics of salesinsights.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Dataset metrics
	datasetRows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "salesinsights_dataset_rows",
		Help: "Number of cleaned transactions in the loaded dataset",
	})

	datasetRowsDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "salesinsights_dataset_rows_dropped",
		Help: "Rows dropped during the last successful load (invalid date, quantity or revenue)",
	})

	datasetReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "salesinsights_dataset_reloads_total",
		Help: "Dataset load attempts by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	datasetLastReload = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "salesinsights_dataset_last_reload_timestamp_seconds",
		Help: "Unix time of the last successful dataset load",
	})

	// Insight metrics
	insightRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "salesinsights_insight_requests_total",
		Help: "Insight generation requests by provider and outcome",
	}, []string{"provider", "outcome"}) // outcome=generated|cached|error

	insightDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "salesinsights_insight_generation_duration_seconds",
		Help:    "Time spent waiting for the insight provider",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
	}, []string{"provider"})

	insightCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "salesinsights_insight_cache_total",
		Help: "Insight cache lookups by backend and result",
	}, []string{"backend", "result"}) // result=hit|miss

	insightCacheClears = promauto.NewCounter(prometheus.CounterOpts{
		Name: "salesinsights_insight_cache_clears_total",
		Help: "Times the insight cache was cleared after a dataset change",
	})

	providerRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "salesinsights_provider_retries_total",
		Help: "Retried provider calls by provider and reason",
	}, []string{"provider", "reason"}) // reason=rate_limited|server_error|transport

	// Operational metrics
	configValidationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "salesinsights_config_validation_errors_total",
		Help: "Total number of configuration validation errors",
	})
)

// RecordDatasetLoad records a successful dataset load.
func RecordDatasetLoad(rows, dropped int, at time.Time) {
	datasetRows.Set(float64(rows))
	datasetRowsDropped.Set(float64(dropped))
	datasetLastReload.Set(float64(at.Unix()))
	datasetReloads.WithLabelValues("success").Inc()
}

func IncDatasetLoadFailure() { datasetReloads.WithLabelValues("failure").Inc() }

// RecordInsight records the outcome of one insight request.
func RecordInsight(provider, outcome string, elapsed time.Duration) {
	insightRequests.WithLabelValues(provider, outcome).Inc()
	if outcome == "generated" || outcome == "error" {
		insightDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	}
}

func RecordCacheLookup(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	insightCache.WithLabelValues(backend, result).Inc()
}

func IncCacheClear() { insightCacheClears.Inc() }

func IncProviderRetry(provider, reason string) {
	providerRetries.WithLabelValues(provider, reason).Inc()
}

func IncConfigValidationError() { configValidationErrors.Inc() }

var (
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "salesinsights_circuit_breaker_state",
		Help: "Circuit breaker state per upstream (1 for the current state)",
	}, []string{"name", "state"})

	circuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "salesinsights_circuit_breaker_trips_total",
		Help: "Times a circuit breaker opened",
	}, []string{"name", "reason"})
)

// SetCircuitBreakerState marks state as the current one for name.
func SetCircuitBreakerState(name, state string) {
	for _, s := range []string{"closed", "open", "half-open"} {
		v := 0.0
		if s == state {
			v = 1
		}
		circuitBreakerState.WithLabelValues(name, s).Set(v)
	}
}

func RecordCircuitBreakerTrip(name, reason string) {
	circuitBreakerTrips.WithLabelValues(name, reason).Inc()
}
