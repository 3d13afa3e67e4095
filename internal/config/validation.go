// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"time"

	"github.com/ManuGH/salesinsights/internal/validate"
)

// Validate checks the resolved configuration and reports every problem at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.ListenAddr("server.listenAddr", cfg.Server.ListenAddr)
	v.NonNegative("server.maxConnections", cfg.Server.MaxConnections)

	v.NotEmpty("dataset.path", cfg.Dataset.Path)
	v.Range("dataset.topN", cfg.Dataset.TopN, 1, 100)
	if cfg.Dataset.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Dataset.Timezone); err != nil {
			v.AddError("dataset.timezone", fmt.Sprintf("unknown timezone: %v", err), cfg.Dataset.Timezone)
		}
	}

	v.OneOf("insights.provider", cfg.Insights.Provider,
		[]string{ProviderAuto, ProviderOpenAI, ProviderGemini, ProviderHeuristic})
	v.PositiveDuration("insights.timeout", cfg.Insights.Timeout)
	v.Range("insights.maxRetries", cfg.Insights.MaxRetries, 0, 10)
	v.NonNegative("insights.requestsPerMinute", cfg.Insights.RequestsPerMinute)
	v.Positive("insights.maxOutputTokens", cfg.Insights.MaxOutputTokens)
	v.Range("insights.breakerThreshold", cfg.Insights.BreakerThreshold, 1, 100)
	v.PositiveDuration("insights.breakerResetTimeout", cfg.Insights.BreakerResetTimeout)
	if cfg.Insights.BaseURL != "" {
		v.URL("insights.baseURL", cfg.Insights.BaseURL, []string{"http", "https"})
	}
	switch cfg.Insights.Provider {
	case ProviderOpenAI, ProviderGemini:
		if cfg.Insights.ResolvedAPIKey() == "" {
			v.AddError("insights.apiKey",
				fmt.Sprintf("provider %s requires an API key (set %s)", cfg.Insights.Provider, apiKeyEnv(cfg.Insights.Provider)), "")
		}
	}

	v.OneOf("cache.backend", cfg.Cache.Backend, []string{CacheMemory, CacheRedis, CacheBadger, CacheNone})
	if cfg.Cache.Backend != CacheNone {
		v.PositiveDuration("cache.ttl", cfg.Cache.TTL)
	}
	if cfg.Cache.Backend == CacheMemory {
		v.Positive("cache.maxEntries", cfg.Cache.MaxEntries)
	}
	if cfg.Cache.Backend == CacheRedis {
		v.NotEmpty("cache.redis.addr", cfg.Cache.Redis.Addr)
		v.Range("cache.redis.db", cfg.Cache.Redis.DB, 0, 15)
	}

	if cfg.History.Enabled {
		v.NotEmpty("history.path", cfg.History.Path)
		v.Range("history.limit", cfg.History.Limit, 1, 1000)
	}

	if cfg.Metrics.Enabled {
		v.ListenAddr("metrics.listenAddr", cfg.Metrics.ListenAddr)
		if cfg.Metrics.ListenAddr == cfg.Server.ListenAddr {
			v.AddError("metrics.listenAddr", "must differ from server.listenAddr", cfg.Metrics.ListenAddr)
		}
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	v.OneOf("log.level", cfg.Log.Level, []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"})

	if cfg.RateLimit.Enabled {
		v.Positive("rateLimit.requestsPerMinute", cfg.RateLimit.RequestsPerMinute)
		v.Positive("rateLimit.insightsPerMinute", cfg.RateLimit.InsightsPerMinute)
	}

	return v.Err()
}

func apiKeyEnv(provider string) string {
	if provider == ProviderGemini {
		return "GEMINI_API_KEY"
	}
	return "OPENAI_API_KEY"
}
