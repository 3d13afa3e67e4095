// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"time"

	"github.com/ManuGH/salesinsights/internal/sales"
)

// Provider names accepted by insights.provider.
const (
	ProviderAuto      = "auto"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderHeuristic = "heuristic"
)

// Cache backends accepted by cache.backend.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheBadger = "badger"
	CacheNone   = "none"
)

const (
	DefaultOpenAIModel  = "gpt-4.1-mini"
	DefaultGeminiModel  = "gemini-2.0-flash"
	DefaultOpenAIURL    = "https://api.openai.com/v1"
	defaultListenAddr   = ":8080"
	defaultMetricsAddr  = ":9090"
	defaultDatasetPath  = "online_sales_dataset.csv"
	defaultDataDir      = "data"
	defaultHistoryFile  = "insights.db"
	defaultBadgerSubdir = "cache"
)

// Defaults returns the configuration used when neither file nor environment
// override a value.
func Defaults() AppConfig {
	return AppConfig{
		DataDir: defaultDataDir,
		Server: ServerRuntimeConfig{
			ListenAddr:      defaultListenAddr,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			MaxHeaderBytes:  defaultMaxHeaderBytes,
			ShutdownTimeout: defaultShutdownTimeout,
			MaxConnections:  256,
		},
		Dataset: DatasetConfig{
			Path:    defaultDatasetPath,
			Columns: sales.DefaultColumns(),
			Watch:   true,
			TopN:    sales.DefaultTopN,
		},
		Insights: InsightsConfig{
			Provider:          ProviderAuto,
			Timeout:           60 * time.Second,
			MaxRetries:        3,
			RequestsPerMinute: 20,
			MaxOutputTokens:   1200,

			BreakerThreshold:    5,
			BreakerResetTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			Backend:    CacheMemory,
			TTL:        6 * time.Hour,
			MaxEntries: 128,
		},
		History: HistoryConfig{
			Enabled: true,
			Limit:   50,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: defaultMetricsAddr,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			Environment:  "production",
			SamplingRate: 1.0,
		},
		Log: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 300,
			InsightsPerMinute: 6,
		},
	}
}
