// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"time"

	"github.com/ManuGH/salesinsights/internal/sales"
)

// AppConfig is the fully resolved runtime configuration. The same struct is
// used for YAML decoding; keys missing from the file keep their defaults.
type AppConfig struct {
	Version string `yaml:"-"`

	// DataDir holds derived state (history database, badger cache, reports).
	DataDir        string   `yaml:"dataDir"`
	AllowedOrigins []string `yaml:"allowedOrigins"`

	Server    ServerRuntimeConfig `yaml:"server"`
	Dataset   DatasetConfig       `yaml:"dataset"`
	Insights  InsightsConfig      `yaml:"insights"`
	Cache     CacheConfig         `yaml:"cache"`
	History   HistoryConfig       `yaml:"history"`
	Metrics   MetricsConfig       `yaml:"metrics"`
	Telemetry TelemetryConfig     `yaml:"telemetry"`
	Log       LogConfig           `yaml:"log"`
	RateLimit RateLimitConfig     `yaml:"rateLimit"`
}

// ServerRuntimeConfig is the YAML view of the HTTP server settings.
type ServerRuntimeConfig struct {
	ListenAddr      string        `yaml:"listenAddr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	MaxHeaderBytes  int           `yaml:"maxHeaderBytes"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxConnections  int           `yaml:"maxConnections"`
}

// DatasetConfig describes where the sales CSV lives and how to read it.
type DatasetConfig struct {
	Path        string              `yaml:"path"`
	Columns     sales.ColumnMapping `yaml:"columns"`
	DateLayouts []string            `yaml:"dateLayouts"`
	Timezone    string              `yaml:"timezone"`
	Watch       bool                `yaml:"watch"`
	TopN        int                 `yaml:"topN"`
}

// InsightsConfig selects and tunes the insight generator.
type InsightsConfig struct {
	// Provider is one of auto, openai, gemini or heuristic.
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"baseURL"`
	APIKey            string        `yaml:"apiKey"`
	OpenAIKey         string        `yaml:"-"`
	GeminiKey         string        `yaml:"-"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"maxRetries"`
	RequestsPerMinute int           `yaml:"requestsPerMinute"`
	MaxOutputTokens   int           `yaml:"maxOutputTokens"`

	// BreakerThreshold consecutive provider outages pause generation for
	// BreakerResetTimeout.
	BreakerThreshold    int           `yaml:"breakerThreshold"`
	BreakerResetTimeout time.Duration `yaml:"breakerResetTimeout"`
}

// CacheConfig controls where generated insights are cached.
type CacheConfig struct {
	// Backend is one of memory, redis, badger or none.
	Backend    string        `yaml:"backend"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"maxEntries"`
	Redis      RedisConfig   `yaml:"redis"`
	BadgerDir  string        `yaml:"badgerDir"`
}

// RedisConfig holds the connection settings for the redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// HistoryConfig controls the sqlite insight history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Limit   int    `yaml:"limit"`
}

// MetricsConfig controls the dedicated Prometheus listener.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listenAddr"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	Environment  string  `yaml:"environment"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// RateLimitConfig controls per-client request limits.
type RateLimitConfig struct {
	Enabled           bool     `yaml:"enabled"`
	RequestsPerMinute int      `yaml:"requestsPerMinute"`
	InsightsPerMinute int      `yaml:"insightsPerMinute"`
	Whitelist         []string `yaml:"whitelist"`
}
