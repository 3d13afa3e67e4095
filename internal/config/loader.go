// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader. An empty configPath skips the
// file stage.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envList(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseList(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults, then
// resolves derived paths and validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	l.resolvePaths(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file on top of cfg with STRICT parsing.
// Unknown fields cause an error to prevent silent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.DataDir = l.envString(EnvPrefix+"DATA_DIR", cfg.DataDir)
	cfg.AllowedOrigins = l.envList(EnvPrefix+"ALLOWED_ORIGINS", cfg.AllowedOrigins)

	cfg.Server.ListenAddr = l.envString(EnvPrefix+"LISTEN", cfg.Server.ListenAddr)
	cfg.Server.ReadTimeout = l.envDuration(EnvPrefix+"SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = l.envDuration(EnvPrefix+"SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.ShutdownTimeout = l.envDuration(EnvPrefix+"SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.MaxConnections = l.envInt(EnvPrefix+"SERVER_MAX_CONNECTIONS", cfg.Server.MaxConnections)

	cfg.Dataset.Path = l.envString(EnvPrefix+"DATASET", cfg.Dataset.Path)
	cfg.Dataset.Watch = l.envBool(EnvPrefix+"DATASET_WATCH", cfg.Dataset.Watch)
	cfg.Dataset.Timezone = l.envString(EnvPrefix+"DATASET_TIMEZONE", cfg.Dataset.Timezone)
	cfg.Dataset.TopN = l.envInt(EnvPrefix+"TOP_N", cfg.Dataset.TopN)

	cfg.Insights.Provider = l.envString(EnvPrefix+"INSIGHTS_PROVIDER", cfg.Insights.Provider)
	cfg.Insights.Model = l.envString(EnvPrefix+"INSIGHTS_MODEL", cfg.Insights.Model)
	cfg.Insights.BaseURL = l.envString(EnvPrefix+"INSIGHTS_BASE_URL", cfg.Insights.BaseURL)
	cfg.Insights.APIKey = l.envString(EnvPrefix+"INSIGHTS_API_KEY", cfg.Insights.APIKey)
	cfg.Insights.Timeout = l.envDuration(EnvPrefix+"INSIGHTS_TIMEOUT", cfg.Insights.Timeout)
	cfg.Insights.MaxRetries = l.envInt(EnvPrefix+"INSIGHTS_MAX_RETRIES", cfg.Insights.MaxRetries)
	cfg.Insights.RequestsPerMinute = l.envInt(EnvPrefix+"INSIGHTS_RPM", cfg.Insights.RequestsPerMinute)
	cfg.Insights.OpenAIKey = l.envString("OPENAI_API_KEY", cfg.Insights.OpenAIKey)
	cfg.Insights.GeminiKey = l.envString("GEMINI_API_KEY", l.envString("GOOGLE_API_KEY", cfg.Insights.GeminiKey))

	cfg.Cache.Backend = l.envString(EnvPrefix+"CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.TTL = l.envDuration(EnvPrefix+"CACHE_TTL", cfg.Cache.TTL)
	cfg.Cache.Redis.Addr = l.envString(EnvPrefix+"REDIS_ADDR", cfg.Cache.Redis.Addr)
	cfg.Cache.Redis.Password = l.envString(EnvPrefix+"REDIS_PASSWORD", cfg.Cache.Redis.Password)
	cfg.Cache.Redis.DB = l.envInt(EnvPrefix+"REDIS_DB", cfg.Cache.Redis.DB)
	cfg.Cache.BadgerDir = l.envString(EnvPrefix+"BADGER_DIR", cfg.Cache.BadgerDir)

	cfg.History.Enabled = l.envBool(EnvPrefix+"HISTORY_ENABLED", cfg.History.Enabled)
	cfg.History.Path = l.envString(EnvPrefix+"HISTORY_PATH", cfg.History.Path)

	cfg.Metrics.Enabled = l.envBool(EnvPrefix+"METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.ListenAddr = l.envString(EnvPrefix+"METRICS_LISTEN", cfg.Metrics.ListenAddr)

	cfg.Telemetry.Enabled = l.envBool(EnvPrefix+"TRACING_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvPrefix+"TRACING_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvPrefix+"TRACING_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvPrefix+"TRACING_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
	cfg.Telemetry.Environment = l.envString(EnvPrefix+"ENVIRONMENT", cfg.Telemetry.Environment)

	cfg.Log.Level = l.envString("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Pretty = l.envBool(EnvPrefix+"LOG_PRETTY", cfg.Log.Pretty)

	cfg.RateLimit.Enabled = l.envBool(EnvPrefix+"RATELIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.RequestsPerMinute = l.envInt(EnvPrefix+"RATELIMIT_RPM", cfg.RateLimit.RequestsPerMinute)
	cfg.RateLimit.InsightsPerMinute = l.envInt(EnvPrefix+"RATELIMIT_INSIGHTS_RPM", cfg.RateLimit.InsightsPerMinute)
	cfg.RateLimit.Whitelist = l.envList(EnvPrefix+"RATELIMIT_WHITELIST", cfg.RateLimit.Whitelist)
}

// resolvePaths makes DataDir absolute and derives state paths that were left
// empty. Enum-like values are lower-cased so "OpenAI" and "openai" agree.
func (l *Loader) resolvePaths(cfg *AppConfig) {
	cfg.Insights.Provider = strings.ToLower(strings.TrimSpace(cfg.Insights.Provider))
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(cfg.DataDir, defaultHistoryFile)
	}
	if cfg.Cache.BadgerDir == "" {
		cfg.Cache.BadgerDir = filepath.Join(cfg.DataDir, defaultBadgerSubdir)
	}
}

// ResolvedProvider returns the concrete provider for "auto": OpenAI when an
// OpenAI key is available, Gemini when only a Gemini key is, else heuristic.
func (c InsightsConfig) ResolvedProvider() string {
	p := strings.ToLower(strings.TrimSpace(c.Provider))
	if p != "" && p != ProviderAuto {
		return p
	}
	switch {
	case c.APIKey != "" || c.OpenAIKey != "":
		return ProviderOpenAI
	case c.GeminiKey != "":
		return ProviderGemini
	default:
		return ProviderHeuristic
	}
}

// ResolvedAPIKey returns the credential for the resolved provider. An
// explicit apiKey wins over the provider's conventional environment variable.
func (c InsightsConfig) ResolvedAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	switch c.ResolvedProvider() {
	case ProviderOpenAI:
		return c.OpenAIKey
	case ProviderGemini:
		return c.GeminiKey
	}
	return ""
}

// ResolvedModel returns the configured model or the provider default.
func (c InsightsConfig) ResolvedModel() string {
	if m := strings.TrimSpace(c.Model); m != "" {
		return m
	}
	switch c.ResolvedProvider() {
	case ProviderOpenAI:
		return DefaultOpenAIModel
	case ProviderGemini:
		return DefaultGeminiModel
	}
	return ProviderHeuristic
}

// ResolvedBaseURL returns the OpenAI-compatible endpoint root.
func (c InsightsConfig) ResolvedBaseURL() string {
	if u := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/"); u != "" {
		return u
	}
	return DefaultOpenAIURL
}
