// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"strings"
	"time"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration

	// WriteTimeout must cover a full insight generation round trip
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration

	// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header's keys and values
	MaxHeaderBytes int

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown
	ShutdownTimeout time.Duration

	// MaxConnections caps concurrently accepted connections; 0 disables the cap
	MaxConnections int
}

const (
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 90 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultMaxHeaderBytes  = 1 << 20 // 1 MB
	defaultShutdownTimeout = 15 * time.Second
	minShutdownTimeout     = 3 * time.Second
)

// ServerConfigFor resolves the server settings from the loaded configuration,
// filling gaps with defaults.
func ServerConfigFor(cfg AppConfig) ServerConfig {
	sc := ServerConfig{
		ListenAddr:      strings.TrimSpace(cfg.Server.ListenAddr),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		MaxHeaderBytes:  cfg.Server.MaxHeaderBytes,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxConnections:  cfg.Server.MaxConnections,
	}
	if sc.ListenAddr == "" {
		sc.ListenAddr = defaultListenAddr
	}
	if sc.ReadTimeout <= 0 {
		sc.ReadTimeout = defaultReadTimeout
	}
	if sc.WriteTimeout <= 0 {
		sc.WriteTimeout = defaultWriteTimeout
	}
	// generation must fit inside the write deadline
	if floor := cfg.Insights.Timeout + 5*time.Second; cfg.Insights.Timeout > 0 && sc.WriteTimeout < floor {
		sc.WriteTimeout = floor
	}
	if sc.IdleTimeout <= 0 {
		sc.IdleTimeout = defaultIdleTimeout
	}
	if sc.MaxHeaderBytes <= 0 {
		sc.MaxHeaderBytes = defaultMaxHeaderBytes
	}
	if sc.ShutdownTimeout < minShutdownTimeout {
		sc.ShutdownTimeout = defaultShutdownTimeout
	}
	if sc.MaxConnections < 0 {
		sc.MaxConnections = 0
	}
	return sc
}
