// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ManuGH/salesinsights/internal/config"
	"github.com/ManuGH/salesinsights/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates the environment before the server starts.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkDataDir(logger, cfg.DataDir); err != nil {
		return fmt.Errorf("data directory check failed: %w", err)
	}

	if err := checkListenAddr(logger, "listen", cfg.Server.ListenAddr); err != nil {
		return err
	}
	if cfg.Metrics.Enabled {
		if err := checkListenAddr(logger, "metrics", cfg.Metrics.ListenAddr); err != nil {
			return err
		}
	}

	if err := checkFileReadable(cfg.Dataset.Path); err != nil {
		return fmt.Errorf("dataset %s is not readable: %w", cfg.Dataset.Path, err)
	}
	logger.Info().Str("path", cfg.Dataset.Path).Msg("dataset file is readable")

	checkProvider(logger, cfg.Insights)

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkDataDir(logger zerolog.Logger, path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	// Check write permissions by creating a temp file
	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Info().Str("path", path).Msg("data directory is writable")
	return nil
}

func checkListenAddr(logger zerolog.Logger, name, addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid %s address %q: %w", name, addr, err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("invalid %s port %q in %q", name, port, addr)
	}
	logger.Info().Str("addr", addr).Msgf("%s address is valid", name)
	return nil
}

func checkProvider(logger zerolog.Logger, cfg config.InsightsConfig) {
	provider := cfg.ResolvedProvider()
	switch {
	case provider == config.ProviderHeuristic && cfg.Provider == config.ProviderAuto:
		logger.Warn().Msg("no OPENAI_API_KEY or GEMINI_API_KEY set; insights use the offline heuristic provider")
	case provider != config.ProviderHeuristic && cfg.ResolvedAPIKey() == "":
		logger.Warn().Str("provider", provider).Msg("insights provider has no API key; generation will fail until one is set")
	default:
		logger.Info().Str("provider", provider).Str("model", cfg.ResolvedModel()).Msg("insights provider selected")
	}
}

func checkFileReadable(path string) error {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator config; verifying readability is expected
	if err != nil {
		return err
	}
	return f.Close()
}
