// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/salesinsights/internal/config"
	"github.com/rs/zerolog"
)

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.CacheConfig, logger zerolog.Logger) (Cache, error) {
	switch cfg.Backend {
	case config.CacheMemory, "":
		return NewMemoryCache(time.Minute, cfg.MaxEntries), nil
	case config.CacheRedis:
		return NewRedisCache(ctx, RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
	case config.CacheBadger:
		return OpenBadgerCache(cfg.BadgerDir, logger)
	case config.CacheNone:
		return NewNoOpCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
