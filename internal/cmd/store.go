package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Hamhunter23/verifi-data-agent/internal/config"
	"github.com/Hamhunter23/verifi-data-agent/internal/core/store"
)

// openCache opens the record cache selected by cfg.Store.Driver. A zero
// cache TTL disables caching and returns nil.
func openCache(ctx context.Context, cfg *config.Config) (store.Cache, error) {
	if cfg.Cache.TTL <= 0 {
		return nil, nil
	}
	cache, err := store.OpenCache(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s record cache: %w", cfg.Store.Driver, err)
	}
	return cache, nil
}

// storeLocation describes where the record cache lives for log output.
func storeLocation(cfg *config.Config) string {
	switch cfg.Store.Driver {
	case store.DriverRedis:
		return cfg.Store.RedisAddr
	case store.DriverLibsql:
		if cfg.Store.URL != "" {
			return cfg.Store.URL
		}
		dbPath := cfg.Store.Path
		if dbPath == "" {
			dbPath = config.DefaultStorePath()
		}
		if absPath, err := filepath.Abs(dbPath); err == nil {
			return absPath
		}
		return dbPath
	default:
		return "in-process"
	}
}
