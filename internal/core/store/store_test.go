package store

import (
	"context"
	"testing"

	"github.com/Hamhunter23/verifi-data-agent/internal/config"
	"github.com/stretchr/testify/require"
)

func TestBuildLibsqlDSN(t *testing.T) {
	t.Run("URLUsesRawValue", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://example.turso.io",
			AuthToken: "token123",
		}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "libsql://example.turso.io?authToken=token123", dsn)
	})

	t.Run("URLWithExistingQuery", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://example.turso.io?foo=bar",
			AuthToken: "token123",
		}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "libsql://example.turso.io?authToken=token123&foo=bar", dsn)
	})

	t.Run("PathWithFilePrefix", func(t *testing.T) {
		cfg := config.StoreConfig{Path: "file:./verifi.db"}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "file:./verifi.db", dsn)
	})

	t.Run("PathMissing", func(t *testing.T) {
		cfg := config.StoreConfig{}

		_, err := buildLibsqlDSN(cfg)
		require.Error(t, err)
	})

	t.Run("MemoryPath", func(t *testing.T) {
		cfg := config.StoreConfig{Path: ":memory:"}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, ":memory:", dsn)
	})
}

func TestOpenCacheDrivers(t *testing.T) {
	t.Run("DefaultIsMemory", func(t *testing.T) {
		cache, err := OpenCache(context.Background(), config.StoreConfig{})
		require.NoError(t, err)
		require.IsType(t, &MemoryCache{}, cache)
		require.NoError(t, cache.Close())
	})

	t.Run("Unsupported", func(t *testing.T) {
		_, err := OpenCache(context.Background(), config.StoreConfig{Driver: "postgres"})
		require.ErrorContains(t, err, "unsupported store driver")
	})

	t.Run("RedisRequiresAddr", func(t *testing.T) {
		_, err := OpenCache(context.Background(), config.StoreConfig{Driver: DriverRedis})
		require.ErrorContains(t, err, "redis_addr")
	})
}

func TestIsLocalDSN(t *testing.T) {
	require.True(t, isLocalDSN(":memory:"))
	require.True(t, isLocalDSN("file:/tmp/verifi.db"))
	require.False(t, isLocalDSN("libsql://example.turso.io"))
}
