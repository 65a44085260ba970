package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Hamhunter23/verifi-data-agent/internal/config"
	"github.com/Hamhunter23/verifi-data-agent/internal/core"
)

const redisKeyPrefix = "verifi:record:"

// RedisCache shares cached records between agent instances.
type RedisCache struct {
	client *redis.Client
}

type redisRecord struct {
	Payload   map[string]any `json:"payload"`
	Source    string         `json:"source"`
	Summary   string         `json:"summary,omitempty"`
	ProofHash string         `json:"proof_hash,omitempty"`
}

// OpenRedisCache connects to cfg.RedisAddr and verifies the connection.
// RedisAddr may also be a redis:// URL.
func OpenRedisCache(ctx context.Context, cfg config.StoreConfig) (*RedisCache, error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("store redis_addr is required")
	}

	var opts *redis.Options
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis URL: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     addr,
			DB:       cfg.RedisDB,
			Password: cfg.RedisPassword,
		}
	}

	client := redis.NewClient(opts)
	if ctx == nil {
		ctx = context.Background()
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisCache(client), nil
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func redisKey(kind core.EntityKind, key string) string {
	return redisKeyPrefix + string(kind) + ":" + key
}

// GetCachedRecord returns the cached record or nil when the key is absent or expired.
func (c *RedisCache) GetCachedRecord(ctx context.Context, kind core.EntityKind, key string) (*core.Record, error) {
	raw, err := c.client.Get(ctx, redisKey(kind, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch cached record: %w", err)
	}

	var stored redisRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode cached record: %w", err)
	}
	return &core.Record{
		Payload:   stored.Payload,
		Source:    stored.Source,
		Summary:   stored.Summary,
		ProofHash: stored.ProofHash,
		FromCache: true,
	}, nil
}

// SetCachedRecord stores record with ttl as the key expiry.
func (c *RedisCache) SetCachedRecord(ctx context.Context, kind core.EntityKind, key string, record *core.Record, ttl time.Duration) error {
	if record == nil || ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(redisRecord{
		Payload:   record.Payload,
		Source:    record.Source,
		Summary:   record.Summary,
		ProofHash: record.ProofHash,
	})
	if err != nil {
		return fmt.Errorf("encode cached record: %w", err)
	}
	if err := c.client.Set(ctx, redisKey(kind, key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("store cached record: %w", err)
	}
	return nil
}

// Health pings the server.
func (c *RedisCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
