package source

import (
	"context"
	"strings"
	"time"

	"github.com/Hamhunter23/verifi-data-agent/internal/core"
)

// DefaultCacheTTL matches the freshness window of the upstream data networks.
const DefaultCacheTTL = 5 * time.Minute

// RecordCache stores fetched records between requests.
type RecordCache interface {
	GetCachedRecord(ctx context.Context, kind core.EntityKind, key string) (*core.Record, error)
	SetCachedRecord(ctx context.Context, kind core.EntityKind, key string, record *core.Record, ttl time.Duration) error
}

// CachePolicy controls cache TTLs for fetched records.
type CachePolicy struct {
	TTL time.Duration
}

func cachePolicyWithDefaults(policy CachePolicy) CachePolicy {
	if policy.TTL == 0 {
		policy.TTL = DefaultCacheTTL
	}
	return policy
}

// Cached serves records from a RecordCache before delegating to the wrapped source.
// Only successful fetches are cached.
type Cached struct {
	Source
	Cache  RecordCache
	Policy CachePolicy
}

// WithCache wraps src with cache. A nil cache returns src unchanged.
func WithCache(src Source, cache RecordCache, policy CachePolicy) Source {
	if src == nil || cache == nil {
		return src
	}
	return &Cached{Source: src, Cache: cache, Policy: cachePolicyWithDefaults(policy)}
}

// Fetch implements Source.
func (c *Cached) Fetch(ctx context.Context, identifier string, params map[string]string) (*core.Record, error) {
	key := CacheKey(identifier, params)
	kind := c.Source.Kind()

	if cached, err := c.Cache.GetCachedRecord(ctx, kind, key); err == nil && cached != nil {
		cached.FromCache = true
		return cached, nil
	}

	record, err := c.Source.Fetch(ctx, identifier, params)
	if err != nil {
		return nil, err
	}

	if ttl := c.Policy.TTL; ttl > 0 {
		_ = c.Cache.SetCachedRecord(ctx, kind, key, record, ttl)
	}
	return record, nil
}

// CacheKey builds a deterministic cache key from an identifier and its parameters.
func CacheKey(identifier string, params map[string]string) string {
	if len(params) == 0 {
		return identifier
	}
	keys := sortedKeys(params)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+strings.ToLower(params[key]))
	}
	return identifier + "?" + strings.Join(parts, "&")
}
