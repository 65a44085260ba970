package store

import (
	"context"
	"sync"
	"time"

	"github.com/Hamhunter23/verifi-data-agent/internal/core"
)

type memoryEntry struct {
	record  core.Record
	expires time.Time
}

// MemoryCache is a process-local record cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func memoryKey(kind core.EntityKind, key string) string {
	return string(kind) + "|" + key
}

// GetCachedRecord returns a copy of the cached record, or nil on a miss.
func (m *MemoryCache) GetCachedRecord(_ context.Context, kind core.EntityKind, key string) (*core.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := memoryKey(kind, key)
	entry, ok := m.entries[k]
	if !ok {
		return nil, nil
	}
	if !m.clock().Before(entry.expires) {
		delete(m.entries, k)
		return nil, nil
	}
	record := entry.record
	record.Payload = core.ClonePayload(record.Payload)
	record.FromCache = true
	return &record, nil
}

// SetCachedRecord stores record until ttl elapses. Non-positive TTLs are ignored.
func (m *MemoryCache) SetCachedRecord(_ context.Context, kind core.EntityKind, key string, record *core.Record, ttl time.Duration) error {
	if record == nil || ttl <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]memoryEntry)
	}
	stored := *record
	stored.Payload = core.ClonePayload(record.Payload)
	m.entries[memoryKey(kind, key)] = memoryEntry{record: stored, expires: m.clock().Add(ttl)}
	return nil
}

// Len reports the number of entries, expired ones included.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryCache) Close() error { return nil }

func (m *MemoryCache) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}
