package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Hamhunter23/verifi-data-agent/internal/core"
)

// GetCachedRecord returns a cached record if it is still valid.
// A miss returns (nil, nil).
func (s *Store) GetCachedRecord(ctx context.Context, kind core.EntityKind, key string) (*core.Record, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("cache key is required")
	}

	var (
		payloadJSON string
		source      string
		summary     sql.NullString
		proofHash   sql.NullString
	)

	row := s.DB.QueryRowContext(ctx, `
		SELECT payload, source, summary, proof_hash
		FROM record_cache
		WHERE kind = ? AND cache_key = ? AND expires_at > ?
	`, string(kind), key, time.Now().UTC().Unix())

	if err := row.Scan(&payloadJSON, &source, &summary, &proofHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch cached record: %w", err)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return nil, fmt.Errorf("decode cached record: %w", err)
	}

	return &core.Record{
		Payload:   payload,
		Source:    source,
		Summary:   summary.String,
		ProofHash: proofHash.String,
		FromCache: true,
	}, nil
}

// SetCachedRecord stores a record with a TTL. Non-positive TTLs are ignored.
func (s *Store) SetCachedRecord(ctx context.Context, kind core.EntityKind, key string, record *core.Record, ttl time.Duration) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if ttl <= 0 || record == nil {
		return nil
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("cache key is required")
	}

	payloadJSON, err := json.Marshal(record.Payload)
	if err != nil {
		return fmt.Errorf("encode cached record: %w", err)
	}

	now := time.Now().UTC()
	expires := now.Add(ttl)

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO record_cache (kind, cache_key, payload, source, summary, proof_hash, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, cache_key) DO UPDATE SET
			payload = excluded.payload,
			source = excluded.source,
			summary = excluded.summary,
			proof_hash = excluded.proof_hash,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at
	`, string(kind), key, string(payloadJSON), record.Source, record.Summary, record.ProofHash, now.Unix(), expires.Unix())
	if err != nil {
		return fmt.Errorf("store cached record: %w", err)
	}

	return nil
}

// PurgeExpired deletes expired cache rows and reports how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM record_cache WHERE expires_at <= ?`, time.Now().UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge record cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
