// Package source implements the per-kind data sources behind the dispatcher.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"

	"github.com/Hamhunter23/verifi-data-agent/internal/core"
)

// Source fetches records for exactly one entity kind.
type Source interface {
	// Kind returns the entity kind served by this source.
	Kind() core.EntityKind

	// Describe returns the human readable source description.
	Describe() string

	// Fetch returns the record for a normalized identifier. Failures are
	// *core.Error values of kind IdentifierNotFound or UpstreamUnavailable.
	Fetch(ctx context.Context, identifier string, params map[string]string) (*core.Record, error)
}

// ProofHash returns the sha256 of the canonical JSON encoding of v.
func ProofHash(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode proof input: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize proof input: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// toPayload converts a typed payload into the generic map carried by responses.
func toPayload(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}

func param(params map[string]string, keys ...string) string {
	for _, key := range keys {
		if value, ok := params[key]; ok && value != "" {
			return value
		}
	}
	return ""
}

func notFound(format string, args ...any) error {
	return core.Errorf(core.ErrIdentifierNotFound, format, args...)
}
