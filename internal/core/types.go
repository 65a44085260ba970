package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// EntityKind identifies the category of verifiable data being requested.
type EntityKind string

const (
	KindCryptoPrice         EntityKind = "crypto_price"
	KindEducationCredential EntityKind = "education_credential"
	KindSupplyChain         EntityKind = "supply_chain"
	KindCarbonFootprint     EntityKind = "carbon_footprint"
	KindReputationScore     EntityKind = "reputation_score"
)

var entityKinds = map[EntityKind]string{
	KindCryptoPrice:         "Live cryptocurrency prices",
	KindEducationCredential: "Education credentials and certifications",
	KindSupplyChain:         "Product supply chain journeys",
	KindCarbonFootprint:     "Carbon footprint of products, companies and activities",
	KindReputationScore:     "Reputation scores for developers, DAOs and services",
}

// EntityKinds returns the supported kinds in a stable order.
func EntityKinds() []EntityKind {
	kinds := make([]EntityKind, 0, len(entityKinds))
	for kind := range entityKinds {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Valid reports whether the kind belongs to the supported set.
func (k EntityKind) Valid() bool {
	_, ok := entityKinds[k]
	return ok
}

// Description returns a short human description of the kind.
func (k EntityKind) Description() string {
	return entityKinds[k]
}

func (k EntityKind) String() string {
	return string(k)
}

// ParseEntityKind converts raw input into a supported kind.
func ParseEntityKind(raw string) (EntityKind, error) {
	kind := EntityKind(strings.ToLower(strings.TrimSpace(raw)))
	if !kind.Valid() {
		return "", Errorf(ErrUnknownEntityKind, "unsupported entity kind %q", strings.TrimSpace(raw))
	}
	return kind, nil
}

// StructuredRequest is the validated form of a user query.
type StructuredRequest struct {
	Kind       EntityKind        `json:"entity_kind"`
	Identifier string            `json:"identifier"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// Param returns a trimmed, lower-cased parameter value or the fallback.
func (r StructuredRequest) Param(key, fallback string) string {
	if r.Parameters == nil {
		return fallback
	}
	value := strings.ToLower(strings.TrimSpace(r.Parameters[key]))
	if value == "" {
		return fallback
	}
	return value
}

func (r StructuredRequest) String() string {
	return fmt.Sprintf("%s/%s", r.Kind, r.Identifier)
}

// Provenance captures how a response was produced.
type Provenance struct {
	RequestID string `json:"request_id"`
	Source    string `json:"source"`
	FromCache bool   `json:"from_cache"`
	ProofHash string `json:"proof_hash,omitempty"`
}

// StructuredResponse carries a successful lookup.
type StructuredResponse struct {
	Kind        EntityKind     `json:"entity_kind"`
	Identifier  string         `json:"identifier"`
	Payload     map[string]any `json:"result_payload"`
	Source      string         `json:"source_description"`
	Summary     string         `json:"verification_summary,omitempty"`
	RetrievedAt time.Time      `json:"retrieved_at"`
	Provenance  Provenance     `json:"provenance"`
}

// Record is what a data source returns for one identifier.
type Record struct {
	Payload   map[string]any `json:"payload"`
	Source    string         `json:"source"`
	Summary   string         `json:"summary,omitempty"`
	ProofHash string         `json:"proof_hash,omitempty"`
	FromCache bool           `json:"-"`
}

// ClonePayload returns a deep copy of the nested maps and slices in p.
func ClonePayload(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return ClonePayload(typed)
	case []any:
		items := make([]any, len(typed))
		for i, item := range typed {
			items[i] = cloneValue(item)
		}
		return items
	case []string:
		return append([]string(nil), typed...)
	default:
		return typed
	}
}
