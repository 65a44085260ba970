package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Hamhunter23/verifi-data-agent/internal/core"
)

type stubRecordCache struct {
	records map[string]*core.Record
	sets    int
}

func (s *stubRecordCache) GetCachedRecord(ctx context.Context, kind core.EntityKind, key string) (*core.Record, error) {
	if s.records == nil {
		return nil, nil
	}
	return s.records[string(kind)+"/"+key], nil
}

func (s *stubRecordCache) SetCachedRecord(ctx context.Context, kind core.EntityKind, key string, record *core.Record, ttl time.Duration) error {
	if s.records == nil {
		s.records = make(map[string]*core.Record)
	}
	copied := *record
	s.records[string(kind)+"/"+key] = &copied
	s.sets++
	return nil
}

func TestCryptoSourcePrice(t *testing.T) {
	var gotPath, gotIDs, gotCurrency string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotIDs = r.URL.Query().Get("ids")
		gotCurrency = r.URL.Query().Get("vs_currencies")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bitcoin":{"eur":61234.5}}`))
	}))
	defer server.Close()

	src := &CryptoSource{Client: server.Client(), BaseURL: server.URL}
	record, err := src.Fetch(context.Background(), "bitcoin", map[string]string{"currency": "EUR"})
	require.NoError(t, err)
	require.Equal(t, "/simple/price", gotPath)
	require.Equal(t, "bitcoin", gotIDs)
	require.Equal(t, "eur", gotCurrency)
	require.Equal(t, 61234.5, record.Payload["price"])
	require.Equal(t, "eur", record.Payload["currency"])
	require.Equal(t, "bitcoin", record.Payload["asset_id"])
	require.Equal(t, coinGeckoSource, record.Source)
	require.Len(t, record.ProofHash, 64)
}

func TestCryptoSourceDefaultsToUSD(t *testing.T) {
	var gotCurrency string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCurrency = r.URL.Query().Get("vs_currencies")
		_, _ = w.Write([]byte(`{"ethereum":{"usd":3000}}`))
	}))
	defer server.Close()

	src := &CryptoSource{Client: server.Client(), BaseURL: server.URL + "/"}
	record, err := src.Fetch(context.Background(), "ethereum", nil)
	require.NoError(t, err)
	require.Equal(t, "usd", gotCurrency)
	require.Equal(t, float64(3000), record.Payload["price"])
}

func TestCryptoSourceNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	src := &CryptoSource{Client: server.Client(), BaseURL: server.URL}
	_, err := src.Fetch(context.Background(), "notacoin", nil)
	require.Error(t, err)
	require.Equal(t, core.ErrIdentifierNotFound, core.KindOf(err))
}

func TestCryptoSourceNotFoundStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"coin not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	src := &CryptoSource{Client: server.Client(), BaseURL: server.URL}
	_, err := src.Fetch(context.Background(), "notacoin", nil)
	require.Error(t, err)
	require.Equal(t, core.ErrIdentifierNotFound, core.KindOf(err))
}

func TestCryptoSourceUpstreamFailures(t *testing.T) {
	cases := map[string]int{
		"rate limited": http.StatusTooManyRequests,
		"server error": http.StatusBadGateway,
	}
	for name, status := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}))
			defer server.Close()

			src := &CryptoSource{Client: server.Client(), BaseURL: server.URL}
			_, err := src.Fetch(context.Background(), "bitcoin", nil)
			require.Equal(t, core.ErrUpstreamUnavailable, core.KindOf(err))
		})
	}
}

func TestCryptoSourceRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	src := &CryptoSource{Client: server.Client(), BaseURL: server.URL}
	_, err := src.Fetch(context.Background(), "bitcoin", nil)
	require.Equal(t, core.ErrUpstreamUnavailable, core.KindOf(err))
	require.Contains(t, err.Error(), "retry after 30s")

	require.Zero(t, retryAfter(&http.Response{Header: http.Header{"Retry-After": {"soon"}}}))
}

func TestCryptoSourceTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	src := &CryptoSource{Client: server.Client(), BaseURL: server.URL}
	_, err := src.Fetch(ctx, "bitcoin", nil)
	require.Equal(t, core.ErrUpstreamUnavailable, core.KindOf(err))
}

func TestEducationSource(t *testing.T) {
	src, err := NewEducationSource()
	require.NoError(t, err)
	require.Equal(t, core.KindEducationCredential, src.Kind())

	record, err := src.Fetch(context.Background(), "jane_doe", nil)
	require.NoError(t, err)
	require.Equal(t, "Verifiable Credentials System (Decentralized Identity Network)", record.Source)

	credentials, ok := record.Payload["credentials"].([]any)
	require.True(t, ok)
	require.Len(t, credentials, 2)

	profile := record.Payload["profile"].(map[string]any)
	require.Equal(t, "Jane Doe", profile["name"])
	require.Equal(t, holderDID("jane_doe"), profile["identifierDid"])
	require.Equal(t, "did:fetch:njqw4zk7mrxwk", holderDID("jane_doe"))

	_, err = src.Fetch(context.Background(), "nobody", nil)
	require.Equal(t, core.ErrIdentifierNotFound, core.KindOf(err))
}

func TestSupplyChainSource(t *testing.T) {
	src, err := NewSupplyChainSource()
	require.NoError(t, err)

	record, err := src.Fetch(context.Background(), "costa_rica_coffee", nil)
	require.NoError(t, err)

	stages := record.Payload["supplyChain"].([]any)
	require.Len(t, stages, 4)
	proof := record.Payload["verificationProof"].(map[string]any)
	require.Equal(t, "Decentralized Ledger + Agent Consensus", proof["method"])
	require.Equal(t, record.ProofHash, proof["hash"])

	_, err = src.Fetch(context.Background(), "mystery_box", nil)
	require.Equal(t, core.ErrIdentifierNotFound, core.KindOf(err))
}

func TestCarbonSourceScopes(t *testing.T) {
	src, err := NewCarbonSource()
	require.NoError(t, err)

	record, err := src.Fetch(context.Background(), "greencorp", nil)
	require.NoError(t, err)
	require.Equal(t, ScopeCompany, record.Payload["scope"])
	emissions := record.Payload["emissions"].(map[string]any)
	require.Equal(t, float64(12500), emissions["total"])
	require.Equal(t, "Carbon footprint data verified following GHG Protocol Corporate Standard by ClimateAccounting Consortium.", record.Summary)

	record, err = src.Fetch(context.Background(), "macbook_pro", map[string]string{"scope": "company"})
	require.NoError(t, err)
	require.Equal(t, ScopeProduct, record.Payload["scope"])

	record, err = src.Fetch(context.Background(), "london_nyc_flight", map[string]string{"scope": "activity"})
	require.NoError(t, err)
	footprint := record.Payload["carbonFootprint"].(map[string]any)
	require.Equal(t, float64(986), footprint["total"])
	require.Equal(t, float64(5585), footprint["distance"])

	_, err = src.Fetch(context.Background(), "unknown_thing", nil)
	require.Equal(t, core.ErrIdentifierNotFound, core.KindOf(err))
	require.Contains(t, err.Error(), "product, company, activity")

	_, err = src.Fetch(context.Background(), "unknown_thing", map[string]string{"scope": "company"})
	require.Contains(t, err.Error(), "company")
}

func TestReputationSourceAspects(t *testing.T) {
	src, err := NewReputationSource()
	require.NoError(t, err)

	record, err := src.Fetch(context.Background(), "alex_developer", nil)
	require.NoError(t, err)
	scores := record.Payload["reputationScores"].(map[string]any)
	require.Equal(t, float64(92), scores["overall"])
	require.Equal(t, AspectGeneral, record.Payload["aspect"])

	record, err = src.Fetch(context.Background(), "alex_developer", map[string]string{"aspect": "Developer"})
	require.NoError(t, err)
	scores = record.Payload["reputationScores"].(map[string]any)
	require.Equal(t, float64(95), scores["overall"])
	require.Equal(t, "Reputation data verified through Code Repository Analysis + Peer Attestation with attestations from GitHub, GitLab, Code Review DAO.", record.Summary)

	record, err = src.Fetch(context.Background(), "trustdata_service", map[string]string{"aspect": "developer"})
	require.NoError(t, err)
	require.Equal(t, AspectGeneral, record.Payload["aspect"])

	_, err = src.Fetch(context.Background(), "stranger", nil)
	require.Equal(t, core.ErrIdentifierNotFound, core.KindOf(err))
}

func TestCachedSource(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":100}}`))
	}))
	defer server.Close()

	cache := &stubRecordCache{}
	src := WithCache(&CryptoSource{Client: server.Client(), BaseURL: server.URL}, cache, CachePolicy{})
	require.Equal(t, core.KindCryptoPrice, src.Kind())

	first, err := src.Fetch(context.Background(), "bitcoin", map[string]string{"currency": "usd"})
	require.NoError(t, err)
	require.False(t, first.FromCache)

	second, err := src.Fetch(context.Background(), "bitcoin", map[string]string{"currency": "usd"})
	require.NoError(t, err)
	require.True(t, second.FromCache)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.Equal(t, 1, cache.sets)
}

func TestCacheKey(t *testing.T) {
	require.Equal(t, "bitcoin", CacheKey("bitcoin", nil))
	require.Equal(t, "greencorp?aspect=x&scope=company", CacheKey("greencorp", map[string]string{"scope": "Company", "aspect": "x"}))
}

func TestProofHashCanonical(t *testing.T) {
	a, err := ProofHash(map[string]any{"b": 1, "a": "x"})
	require.NoError(t, err)
	b, err := ProofHash(map[string]any{"a": "x", "b": 1})
	require.NoError(t, err)
	require.Equal(t, a, b)
}
