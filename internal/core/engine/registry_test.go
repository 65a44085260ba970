package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Hamhunter23/verifi-data-agent/internal/core"
	"github.com/Hamhunter23/verifi-data-agent/internal/core/source"
)

type stubSource struct {
	kind   core.EntityKind
	calls  int32
	delay  time.Duration
	record *core.Record
	err    error
	seen   atomic.Value
}

func (s *stubSource) Kind() core.EntityKind { return s.kind }

func (s *stubSource) Describe() string { return "Stub " + string(s.kind) }

func (s *stubSource) Fetch(ctx context.Context, identifier string, params map[string]string) (*core.Record, error) {
	atomic.AddInt32(&s.calls, 1)
	s.seen.Store(identifier)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.record != nil {
		return s.record, nil
	}
	return &core.Record{
		Payload: map[string]any{"identifier": identifier},
		Source:  s.Describe(),
	}, nil
}

func (s *stubSource) callCount() int {
	return int(atomic.LoadInt32(&s.calls))
}

func TestRegistryResolve(t *testing.T) {
	crypto := &stubSource{kind: core.KindCryptoPrice}
	carbon := &stubSource{kind: core.KindCarbonFootprint}

	registry, err := NewRegistry(crypto, carbon, nil)
	require.NoError(t, err)
	require.Equal(t, []core.EntityKind{core.KindCarbonFootprint, core.KindCryptoPrice}, registry.Kinds())

	src, err := registry.Resolve(core.KindCryptoPrice)
	require.NoError(t, err)
	require.Same(t, crypto, src)
	require.Equal(t, "Stub carbon_footprint", registry.Describe(core.KindCarbonFootprint))

	_, err = registry.Resolve(core.EntityKind("lottery_numbers"))
	require.Equal(t, core.ErrUnknownEntityKind, core.KindOf(err))

	_, err = registry.Resolve(core.KindReputationScore)
	require.Equal(t, core.ErrUnknownEntityKind, core.KindOf(err))
}

func TestRegistryRejectsInvalidSources(t *testing.T) {
	_, err := NewRegistry(&stubSource{kind: core.KindCryptoPrice}, &stubSource{kind: core.KindCryptoPrice})
	require.ErrorContains(t, err, "duplicate")

	_, err = NewRegistry(&stubSource{kind: core.EntityKind("weather")})
	require.ErrorContains(t, err, "unsupported kind")
}

func TestRegistryKindsIsACopy(t *testing.T) {
	registry, err := NewRegistry(&stubSource{kind: core.KindSupplyChain})
	require.NoError(t, err)

	kinds := registry.Kinds()
	kinds[0] = core.EntityKind("mutated")
	require.Equal(t, []core.EntityKind{core.KindSupplyChain}, registry.Kinds())
}

func toSources(stubs []*stubSource) []source.Source {
	out := make([]source.Source, 0, len(stubs))
	for _, stub := range stubs {
		out = append(out, stub)
	}
	return out
}
