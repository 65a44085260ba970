package engine

import (
	"context"
	"sync"
	"time"

	"github.com/Hamhunter23/verifi-data-agent/internal/core"
	"github.com/Hamhunter23/verifi-data-agent/internal/metrics"
)

// Quota defaults for direct structured requests.
const (
	DefaultQuotaThreshold = 100
	DefaultQuotaWindow    = 60 * time.Minute
)

// QuotaStore stores per-requester quota windows.
type QuotaStore interface {
	GetQuota(ctx context.Context, requester string) (*core.QuotaState, error)
	UpdateQuota(ctx context.Context, requester string, state *core.QuotaState) error
}

// QuotaGuard enforces a fixed-window request quota per requester.
type QuotaGuard struct {
	Store     QuotaStore
	Threshold int
	Window    time.Duration
	Clock     func() time.Time

	mu sync.Mutex
}

// NewQuotaGuard returns a guard over an in-memory store.
func NewQuotaGuard(threshold int, window time.Duration) *QuotaGuard {
	return &QuotaGuard{
		Store:     NewMemoryQuotaStore(),
		Threshold: threshold,
		Window:    window,
	}
}

// Admit counts a request against requester's quota and fails with
// QuotaExceeded once the threshold is reached within the current window.
// Rejected requests are not counted.
func (g *QuotaGuard) Admit(ctx context.Context, requester string) error {
	if g == nil || g.Store == nil {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	state, err := g.current(ctx, requester, now)
	if err != nil {
		return err
	}

	limit := g.threshold()
	if state.Count >= limit {
		metrics.RecordQuotaDecision(false)
		retry := state.WindowStart.Add(g.window()).Sub(now).Round(time.Second)
		return core.Errorf(core.ErrQuotaExceeded, "quota of %d requests per %s exhausted, retry in %s", limit, g.window(), retry)
	}

	state.Count++
	if err := g.Store.UpdateQuota(ctx, requester, state); err != nil {
		return err
	}
	metrics.RecordQuotaDecision(true)
	return nil
}

// Remaining reports how many requests requester may still make and when the window resets.
func (g *QuotaGuard) Remaining(ctx context.Context, requester string) (int, time.Time, error) {
	if g == nil || g.Store == nil {
		return 0, time.Time{}, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	state, err := g.current(ctx, requester, g.now())
	if err != nil {
		return 0, time.Time{}, err
	}
	remaining := g.threshold() - state.Count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, state.WindowStart.Add(g.window()), nil
}

// current loads the requester's window, starting a fresh one when none
// exists or the previous one has elapsed. Callers hold g.mu.
func (g *QuotaGuard) current(ctx context.Context, requester string, now time.Time) (*core.QuotaState, error) {
	state, err := g.Store.GetQuota(ctx, requester)
	if err != nil {
		return nil, err
	}
	if state == nil || now.After(state.WindowStart.Add(g.window())) {
		return &core.QuotaState{WindowStart: now}, nil
	}
	return state, nil
}

func (g *QuotaGuard) threshold() int {
	if g.Threshold <= 0 {
		return DefaultQuotaThreshold
	}
	return g.Threshold
}

func (g *QuotaGuard) window() time.Duration {
	if g.Window <= 0 {
		return DefaultQuotaWindow
	}
	return g.Window
}

func (g *QuotaGuard) now() time.Time {
	if g != nil && g.Clock != nil {
		return g.Clock()
	}
	return time.Now().UTC()
}

// MemoryQuotaStore keeps quota state in process memory.
type MemoryQuotaStore struct {
	mu     sync.Mutex
	states map[string]core.QuotaState
}

// NewMemoryQuotaStore returns an empty store.
func NewMemoryQuotaStore() *MemoryQuotaStore {
	return &MemoryQuotaStore{states: make(map[string]core.QuotaState)}
}

func (m *MemoryQuotaStore) GetQuota(ctx context.Context, requester string) (*core.QuotaState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[requester]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (m *MemoryQuotaStore) UpdateQuota(ctx context.Context, requester string, state *core.QuotaState) error {
	if state == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states == nil {
		m.states = make(map[string]core.QuotaState)
	}
	m.states[requester] = *state
	return nil
}
