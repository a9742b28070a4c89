package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleetsim/fleetsim/sim"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
// Histories are kept encoded, so callers never share state with the store.
type Memory struct {
	mu      sync.Mutex
	data    map[uuid.UUID][]byte
	summary map[uuid.UUID]RunSummary
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		data:    map[uuid.UUID][]byte{},
		summary: map[uuid.UUID]RunSummary{},
		now:     time.Now,
	}
}

func (m *Memory) SaveHistory(_ context.Context, h *sim.History) error {
	data, err := encode(h)
	if err != nil {
		return fmt.Errorf("encoding history %s: %w", h.SimulationID, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[h.SimulationID] = data
	m.summary[h.SimulationID] = summarize(h, m.now())
	return nil
}

func (m *Memory) GetHistory(_ context.Context, id uuid.UUID) (*sim.History, error) {
	m.mu.Lock()
	data, ok := m.data[id]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("history %s: %w", id, ErrNotFound)
	}
	return decode(data)
}

func (m *Memory) ListRuns(_ context.Context, limit int) ([]RunSummary, error) {
	m.mu.Lock()
	out := make([]RunSummary, 0, len(m.summary))
	for _, rs := range m.summary {
		out = append(out, rs)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].SavedAt.After(out[j].SavedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
