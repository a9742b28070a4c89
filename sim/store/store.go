// Package store persists simulation histories.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fleetsim/fleetsim/sim"
)

// ErrNotFound is returned when no history is stored under an ID.
var ErrNotFound = errors.New("history not found")

// Store is the persistence interface for finished runs.
type Store interface {
	// SaveHistory inserts or replaces the history keyed by its SimulationID.
	SaveHistory(ctx context.Context, h *sim.History) error
	GetHistory(ctx context.Context, id uuid.UUID) (*sim.History, error)
	// ListRuns returns the most recently saved runs first.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	Close() error
}

// RunSummary is the listing view of a stored history.
type RunSummary struct {
	ID           uuid.UUID   `json:"id"`
	Outcome      sim.Outcome `json:"outcome"`
	Steps        int         `json:"steps"`
	ClosedOrders int         `json:"closed_orders"`
	TotalOrders  int         `json:"total_orders"`
	SavedAt      time.Time   `json:"saved_at"`
}

func summarize(h *sim.History, savedAt time.Time) RunSummary {
	rs := RunSummary{
		ID:          h.SimulationID,
		Outcome:     h.Outcome,
		Steps:       h.Len(),
		TotalOrders: h.NumberOfOrders,
		SavedAt:     savedAt,
	}
	if h.Summary != nil {
		rs.ClosedOrders = h.Summary.ClosedOrders
	}
	return rs
}

func encode(h *sim.History) ([]byte, error) {
	return json.Marshal(h)
}

func decode(data []byte) (*sim.History, error) {
	var h sim.History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Sink saves the final history of a run. It ignores step reports, so it is
// meant to be combined with other sinks through sim.MultiSink.
type Sink struct {
	Store   Store
	Timeout time.Duration
}

func (Sink) Report(sim.Progress) {}

func (s Sink) PublishHistory(h *sim.History) {
	ctx := context.Background()
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	if err := s.Store.SaveHistory(ctx, h); err != nil {
		logrus.Errorf("saving history %s: %v", h.SimulationID, err)
		return
	}
	logrus.Debugf("saved history %s (%d steps)", h.SimulationID, h.Len())
}
