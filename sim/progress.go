package sim

import (
	"github.com/google/uuid"
)

// ProgressKind classifies a progress report.
type ProgressKind string

const (
	ProgressStarted   ProgressKind = "started"
	ProgressStep      ProgressKind = "step"
	ProgressFinished  ProgressKind = "finished"
	ProgressStalled   ProgressKind = "stalled"
	ProgressCancelled ProgressKind = "cancelled"
	ProgressHorizon   ProgressKind = "horizon"
	ProgressFailed    ProgressKind = "failed" // Advance returned an error
)

// Terminal reports whether no further progress follows this kind.
func (k ProgressKind) Terminal() bool {
	switch k {
	case ProgressFinished, ProgressStalled, ProgressCancelled, ProgressHorizon, ProgressFailed:
		return true
	}
	return false
}

// Progress is a point-in-time report from a running simulation. Order counts
// always add up to the run's total: OpenOrders + InPickup + InTransit + ClosedOrders.
type Progress struct {
	SimulationID uuid.UUID    `json:"simulation_id"`
	Kind         ProgressKind `json:"kind"`
	Status       string       `json:"status"`
	Step         int          `json:"step"`
	OpenOrders   int          `json:"open_orders"`
	ClosedOrders int          `json:"closed_orders"`
	InTransit    int          `json:"in_transit"` // orders on vehicles moving to their target
	InPickup     int          `json:"in_pickup"`  // accepted orders not yet on the delivery leg
}

// ProgressSink receives progress reports. Report is called synchronously from
// the simulation goroutine; slow sinks slow the run.
type ProgressSink interface {
	Report(Progress)
}

// HistorySink is optionally implemented by a ProgressSink that also wants the
// final history once a run ends, whatever the outcome.
type HistorySink interface {
	PublishHistory(*History)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(Progress)

// Report calls f(p).
func (f ProgressFunc) Report(p Progress) { f(p) }

// MultiSink fans reports out to every member in order.
type MultiSink []ProgressSink

// Report forwards p to every non-nil sink.
func (m MultiSink) Report(p Progress) {
	for _, s := range m {
		if s != nil {
			s.Report(p)
		}
	}
}

// PublishHistory forwards h to every member implementing HistorySink.
func (m MultiSink) PublishHistory(h *History) {
	for _, s := range m {
		if hs, ok := s.(HistorySink); ok {
			hs.PublishHistory(h)
		}
	}
}

// discardProgress is used when Simulate is given a nil sink.
var discardProgress ProgressSink = ProgressFunc(func(Progress) {})
