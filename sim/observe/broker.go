package observe

import (
	"sync"

	"github.com/fleetsim/fleetsim/sim"
)

// Broker fans progress reports out to subscribers keyed by simulation ID.
type Broker interface {
	Subscribe(simulationID string) chan sim.Progress
	Unsubscribe(simulationID string, ch chan sim.Progress)
	Publish(simulationID string, p sim.Progress)
}

// subscriberBuffer is the per-subscriber channel capacity. Reports beyond it
// are dropped for that subscriber.
const subscriberBuffer = 64

// MemoryBroker is an in-process Broker.
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[string]map[chan sim.Progress]struct{} // simulationID -> set of channels
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: map[string]map[chan sim.Progress]struct{}{}}
}

func (b *MemoryBroker) Subscribe(simulationID string) chan sim.Progress {
	ch := make(chan sim.Progress, subscriberBuffer)
	b.mu.Lock()
	if b.subs[simulationID] == nil {
		b.subs[simulationID] = map[chan sim.Progress]struct{}{}
	}
	b.subs[simulationID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes ch. Channels already closed by Close are ignored.
func (b *MemoryBroker) Unsubscribe(simulationID string, ch chan sim.Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[simulationID]
	if _, ok := m[ch]; !ok {
		return
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.subs, simulationID)
	}
	close(ch)
}

func (b *MemoryBroker) Publish(simulationID string, p sim.Progress) {
	b.mu.Lock()
	for ch := range b.subs[simulationID] {
		select {
		case ch <- p:
		default:
		}
	}
	b.mu.Unlock()
}

// Close ends the stream for simulationID: every subscriber channel is closed
// after the reports already buffered in it.
func (b *MemoryBroker) Close(simulationID string) {
	b.mu.Lock()
	for ch := range b.subs[simulationID] {
		close(ch)
	}
	delete(b.subs, simulationID)
	b.mu.Unlock()
}

// Subscribers returns the number of live subscriptions for simulationID.
func (b *MemoryBroker) Subscribers(simulationID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[simulationID])
}

// BrokerSink publishes one simulation's progress to a Broker.
type BrokerSink struct {
	Broker       Broker
	SimulationID string
}

func (s BrokerSink) Report(p sim.Progress) {
	s.Broker.Publish(s.SimulationID, p)
}

// PublishHistory closes the stream when the broker supports it.
func (s BrokerSink) PublishHistory(*sim.History) {
	if c, ok := s.Broker.(interface{ Close(string) }); ok {
		c.Close(s.SimulationID)
	}
}
