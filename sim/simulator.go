// sim/simulator.go
package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/fleetsim/fleetsim/sim/graph"
	"github.com/fleetsim/fleetsim/sim/trace"
)

// Simulator is the core object that holds the fleet, the order pools and the
// step counter. It is driven from a single goroutine; only the Pathfinder it
// queries is shared.
type Simulator struct {
	Params SimulationParameters
	// Step counts completed Advance calls
	Step int

	paths    *graph.Pathfinder
	template *VehicleTemplate // shared by every vehicle
	vehicles []*VehicleInstance
	// open holds orders not yet accepted, in generation order
	open        OrderPool
	closed      []*CompletedOrder
	totalOrders int

	// idleThrough counts vehicles that were idle both before and after the
	// last Advance; advanced is false until the first Advance.
	idleThrough int
	advanced    bool

	history *History
	trace   *trace.SimulationTrace
}

// NewSimulator validates params, places the vehicles and generates the orders.
//
// Vehicle i starts at bases[ForIndex(i).Intn(len(bases))]. Generated order i
// draws its start and its target from two fresh generators for index i, so
// both come from the same first draw of seed+i.
func NewSimulator(params SimulationParameters) (*Simulator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	g := params.Graph

	bases := g.VerticesOfType(graph.VertexBase)
	if len(bases) == 0 {
		return nil, ErrNoBases
	}
	targets := g.VerticesOfType(graph.VertexTarget)
	if len(params.Orders) == 0 && params.NumberOfOrders > 0 && len(targets) == 0 {
		return nil, ErrNoTargets
	}

	tmpl := params.Vehicle
	s := &Simulator{
		Params:   params,
		paths:    graph.NewPathfinder(g),
		template: &tmpl,
		vehicles: make([]*VehicleInstance, 0, params.NumberOfVehicles),
		closed:   make([]*CompletedOrder, 0),
	}
	if params.TraceLevel.Enabled() {
		s.trace = trace.NewSimulationTrace(params.TraceLevel)
	}

	rng := NewIndexedRNG(NewSimulationKey(params.Seed))
	for i := 0; i < params.NumberOfVehicles; i++ {
		s.vehicles = append(s.vehicles, newVehicleInstance(i, s.template, Pick(rng, i, bases)))
	}

	if len(params.Orders) > 0 {
		for i, o := range params.Orders {
			s.open.Enqueue(NewOrder(i, o.Start, o.Target, o.PayloadWeight))
		}
	} else {
		for i := 0; i < params.NumberOfOrders; i++ {
			s.open.Enqueue(NewOrder(i, Pick(rng, i, bases), Pick(rng, i, targets), *params.OrderPayload))
		}
	}
	s.totalOrders = s.open.Len()
	s.history = newHistory(params, s.totalOrders)

	logrus.Infof("Simulation %s: %d %q vehicles, %d orders, seed %d", params.ID, len(s.vehicles), tmpl.Name, s.totalOrders, params.Seed)
	return s, nil
}

// ID returns the simulation identifier.
func (s *Simulator) ID() uuid.UUID { return s.Params.ID }

// Vehicles returns the fleet. Callers must not mutate the returned vehicles.
func (s *Simulator) Vehicles() []*VehicleInstance { return s.vehicles }

// OpenOrders returns a copy of the open pool.
func (s *Simulator) OpenOrders() []Order {
	return append([]Order(nil), s.open.Items()...)
}

// ClosedOrders returns the delivered orders in closing order.
func (s *Simulator) ClosedOrders() []*CompletedOrder { return s.closed }

// History returns the history recorded so far.
func (s *Simulator) History() *History { return s.history }

// Trace returns the dispatch trace, or nil when tracing is disabled.
func (s *Simulator) Trace() *trace.SimulationTrace { return s.trace }

// Pathfinder returns the route cache shared by the run.
func (s *Simulator) Pathfinder() *graph.Pathfinder { return s.paths }

// Advance moves every vehicle one step, in fleet order.
func (s *Simulator) Advance() error {
	idleBefore := make([]bool, len(s.vehicles))
	for i, v := range s.vehicles {
		idleBefore[i] = v.State == VehicleIdle
	}

	for _, v := range s.vehicles {
		if err := s.advanceVehicle(v); err != nil {
			return fmt.Errorf("step %d: %w", s.Step, err)
		}
	}
	s.Step++

	s.idleThrough = 0
	for i, v := range s.vehicles {
		if idleBefore[i] && v.State == VehicleIdle {
			s.idleThrough++
		}
	}
	s.advanced = true
	logrus.Debugf("[step %06d] open=%d closed=%d idle=%d/%d", s.Step, s.open.Len(), len(s.closed), s.idleThrough, len(s.vehicles))
	return nil
}

// Completed reports whether every order has been delivered.
func (s *Simulator) Completed() bool {
	if s.open.Len() > 0 {
		return false
	}
	for _, v := range s.vehicles {
		if v.HasOrders() {
			return false
		}
	}
	return true
}

// Stalled reports whether open orders remain that the fleet will never take:
// every vehicle stayed idle through the last Advance, or there is no fleet.
func (s *Simulator) Stalled() bool {
	if s.open.Len() == 0 {
		return false
	}
	if len(s.vehicles) == 0 {
		return true
	}
	return s.advanced && s.idleThrough == len(s.vehicles)
}

// IsDone reports whether the run has nothing left to do.
func (s *Simulator) IsDone() bool {
	return s.Completed() || s.Stalled()
}

// Simulate runs the simulation until it is done, MaxSteps is reached, or ctx
// is cancelled. Steps are paced at SimulationSpeed steps per second when it is
// positive.
//
// On cancellation the partial history is returned together with an error
// wrapping both ErrCancelled and the context's error. A stalled run is not an
// error; it is reported through History.Outcome and History.Stalled.
func (s *Simulator) Simulate(ctx context.Context, sink ProgressSink) (*History, error) {
	if sink == nil {
		sink = discardProgress
	}
	var limiter *rate.Limiter
	if s.Params.SimulationSpeed > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.Params.SimulationSpeed), 1)
	}

	s.report(sink, ProgressStarted, fmt.Sprintf("Starting simulation with %d %s", len(s.vehicles), s.template.Name))

	for !s.IsDone() {
		if s.Params.MaxSteps > 0 && s.Step >= s.Params.MaxSteps {
			return s.finish(sink, OutcomeHorizon, ProgressHorizon,
				fmt.Sprintf("Stopped simulation at step horizon %d", s.Params.MaxSteps))
		}
		if err := ctx.Err(); err != nil {
			return s.cancel(sink, err)
		}

		s.report(sink, ProgressStep, s.stepStatus())
		s.recordStep()
		if err := s.Advance(); err != nil {
			return s.fail(sink, err)
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				cause := ctx.Err()
				if cause == nil {
					cause = err
				}
				return s.cancel(sink, cause)
			}
		}
	}

	if s.Completed() {
		return s.finish(sink, OutcomeCompleted, ProgressFinished,
			fmt.Sprintf("Finished simulation with %d %s", len(s.vehicles), s.template.Name))
	}

	stalled, err := s.StalledOrders(context.WithoutCancel(ctx))
	if err != nil {
		return s.history, err
	}
	s.history.Stalled = stalled
	logrus.Warnf("[step %06d] Simulation stalled with %d open orders", s.Step, len(stalled))
	return s.finish(sink, OutcomeStalled, ProgressStalled,
		fmt.Sprintf("Stalled simulation with %d %s: %d orders cannot be delivered", len(s.vehicles), s.template.Name, len(stalled)))
}

func (s *Simulator) finish(sink ProgressSink, outcome Outcome, kind ProgressKind, status string) (*History, error) {
	s.history.Outcome = outcome
	s.history.Summary = s.Metrics()
	s.history.Final = s.report(sink, kind, status)
	s.publishHistory(sink)
	logrus.Infof("[step %06d] Simulation %s: %s", s.Step, outcome, status)
	return s.history, nil
}

func (s *Simulator) cancel(sink ProgressSink, cause error) (*History, error) {
	s.history.Outcome = OutcomeCancelled
	s.history.Summary = s.Metrics()
	s.history.Final = s.report(sink, ProgressCancelled, fmt.Sprintf("Stopped simulation with %d %s", len(s.vehicles), s.template.Name))
	s.publishHistory(sink)
	logrus.Infof("[step %06d] Simulation cancelled: %v", s.Step, cause)
	return s.history, errors.Join(ErrCancelled, cause)
}

func (s *Simulator) fail(sink ProgressSink, cause error) (*History, error) {
	s.history.Outcome = OutcomeFailed
	s.history.Summary = s.Metrics()
	s.history.Final = s.report(sink, ProgressFailed, fmt.Sprintf("Simulation failed at step %d: %v", s.Step, cause))
	s.publishHistory(sink)
	logrus.Errorf("[step %06d] Simulation failed: %v", s.Step, cause)
	return s.history, cause
}

func (s *Simulator) publishHistory(sink ProgressSink) {
	if hs, ok := sink.(HistorySink); ok {
		hs.PublishHistory(s.history)
	}
}

// Progress returns the current counters as a step report.
func (s *Simulator) Progress() Progress {
	p := Progress{
		SimulationID: s.Params.ID,
		Kind:         ProgressStep,
		Step:         s.Step,
		OpenOrders:   s.open.Len(),
		ClosedOrders: len(s.closed),
	}
	for _, v := range s.vehicles {
		if v.State == VehicleMovingToTarget {
			p.InTransit += len(v.Orders)
		} else {
			p.InPickup += len(v.Orders)
		}
	}
	return p
}

func (s *Simulator) report(sink ProgressSink, kind ProgressKind, status string) *Progress {
	p := s.Progress()
	p.Kind = kind
	p.Status = status
	sink.Report(p)
	return &p
}

func (s *Simulator) stepStatus() string {
	p := s.Progress()
	return fmt.Sprintf("Simulating at step %d: (%d open orders, %d closed orders, %d orders in progress, %d in pickup)",
		p.Step, p.OpenOrders, p.ClosedOrders, p.InTransit, p.InPickup)
}
