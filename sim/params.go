package sim

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fleetsim/fleetsim/sim/graph"
	"github.com/fleetsim/fleetsim/sim/trace"
)

var (
	// ErrCancelled marks a run stopped by its context at a step boundary.
	ErrCancelled = errors.New("simulation cancelled")

	// ErrInvalidTransition is returned for a (state, event) pair outside the dispatch table.
	ErrInvalidTransition = errors.New("invalid vehicle state transition")

	// ErrNoBases is returned when the graph has no base vertex to place vehicles on.
	ErrNoBases = errors.New("graph has no base vertices")

	// ErrNoTargets is returned when orders must be generated but the graph has no target vertex.
	ErrNoTargets = errors.New("graph has no target vertices")

	// ErrInvalidTemplate is returned for a vehicle template that cannot move or carry.
	ErrInvalidTemplate = errors.New("invalid vehicle template")
)

// DefaultOrderPayload is the payload of every generated order unless overridden.
const DefaultOrderPayload = 10.0

// OrderSpec describes an explicit order. Start and Target are vertex IDs.
type OrderSpec struct {
	Start         graph.VertexID `json:"start"`
	Target        graph.VertexID `json:"target"`
	PayloadWeight float64        `json:"payload_weight"`
}

// SimulationParameters groups everything a run needs. The value is treated as
// immutable once passed to NewSimulator.
type SimulationParameters struct {
	ID               uuid.UUID       // zero value = generate one
	Seed             int64           // master seed for placement and order generation
	Graph            *graph.Graph    // transport network, read-only during the run
	Vehicle          VehicleTemplate // shared by every vehicle
	NumberOfVehicles int
	NumberOfOrders   int      // ignored when Orders is non-empty
	SimulationSpeed  float64  // steps per real second; <= 0 runs unpaced
	OrderPayload     *float64 // payload of generated orders; nil = DefaultOrderPayload
	MaxSteps         int      // 0 = run until done
	Orders           []OrderSpec
	TraceLevel       trace.TraceLevel
}

// Validate checks the parameters and fills defaults in place.
func (p *SimulationParameters) Validate() error {
	if p.Graph == nil {
		return errors.New("simulation parameters: graph is nil")
	}
	if err := p.Vehicle.Validate(); err != nil {
		return err
	}
	if p.NumberOfVehicles < 0 {
		return fmt.Errorf("simulation parameters: vehicle count must be >= 0, got %d", p.NumberOfVehicles)
	}
	if p.NumberOfOrders < 0 {
		return fmt.Errorf("simulation parameters: order count must be >= 0, got %d", p.NumberOfOrders)
	}
	if p.MaxSteps < 0 {
		return fmt.Errorf("simulation parameters: max steps must be >= 0, got %d", p.MaxSteps)
	}
	if !trace.IsValidTraceLevel(string(p.TraceLevel)) {
		return fmt.Errorf("simulation parameters: unknown trace level %q", p.TraceLevel)
	}
	if p.OrderPayload != nil && *p.OrderPayload < 0 {
		return fmt.Errorf("simulation parameters: order payload must be >= 0, got %v", *p.OrderPayload)
	}
	for i, o := range p.Orders {
		if _, err := p.Graph.Vertex(o.Start); err != nil {
			return fmt.Errorf("order %d start: %w", i, err)
		}
		if _, err := p.Graph.Vertex(o.Target); err != nil {
			return fmt.Errorf("order %d target: %w", i, err)
		}
		if o.PayloadWeight < 0 {
			return fmt.Errorf("order %d: payload must be >= 0, got %v", i, o.PayloadWeight)
		}
	}
	if p.OrderPayload == nil {
		payload := DefaultOrderPayload
		p.OrderPayload = &payload
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
