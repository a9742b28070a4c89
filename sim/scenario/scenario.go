// Package scenario loads simulation scenarios from YAML: the road network,
// the vehicle template and the run parameters, with vertices referenced by
// name so files stay readable.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fleetsim/fleetsim/sim"
	"github.com/fleetsim/fleetsim/sim/graph"
	"github.com/fleetsim/fleetsim/sim/trace"
)

// ErrUnknownVertex is returned when an edge or order names a vertex the
// scenario does not declare.
var ErrUnknownVertex = errors.New("unknown vertex")

// Scenario is the top-level YAML document.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Scenario struct {
	Name       string              `yaml:"name"`
	Vertices   []VertexSpec        `yaml:"vertices"`
	Edges      []EdgeSpec          `yaml:"edges"`
	Vehicle    sim.VehicleTemplate `yaml:"vehicle"`
	Simulation RunSpec             `yaml:"simulation"`
}

type VertexSpec struct {
	Name     string           `yaml:"name"`
	Type     graph.VertexType `yaml:"type"`
	Location graph.Location   `yaml:"location"`
}

// EdgeSpec is one road. Bidirectional edges are added once per direction.
type EdgeSpec struct {
	From          string                           `yaml:"from"`
	To            string                           `yaml:"to"`
	Distance      float64                          `yaml:"distance"`
	Bidirectional bool                             `yaml:"bidirectional"`
	Modes         map[graph.TravelMode]MeasureSpec `yaml:"modes"`
}

type MeasureSpec struct {
	Distance float64 `yaml:"distance"`
	Time     float64 `yaml:"time"`
}

// RunSpec carries the SimulationParameters that are not part of the network.
type RunSpec struct {
	Seed         int64            `yaml:"seed"`
	Vehicles     int              `yaml:"vehicles"`
	Orders       int              `yaml:"orders"`
	Speed        float64          `yaml:"speed"` // steps per second, 0 = unpaced
	OrderPayload *float64         `yaml:"order_payload"`
	MaxSteps     int              `yaml:"max_steps"`
	OrderList    []OrderSpec      `yaml:"order_list"`
	Trace        trace.TraceLevel `yaml:"trace"`
}

type OrderSpec struct {
	Start   string  `yaml:"start"`
	Target  string  `yaml:"target"`
	Payload float64 `yaml:"payload"`
}

// Load reads and validates the scenario at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes a scenario with strict field checking: typos are errors.
func Parse(r io.Reader) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing scenario: empty document")
		}
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if sc.Vehicle.TravelMode == "" {
		sc.Vehicle.TravelMode = graph.ModeDriving
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks names and references. Numeric limits on the vehicle and
// run parameters are checked by sim.SimulationParameters.Validate.
func (sc *Scenario) Validate() error {
	if len(sc.Vertices) == 0 {
		return fmt.Errorf("scenario %q declares no vertices", sc.Name)
	}
	names := make(map[string]bool, len(sc.Vertices))
	for i, v := range sc.Vertices {
		if v.Name == "" {
			return fmt.Errorf("vertex %d: name is required", i)
		}
		if names[v.Name] {
			return fmt.Errorf("vertex %q declared twice", v.Name)
		}
		names[v.Name] = true
		if v.Type != graph.VertexBase && v.Type != graph.VertexTarget {
			return fmt.Errorf("vertex %q: unknown type %q; valid: base, target", v.Name, v.Type)
		}
	}
	for i, e := range sc.Edges {
		if !names[e.From] {
			return fmt.Errorf("edge %d from %q: %w", i, e.From, ErrUnknownVertex)
		}
		if !names[e.To] {
			return fmt.Errorf("edge %d to %q: %w", i, e.To, ErrUnknownVertex)
		}
	}
	for i, o := range sc.Simulation.OrderList {
		if !names[o.Start] {
			return fmt.Errorf("order %d start %q: %w", i, o.Start, ErrUnknownVertex)
		}
		if !names[o.Target] {
			return fmt.Errorf("order %d target %q: %w", i, o.Target, ErrUnknownVertex)
		}
	}
	if !trace.IsValidTraceLevel(string(sc.Simulation.Trace)) {
		return fmt.Errorf("unknown trace level %q", sc.Simulation.Trace)
	}
	return nil
}

// BuildGraph creates the road network. Vertex IDs follow declaration order.
func (sc *Scenario) BuildGraph() (*graph.Graph, error) {
	g := graph.New()
	for _, v := range sc.Vertices {
		g.AddVertex(graph.VertexInfo{Name: v.Name, Type: v.Type, Location: v.Location})
	}
	for i, e := range sc.Edges {
		from, _ := g.VertexByName(e.From)
		to, _ := g.VertexByName(e.To)
		info := graph.EdgeInfo{Distance: e.Distance}
		if len(e.Modes) > 0 {
			info.Modes = make(map[graph.TravelMode]graph.Measure, len(e.Modes))
			for mode, m := range e.Modes {
				info.Modes[mode] = graph.Measure{Distance: m.Distance, Time: m.Time}
			}
		}
		if _, err := g.AddEdge(from, to, info); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		if e.Bidirectional {
			if _, err := g.AddEdge(to, from, info); err != nil {
				return nil, fmt.Errorf("edge %d reverse: %w", i, err)
			}
		}
	}
	return g, nil
}

// Parameters builds the simulation parameters for this scenario, resolving
// order vertex names against g.
func (sc *Scenario) Parameters(g *graph.Graph) (sim.SimulationParameters, error) {
	p := sim.SimulationParameters{
		Seed:             sc.Simulation.Seed,
		Graph:            g,
		Vehicle:          sc.Vehicle,
		NumberOfVehicles: sc.Simulation.Vehicles,
		NumberOfOrders:   sc.Simulation.Orders,
		SimulationSpeed:  sc.Simulation.Speed,
		OrderPayload:     sc.Simulation.OrderPayload,
		MaxSteps:         sc.Simulation.MaxSteps,
		TraceLevel:       sc.Simulation.Trace,
	}
	for i, o := range sc.Simulation.OrderList {
		start, ok := g.VertexByName(o.Start)
		if !ok {
			return p, fmt.Errorf("order %d start %q: %w", i, o.Start, ErrUnknownVertex)
		}
		target, ok := g.VertexByName(o.Target)
		if !ok {
			return p, fmt.Errorf("order %d target %q: %w", i, o.Target, ErrUnknownVertex)
		}
		p.Orders = append(p.Orders, sim.OrderSpec{Start: start, Target: target, PayloadWeight: o.Payload})
	}
	return p, nil
}

// Build is BuildGraph followed by Parameters.
func (sc *Scenario) Build() (sim.SimulationParameters, error) {
	g, err := sc.BuildGraph()
	if err != nil {
		return sim.SimulationParameters{}, err
	}
	return sc.Parameters(g)
}
