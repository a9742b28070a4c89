package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fleetsim/fleetsim/sim/graph"
)

// depot names the vertices of the shared test network.
type depot struct {
	B0, B1, T0, T1, Far graph.VertexID
}

// testNetwork builds a small two-way network with two bases and two targets:
//
//	B0 --50-- B1
//	|          |
//	100       150 (B1-T0), 120 (B1-T1)
//	|          |
//	T0 --80-- T1
//
// With far=true a third target sits 2000 m past T0, out of every vehicle's range.
func testNetwork(t *testing.T, far bool) (*graph.Graph, depot) {
	t.Helper()
	g := graph.New()
	d := depot{Far: -1}
	d.B0 = g.AddVertex(graph.VertexInfo{Name: "B0", Type: graph.VertexBase})
	d.B1 = g.AddVertex(graph.VertexInfo{Name: "B1", Type: graph.VertexBase})
	d.T0 = g.AddVertex(graph.VertexInfo{Name: "T0", Type: graph.VertexTarget})
	d.T1 = g.AddVertex(graph.VertexInfo{Name: "T1", Type: graph.VertexTarget})
	twoWay(t, g, d.B0, d.B1, 50)
	twoWay(t, g, d.B0, d.T0, 100)
	twoWay(t, g, d.B1, d.T0, 150)
	twoWay(t, g, d.B1, d.T1, 120)
	twoWay(t, g, d.T0, d.T1, 80)
	if far {
		d.Far = g.AddVertex(graph.VertexInfo{Name: "Far", Type: graph.VertexTarget})
		twoWay(t, g, d.T0, d.Far, 2000)
	}
	return g, d
}

// singleBaseNetwork is B0 <-100-> T0, so every vehicle starts at B0.
func singleBaseNetwork(t *testing.T) (*graph.Graph, depot) {
	t.Helper()
	g := graph.New()
	d := depot{B1: -1, T1: -1, Far: -1}
	d.B0 = g.AddVertex(graph.VertexInfo{Name: "B0", Type: graph.VertexBase})
	d.T0 = g.AddVertex(graph.VertexInfo{Name: "T0", Type: graph.VertexTarget})
	twoWay(t, g, d.B0, d.T0, 100)
	return g, d
}

func twoWay(t *testing.T, g *graph.Graph, u, v graph.VertexID, distance float64) {
	t.Helper()
	_, err := g.AddEdge(u, v, graph.EdgeInfo{Distance: distance})
	require.NoError(t, err)
	_, err = g.AddEdge(v, u, graph.EdgeInfo{Distance: distance})
	require.NoError(t, err)
}

// testVehicle moves 1 m per step and prices a journey at d + t, so delivery
// counters come out as whole numbers. Range is 1000 m empty, 400 m at 30 kg.
func testVehicle() VehicleTemplate {
	return VehicleTemplate{
		Name:               "van",
		MaxPayload:         50,
		FuelCapacity:       10,
		RefuelingTime:      4,
		TravelMode:         graph.ModeDriving,
		Speed:              3.6,
		BaseConsumption:    0.01,
		PayloadConsumption: 0.0005,
		CostPerKm:          1000,
		CostPerHour:        3600,
	}
}

func newTestSimulator(t *testing.T, p SimulationParameters) *Simulator {
	t.Helper()
	s, err := NewSimulator(p)
	require.NoError(t, err)
	return s
}

// advanceUntil advances s until cond holds, failing after limit steps.
func advanceUntil(t *testing.T, s *Simulator, limit int, cond func() bool) {
	t.Helper()
	for i := 0; !cond(); i++ {
		require.Less(t, i, limit, "condition not reached within %d steps", limit)
		require.NoError(t, s.Advance())
	}
}

// pathDistance sums the leg weights of path under mode.
func pathDistance(t *testing.T, g *graph.Graph, path []graph.VertexID, mode graph.TravelMode) float64 {
	t.Helper()
	total := 0.0
	for i := 0; i+1 < len(path); i++ {
		w, err := g.LegWeight(path[i], path[i+1], mode)
		require.NoError(t, err)
		total += w
	}
	return total
}

func orderSpecs(start, target graph.VertexID, payloads ...float64) []OrderSpec {
	specs := make([]OrderSpec, len(payloads))
	for i, p := range payloads {
		specs[i] = OrderSpec{Start: start, Target: target, PayloadWeight: p}
	}
	return specs
}

func ptr[T any](v T) *T { return &v }
