package sim

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetsim/fleetsim/sim/graph"
)

func TestSnapshot_DoesNotAliasLiveState(t *testing.T) {
	// GIVEN a vehicle mid-delivery
	g, d := singleBaseNetwork(t)
	s := newTestSimulator(t, SimulationParameters{
		Graph: g, Vehicle: testVehicle(), NumberOfVehicles: 1,
		Orders: orderSpecs(d.B0, d.T0, 10),
	})
	require.NoError(t, s.Advance())
	v := s.vehicles[0]
	require.Equal(t, VehicleMovingToTarget, v.State)

	// WHEN a snapshot is taken and live state moves on
	snap := s.snapshot()
	v.Path[0] = graph.VertexID(99)
	v.Orders[0].DeliveryPath[0] = graph.VertexID(99)
	require.NoError(t, s.Advance())

	// THEN the snapshot still shows the state at capture time
	vs := snap.Vehicles[0]
	assert.Equal(t, []graph.VertexID{d.B0, d.T0}, vs.Path)
	require.Len(t, vs.Orders, 1)
	assert.Equal(t, []graph.VertexID{d.B0, d.T0}, vs.Orders[0].DeliveryPath)
	assert.Zero(t, vs.Orders[0].DeliveryDistance)
	assert.Zero(t, vs.TotalTravelDistance)
	assert.Equal(t, 1, snap.InProgress())
}

func TestHistory_StepsRecordedBeforeEachAdvance(t *testing.T) {
	g, d := singleBaseNetwork(t)
	s := newTestSimulator(t, SimulationParameters{
		Graph: g, Vehicle: testVehicle(), NumberOfVehicles: 1,
		Orders: orderSpecs(d.B0, d.T0, 10),
	})

	h, err := s.Simulate(context.Background(), nil)
	require.NoError(t, err)

	require.NotZero(t, h.Len())
	first := h.Steps[0]
	assert.Zero(t, first.Step)
	assert.Len(t, first.OpenOrders, 1)
	assert.Equal(t, VehicleIdle, first.Vehicles[0].State)
	for i, step := range h.Steps {
		assert.Equal(t, i, step.Step)
	}
	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, h.Len()-1, last.Step)
}

func TestHistory_StalledRun_MarshalsToJSON(t *testing.T) {
	// GIVEN a stalled run whose order has no route (range would be +Inf if stored raw)
	g, d := testNetwork(t, false)
	island := g.AddVertex(graph.VertexInfo{Name: "island", Type: graph.VertexTarget})
	tmpl := testVehicle()
	tmpl.BaseConsumption, tmpl.PayloadConsumption = 0, 0
	s := newTestSimulator(t, SimulationParameters{
		Graph: g, Vehicle: tmpl, NumberOfVehicles: 1,
		Orders: []OrderSpec{{Start: d.B0, Target: island, PayloadWeight: 10}},
	})
	h, err := s.Simulate(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeStalled, h.Outcome)

	// WHEN encoded
	data, err := json.Marshal(h)

	// THEN encoding succeeds and round-trips the stall classification
	require.NoError(t, err)
	var decoded History
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Stalled, 1)
	assert.Equal(t, StallUnreachable, decoded.Stalled[0].Reason)
	assert.Zero(t, decoded.Stalled[0].Distance)
	assert.Zero(t, decoded.Stalled[0].MaxRange)
	assert.Equal(t, h.SimulationID, decoded.SimulationID)
}

func TestHistory_EmptyLast(t *testing.T) {
	h := &History{}
	_, ok := h.Last()
	assert.False(t, ok)
	assert.Zero(t, h.Len())
}
