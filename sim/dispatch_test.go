package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetsim/fleetsim/sim/graph"
)

func TestNextState_AllPairs_OnlyFiveTransitionsLegal(t *testing.T) {
	legal := map[VehicleState]map[vehicleEvent]VehicleState{
		VehicleIdle:           {eventOrdersAtPosition: VehicleMovingToTarget, eventOrdersElsewhere: VehiclePickingUpOrder},
		VehiclePickingUpOrder: {eventArrived: VehicleRefueling},
		VehicleRefueling:      {eventTankFull: VehicleMovingToTarget},
		VehicleMovingToTarget: {eventArrived: VehicleIdle},
	}

	count := 0
	for _, from := range VehicleStates() {
		for _, ev := range vehicleEvents() {
			to, err := nextState(from, ev)
			want, ok := legal[from][ev]
			if ok {
				count++
				require.NoError(t, err, "%s on %s", from, ev)
				assert.Equal(t, want, to, "%s on %s", from, ev)
				continue
			}
			assert.True(t, errors.Is(err, ErrInvalidTransition), "%s on %s should be rejected", from, ev)
			assert.Equal(t, from, to, "rejected transition must not change state")
		}
	}
	assert.Equal(t, 5, count)
}

func TestNextState_UnknownState_Rejected(t *testing.T) {
	_, err := nextState(VehicleState("parked"), eventArrived)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDispatch_OrdersAtPosition_GoesDirectlyToTarget(t *testing.T) {
	// GIVEN one vehicle at the only base with two orders waiting there
	g, d := singleBaseNetwork(t)
	s := newTestSimulator(t, SimulationParameters{
		Graph: g, Vehicle: testVehicle(), NumberOfVehicles: 1,
		Orders: orderSpecs(d.B0, d.T0, 10, 10),
	})
	v := s.vehicles[0]

	// WHEN the vehicle is advanced once
	require.NoError(t, s.Advance())

	// THEN it accepted both orders and left without a pickup leg
	assert.Equal(t, VehicleMovingToTarget, v.State)
	assert.Equal(t, []graph.VertexID{d.B0, d.T0}, v.Path)
	assert.Len(t, v.Orders, 2)
	assert.Zero(t, s.open.Len())
	for _, o := range v.Orders {
		assert.Zero(t, o.DeliveryTime)
		assert.Equal(t, []graph.VertexID{d.B0, d.T0}, o.DeliveryPath)
	}
}

func TestDispatch_LowFuelAtStart_RefuelsBeforeDeparture(t *testing.T) {
	// GIVEN a vehicle at the pickup vertex without enough fuel for the delivery
	g, d := singleBaseNetwork(t)
	s := newTestSimulator(t, SimulationParameters{
		Graph: g, Vehicle: testVehicle(), NumberOfVehicles: 1,
		Orders: orderSpecs(d.B0, d.T0, 10),
	})
	v := s.vehicles[0]
	v.Fuel = 1 // delivery needs 0.015 * 100 = 1.5

	// WHEN advanced step by step
	var states []VehicleState
	for i := 0; i < 7; i++ {
		require.NoError(t, s.Advance())
		states = append(states, v.State)
	}

	// THEN it takes the single-vertex pickup path, refuels 2.5 per step, and departs full
	assert.Equal(t, []VehicleState{
		VehiclePickingUpOrder, // accepted, not enough fuel to leave
		VehicleRefueling,      // single-vertex path arrives immediately
		VehicleRefueling,      // 3.5
		VehicleRefueling,      // 6.0
		VehicleRefueling,      // 8.5
		VehicleMovingToTarget, // 11.0 clamps to 10
		VehicleMovingToTarget,
	}, states)
	assert.Equal(t, d.B0, v.Position)
	assert.InDelta(t, 10-0.015, v.Fuel, 1e-9, "one metre travelled at 10 kg after refuelling")
}

func TestRefuel_NonPositiveRefuelingTime_FillsInstantly(t *testing.T) {
	g, d := singleBaseNetwork(t)
	tmpl := testVehicle()
	tmpl.RefuelingTime = 0
	s := newTestSimulator(t, SimulationParameters{
		Graph: g, Vehicle: tmpl, NumberOfVehicles: 1,
		Orders: orderSpecs(d.B0, d.T0, 10),
	})
	v := s.vehicles[0]
	v.State = VehicleRefueling
	v.Fuel = 0

	require.NoError(t, s.refuel(v))

	assert.Equal(t, tmpl.FuelCapacity, v.Fuel)
	assert.Equal(t, VehicleMovingToTarget, v.State)
}

func TestDispatch_OrdersElsewhere_PicksUpThenRefuelsThenDelivers(t *testing.T) {
	// GIVEN a vehicle parked at T0 and one order waiting at B0
	g, d := testNetwork(t, false)
	s := newTestSimulator(t, SimulationParameters{
		Graph: g, Vehicle: testVehicle(), NumberOfVehicles: 1,
		Orders: orderSpecs(d.B0, d.T1, 10),
	})
	v := s.vehicles[0]
	v.Position = d.T0

	// WHEN the vehicle is dispatched
	require.NoError(t, s.Advance())

	// THEN it heads for the pickup along the shortest path
	require.Equal(t, VehiclePickingUpOrder, v.State)
	assert.Equal(t, []graph.VertexID{d.T0, d.B0}, v.Path)

	// WHEN it reaches the pickup vertex
	advanceUntil(t, s, 500, func() bool { return v.State != VehiclePickingUpOrder })

	// THEN it refuels with the delivery path loaded
	assert.Equal(t, VehicleRefueling, v.State)
	assert.Equal(t, d.B0, v.Position)
	assert.Equal(t, []graph.VertexID{d.B0, d.B1, d.T1}, v.Path)
	assert.InDelta(t, 100.0, v.Orders[0].DeliveryDistance, 1e-9, "pickup distance is charged to the accepted order")

	// AND eventually delivers
	advanceUntil(t, s, 1000, s.IsDone)
	require.Len(t, s.closed, 1)
	assert.Equal(t, d.T1, v.Position)
	assert.Equal(t, VehicleIdle, v.State)
	assert.InDelta(t, 270.0, s.closed[0].DeliveryDistance, 1e-9)
}

func TestDispatch_LowFuelForPickupLeg_RefuelsInPlaceThenDrivesThroughStart(t *testing.T) {
	// GIVEN a vehicle at T0 that cannot reach B0 on the fuel it has
	g, d := testNetwork(t, false)
	tmpl := testVehicle()
	s := newTestSimulator(t, SimulationParameters{
		Graph: g, Vehicle: tmpl, NumberOfVehicles: 1,
		Orders: orderSpecs(d.B0, d.T1, 10),
	})
	v := s.vehicles[0]
	v.Position = d.T0
	v.Fuel = 1 // T0 -> B0 at 10 kg needs 1.5

	// WHEN dispatched
	require.NoError(t, s.Advance())

	// THEN it stays put on a single-vertex pickup path
	require.Equal(t, VehiclePickingUpOrder, v.State)
	assert.Equal(t, []graph.VertexID{d.T0}, v.Path)

	// WHEN the pickup path completes
	require.NoError(t, s.Advance())

	// THEN it refuels at T0 with reposition and delivery loaded as one path
	require.Equal(t, VehicleRefueling, v.State)
	assert.Equal(t, d.T0, v.Position)
	assert.Equal(t, []graph.VertexID{d.T0, d.B0, d.B1, d.T1}, v.Path)

	// AND departs full, delivering without the tank going negative
	advanceUntil(t, s, 10, func() bool { return v.State == VehicleMovingToTarget })
	assert.Equal(t, tmpl.FuelCapacity, v.Fuel)
	for !s.IsDone() {
		require.NoError(t, s.Advance())
		require.GreaterOrEqual(t, v.Fuel, 0.0)
	}
	require.Len(t, s.closed, 1)
	assert.Equal(t, d.T1, v.Position)
	assert.InDelta(t, 270.0, s.closed[0].DeliveryDistance, 1e-9)
}

func TestAdvanceVehicle_CorruptState_ReturnsInvalidTransition(t *testing.T) {
	g, _ := singleBaseNetwork(t)
	s := newTestSimulator(t, SimulationParameters{Graph: g, Vehicle: testVehicle(), NumberOfVehicles: 1})
	s.vehicles[0].State = VehicleState("parked")

	err := s.Advance()

	assert.ErrorIs(t, err, ErrInvalidTransition)
}
