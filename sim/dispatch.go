// Implements the per-vehicle dispatch state machine: the transition table,
// and the handler run for each state on every step.

package sim

import (
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/fleetsim/fleetsim/sim/graph"
	"github.com/fleetsim/fleetsim/sim/trace"
)

// vehicleEvent is an input to the dispatch state machine.
type vehicleEvent string

const (
	eventOrdersAtPosition vehicleEvent = "orders_at_position" // accepted orders start here and the tank covers the trip
	eventOrdersElsewhere  vehicleEvent = "orders_elsewhere"   // accepted orders need a pickup leg or a refuel first
	eventArrived          vehicleEvent = "arrived"            // end of the active path reached
	eventTankFull         vehicleEvent = "tank_full"
)

func vehicleEvents() []vehicleEvent {
	return []vehicleEvent{eventOrdersAtPosition, eventOrdersElsewhere, eventArrived, eventTankFull}
}

// dispatchTable holds the five legal transitions. Anything absent is rejected.
var dispatchTable = map[VehicleState]map[vehicleEvent]VehicleState{
	VehicleIdle: {
		eventOrdersAtPosition: VehicleMovingToTarget,
		eventOrdersElsewhere:  VehiclePickingUpOrder,
	},
	VehiclePickingUpOrder: {eventArrived: VehicleRefueling},
	VehicleRefueling:      {eventTankFull: VehicleMovingToTarget},
	VehicleMovingToTarget: {eventArrived: VehicleIdle},
}

// nextState is the pure transition function of the dispatch state machine.
func nextState(from VehicleState, ev vehicleEvent) (VehicleState, error) {
	if to, ok := dispatchTable[from][ev]; ok {
		return to, nil
	}
	return from, fmt.Errorf("%s on %s: %w", from, ev, ErrInvalidTransition)
}

func (s *Simulator) transition(v *VehicleInstance, ev vehicleEvent) error {
	to, err := nextState(v.State, ev)
	if err != nil {
		return fmt.Errorf("vehicle %d: %w", v.ID, err)
	}
	logrus.Debugf("[step %06d] vehicle %d: %s -> %s (%s)", s.Step, v.ID, v.State, to, ev)
	v.State = to
	return nil
}

// advanceVehicle runs one step of v's state handler.
func (s *Simulator) advanceVehicle(v *VehicleInstance) error {
	switch v.State {
	case VehicleIdle:
		return s.dispatchIdle(v)
	case VehiclePickingUpOrder:
		return s.continuePickup(v)
	case VehicleRefueling:
		return s.refuel(v)
	case VehicleMovingToTarget:
		return s.continueDelivery(v)
	default:
		return fmt.Errorf("vehicle %d: unknown state %q: %w", v.ID, v.State, ErrInvalidTransition)
	}
}

// dispatchIdle asks the assignment heuristic for work and commits to it.
func (s *Simulator) dispatchIdle(v *VehicleInstance) error {
	sel, err := s.FindOptimalOrders(v)
	if err != nil {
		return err
	}
	if len(sel.Orders) == 0 {
		return nil
	}

	ids := sel.OrderIDs()
	s.open.Remove(ids...)
	v.Orders = sel.Orders

	direct := sel.Start == v.Position && v.Fuel >= v.Template.FuelFor(sel.Delivery.Distance, sel.Payload)
	if s.trace != nil {
		s.trace.RecordAssignment(trace.AssignmentRecord{
			Step:       s.Step,
			VehicleID:  v.ID,
			Position:   int(v.Position),
			Start:      int(sel.Start),
			Target:     int(sel.Target),
			Accepted:   ids,
			Skipped:    sel.Skipped,
			Payload:    sel.Payload,
			Reposition: sel.Reposition.Distance,
			Delivery:   sel.Delivery.Distance,
			Direct:     direct,
		})
	}
	logrus.Debugf("[step %06d] vehicle %d accepted orders %v (%.1f kg) %d -> %d", s.Step, v.ID, ids, sel.Payload, sel.Start, sel.Target)

	if direct {
		if err := s.transition(v, eventOrdersAtPosition); err != nil {
			return err
		}
		v.beginPath(sel.Delivery.Vertices)
		return nil
	}

	if err := s.transition(v, eventOrdersElsewhere); err != nil {
		return err
	}
	if v.Fuel < v.Template.FuelFor(sel.Reposition.Distance, sel.Payload) {
		// Too little fuel for the pickup leg: the single-vertex path arrives on
		// the next step, the vehicle refuels where it stands and then drives
		// reposition and delivery as one loaded leg.
		v.beginPath([]graph.VertexID{v.Position})
		return nil
	}
	// A single-vertex path here also covers the case of being at the start
	// without enough fuel for the delivery.
	v.beginPath(sel.Reposition.Vertices)
	return nil
}

// continuePickup moves towards the shared start vertex of the accepted orders.
// On arrival the delivery path is loaded; a vehicle that stopped short of the
// start to refuel gets the path through the start to the target.
func (s *Simulator) continuePickup(v *VehicleInstance) error {
	arrived, err := s.move(v)
	if err != nil || !arrived {
		return err
	}
	if !v.HasOrders() {
		return fmt.Errorf("vehicle %d arrived for pickup without orders", v.ID)
	}

	o := v.Orders[0]
	path, err := s.routeVertices(v, v.Position, o.Start)
	if err != nil {
		return err
	}
	delivery, err := s.routeVertices(v, o.Start, o.Target)
	if err != nil {
		return err
	}
	v.beginPath(slices.Concat(path, delivery[1:]))
	return s.transition(v, eventArrived)
}

// routeVertices is the shortest path from u to w for v's travel mode.
func (s *Simulator) routeVertices(v *VehicleInstance, u, w graph.VertexID) ([]graph.VertexID, error) {
	route, err := s.paths.ShortestPath(u, w, v.Template.TravelMode)
	if err != nil {
		return nil, fmt.Errorf("vehicle %d path %d -> %d: %w", v.ID, u, w, err)
	}
	if !route.Reachable() {
		return nil, fmt.Errorf("vehicle %d path %d -> %d: %w", v.ID, u, w, route.Err())
	}
	return route.Vertices, nil
}

// refuelTolerance absorbs rounding when capacity/RefuelingTime is added repeatedly.
const refuelTolerance = 1e-9

// refuel tops up the tank by one step's worth.
func (s *Simulator) refuel(v *VehicleInstance) error {
	t := v.Template
	if t.RefuelingTime <= 0 {
		v.Fuel = t.FuelCapacity
	} else {
		v.Fuel += t.FuelCapacity / t.RefuelingTime
	}
	if v.Fuel < t.FuelCapacity-refuelTolerance*max(1, t.FuelCapacity) {
		return nil
	}
	v.Fuel = t.FuelCapacity
	return s.transition(v, eventTankFull)
}

// continueDelivery moves along the delivery path and closes the orders on arrival.
func (s *Simulator) continueDelivery(v *VehicleInstance) error {
	arrived, err := s.move(v)
	if err != nil || !arrived {
		return err
	}

	ids := make([]int, 0, len(v.Orders))
	cost, distance := 0.0, 0.0
	for _, o := range v.Orders {
		ids = append(ids, o.ID)
		cost += o.DeliveryCost
		distance = max(distance, o.DeliveryDistance)
	}
	s.closed = append(s.closed, v.Orders...)
	if s.trace != nil {
		s.trace.RecordDelivery(trace.DeliveryRecord{
			Step:      s.Step,
			VehicleID: v.ID,
			Target:    int(v.Position),
			OrderIDs:  ids,
			Distance:  distance,
			Cost:      cost,
		})
	}
	logrus.Debugf("[step %06d] vehicle %d delivered orders %v at %d", s.Step, v.ID, ids, v.Position)

	v.Orders = nil
	v.clearPath()
	return s.transition(v, eventArrived)
}
