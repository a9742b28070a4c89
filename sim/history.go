// Defines the replayable step history of a simulation run. Every value in a
// History is a copy: paths are flattened to vertex IDs and no slice aliases
// live simulator state, so a History can be handed to other goroutines.

package sim

import (
	"github.com/google/uuid"

	"github.com/fleetsim/fleetsim/sim/graph"
)

// Outcome is how a run ended.
type Outcome string

const (
	OutcomeRunning   Outcome = "running"
	OutcomeCompleted Outcome = "completed" // every order closed
	OutcomeStalled   Outcome = "stalled"   // open orders remain that no vehicle can take
	OutcomeCancelled Outcome = "cancelled"
	OutcomeHorizon   Outcome = "horizon" // MaxSteps reached
	OutcomeFailed    Outcome = "failed"
)

// HistoryOrder is the serializable form of an Order.
type HistoryOrder struct {
	ID            int            `json:"id"`
	Start         graph.VertexID `json:"start"`
	Target        graph.VertexID `json:"target"`
	PayloadWeight float64        `json:"payload_weight"`
}

// HistoryCompletedOrder is the serializable form of a CompletedOrder.
type HistoryCompletedOrder struct {
	HistoryOrder
	DeliveryTime     float64          `json:"delivery_time"`
	DeliveryDistance float64          `json:"delivery_distance"`
	DeliveryCost     float64          `json:"delivery_cost"`
	DeliveryPath     []graph.VertexID `json:"delivery_path"`
}

// VehicleStepState is the public state of one vehicle at one step.
type VehicleStepState struct {
	ID                  int                     `json:"id"`
	State               VehicleState            `json:"state"`
	Position            graph.VertexID          `json:"position"`
	LegTarget           graph.VertexID          `json:"leg_target"`
	Path                []graph.VertexID        `json:"path,omitempty"`
	LegDistance         float64                 `json:"leg_distance"`
	DistanceTraveled    float64                 `json:"distance_traveled"`
	TotalTravelDistance float64                 `json:"total_travel_distance"`
	TotalTravelTime     float64                 `json:"total_travel_time"`
	Fuel                float64                 `json:"fuel"`
	Orders              []HistoryCompletedOrder `json:"orders,omitempty"`
}

// HistoryStep is the snapshot taken before the Advance of one step.
type HistoryStep struct {
	Step         int                     `json:"step"`
	Vehicles     []VehicleStepState      `json:"vehicles"`
	OpenOrders   []HistoryOrder          `json:"open_orders"`
	ClosedOrders []HistoryCompletedOrder `json:"closed_orders"`
}

// InProgress counts orders held by vehicles at this step.
func (hs HistoryStep) InProgress() int {
	n := 0
	for _, v := range hs.Vehicles {
		n += len(v.Orders)
	}
	return n
}

// History is the append-only record of a run.
type History struct {
	SimulationID     uuid.UUID      `json:"simulation_id"`
	Seed             int64          `json:"seed"`
	VehicleName      string         `json:"vehicle_name"`
	NumberOfVehicles int            `json:"number_of_vehicles"`
	NumberOfOrders   int            `json:"number_of_orders"`
	Outcome          Outcome        `json:"outcome"`
	Steps            []HistoryStep  `json:"steps"`
	Stalled          []StalledOrder `json:"stalled,omitempty"`
	Summary          *Metrics       `json:"summary,omitempty"`
	Final            *Progress      `json:"final,omitempty"` // terminal report, once the run has ended
}

func newHistory(p SimulationParameters, orders int) *History {
	return &History{
		SimulationID:     p.ID,
		Seed:             p.Seed,
		VehicleName:      p.Vehicle.Name,
		NumberOfVehicles: p.NumberOfVehicles,
		NumberOfOrders:   orders,
		Outcome:          OutcomeRunning,
		Steps:            make([]HistoryStep, 0),
	}
}

// Len returns the number of recorded steps.
func (h *History) Len() int {
	return len(h.Steps)
}

// Last returns the most recent step.
func (h *History) Last() (HistoryStep, bool) {
	if len(h.Steps) == 0 {
		return HistoryStep{}, false
	}
	return h.Steps[len(h.Steps)-1], true
}

func historyOrder(o Order) HistoryOrder {
	return HistoryOrder{ID: o.ID, Start: o.Start, Target: o.Target, PayloadWeight: o.PayloadWeight}
}

func historyCompletedOrder(o *CompletedOrder) HistoryCompletedOrder {
	return HistoryCompletedOrder{
		HistoryOrder:     historyOrder(o.Order),
		DeliveryTime:     o.DeliveryTime,
		DeliveryDistance: o.DeliveryDistance,
		DeliveryCost:     o.DeliveryCost,
		DeliveryPath:     append([]graph.VertexID(nil), o.DeliveryPath...),
	}
}

func historyCompletedOrders(orders []*CompletedOrder) []HistoryCompletedOrder {
	out := make([]HistoryCompletedOrder, len(orders))
	for i, o := range orders {
		out[i] = historyCompletedOrder(o)
	}
	return out
}

// snapshot captures the current simulator state.
func (s *Simulator) snapshot() HistoryStep {
	step := HistoryStep{
		Step:         s.Step,
		Vehicles:     make([]VehicleStepState, len(s.vehicles)),
		OpenOrders:   make([]HistoryOrder, 0, s.open.Len()),
		ClosedOrders: historyCompletedOrders(s.closed),
	}
	for i, v := range s.vehicles {
		step.Vehicles[i] = VehicleStepState{
			ID:                  v.ID,
			State:               v.State,
			Position:            v.Position,
			LegTarget:           v.LegTarget,
			Path:                append([]graph.VertexID(nil), v.Path...),
			LegDistance:         v.LegDistance,
			DistanceTraveled:    v.DistanceTraveled,
			TotalTravelDistance: v.TotalTravelDistance,
			TotalTravelTime:     v.TotalTravelTime,
			Fuel:                v.Fuel,
			Orders:              historyCompletedOrders(v.Orders),
		}
	}
	for _, o := range s.open.Items() {
		step.OpenOrders = append(step.OpenOrders, historyOrder(o))
	}
	return step
}

// recordStep appends the current snapshot to the history.
func (s *Simulator) recordStep() {
	s.history.Steps = append(s.history.Steps, s.snapshot())
}
