package sim

import (
	"fmt"
	"math"

	"github.com/fleetsim/fleetsim/sim/graph"
)

// VehicleTemplate is the static capability descriptor shared by every
// vehicle of one type. It is read-only once a simulation starts.
type VehicleTemplate struct {
	Name               string           `yaml:"name" json:"name"`
	MaxPayload         float64          `yaml:"max_payload" json:"max_payload"`                 // kg
	FuelCapacity       float64          `yaml:"fuel_capacity" json:"fuel_capacity"`             // fuel units
	RefuelingTime      float64          `yaml:"refueling_time" json:"refueling_time"`           // steps to fill an empty tank; <= 0 refuels instantly
	TravelMode         graph.TravelMode `yaml:"travel_mode" json:"travel_mode"`                 // selects edge distance tables
	Speed              float64          `yaml:"speed" json:"speed"`                             // km/h
	BaseConsumption    float64          `yaml:"base_consumption" json:"base_consumption"`       // fuel per metre, empty
	PayloadConsumption float64          `yaml:"payload_consumption" json:"payload_consumption"` // extra fuel per metre per kg
	CostPerKm          float64          `yaml:"cost_per_km" json:"cost_per_km"`
	CostPerHour        float64          `yaml:"cost_per_hour" json:"cost_per_hour"`
}

// Validate checks that the template describes a vehicle that can move.
func (t *VehicleTemplate) Validate() error {
	switch {
	case t == nil:
		return fmt.Errorf("vehicle template is nil: %w", ErrInvalidTemplate)
	case !(t.Speed > 0):
		return fmt.Errorf("vehicle %q: speed must be > 0, got %v: %w", t.Name, t.Speed, ErrInvalidTemplate)
	case t.MaxPayload < 0:
		return fmt.Errorf("vehicle %q: max payload must be >= 0, got %v: %w", t.Name, t.MaxPayload, ErrInvalidTemplate)
	case t.FuelCapacity < 0:
		return fmt.Errorf("vehicle %q: fuel capacity must be >= 0, got %v: %w", t.Name, t.FuelCapacity, ErrInvalidTemplate)
	case t.BaseConsumption < 0 || t.PayloadConsumption < 0:
		return fmt.Errorf("vehicle %q: consumption must be >= 0: %w", t.Name, ErrInvalidTemplate)
	case t.CostPerKm < 0 || t.CostPerHour < 0:
		return fmt.Errorf("vehicle %q: costs must be >= 0: %w", t.Name, ErrInvalidTemplate)
	}
	return nil
}

// SpeedPerStep converts Speed to metres per step. One step is one simulated second.
func (t *VehicleTemplate) SpeedPerStep() float64 {
	return t.Speed / 3.6
}

// ConsumptionRate is the fuel burnt per metre while carrying payload.
func (t *VehicleTemplate) ConsumptionRate(payload float64) float64 {
	return t.BaseConsumption + t.PayloadConsumption*payload
}

// MaxTravelDistance is how far a full tank goes while carrying payload.
func (t *VehicleTemplate) MaxTravelDistance(payload float64) float64 {
	rate := t.ConsumptionRate(payload)
	if rate <= 0 {
		return math.Inf(1)
	}
	return t.FuelCapacity / rate
}

// FuelFor returns the fuel needed to cover distance metres while carrying payload.
func (t *VehicleTemplate) FuelFor(distance, payload float64) float64 {
	if distance <= 0 {
		return 0
	}
	return t.ConsumptionRate(payload) * distance
}

// JourneyCost prices a journey of distance metres taking time seconds.
func (t *VehicleTemplate) JourneyCost(distance, time float64) float64 {
	return t.CostPerKm*distance/1000 + t.CostPerHour*time/3600
}

// VehicleState is the dispatch state of one vehicle.
type VehicleState string

const (
	VehicleIdle           VehicleState = "idle"
	VehiclePickingUpOrder VehicleState = "picking_up_order"
	VehicleRefueling      VehicleState = "refueling"
	VehicleMovingToTarget VehicleState = "moving_to_target"
)

// VehicleStates lists every dispatch state.
func VehicleStates() []VehicleState {
	return []VehicleState{VehicleIdle, VehiclePickingUpOrder, VehicleRefueling, VehicleMovingToTarget}
}

// VehicleInstance is the runtime state of one vehicle. It is owned by the
// Simulator and mutated only from the simulation goroutine.
type VehicleInstance struct {
	ID       int
	Template *VehicleTemplate
	State    VehicleState
	Position graph.VertexID

	// Path is the active route. PickingUpOrder follows the route to the
	// pickup vertex; MovingToTarget follows the delivery route.
	Path        []graph.VertexID
	legIndex    int            // index in Path of the current leg's origin
	LegTarget   graph.VertexID // -1 when no leg is active
	LegDistance float64        // weight of the current leg

	DistanceTraveled    float64 // metres covered on the current leg
	TotalTravelDistance float64
	TotalTravelTime     float64 // steps spent moving
	Fuel                float64

	Orders []*CompletedOrder // accepted orders, carried or awaiting pickup
}

// newVehicleInstance places a vehicle with a full tank at position.
func newVehicleInstance(id int, tmpl *VehicleTemplate, position graph.VertexID) *VehicleInstance {
	return &VehicleInstance{
		ID:        id,
		Template:  tmpl,
		State:     VehicleIdle,
		Position:  position,
		LegTarget: -1,
		Fuel:      tmpl.FuelCapacity,
	}
}

// Payload is the total weight of the accepted orders.
func (v *VehicleInstance) Payload() float64 {
	return totalPayload(v.Orders)
}

// HasOrders reports whether the vehicle holds any accepted order.
func (v *VehicleInstance) HasOrders() bool {
	return len(v.Orders) > 0
}

// This method returns a human-readable string representation of a VehicleInstance.
func (v *VehicleInstance) String() string {
	return fmt.Sprintf("Vehicle: (ID: %d, State: %s, Position: %d, Fuel: %.2f, Orders: %d)", v.ID, v.State, v.Position, v.Fuel, len(v.Orders))
}
