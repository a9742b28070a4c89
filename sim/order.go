// Defines the Order and CompletedOrder types that model a single delivery in the simulation.
// An Order is immutable once created; a CompletedOrder tracks delivery progress
// while the order is carried by a vehicle and is frozen once it is closed.

package sim

import (
	"fmt"

	"github.com/fleetsim/fleetsim/sim/graph"
)

// Order is a request to move PayloadWeight from Start to Target.
type Order struct {
	ID            int            // Sequential identifier, unique within a simulation
	Start         graph.VertexID // Pickup vertex (a Base)
	Target        graph.VertexID // Delivery vertex (a Target)
	PayloadWeight float64        // Non-negative payload
}

// NewOrder constructs an Order. Negative payloads are clamped to zero.
func NewOrder(id int, start, target graph.VertexID, payload float64) Order {
	if payload < 0 {
		payload = 0
	}
	return Order{ID: id, Start: start, Target: target, PayloadWeight: payload}
}

// This method returns a human-readable string representation of an Order.
func (o Order) String() string {
	return fmt.Sprintf("Order: (ID: %d, Start: %d, Target: %d, Payload: %.1f)", o.ID, o.Start, o.Target, o.PayloadWeight)
}

// CompletedOrder wraps an accepted Order with its accumulated delivery metrics.
// Counters are mutated by the carrying vehicle on every movement step.
type CompletedOrder struct {
	Order

	DeliveryTime     float64          // Steps spent since acceptance while the vehicle was moving
	DeliveryDistance float64          // Metres travelled since acceptance
	DeliveryCost     float64          // This order's share of the journey cost
	DeliveryPath     []graph.VertexID // Start -> Target route
}

// newCompletedOrder wraps o with zeroed counters and a private copy of path.
func newCompletedOrder(o Order, path []graph.VertexID) *CompletedOrder {
	return &CompletedOrder{Order: o, DeliveryPath: append([]graph.VertexID(nil), path...)}
}

// totalPayload sums the payload of a set of carried orders.
func totalPayload(orders []*CompletedOrder) float64 {
	sum := 0.0
	for _, o := range orders {
		sum += o.PayloadWeight
	}
	return sum
}
