// Tracks run-wide delivery and fleet statistics for final reporting.

package sim

import (
	"fmt"
	"io"
)

// Metrics aggregates statistics about a finished (or interrupted) run.
// Delivery figures cover closed orders only.
type Metrics struct {
	Steps        int `json:"steps"`
	TotalOrders  int `json:"total_orders"`
	ClosedOrders int `json:"closed_orders"`
	OpenOrders   int `json:"open_orders"`

	MeanDeliveryTime float64 `json:"mean_delivery_time"` // steps
	P50DeliveryTime  float64 `json:"p50_delivery_time"`
	P90DeliveryTime  float64 `json:"p90_delivery_time"`
	P99DeliveryTime  float64 `json:"p99_delivery_time"`

	MeanDeliveryDistance float64 `json:"mean_delivery_distance"` // metres
	TotalDeliveryCost    float64 `json:"total_delivery_cost"`
	MeanDeliveryCost     float64 `json:"mean_delivery_cost"`

	FleetDistance   float64 `json:"fleet_distance"`    // metres driven by all vehicles
	FleetTravelTime float64 `json:"fleet_travel_time"` // steps spent moving, summed over vehicles
	FuelRemaining   float64 `json:"fuel_remaining"`
}

// Metrics summarises the simulator's current state.
func (s *Simulator) Metrics() *Metrics {
	m := &Metrics{
		Steps:        s.Step,
		TotalOrders:  s.totalOrders,
		ClosedOrders: len(s.closed),
		OpenOrders:   s.open.Len(),
	}

	times := make([]float64, 0, len(s.closed))
	distances := make([]float64, 0, len(s.closed))
	for _, o := range s.closed {
		times = append(times, o.DeliveryTime)
		distances = append(distances, o.DeliveryDistance)
		m.TotalDeliveryCost += o.DeliveryCost
	}
	if len(s.closed) > 0 {
		sorted := sortedCopy(times)
		m.MeanDeliveryTime = CalculateMean(times)
		m.P50DeliveryTime = CalculatePercentile(sorted, 50)
		m.P90DeliveryTime = CalculatePercentile(sorted, 90)
		m.P99DeliveryTime = CalculatePercentile(sorted, 99)
		m.MeanDeliveryDistance = CalculateMean(distances)
		m.MeanDeliveryCost = m.TotalDeliveryCost / float64(len(s.closed))
	}

	for _, v := range s.vehicles {
		m.FleetDistance += v.TotalTravelDistance
		m.FleetTravelTime += v.TotalTravelTime
		m.FuelRemaining += v.Fuel
	}
	return m
}

// Print writes the aggregated metrics in a human-readable block.
func (m *Metrics) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Steps                : %d\n", m.Steps)
	fmt.Fprintf(w, "Closed Orders        : %d / %d\n", m.ClosedOrders, m.TotalOrders)
	fmt.Fprintf(w, "Open Orders          : %d\n", m.OpenOrders)
	if m.ClosedOrders > 0 {
		fmt.Fprintf(w, "Mean Delivery Time   : %.2f steps\n", m.MeanDeliveryTime)
		fmt.Fprintf(w, "P50/P90/P99 Delivery : %.2f / %.2f / %.2f steps\n", m.P50DeliveryTime, m.P90DeliveryTime, m.P99DeliveryTime)
		fmt.Fprintf(w, "Mean Delivery Dist.  : %.2f m\n", m.MeanDeliveryDistance)
		fmt.Fprintf(w, "Delivery Cost        : %.2f total, %.2f mean\n", m.TotalDeliveryCost, m.MeanDeliveryCost)
	}
	fmt.Fprintf(w, "Fleet Distance       : %.2f m\n", m.FleetDistance)
	fmt.Fprintf(w, "Fleet Travel Time    : %.0f steps\n", m.FleetTravelTime)
}
