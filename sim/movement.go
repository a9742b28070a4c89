package sim

import (
	"fmt"
	"math"

	"github.com/fleetsim/fleetsim/sim/graph"
)

// beginPath makes path the active route and resets the leg counters.
func (v *VehicleInstance) beginPath(path []graph.VertexID) {
	v.Path = append([]graph.VertexID(nil), path...)
	v.resetLeg()
}

// clearPath drops the active route.
func (v *VehicleInstance) clearPath() {
	v.Path = nil
	v.resetLeg()
}

func (v *VehicleInstance) resetLeg() {
	v.legIndex = 0
	v.LegTarget = -1
	v.LegDistance = 0
	v.DistanceTraveled = 0
}

// startLeg makes Path[i] -> Path[i+1] the current leg.
func (s *Simulator) startLeg(v *VehicleInstance, i int) error {
	w, err := s.paths.Graph().LegWeight(v.Path[i], v.Path[i+1], v.Template.TravelMode)
	if err != nil {
		return fmt.Errorf("vehicle %d leg %d: %w", v.ID, i, err)
	}
	v.legIndex = i
	v.LegTarget = v.Path[i+1]
	v.LegDistance = w
	v.DistanceTraveled = 0
	return nil
}

// move advances v one step along its active path and reports arrival at the
// last vertex. A step either covers distance on the current leg or, once the
// leg is complete, snaps the vehicle onto the leg's end vertex.
func (s *Simulator) move(v *VehicleInstance) (bool, error) {
	if len(v.Path) <= 1 {
		if len(v.Path) == 1 {
			v.Position = v.Path[0]
		}
		return true, nil
	}
	if v.LegTarget < 0 {
		if err := s.startLeg(v, 0); err != nil {
			return false, err
		}
	}

	if v.DistanceTraveled < v.LegDistance {
		v.travel(math.Min(v.Template.SpeedPerStep(), v.LegDistance-v.DistanceTraveled))
		return false, nil
	}

	v.Position = v.LegTarget
	if v.legIndex+1 >= len(v.Path)-1 {
		return true, nil
	}
	return false, s.startLeg(v, v.legIndex+1)
}

// travel covers d metres: fuel burns at the carried payload's rate and every
// carried order is charged an equal share of the step's cost.
func (v *VehicleInstance) travel(d float64) {
	t := v.Template
	v.Fuel -= t.FuelFor(d, v.Payload())
	v.DistanceTraveled += d
	v.TotalTravelDistance += d
	v.TotalTravelTime++

	if n := len(v.Orders); n > 0 {
		share := t.JourneyCost(d, 1) / float64(n)
		for _, o := range v.Orders {
			o.DeliveryTime++
			o.DeliveryDistance += d
			o.DeliveryCost += share
		}
	}
}
