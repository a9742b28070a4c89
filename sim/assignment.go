// Implements FindOptimalOrders, the greedy heuristic an idle vehicle uses to
// pick a batch of open orders sharing one start and one target.

package sim

import (
	"cmp"
	"slices"

	"github.com/fleetsim/fleetsim/sim/graph"
)

// Selection is the outcome of FindOptimalOrders. An empty Orders slice means
// the vehicle found nothing it can take.
type Selection struct {
	Start, Target graph.VertexID
	Orders        []*CompletedOrder // accepted, zeroed counters, delivery path attached
	Skipped       []int             // IDs in the target group rejected for payload or range
	Payload       float64
	Reposition    graph.Route // current position -> Start
	Delivery      graph.Route // Start -> Target
}

// OrderIDs returns the accepted order IDs in acceptance order.
func (sel Selection) OrderIDs() []int {
	ids := make([]int, len(sel.Orders))
	for i, o := range sel.Orders {
		ids[i] = o.ID
	}
	return ids
}

// orderGroup is a set of orders sharing one vertex, in first-appearance order.
type orderGroup struct {
	key    graph.VertexID
	orders []Order
}

func groupOrders(orders []Order, key func(Order) graph.VertexID) []orderGroup {
	var groups []orderGroup
	index := make(map[graph.VertexID]int)
	for _, o := range orders {
		k := key(o)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, orderGroup{key: k})
		}
		groups[i].orders = append(groups[i].orders, o)
	}
	return groups
}

// nearestGroup returns the group whose key is closest to from. Unreachable
// groups are skipped and ties keep the earlier group.
func (s *Simulator) nearestGroup(from graph.VertexID, groups []orderGroup, mode graph.TravelMode) (orderGroup, graph.Route, bool, error) {
	var (
		best      orderGroup
		bestRoute graph.Route
		found     bool
	)
	for _, g := range groups {
		r, err := s.paths.ShortestPath(from, g.key, mode)
		if err != nil {
			return orderGroup{}, graph.Route{}, false, err
		}
		if !r.Reachable() {
			continue
		}
		if !found || r.Distance < bestRoute.Distance {
			best, bestRoute, found = g, r, true
		}
	}
	return best, bestRoute, found, nil
}

// FindOptimalOrders selects the orders v should take next. Only orders whose
// payload fits are considered. Orders at v's position win outright; otherwise
// the nearest reachable start is chosen. Within that start the nearest target
// is chosen, and its orders are accepted lightest-first while the batch stays
// within MaxPayload and a full tank covers reposition plus delivery at the
// batch payload. Fuel on hand is not considered; dispatch refuels first when
// the tank cannot cover the pickup leg.
//
// The heuristic never backtracks to another target group. The open pool is
// not modified.
func (s *Simulator) FindOptimalOrders(v *VehicleInstance) (Selection, error) {
	t := v.Template
	mode := t.TravelMode

	var fitting []Order
	for _, o := range s.open.Items() {
		if o.PayloadWeight <= t.MaxPayload {
			fitting = append(fitting, o)
		}
	}
	if len(fitting) == 0 {
		return Selection{}, nil
	}

	var (
		candidates []Order
		start      = v.Position
		reposition = graph.Route{Vertices: []graph.VertexID{v.Position}}
	)
	for _, o := range fitting {
		if o.Start == v.Position {
			candidates = append(candidates, o)
		}
	}
	if len(candidates) == 0 {
		g, r, ok, err := s.nearestGroup(v.Position, groupOrders(fitting, func(o Order) graph.VertexID { return o.Start }), mode)
		if err != nil || !ok {
			return Selection{}, err
		}
		candidates, start, reposition = g.orders, g.key, r
	}

	group, delivery, ok, err := s.nearestGroup(start, groupOrders(candidates, func(o Order) graph.VertexID { return o.Target }), mode)
	if err != nil || !ok {
		return Selection{}, err
	}

	byPayload := slices.Clone(group.orders)
	slices.SortStableFunc(byPayload, func(a, b Order) int {
		return cmp.Compare(a.PayloadWeight, b.PayloadWeight)
	})

	sel := Selection{Start: start, Target: group.key, Reposition: reposition, Delivery: delivery}
	required := reposition.Distance + delivery.Distance
	for _, o := range byPayload {
		next := sel.Payload + o.PayloadWeight
		if next > t.MaxPayload || t.MaxTravelDistance(next) < required {
			sel.Skipped = append(sel.Skipped, o.ID)
			continue
		}
		sel.Orders = append(sel.Orders, newCompletedOrder(o, delivery.Vertices))
		sel.Payload = next
	}
	return sel, nil
}
