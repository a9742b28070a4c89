package sim

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// StallReason explains why an open order was never taken.
type StallReason string

const (
	StallPayload     StallReason = "payload"     // heavier than MaxPayload
	StallRange       StallReason = "range"       // delivery route longer than a full tank covers at its payload
	StallUnreachable StallReason = "unreachable" // no route from start to target
	StallFleet       StallReason = "fleet"       // feasible alone, but no idle vehicle could take it
)

// StalledOrder is an open order left at the end of a stalled run.
type StalledOrder struct {
	Order    HistoryOrder `json:"order"`
	Reason   StallReason  `json:"reason"`
	Distance float64      `json:"distance"`  // start -> target; 0 when unreachable
	MaxRange float64      `json:"max_range"` // full-tank range at the order's payload; 0 when unlimited
}

// StalledOrders classifies every open order. Routes are probed concurrently
// through the shared Pathfinder.
func (s *Simulator) StalledOrders(ctx context.Context) ([]StalledOrder, error) {
	orders := s.open.Items()
	out := make([]StalledOrder, len(orders))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, o := range orders {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			so, err := s.classifyStalled(o)
			if err != nil {
				return err
			}
			out[i] = so
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Simulator) classifyStalled(o Order) (StalledOrder, error) {
	t := s.template
	so := StalledOrder{Order: historyOrder(o)}
	if r := t.MaxTravelDistance(o.PayloadWeight); !math.IsInf(r, 1) {
		so.MaxRange = r
	}
	if o.PayloadWeight > t.MaxPayload {
		so.Reason = StallPayload
		return so, nil
	}

	route, err := s.paths.ShortestPath(o.Start, o.Target, t.TravelMode)
	if err != nil {
		return so, err
	}
	switch {
	case !route.Reachable():
		so.Reason = StallUnreachable
	case route.Distance > t.MaxTravelDistance(o.PayloadWeight):
		so.Reason, so.Distance = StallRange, route.Distance
	default:
		so.Reason, so.Distance = StallFleet, route.Distance
	}
	return so, nil
}

