package graph

import (
	"container/heap"
	"fmt"
	"math"
)

// Route is the result of a shortest-path query. An unreachable target is
// reported as an empty Vertices list with Distance and Time set to +Inf.
type Route struct {
	Vertices []VertexID `json:"vertices"`
	Distance float64    `json:"distance"` // metres
	Time     float64    `json:"time"`     // seconds
}

// Unreachable is the sentinel route for disconnected vertex pairs.
func Unreachable() Route {
	return Route{Distance: math.Inf(1), Time: math.Inf(1)}
}

// Reachable reports whether the route connects its endpoints.
func (r Route) Reachable() bool { return !math.IsInf(r.Distance, 1) }

// Err returns ErrUnreachable for the unreachable sentinel, nil otherwise.
func (r Route) Err() error {
	if r.Reachable() {
		return nil
	}
	return ErrUnreachable
}

// Legs returns the number of edges traversed by the route.
func (r Route) Legs() int {
	if len(r.Vertices) < 2 {
		return 0
	}
	return len(r.Vertices) - 1
}

// queueItem is a tentative distance for a vertex. seq records discovery order
// and breaks distance ties.
type queueItem struct {
	vertex VertexID
	dist   float64
	seq    int
}

// distQueue implements heap.Interface ordered by (dist, seq).
type distQueue []queueItem

func (q distQueue) Len() int { return len(q) }
func (q distQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].seq < q[j].seq
}
func (q distQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *distQueue) Push(x any) {
	*q = append(*q, x.(queueItem))
}

func (q *distQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[0 : n-1]
	return item
}

// ShortestPath runs Dijkstra from start to target using the distance of mode
// as edge weight. Equal-weight alternatives keep the first-discovered
// predecessor, so results are deterministic for a given insertion order.
// The graph is only read, so concurrent calls are safe.
func (g *Graph) ShortestPath(start, target VertexID, mode TravelMode) (Route, error) {
	if !g.valid(start) {
		return Unreachable(), fmt.Errorf("path start %d: %w", start, ErrInvalidReference)
	}
	if !g.valid(target) {
		return Unreachable(), fmt.Errorf("path target %d: %w", target, ErrInvalidReference)
	}
	if start == target {
		return Route{Vertices: []VertexID{start}}, nil
	}

	n := len(g.vertices)
	dist := make([]float64, n)
	elapsed := make([]float64, n)
	prev := make([]VertexID, n)
	done := make([]bool, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		prev[i] = -1
	}
	dist[start] = 0

	seq := 0
	q := &distQueue{{vertex: start, dist: 0, seq: seq}}
	for q.Len() > 0 {
		item := heap.Pop(q).(queueItem)
		u := item.vertex
		if done[u] {
			continue
		}
		done[u] = true
		if u == target {
			break
		}
		for _, eid := range g.vertices[u].Out {
			e := g.edges[eid]
			v := e.Destination
			if done[v] {
				continue
			}
			if d := dist[u] + e.Weight(mode); d < dist[v] {
				dist[v] = d
				elapsed[v] = elapsed[u] + e.Duration(mode)
				prev[v] = u
				seq++
				heap.Push(q, queueItem{vertex: v, dist: d, seq: seq})
			}
		}
	}

	if math.IsInf(dist[target], 1) {
		return Unreachable(), nil
	}

	var reversed []VertexID
	for v := target; v != -1; v = prev[v] {
		reversed = append(reversed, v)
	}
	vertices := make([]VertexID, len(reversed))
	for i, v := range reversed {
		vertices[len(reversed)-1-i] = v
	}
	return Route{Vertices: vertices, Distance: dist[target], Time: elapsed[target]}, nil
}
