package graph

import (
	"sync"
	"sync/atomic"
)

type routeKey struct {
	start, target VertexID
	mode          TravelMode
}

// Pathfinder memoizes ShortestPath results for one graph. It is safe for
// concurrent use; a graph mutation (detected through Graph.Version) drops all
// cached routes.
type Pathfinder struct {
	g *Graph

	mu      sync.RWMutex
	version uint64
	routes  map[routeKey]Route

	hits, misses atomic.Uint64
}

// NewPathfinder returns a caching pathfinder over g.
func NewPathfinder(g *Graph) *Pathfinder {
	return &Pathfinder{g: g, version: g.Version(), routes: make(map[routeKey]Route)}
}

// Graph returns the underlying graph.
func (p *Pathfinder) Graph() *Graph { return p.g }

// ShortestPath returns the cached route from start to target, computing it on
// a miss. Callers must not modify the returned Vertices slice.
func (p *Pathfinder) ShortestPath(start, target VertexID, mode TravelMode) (Route, error) {
	key := routeKey{start: start, target: target, mode: mode}

	p.mu.RLock()
	if p.version == p.g.Version() {
		if r, ok := p.routes[key]; ok {
			p.mu.RUnlock()
			p.hits.Add(1)
			return r, nil
		}
	}
	p.mu.RUnlock()

	r, err := p.g.ShortestPath(start, target, mode)
	if err != nil {
		return r, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if v := p.g.Version(); v != p.version {
		p.routes = make(map[routeKey]Route)
		p.version = v
	}
	p.routes[key] = r
	p.misses.Add(1)
	return r, nil
}

// Distance is a convenience wrapper returning only the route distance. Invalid
// references and unreachable pairs both report +Inf.
func (p *Pathfinder) Distance(start, target VertexID, mode TravelMode) float64 {
	r, err := p.ShortestPath(start, target, mode)
	if err != nil {
		return Unreachable().Distance
	}
	return r.Distance
}

// Stats returns the cache hit and miss counters.
func (p *Pathfinder) Stats() (hits, misses uint64) {
	return p.hits.Load(), p.misses.Load()
}
