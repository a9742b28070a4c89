// Package graph provides the transport network used by the fleet simulator:
// a directed graph of Base and Target vertices whose edges carry per-travel-mode
// distance/time tables, plus a shortest-path query over it.
//
// Vertices and edges live in graph-owned arenas and are referenced by dense
// integer IDs. The graph is write-once: there are no removal operations, and it
// must not be mutated while a simulation is reading it.
package graph

import (
	"errors"
	"fmt"
)

// VertexID and EdgeID index into the graph's vertex and edge arenas.
type (
	VertexID int
	EdgeID   int
)

var (
	// ErrInvalidReference is returned when an edge or query names a vertex
	// or edge that does not exist in the graph.
	ErrInvalidReference = errors.New("invalid vertex reference")

	// ErrNoEdge is returned when two existing vertices share no direct edge.
	ErrNoEdge = errors.New("no edge between vertices")

	// ErrNegativeWeight is returned when an edge carries a negative distance.
	ErrNegativeWeight = errors.New("negative edge distance")

	// ErrUnreachable marks a route between two vertices that are not connected.
	ErrUnreachable = errors.New("target unreachable")
)

// VertexType classifies a vertex in the network.
type VertexType string

const (
	VertexBase   VertexType = "base"
	VertexTarget VertexType = "target"
)

// TravelMode selects which distance/time table an edge exposes.
type TravelMode string

const (
	ModeDriving   TravelMode = "driving"
	ModeWalking   TravelMode = "walking"
	ModeBicycling TravelMode = "bicycling"
	ModeTransit   TravelMode = "transit"
)

// Location is a geocoordinate in degrees.
type Location struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Measure is a (distance, time) pair for one travel mode.
type Measure struct {
	Distance float64 `json:"distance"` // metres
	Time     float64 `json:"time"`     // seconds
}

// VertexInfo is the caller-supplied payload of a vertex.
type VertexInfo struct {
	Name     string
	Type     VertexType
	Location Location
}

// EdgeInfo is the caller-supplied payload of an edge. Distance is the fallback
// used for any travel mode missing from Modes.
type EdgeInfo struct {
	Distance float64
	Modes    map[TravelMode]Measure
}

// Vertex is a node of the network. Out lists outgoing edges in insertion order.
type Vertex struct {
	ID VertexID
	VertexInfo
	Out []EdgeID
}

// Edge is a directed connection between two vertices.
type Edge struct {
	ID          EdgeID
	Origin      VertexID
	Destination VertexID
	Info        EdgeInfo
}

// Weight returns the edge distance under mode, falling back to the default distance.
func (e Edge) Weight(mode TravelMode) float64 {
	if m, ok := e.Info.Modes[mode]; ok {
		return m.Distance
	}
	return e.Info.Distance
}

// Duration returns the edge travel time under mode. Edges without a table entry
// for the mode report zero.
func (e Edge) Duration(mode TravelMode) float64 {
	if m, ok := e.Info.Modes[mode]; ok {
		return m.Time
	}
	return 0
}

// Neighbor is an outgoing edge together with the vertex it leads to.
type Neighbor struct {
	Edge   Edge
	Vertex Vertex
}

// Graph owns the full vertex and edge sets of a transport network.
type Graph struct {
	vertices []Vertex
	edges    []Edge
	byName   map[string]VertexID
	// version increments on every mutation so caches can detect stale entries.
	version uint64
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{byName: make(map[string]VertexID)}
}

// AddVertex appends a vertex and returns its ID. When two vertices share a
// name, VertexByName resolves to the first one.
func (g *Graph) AddVertex(info VertexInfo) VertexID {
	id := VertexID(len(g.vertices))
	g.vertices = append(g.vertices, Vertex{ID: id, VertexInfo: info})
	if _, exists := g.byName[info.Name]; !exists && info.Name != "" {
		g.byName[info.Name] = id
	}
	g.version++
	return id
}

// AddEdge appends a directed edge from origin to dest and returns its ID.
func (g *Graph) AddEdge(origin, dest VertexID, info EdgeInfo) (EdgeID, error) {
	if !g.valid(origin) {
		return 0, fmt.Errorf("edge origin %d: %w", origin, ErrInvalidReference)
	}
	if !g.valid(dest) {
		return 0, fmt.Errorf("edge destination %d: %w", dest, ErrInvalidReference)
	}
	if info.Distance < 0 {
		return 0, fmt.Errorf("edge %d->%d: %w", origin, dest, ErrNegativeWeight)
	}
	for mode, m := range info.Modes {
		if m.Distance < 0 {
			return 0, fmt.Errorf("edge %d->%d mode %q: %w", origin, dest, mode, ErrNegativeWeight)
		}
	}
	id := EdgeID(len(g.edges))
	g.edges = append(g.edges, Edge{ID: id, Origin: origin, Destination: dest, Info: info})
	g.vertices[origin].Out = append(g.vertices[origin].Out, id)
	g.version++
	return id, nil
}

// Neighbors returns the outgoing edges of v and the vertices they lead to.
func (g *Graph) Neighbors(v VertexID) ([]Neighbor, error) {
	if !g.valid(v) {
		return nil, fmt.Errorf("neighbors of %d: %w", v, ErrInvalidReference)
	}
	out := g.vertices[v].Out
	ns := make([]Neighbor, 0, len(out))
	for _, eid := range out {
		e := g.edges[eid]
		ns = append(ns, Neighbor{Edge: e, Vertex: g.vertices[e.Destination]})
	}
	return ns, nil
}

// Vertex looks up a vertex by ID.
func (g *Graph) Vertex(id VertexID) (Vertex, error) {
	if !g.valid(id) {
		return Vertex{}, fmt.Errorf("vertex %d: %w", id, ErrInvalidReference)
	}
	return g.vertices[id], nil
}

// Edge looks up an edge by ID.
func (g *Graph) Edge(id EdgeID) (Edge, error) {
	if id < 0 || int(id) >= len(g.edges) {
		return Edge{}, fmt.Errorf("edge %d: %w", id, ErrInvalidReference)
	}
	return g.edges[id], nil
}

// VertexByName resolves a vertex name to its ID.
func (g *Graph) VertexByName(name string) (VertexID, bool) {
	id, ok := g.byName[name]
	return id, ok
}

// Vertices returns all vertex IDs in insertion order.
func (g *Graph) Vertices() []VertexID {
	ids := make([]VertexID, len(g.vertices))
	for i := range g.vertices {
		ids[i] = VertexID(i)
	}
	return ids
}

// VerticesOfType returns the IDs of all vertices of type t in insertion order.
func (g *Graph) VerticesOfType(t VertexType) []VertexID {
	var ids []VertexID
	for _, v := range g.vertices {
		if v.Type == t {
			ids = append(ids, v.ID)
		}
	}
	return ids
}

// NumVertices returns the number of vertices.
func (g *Graph) NumVertices() int { return len(g.vertices) }

// NumEdges returns the number of edges.
func (g *Graph) NumEdges() int { return len(g.edges) }

// Version changes whenever a vertex or edge is added.
func (g *Graph) Version() uint64 { return g.version }

// LegWeight returns the weight of the cheapest edge from u to v under mode.
// Parallel edges resolve to the minimum, matching what ShortestPath relaxes.
func (g *Graph) LegWeight(u, v VertexID, mode TravelMode) (float64, error) {
	if !g.valid(u) || !g.valid(v) {
		return 0, fmt.Errorf("leg %d->%d: %w", u, v, ErrInvalidReference)
	}
	found := false
	best := 0.0
	for _, eid := range g.vertices[u].Out {
		e := g.edges[eid]
		if e.Destination != v {
			continue
		}
		if w := e.Weight(mode); !found || w < best {
			best = w
			found = true
		}
	}
	if !found {
		return 0, fmt.Errorf("leg %d->%d: %w", u, v, ErrNoEdge)
	}
	return best, nil
}

func (g *Graph) valid(id VertexID) bool {
	return id >= 0 && int(id) < len(g.vertices)
}
