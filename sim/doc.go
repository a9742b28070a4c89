// Package sim provides the discrete-step fleet delivery simulation engine.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - vehicle.go: VehicleTemplate formulas and the four vehicle states
//   - dispatch.go: the transition table and the per-state step handlers
//   - simulator.go: construction, Advance, IsDone and the Simulate loop
//
// assignment.go holds FindOptimalOrders, the greedy batch heuristic an idle
// vehicle runs; movement.go holds leg-by-leg motion with fuel and cost
// accounting.
//
// # Architecture
//
// The graph and its shortest-path queries live in sim/graph; vertices and
// edges are addressed by integer IDs, so orders, vehicles and history steps
// carry IDs rather than references. Dispatch decisions can be recorded into
// sim/trace. Scenario loading, observers and persistence are adapters outside
// this package: sim/scenario, sim/observe and sim/store.
//
// # Determinism
//
// A run is a pure function of its SimulationParameters. Vehicles and orders
// are placed with IndexedRNG (seed + index per draw), vehicles advance in
// slice order, and ties in pathfinding and order grouping resolve by
// insertion order. Pacing (SimulationSpeed) affects wall-clock time only.
//
// # Extension Points
//
//   - ProgressSink: receives Progress reports from Simulate
//   - HistorySink: optionally receives the final History
package sim
