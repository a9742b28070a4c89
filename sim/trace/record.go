// Package trace provides dispatch-trace recording for fleet assignment analysis.
// This package has no dependencies on sim/; it stores pure data types, with
// vertices and orders referenced by their integer IDs.
package trace

// AssignmentRecord captures a single FindOptimalOrders decision that accepted orders.
type AssignmentRecord struct {
	Step       int
	VehicleID  int
	Position   int   // vertex the vehicle was idle at
	Start      int   // chosen pickup vertex
	Target     int   // chosen delivery vertex
	Accepted   []int // order IDs, in acceptance order
	Skipped    []int // order IDs of the target group left behind (payload or range)
	Payload    float64
	Reposition float64 // current -> start distance; 0 when already at the start
	Delivery   float64 // start -> target distance
	Direct     bool    // true when the vehicle left for the target without a pickup leg
}

// DeliveryRecord captures orders closed by a vehicle on arrival.
type DeliveryRecord struct {
	Step      int
	VehicleID int
	Target    int
	OrderIDs  []int
	Distance  float64 // metres driven by the vehicle since the orders were accepted
	Cost      float64 // sum of the orders' delivery costs
}
