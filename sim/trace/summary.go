package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalAssignments    int
	OrdersAssigned      int
	OrdersSkipped       int
	DirectDispatches    int // assignments that needed no pickup leg
	MeanBatchSize       float64
	MaxBatchSize        int
	MeanReposition      float64 // mean current -> start distance over repositioning assignments
	TotalDeliveries     int
	OrdersDelivered     int
	TotalDeliveryCost   float64
	VehicleDistribution map[int]int // vehicle ID -> count of orders assigned
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		VehicleDistribution: make(map[int]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalAssignments = len(st.Assignments)
	repositions := 0
	totalReposition := 0.0
	for _, a := range st.Assignments {
		n := len(a.Accepted)
		summary.OrdersAssigned += n
		summary.OrdersSkipped += len(a.Skipped)
		summary.VehicleDistribution[a.VehicleID] += n
		if n > summary.MaxBatchSize {
			summary.MaxBatchSize = n
		}
		if a.Direct {
			summary.DirectDispatches++
		}
		if a.Start != a.Position {
			repositions++
			totalReposition += a.Reposition
		}
	}
	if summary.TotalAssignments > 0 {
		summary.MeanBatchSize = float64(summary.OrdersAssigned) / float64(summary.TotalAssignments)
	}
	if repositions > 0 {
		summary.MeanReposition = totalReposition / float64(repositions)
	}

	summary.TotalDeliveries = len(st.Deliveries)
	for _, d := range st.Deliveries {
		summary.OrdersDelivered += len(d.OrderIDs)
		summary.TotalDeliveryCost += d.Cost
	}

	return summary
}
