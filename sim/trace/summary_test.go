package trace

import "testing"

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	st := NewSimulationTrace(TraceLevelDecisions)

	// WHEN summarized
	summary := Summarize(st)

	// THEN all counts are zero
	if summary.TotalAssignments != 0 || summary.TotalDeliveries != 0 {
		t.Errorf("expected 0 records, got %d assignments and %d deliveries", summary.TotalAssignments, summary.TotalDeliveries)
	}
	if summary.MeanBatchSize != 0 || summary.MaxBatchSize != 0 {
		t.Error("expected 0 batch sizes")
	}
	if len(summary.VehicleDistribution) != 0 {
		t.Error("expected empty vehicle distribution")
	}
}

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	summary := Summarize(nil)
	if summary == nil || summary.TotalAssignments != 0 || summary.VehicleDistribution == nil {
		t.Fatalf("expected zero-value summary, got %+v", summary)
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN a trace with one direct and one repositioning assignment
	st := NewSimulationTrace(TraceLevelDecisions)
	st.RecordAssignment(AssignmentRecord{VehicleID: 0, Position: 1, Start: 1, Target: 5, Accepted: []int{0, 1, 2}, Direct: true})
	st.RecordAssignment(AssignmentRecord{VehicleID: 1, Position: 1, Start: 2, Target: 5, Accepted: []int{3}, Skipped: []int{4}, Reposition: 300})
	st.RecordDelivery(DeliveryRecord{VehicleID: 0, OrderIDs: []int{0, 1, 2}, Cost: 3})
	st.RecordDelivery(DeliveryRecord{VehicleID: 1, OrderIDs: []int{3}, Cost: 1.5})

	// WHEN summarized
	summary := Summarize(st)

	// THEN counts match
	if summary.TotalAssignments != 2 {
		t.Errorf("expected 2 assignments, got %d", summary.TotalAssignments)
	}
	if summary.OrdersAssigned != 4 || summary.OrdersSkipped != 1 {
		t.Errorf("expected 4 assigned and 1 skipped, got %d and %d", summary.OrdersAssigned, summary.OrdersSkipped)
	}
	if summary.DirectDispatches != 1 {
		t.Errorf("expected 1 direct dispatch, got %d", summary.DirectDispatches)
	}
	if summary.MaxBatchSize != 3 || summary.MeanBatchSize != 2 {
		t.Errorf("expected max 3 / mean 2 batch size, got %d / %v", summary.MaxBatchSize, summary.MeanBatchSize)
	}
	if summary.MeanReposition != 300 {
		t.Errorf("expected mean reposition 300, got %v", summary.MeanReposition)
	}
	if summary.OrdersDelivered != 4 || summary.TotalDeliveryCost != 4.5 {
		t.Errorf("expected 4 delivered at cost 4.5, got %d at %v", summary.OrdersDelivered, summary.TotalDeliveryCost)
	}
}

func TestSummarize_VehicleDistribution_CountsOrdersPerVehicle(t *testing.T) {
	// GIVEN assignments to the same vehicle multiple times
	st := NewSimulationTrace(TraceLevelDecisions)
	st.RecordAssignment(AssignmentRecord{VehicleID: 0, Accepted: []int{0, 1}})
	st.RecordAssignment(AssignmentRecord{VehicleID: 0, Accepted: []int{2}})
	st.RecordAssignment(AssignmentRecord{VehicleID: 1, Accepted: []int{3}})

	// WHEN summarized
	summary := Summarize(st)

	// THEN vehicle distribution reflects order counts
	if summary.VehicleDistribution[0] != 3 {
		t.Errorf("expected vehicle 0 count 3, got %d", summary.VehicleDistribution[0])
	}
	if summary.VehicleDistribution[1] != 1 {
		t.Errorf("expected vehicle 1 count 1, got %d", summary.VehicleDistribution[1])
	}
}
