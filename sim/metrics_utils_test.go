package sim

import (
	"math"
	"testing"
)

// TestCalculatePercentile_EmptyInput_ReturnsZero verifies the empty-run case.
func TestCalculatePercentile_EmptyInput_ReturnsZero(t *testing.T) {
	// GIVEN empty float64 slice
	// WHEN CalculatePercentile is called
	result := CalculatePercentile([]float64{}, 99)
	// THEN it returns 0 (not panic)
	if result != 0.0 {
		t.Errorf("expected 0.0 for empty input, got %f", result)
	}

	// Also verify with int (generic constraint covers both)
	resultInt := CalculatePercentile([]int{}, 50)
	if resultInt != 0.0 {
		t.Errorf("expected 0.0 for empty int input, got %f", resultInt)
	}
}

func TestCalculatePercentile_SingleElement_ReturnsElement(t *testing.T) {
	for _, p := range []float64{0, 50, 99, 100} {
		if got := CalculatePercentile([]float64{250.0}, p); got != 250.0 {
			t.Errorf("p%v of {250} = %f, want 250", p, got)
		}
	}
}

func TestCalculatePercentile_Interpolates(t *testing.T) {
	data := []float64{100, 200, 300, 400, 500}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 100},
		{25, 200},
		{50, 300},
		{90, 460},
		{100, 500},
	}
	for _, tt := range tests {
		got := CalculatePercentile(data, tt.p)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("p%v = %f, want %f", tt.p, got, tt.want)
		}
	}
}

func TestCalculateMean(t *testing.T) {
	if got := CalculateMean([]int{}); got != 0 {
		t.Errorf("mean of empty = %f, want 0", got)
	}
	if got := CalculateMean([]int{1, 2, 3, 4}); got != 2.5 {
		t.Errorf("mean of 1..4 = %f, want 2.5", got)
	}
}

func TestSortedCopy_LeavesInputUntouched(t *testing.T) {
	in := []float64{3, 1, 2}
	out := sortedCopy(in)
	if out[0] != 1 || out[1] != 2 || out[2] != 3 {
		t.Errorf("sortedCopy = %v, want [1 2 3]", out)
	}
	if in[0] != 3 || in[1] != 1 || in[2] != 2 {
		t.Errorf("input modified: %v", in)
	}
}
