package indicator

import (
	"math"
	"testing"
)

func TestRSI(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		period int
		want   float64
		ok     bool
	}{
		{"only gains", []float64{1, 2, 3, 4, 5}, 4, 100, true},
		{"only losses", []float64{5, 4, 3, 2, 1}, 4, 0, true},
		{"flat", []float64{3, 3, 3, 3, 3}, 4, 50, true},
		// gains 3, losses 1 -> rs=3 -> 75
		{"mixed", []float64{10, 11, 10, 11, 12}, 4, 75, true},
		{"short history", []float64{1, 2, 3}, 4, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := RSI(tc.closes, tc.period)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("RSI = %f, want %f", got, tc.want)
			}
		})
	}
}

func TestRSI_UsesLatestWindow(t *testing.T) {
	// Early losses fall outside the 2-period window.
	closes := []float64{10, 5, 1, 2, 3}
	got, ok := RSI(closes, 2)
	if !ok || got != 100 {
		t.Errorf("RSI = %f, %v; want 100, true", got, ok)
	}
}
