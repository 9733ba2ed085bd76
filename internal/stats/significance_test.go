package stats_test

import (
	"testing"

	"github.com/splitsend/splitsend/internal/stats"
)

func TestCompareProportions_ClearWinner(t *testing.T) {
	// Variant A: 20% conversion (100/500)
	// Variant B: 8% conversion (40/500)
	// Should be very confident the difference is real.
	cmp := stats.CompareProportions(100, 500, 40, 500)

	if !cmp.Significant {
		t.Errorf("expected significant result, got p=%f", cmp.PValue)
	}
	if cmp.ConfidenceLevel < 95 {
		t.Errorf("expected confidence >= 95, got %d", cmp.ConfidenceLevel)
	}
	if cmp.PValue >= 0.05 {
		t.Errorf("expected p < 0.05, got %f", cmp.PValue)
	}
}

func TestCompareProportions_NoPracticalDifference(t *testing.T) {
	// 20% vs 19.5% over 1000 sends each: far from significant.
	cmp := stats.CompareProportions(200, 1000, 195, 1000)

	if cmp.Significant {
		t.Errorf("expected insignificant result, got p=%f", cmp.PValue)
	}
	if cmp.ConfidenceLevel >= 95 {
		t.Errorf("expected confidence well below 95, got %d", cmp.ConfidenceLevel)
	}
}

func TestCompareProportions_MinimumSampleGate(t *testing.T) {
	// Either side below 30 sends is never significant, no matter how
	// extreme the observed rates are.
	cases := []struct {
		name                       string
		aConv, aSent, bConv, bSent int
	}{
		{"both tiny", 3, 10, 1, 10},
		{"a below gate", 29, 29, 0, 1000},
		{"b below gate", 0, 1000, 29, 29},
		{"zero sends", 0, 0, 0, 0},
	}

	for _, tc := range cases {
		cmp := stats.CompareProportions(tc.aConv, tc.aSent, tc.bConv, tc.bSent)
		if cmp.Significant {
			t.Errorf("%s: expected insignificant result", tc.name)
		}
		if cmp.ConfidenceLevel != 0 {
			t.Errorf("%s: expected confidence 0, got %d", tc.name, cmp.ConfidenceLevel)
		}
		if cmp.PValue != 1 {
			t.Errorf("%s: expected p=1, got %f", tc.name, cmp.PValue)
		}
	}
}

func TestCompareProportions_Symmetry(t *testing.T) {
	ab := stats.CompareProportions(120, 800, 70, 600)
	ba := stats.CompareProportions(70, 600, 120, 800)

	if ab.PValue != ba.PValue {
		t.Errorf("p-values differ: %f vs %f", ab.PValue, ba.PValue)
	}
	if ab.ConfidenceLevel != ba.ConfidenceLevel {
		t.Errorf("confidence levels differ: %d vs %d", ab.ConfidenceLevel, ba.ConfidenceLevel)
	}
	if ab.Significant != ba.Significant {
		t.Errorf("significance differs")
	}
}

func TestCompareProportions_MonotonicInGap(t *testing.T) {
	// Holding sent counts fixed, widening the conversion gap never
	// decreases confidence.
	prev := -1
	for conv := 100; conv <= 300; conv += 20 {
		cmp := stats.CompareProportions(conv, 1000, 100, 1000)
		if cmp.ConfidenceLevel < prev {
			t.Fatalf("confidence dropped from %d to %d at conv=%d", prev, cmp.ConfidenceLevel, conv)
		}
		prev = cmp.ConfidenceLevel
	}
}

func TestCompareProportions_EqualRates(t *testing.T) {
	cmp := stats.CompareProportions(50, 1000, 50, 1000)

	if cmp.Significant {
		t.Errorf("expected insignificant result for equal rates")
	}
	if cmp.ConfidenceLevel > 10 {
		t.Errorf("expected near-zero confidence for equal rates, got %d", cmp.ConfidenceLevel)
	}
}

func TestCompareProportions_ZeroConversions(t *testing.T) {
	// Pooled proportion of zero gives a degenerate standard error.
	cmp := stats.CompareProportions(0, 500, 0, 500)

	if cmp.Significant {
		t.Errorf("expected insignificant result")
	}
	if cmp.PValue != 1 {
		t.Errorf("expected p=1, got %f", cmp.PValue)
	}
}

func TestCompareProportions_PValueBounds(t *testing.T) {
	for _, c := range [][4]int{
		{100, 500, 40, 500},
		{1, 30, 29, 30},
		{500, 1000, 500, 1000},
		{0, 100, 100, 100},
	} {
		cmp := stats.CompareProportions(c[0], c[1], c[2], c[3])
		if cmp.PValue < 0 || cmp.PValue > 1 {
			t.Errorf("p-value %f out of [0,1] for %v", cmp.PValue, c)
		}
		if cmp.ConfidenceLevel < 0 || cmp.ConfidenceLevel > 100 {
			t.Errorf("confidence %d out of [0,100] for %v", cmp.ConfidenceLevel, c)
		}
	}
}
