package engine

import (
	"context"

	"github.com/splitsend/splitsend/internal/stats"
	"github.com/splitsend/splitsend/internal/store"
)

// VariantComparison is one variant's row in the comparison view.
type VariantComparison struct {
	Variant *store.Variant
	Rate    float64 // exact conversion proportion
	CILower float64 // Wilson 95% interval bounds
	CIUpper float64
}

// Comparison is the reporting view over a test: every variant with rates and
// confidence intervals, the current winner if decided, the leading variant,
// and the full pairwise significance matrix.
type Comparison struct {
	Test     *store.Test
	Variants []VariantComparison
	Winner   *store.Variant // nil until determined
	Leading  int            // index into Variants
	Matrix   [][]stats.Comparison
}

// Compare builds the comparison view for a test.
func (e *Engine) Compare(ctx context.Context, testID int64) (*Comparison, error) {
	test, err := e.store.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	variants, err := e.store.ListVariants(ctx, testID)
	if err != nil {
		return nil, err
	}

	view := &Comparison{
		Test:     test,
		Variants: make([]VariantComparison, len(variants)),
		Matrix:   make([][]stats.Comparison, len(variants)),
	}

	maxRate := -1.0
	for i, v := range variants {
		rate := v.ConversionProportion()
		lower, upper := stats.WilsonInterval(v.ConversionCount, v.SentCount, 0.95)
		view.Variants[i] = VariantComparison{
			Variant: v,
			Rate:    rate,
			CILower: lower,
			CIUpper: upper,
		}
		if v.IsWinner {
			view.Winner = v
		}
		if rate > maxRate {
			maxRate = rate
			view.Leading = i
		}

		view.Matrix[i] = make([]stats.Comparison, len(variants))
		for j, other := range variants {
			if i == j {
				view.Matrix[i][j] = stats.Comparison{PValue: 1}
				continue
			}
			view.Matrix[i][j] = stats.CompareProportions(
				v.ConversionCount, v.SentCount,
				other.ConversionCount, other.SentCount,
			)
		}
	}

	return view, nil
}
