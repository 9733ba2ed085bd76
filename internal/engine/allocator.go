package engine

import (
	"context"

	"github.com/splitsend/splitsend/internal/store"
)

// SelectVariant picks the variant that should receive the next send, using
// weighted random selection over the variants' traffic allocations: a
// uniform draw in [0,100) walked against cumulative allocation in stable
// variant order. Selection never fails for a non-empty variant set; if
// rounding leaves the draw unmatched the first variant is returned.
func (e *Engine) SelectVariant(ctx context.Context, testID int64) (*store.Variant, error) {
	if _, err := e.store.GetTest(ctx, testID); err != nil {
		return nil, err
	}

	variants, err := e.store.ListVariants(ctx, testID)
	if err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return nil, ErrNoVariantsAvailable
	}

	r := e.randFn() * 100
	cumulative := 0.0
	for _, v := range variants {
		cumulative += float64(v.TrafficAllocation)
		// Strictly less than, so a draw of 0 cannot land on a
		// zero-weight variant at the front of the list.
		if r < cumulative {
			return v, nil
		}
	}

	// Allocations summing below 100 or float edge cases land here.
	return variants[0], nil
}
