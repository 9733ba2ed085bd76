package engine

import (
	"context"
	"fmt"

	"github.com/splitsend/splitsend/internal/store"
)

// AutoPromote runs winner determination and, if a winner exists, rewrites
// traffic allocation so the winner receives all future sends (100 to the
// winner, 0 to every sibling). Returns true when a winner holds the full
// allocation afterwards. Idempotent: once a winner exists, repeated calls
// re-assert the allocation and return true without re-evaluating.
func (e *Engine) AutoPromote(ctx context.Context, testID int64) (bool, error) {
	lock := e.testLock(testID)
	lock.Lock()
	defer lock.Unlock()

	// Cancelled is terminal: even a lingering winner flag must not move
	// traffic on a cancelled test.
	test, err := e.store.GetTest(ctx, testID)
	if err != nil {
		return false, err
	}
	if test.Status != store.StatusRunning && test.Status != store.StatusCompleted {
		return false, fmt.Errorf("%w: status is %s", ErrTestNotRunning, test.Status)
	}

	variants, err := e.store.ListVariants(ctx, testID)
	if err != nil {
		return false, err
	}
	for _, v := range variants {
		if v.IsWinner {
			return true, e.promote(ctx, testID, v.ID, variants)
		}
	}

	winner, err := e.determineWinnerLocked(ctx, testID)
	if err != nil {
		return false, err
	}
	if winner == nil {
		return false, nil
	}
	return true, e.promote(ctx, testID, winner.ID, variants)
}

func (e *Engine) promote(ctx context.Context, testID, winnerID int64, variants []*store.Variant) error {
	for _, v := range variants {
		pct := 0
		if v.ID == winnerID {
			pct = 100
		}
		if v.TrafficAllocation == pct {
			continue
		}
		if err := e.store.SetTrafficAllocation(ctx, v.ID, pct); err != nil {
			return err
		}
	}
	e.logger.Info("winner promoted", "test_id", testID, "variant_id", winnerID)
	return nil
}
