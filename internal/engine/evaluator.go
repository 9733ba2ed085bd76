package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/splitsend/splitsend/internal/stats"
	"github.com/splitsend/splitsend/internal/store"
)

// DetermineWinner compares the two best-converting variants of a running
// test. If the leader beats the runner-up with at least 95% confidence, the
// leader is marked winner, the test transitions to completed, and the winner
// is returned. A nil variant with nil error means no winner yet; the test
// stays running and can be re-evaluated as more data accrues.
func (e *Engine) DetermineWinner(ctx context.Context, testID int64) (*store.Variant, error) {
	lock := e.testLock(testID)
	lock.Lock()
	defer lock.Unlock()

	return e.determineWinnerLocked(ctx, testID)
}

func (e *Engine) determineWinnerLocked(ctx context.Context, testID int64) (*store.Variant, error) {
	test, err := e.store.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	if test.Status != store.StatusRunning {
		return nil, fmt.Errorf("%w: status is %s", ErrTestNotRunning, test.Status)
	}

	variants, err := e.store.ListVariants(ctx, testID)
	if err != nil {
		return nil, err
	}
	if len(variants) < 2 {
		return nil, nil
	}

	sort.SliceStable(variants, func(i, j int) bool {
		return variants[i].ConversionProportion() > variants[j].ConversionProportion()
	})
	leader, runnerUp := variants[0], variants[1]

	cmp := stats.CompareProportions(
		leader.ConversionCount, leader.SentCount,
		runnerUp.ConversionCount, runnerUp.SentCount,
	)
	if !cmp.Significant || cmp.ConfidenceLevel < 95 {
		return nil, nil
	}

	// Complete the test before flagging the winner. The conditional status
	// update is the serialization point against a concurrent cancel; a test
	// that loses that race must never end up carrying a winner.
	if err := e.store.UpdateTestStatus(ctx, testID, store.StatusRunning, store.StatusCompleted); err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			return nil, ErrTestNotRunning
		}
		return nil, err
	}
	if err := e.store.SetWinner(ctx, leader.ID); err != nil {
		return nil, err
	}
	leader.IsWinner = true
	e.releaseTestLock(testID)

	e.logger.Info("winner determined",
		"test_id", testID,
		"variant_id", leader.ID,
		"label", leader.Label,
		"confidence", cmp.ConfidenceLevel,
		"p_value", cmp.PValue)
	return leader, nil
}
