package engine

import (
	"context"

	"github.com/splitsend/splitsend/internal/stats"
	"github.com/splitsend/splitsend/internal/store"
)

// CreateSnapshot captures one immutable snapshot row per variant: current
// counters, rates, and the maximum confidence level observed against any
// sibling variant at this moment. Called on demand by an external scheduler;
// the engine does not self-schedule.
func (e *Engine) CreateSnapshot(ctx context.Context, testID int64) ([]*store.Snapshot, error) {
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

	now := e.now()
	snapshots := make([]*store.Snapshot, 0, len(variants))
	for i, v := range variants {
		maxConfidence := 0
		for j, other := range variants {
			if i == j {
				continue
			}
			cmp := stats.CompareProportions(
				v.ConversionCount, v.SentCount,
				other.ConversionCount, other.SentCount,
			)
			if cmp.ConfidenceLevel > maxConfidence {
				maxConfidence = cmp.ConfidenceLevel
			}
		}

		snapshots = append(snapshots, &store.Snapshot{
			TestID:          testID,
			VariantID:       v.ID,
			SentCount:       v.SentCount,
			OpenCount:       v.OpenCount,
			ClickCount:      v.ClickCount,
			ReplyCount:      v.ReplyCount,
			ConversionCount: v.ConversionCount,
			OpenRate:        v.OpenRate,
			ClickRate:       v.ClickRate,
			ReplyRate:       v.ReplyRate,
			ConversionRate:  v.ConversionRate,
			ConfidenceLevel: maxConfidence,
			CreatedAt:       now,
		})
	}

	if err := e.store.InsertSnapshots(ctx, snapshots); err != nil {
		return nil, err
	}
	e.logger.Info("snapshot captured", "test_id", testID, "variants", len(snapshots))
	return snapshots, nil
}

// ListSnapshots returns a test's snapshot history, oldest first, for trend
// rendering. Snapshots outlive their test, so no existence check here.
func (e *Engine) ListSnapshots(ctx context.Context, testID int64) ([]*store.Snapshot, error) {
	return e.store.ListSnapshots(ctx, testID)
}
