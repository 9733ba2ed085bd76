package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/splitsend/splitsend/internal/engine"
)

func TestCreateSnapshot_CapturesEveryVariant(t *testing.T) {
	now := time.Unix(1700000000, 0)
	e, _ := newTestEngine(t, engine.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	test, variants := createRunningTest(t, e, 40, 30, 30)
	seedCounters(t, e, variants[0].ID, 500, 100) // 20%
	seedCounters(t, e, variants[1].ID, 500, 40)  // 8%
	seedCounters(t, e, variants[2].ID, 500, 95)  // 19%

	snaps, err := e.CreateSnapshot(ctx, test.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	byVariant := map[int64]int{}
	for _, snap := range snaps {
		byVariant[snap.VariantID] = snap.ConfidenceLevel
		require.Equal(t, test.ID, snap.TestID)
		require.Equal(t, now.Unix(), snap.CreatedAt.Unix())
		require.Equal(t, 500, snap.SentCount)
	}

	// The leader is significant against the 8% variant, so its best
	// pairwise confidence clears 95. The 8% variant is likewise far from
	// the other two.
	require.GreaterOrEqual(t, byVariant[variants[0].ID], 95)
	require.GreaterOrEqual(t, byVariant[variants[1].ID], 95)
}

func TestCreateSnapshot_HistoryAccumulatesAscending(t *testing.T) {
	now := time.Unix(1700000000, 0)
	e, _ := newTestEngine(t, engine.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	test, variants := createRunningTest(t, e, 50, 50)

	_, err := e.CreateSnapshot(ctx, test.ID)
	require.NoError(t, err)

	seedCounters(t, e, variants[0].ID, 100, 20)
	now = now.Add(24 * time.Hour)

	_, err = e.CreateSnapshot(ctx, test.ID)
	require.NoError(t, err)

	snaps, err := e.ListSnapshots(ctx, test.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 4)

	for i := 1; i < len(snaps); i++ {
		require.False(t, snaps[i].CreatedAt.Before(snaps[i-1].CreatedAt))
	}

	// Earlier rows are untouched by later activity: append-only history.
	require.Equal(t, 0, snaps[0].SentCount)
	require.Equal(t, 0, snaps[1].SentCount)
}

func TestCreateSnapshot_TestNotFound(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.CreateSnapshot(context.Background(), 4242)
	require.ErrorIs(t, err, engine.ErrTestNotFound)
}
