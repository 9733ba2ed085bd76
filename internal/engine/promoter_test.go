package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/splitsend/splitsend/internal/engine"
)

func TestAutoPromote_RoutesAllTrafficToWinner(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	test, variants := createRunningTest(t, e, 50, 30, 20)
	seedCounters(t, e, variants[0].ID, 500, 100) // 20%
	seedCounters(t, e, variants[1].ID, 500, 40)  // 8%
	seedCounters(t, e, variants[2].ID, 500, 20)  // 4%

	promoted, err := e.AutoPromote(ctx, test.ID)
	require.NoError(t, err)
	require.True(t, promoted)

	listed, err := e.ListVariants(ctx, test.ID)
	require.NoError(t, err)

	total := 0
	for _, v := range listed {
		total += v.TrafficAllocation
		if v.ID == variants[0].ID {
			require.Equal(t, 100, v.TrafficAllocation)
			require.True(t, v.IsWinner)
		} else {
			require.Equal(t, 0, v.TrafficAllocation)
		}
	}
	require.Equal(t, 100, total)

	// All future selections go to the winner.
	for i := 0; i < 200; i++ {
		v, err := e.SelectVariant(ctx, test.ID)
		require.NoError(t, err)
		require.Equal(t, variants[0].ID, v.ID)
	}
}

func TestAutoPromote_Idempotent(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	test, variants := createRunningTest(t, e, 50, 50)
	seedCounters(t, e, variants[0].ID, 500, 100)
	seedCounters(t, e, variants[1].ID, 500, 40)

	promoted, err := e.AutoPromote(ctx, test.ID)
	require.NoError(t, err)
	require.True(t, promoted)

	// The test is completed now; repeated promotion is a safe no-op.
	promoted, err = e.AutoPromote(ctx, test.ID)
	require.NoError(t, err)
	require.True(t, promoted)

	listed, err := e.ListVariants(ctx, test.ID)
	require.NoError(t, err)
	require.Equal(t, 100, listed[0].TrafficAllocation)
	require.Equal(t, 0, listed[1].TrafficAllocation)
}

func TestAutoPromote_NoWinnerNoChange(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	test, variants := createRunningTest(t, e, 60, 40)
	seedCounters(t, e, variants[0].ID, 40, 5)
	seedCounters(t, e, variants[1].ID, 40, 4)

	promoted, err := e.AutoPromote(ctx, test.ID)
	require.NoError(t, err)
	require.False(t, promoted)

	listed, err := e.ListVariants(ctx, test.ID)
	require.NoError(t, err)
	require.Equal(t, 60, listed[0].TrafficAllocation)
	require.Equal(t, 40, listed[1].TrafficAllocation)
}

func TestAutoPromote_IgnoresWinnerFlagOnCancelledTest(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	test, variants := createRunningTest(t, e, 60, 40)
	require.NoError(t, s.SetWinner(ctx, variants[0].ID))
	require.NoError(t, e.CancelTest(ctx, test.ID))

	_, err := e.AutoPromote(ctx, test.ID)
	require.ErrorIs(t, err, engine.ErrTestNotRunning)

	listed, err := e.ListVariants(ctx, test.ID)
	require.NoError(t, err)
	require.Equal(t, 60, listed[0].TrafficAllocation)
	require.Equal(t, 40, listed[1].TrafficAllocation)
}

func TestAutoPromote_CancelledTest(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	test, _ := createRunningTest(t, e, 50, 50)
	require.NoError(t, e.CancelTest(ctx, test.ID))

	_, err := e.AutoPromote(ctx, test.ID)
	require.ErrorIs(t, err, engine.ErrTestNotRunning)
}
