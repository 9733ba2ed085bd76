package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/splitsend/splitsend/internal/engine"
	"github.com/splitsend/splitsend/internal/store"
)

func TestCreateTest_AllocationMustSumTo100(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, _, err := e.CreateTest(ctx, engine.CreateTestRequest{
		OwnerID: 1,
		Name:    "bad",
		Variants: []store.VariantSpec{
			{Label: "a", TrafficAllocation: 70},
			{Label: "b", TrafficAllocation: 40},
		},
	})
	require.ErrorIs(t, err, engine.ErrInvalidAllocation)
}

func TestCreateTest_Validation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, _, err := e.CreateTest(ctx, engine.CreateTestRequest{
		OwnerID: 1,
		Name:    "",
		Variants: []store.VariantSpec{
			{Label: "a", TrafficAllocation: 50},
			{Label: "b", TrafficAllocation: 50},
		},
	})
	require.ErrorIs(t, err, engine.ErrInvalidInput)

	_, _, err = e.CreateTest(ctx, engine.CreateTestRequest{
		OwnerID:  1,
		Name:     "solo",
		Variants: []store.VariantSpec{{Label: "only", TrafficAllocation: 100}},
	})
	require.ErrorIs(t, err, engine.ErrInvalidInput)

	_, _, err = e.CreateTest(ctx, engine.CreateTestRequest{
		OwnerID:   1,
		Name:      "typed",
		EmailType: "carrier_pigeon",
		Variants: []store.VariantSpec{
			{Label: "a", TrafficAllocation: 50},
			{Label: "b", TrafficAllocation: 50},
		},
	})
	require.ErrorIs(t, err, engine.ErrInvalidInput)
}

func TestCreateTest_StartsRunningWithFullAllocation(t *testing.T) {
	e, _ := newTestEngine(t)

	test, variants := createRunningTest(t, e, 50, 30, 20)
	require.Equal(t, store.StatusRunning, test.Status)

	total := 0
	for _, v := range variants {
		total += v.TrafficAllocation
	}
	require.Equal(t, 100, total)
}

func TestCreateTest_DefaultsToCustomType(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	test, _, err := e.CreateTest(ctx, engine.CreateTestRequest{
		OwnerID: 1,
		Name:    "untyped",
		Variants: []store.VariantSpec{
			{Label: "a", TrafficAllocation: 50},
			{Label: "b", TrafficAllocation: 50},
		},
	})
	require.NoError(t, err)
	require.Equal(t, store.EmailCustom, test.EmailType)
}

func TestListTestsForOwner_NewestFirst(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		test, _ := createRunningTest(t, e, 50, 50)
		ids = append(ids, test.ID)
	}

	tests, err := e.ListTestsForOwner(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tests, 3)
	require.Equal(t, ids[2], tests[0].ID)
	require.Equal(t, ids[0], tests[2].ID)

	none, err := e.ListTestsForOwner(ctx, 999)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestCancelTest(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	test, _ := createRunningTest(t, e, 50, 50)

	require.NoError(t, e.CancelTest(ctx, test.ID))

	got, err := e.GetTest(ctx, test.ID)
	require.NoError(t, err)
	require.Equal(t, store.StatusCancelled, got.Status)

	// Cancelled is terminal.
	require.ErrorIs(t, e.CancelTest(ctx, test.ID), engine.ErrTestNotRunning)

	// And blocks evaluation.
	_, err = e.DetermineWinner(ctx, test.ID)
	require.ErrorIs(t, err, engine.ErrTestNotRunning)

	require.ErrorIs(t, e.CancelTest(ctx, 999), engine.ErrTestNotFound)
}
