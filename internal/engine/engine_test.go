package engine_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/splitsend/splitsend/internal/engine"
	"github.com/splitsend/splitsend/internal/store"
)

func newTestEngine(t *testing.T, opts ...engine.Option) (*engine.Engine, *store.SQLiteStore) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return engine.New(s, nil, opts...), s
}

// createRunningTest creates a test with one variant per allocation given.
func createRunningTest(t *testing.T, e *engine.Engine, allocs ...int) (*store.Test, []*store.Variant) {
	t.Helper()
	specs := make([]store.VariantSpec, 0, len(allocs))
	for i, pct := range allocs {
		label := string(rune('A' + i))
		specs = append(specs, store.VariantSpec{
			Label:             label,
			Subject:           fmt.Sprintf("Subject %s", label),
			Body:              fmt.Sprintf("Body %s", label),
			TrafficAllocation: pct,
		})
	}
	test, variants, err := e.CreateTest(context.Background(), engine.CreateTestRequest{
		OwnerID:   1,
		Name:      "campaign",
		EmailType: store.EmailCustom,
		Variants:  specs,
	})
	require.NoError(t, err)
	return test, variants
}

// seedCounters drives sent and conversion counts through the tracking path.
func seedCounters(t *testing.T, e *engine.Engine, variantID int64, sent, conversions int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < sent; i++ {
		require.NoError(t, e.RecordSent(ctx, variantID))
	}
	for i := 0; i < conversions; i++ {
		require.NoError(t, e.RecordEngagement(ctx, variantID, store.EventConversion))
	}
}
