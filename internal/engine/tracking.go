package engine

import (
	"context"
	"fmt"

	"github.com/splitsend/splitsend/internal/store"
)

// RecordSent increments a variant's sent counter. Called once per delivered
// email by the send pipeline.
func (e *Engine) RecordSent(ctx context.Context, variantID int64) error {
	return e.store.IncrementCounter(ctx, variantID, store.EventSent)
}

// RecordEngagement increments one of a variant's engagement counters
// (open, click, reply, conversion). Called once per tracking event.
func (e *Engine) RecordEngagement(ctx context.Context, variantID int64, kind store.EventKind) error {
	if !kind.Valid() || kind == store.EventSent {
		return fmt.Errorf("%w: unknown engagement kind %q", ErrInvalidInput, kind)
	}
	return e.store.IncrementCounter(ctx, variantID, kind)
}
