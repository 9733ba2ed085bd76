package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/splitsend/splitsend/internal/store"
)

// CreateTestRequest bundles a new test with its initial variants.
type CreateTestRequest struct {
	OwnerID   int64
	Name      string
	EmailType store.EmailType
	Variants  []store.VariantSpec
}

// CreateTest validates the request and persists the test with its variants
// atomically. Tests start in running status.
func (e *Engine) CreateTest(ctx context.Context, req CreateTestRequest) (*store.Test, []*store.Variant, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, nil, fmt.Errorf("%w: test name is required", ErrInvalidInput)
	}
	if req.EmailType == "" {
		req.EmailType = store.EmailCustom
	}
	if !req.EmailType.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown email type %q", ErrInvalidInput, req.EmailType)
	}
	if len(req.Variants) < 2 {
		return nil, nil, fmt.Errorf("%w: need at least 2 variants", ErrInvalidInput)
	}
	for _, spec := range req.Variants {
		if strings.TrimSpace(spec.Label) == "" {
			return nil, nil, fmt.Errorf("%w: variant label is required", ErrInvalidInput)
		}
		if spec.TrafficAllocation < 0 || spec.TrafficAllocation > 100 {
			return nil, nil, fmt.Errorf("%w: allocation %d out of range", ErrInvalidAllocation, spec.TrafficAllocation)
		}
	}

	test, variants, err := e.store.CreateTest(ctx, req.OwnerID, req.Name, req.EmailType, req.Variants)
	if err != nil {
		return nil, nil, err
	}

	e.logger.Info("test created",
		"test_id", test.ID,
		"owner_id", test.OwnerID,
		"name", test.Name,
		"variants", len(variants))
	return test, variants, nil
}

// GetTest fetches a test by id.
func (e *Engine) GetTest(ctx context.Context, testID int64) (*store.Test, error) {
	return e.store.GetTest(ctx, testID)
}

// ListTestsForOwner returns an owner's tests, newest first.
func (e *Engine) ListTestsForOwner(ctx context.Context, ownerID int64) ([]*store.Test, error) {
	return e.store.ListTestsByOwner(ctx, ownerID)
}

// ListVariants returns a test's variants in stable creation order.
func (e *Engine) ListVariants(ctx context.Context, testID int64) ([]*store.Variant, error) {
	if _, err := e.store.GetTest(ctx, testID); err != nil {
		return nil, err
	}
	return e.store.ListVariants(ctx, testID)
}

// GetVariant fetches a single variant by id.
func (e *Engine) GetVariant(ctx context.Context, variantID int64) (*store.Variant, error) {
	return e.store.GetVariant(ctx, variantID)
}

// CancelTest transitions a running test to cancelled. Completed and
// cancelled are terminal; cancelling anything not running fails with
// ErrTestNotRunning.
func (e *Engine) CancelTest(ctx context.Context, testID int64) error {
	lock := e.testLock(testID)
	lock.Lock()
	defer lock.Unlock()

	err := e.store.UpdateTestStatus(ctx, testID, store.StatusRunning, store.StatusCancelled)
	if errors.Is(err, store.ErrStatusConflict) {
		return ErrTestNotRunning
	}
	if err != nil {
		return err
	}
	e.releaseTestLock(testID)
	e.logger.Info("test cancelled", "test_id", testID)
	return nil
}
