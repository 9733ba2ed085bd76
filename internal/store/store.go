package store

import "context"

// Store defines the persistence contract for tests, variants and snapshots.
type Store interface {
	// Test operations
	CreateTest(ctx context.Context, ownerID int64, name string, emailType EmailType, specs []VariantSpec) (*Test, []*Variant, error)
	GetTest(ctx context.Context, id int64) (*Test, error)
	ListTestsByOwner(ctx context.Context, ownerID int64) ([]*Test, error)
	// UpdateTestStatus transitions a test from one status to another. The
	// update is conditional on the current status so that two concurrent
	// evaluators cannot both complete the same test; a failed condition
	// surfaces as ErrStatusConflict.
	UpdateTestStatus(ctx context.Context, id int64, from, to TestStatus) error
	DeleteTest(ctx context.Context, id int64) error

	// Variant operations
	GetVariant(ctx context.Context, id int64) (*Variant, error)
	ListVariants(ctx context.Context, testID int64) ([]*Variant, error)
	// IncrementCounter atomically bumps one counter and recomputes the
	// variant's derived rates in the same statement.
	IncrementCounter(ctx context.Context, variantID int64, kind EventKind) error
	SetWinner(ctx context.Context, variantID int64) error
	SetTrafficAllocation(ctx context.Context, variantID int64, pct int) error

	// Snapshot operations
	InsertSnapshots(ctx context.Context, snapshots []*Snapshot) error
	ListSnapshots(ctx context.Context, testID int64) ([]*Snapshot, error)

	// Lifecycle
	Close() error
}
