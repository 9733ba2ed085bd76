package engine

import (
	"errors"

	"github.com/splitsend/splitsend/internal/store"
)

var (
	// ErrNoVariantsAvailable indicates traffic allocation was requested for
	// a test with zero variants; no email should be sent.
	ErrNoVariantsAvailable = errors.New("no variants available")
	// ErrTestNotRunning indicates an evaluation or promotion was requested
	// on a test that is not in running status.
	ErrTestNotRunning = errors.New("test is not running")

	// Referential and validation errors surface under the store's sentinels.
	ErrTestNotFound      = store.ErrTestNotFound
	ErrVariantNotFound   = store.ErrVariantNotFound
	ErrInvalidAllocation = store.ErrInvalidAllocation

	// ErrInvalidInput covers malformed creation or tracking requests.
	ErrInvalidInput = errors.New("invalid input")
)
