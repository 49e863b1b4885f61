package service

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Sentinel errors mapped to HTTP statuses at the handler boundary.
// Quantity violations are always rejected, never clamped — clamping would
// silently hide data-integrity bugs.
var (
	// ErrNotFound: referenced product/branch/reservation/transfer does not exist → 404
	ErrNotFound = errors.New("record not found")
	// ErrInvalidState: transition from a terminal state, or a write that would
	// drive stock_quantity or reserved_quantity negative → 409
	ErrInvalidState = errors.New("invalid state for this operation")
	// ErrInsufficientStock: requested quantity exceeds what the source row holds → 409
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrDuplicate: (product, branch) pair already has a branch_stock row → 409
	ErrDuplicate = errors.New("record already exists")
)

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// notFound normalizes gorm's record-not-found into the service sentinel.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
