/*
errors.go - Centralized error types for the stock engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The transport layer maps these to HTTP status codes; the core never
  concerns itself with status codes.

ERROR TAXONOMY:
  NotFound          - item or order absent (ErrItemNotFound, ErrOrderNotFound)
  InsufficientStock - decrement exceeds on-hand quantity
  DuplicateOrder    - order number collision on reservation
  InvalidState      - execute on a non-Reserved order
  StoreUnavailable  - storage collaborator fault, cross-cutting

PROPAGATION POLICY:
  Per-line failures inside a bulk or reservation operation never abort the
  whole call - they are itemized in the result. Only ErrStoreUnavailable
  aborts an entire operation.

USAGE:
  if errors.Is(err, inventory.ErrInsufficientStock) { ... }

  var short *inventory.InsufficientStockError
  if errors.As(err, &short) { ... short.Available ... }
*/
package inventory

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrItemNotFound is returned when a referenced stock item doesn't exist.
	ErrItemNotFound = errors.New("stock item not found")

	// ErrOrderNotFound is returned when a referenced order doesn't exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInsufficientStock is returned when a decrement exceeds the on-hand
	// quantity (or the item is absent entirely).
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrDuplicateOrder is returned when reserving with an order number
	// that already exists.
	ErrDuplicateOrder = errors.New("duplicate order number")

	// ErrInvalidOrderState is returned when executing an order whose status
	// is not Reserved. Re-execution is an idempotent rejection.
	ErrInvalidOrderState = errors.New("order not in reserved state")

	// ErrInvalidQuantity is returned when a caller supplies a non-positive
	// quantity where a positive amount is required.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrStoreUnavailable is returned when the storage collaborator fails.
	// Unlike per-line failures, this aborts the entire operation.
	ErrStoreUnavailable = errors.New("stock store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientStockError provides details about a failed decrement.
type InsufficientStockError struct {
	ItemName  string
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d",
		e.ItemName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing item or order.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrOrderNotFound)
}

// IsClientError returns true if the error is due to invalid client input
// rather than a fault in the engine or its store.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrDuplicateOrder) ||
		errors.Is(err, ErrInvalidOrderState) ||
		errors.Is(err, ErrInvalidQuantity)
}

// IsConflict returns true if the error indicates a state conflict that
// retrying with the same input will not resolve.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateOrder) ||
		errors.Is(err, ErrInvalidOrderState)
}
