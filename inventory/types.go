/*
Package inventory provides the stock ledger and order reservation engine.

PURPOSE:
  This package contains the domain types and algorithms for tracking
  on-hand quantities of named stock items: single adjustments, bulk batch
  adjustments, and a two-phase reserve-then-execute order workflow with
  partial-fulfillment semantics.

KEY CONCEPTS IN THIS FILE (types.go):
  - StockItem: Authoritative per-item state {quantity, reserved}
  - Order: A reservation against stock, later executed exactly once
  - StockOp: One {itemName, quantity} request line
  - BatchResult / ReservationResult: Itemized outcomes of bulk operations

DESIGN PRINCIPLES:
  1. Quantities are discrete integer counts - never fractional
  2. Per-line failures are itemized in results, never abort the call
  3. Invariants live at the storage layer: quantity >= 0, reserved >= 0
  4. Available = Quantity - Reserved is always derived, never stored

SEE ALSO:
  - store.go: Persistence interfaces the engine components depend on
  - ledger.go: Single-item mutation primitives
  - batch.go: Bulk snapshot-classify-apply pipeline
  - orders.go: Reservation, execution, and check report
*/
package inventory

import "time"

// =============================================================================
// STOCK ITEM - Authoritative per-item state
// =============================================================================

// StockItem is the unit of stock tracking, keyed by ItemName.
//
// INVARIANTS:
//   - Quantity never negative.
//   - Reserved never negative and never exceeds Quantity.
//
// Items are created on first write (upsert) and never deleted by the core.
type StockItem struct {
	ItemName string
	Quantity int64
	Reserved int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Available is the portion of Quantity free for new reservations.
func (s StockItem) Available() int64 {
	return s.Quantity - s.Reserved
}

// =============================================================================
// ORDER - Reservation against stock, executed exactly once
// =============================================================================

type OrderStatus string

const (
	// StatusReserved is the initial status of every order. Reservation is
	// best-effort and always recorded, even when every line is a shortage.
	StatusReserved OrderStatus = "Reserved"

	// StatusExecuted is terminal: the reservation has been converted into
	// an actual deduction. No further transitions.
	StatusExecuted OrderStatus = "Executed"
)

// OrderLine is one requested line of an order. Reserved tracks the amount
// actually earmarked at reservation time; execution deducts Reserved, not
// Quantity, so partially reserved lines never over-deduct.
type OrderLine struct {
	ItemName string
	Quantity int64
	Reserved int64
}

// Order is keyed by OrderNumber. Items are immutable once set; Status is
// mutated exactly once, Reserved -> Executed.
type Order struct {
	OrderNumber string
	PartyName   string
	Items       []OrderLine
	Status      OrderStatus
	CreatedAt   time.Time
}

// =============================================================================
// REQUEST LINES AND BATCH TYPES
// =============================================================================

// StockOp is a single {itemName, quantity} request line, used by bulk
// adjustments, order reservation, and the check report.
type StockOp struct {
	ItemName string
	Quantity int64
}

// BatchMode selects the direction of a bulk adjustment.
type BatchMode string

const (
	BatchAdd    BatchMode = "add"
	BatchRemove BatchMode = "remove"
)

// BatchResult reports a bulk adjustment. Transient, not persisted.
//
// The batch as a whole is not transactional: AppliedCount reports what
// succeeded even when a mid-batch store fault aborted the remainder.
type BatchResult struct {
	AppliedCount int

	// SkippedItems failed the availability check (remove mode), either at
	// snapshot classification or at apply time after losing a race.
	SkippedItems []StockOp

	// InvalidItems are item names not recognized when the batch mode
	// requires pre-existence (add with existenceRequired).
	InvalidItems []string
}

// =============================================================================
// RESERVATION RESULT
// =============================================================================

// ReservedLine records a fully reserved order line.
type ReservedLine struct {
	ItemName string
	Reserved int64
}

// PartialLine records a line that only partially fit into available stock.
type PartialLine struct {
	ItemName  string
	Reserved  int64
	Shortfall int64
}

// ShortageLine records a line with nothing available (or an unknown item).
type ShortageLine struct {
	ItemName  string
	Shortfall int64
}

// ReservationResult itemizes the outcome of a reservation. Partial
// fulfillment is a valid terminal business outcome, not an error.
type ReservationResult struct {
	ReservedItems     []ReservedLine
	PartiallyReserved []PartialLine
	Shortages         []ShortageLine
}

// =============================================================================
// ORDER CHECK REPORT
// =============================================================================

// OrderCheckEntry is one line of the read-only pre-commit simulation.
// Available defaults to 0 for unknown items; Balance = Available - Requested.
type OrderCheckEntry struct {
	ItemName  string
	Requested int64
	Available int64
	Balance   int64
}

// =============================================================================
// STORAGE DELTAS - Batched write representation
// =============================================================================

// StockDelta is one independent per-item write inside a batched store call.
// Quantity and Reserved are signed. Upsert creates the item when absent
// (Quantity must be positive in that case).
type StockDelta struct {
	ItemName string
	Quantity int64
	Reserved int64
	Upsert   bool
}

// BatchOutcome reports a batched store write. Applied counts entries that
// committed; Failed lists item names whose per-entry guard rejected the
// write (absent item, or a decrement past zero).
type BatchOutcome struct {
	Applied int
	Failed  []string
}
