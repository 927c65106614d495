/*
store.go - Persistence interfaces for stock items and orders

PURPOSE:
  Defines the boundary between the engine components and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:      Per-item state with atomic conditional mutation primitives
  OrderStore: Order persistence with insert-if-absent and status CAS

ATOMICITY CONTRACT:
  Many concurrent callers may hit overlapping item keys; there is no
  process-wide lock in the engines. Every conditional mutation here
  (RemoveStock, ReserveStock, MarkExecuted) must perform its guard check
  and its write as ONE atomic step inside the implementation. A separate
  read followed by a write loses updates under concurrency.

BEST-EFFORT BATCHES:
  ApplyBatch applies one independent atomic write per entry with NO
  cross-key transaction. A mid-batch fault leaves already-applied entries
  committed; the outcome reports what succeeded.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite (conditional UPDATE guards)
  - inventory/store/memory.go: In-memory for testing/dev

SEE ALSO:
  - ledger.go: Single-item operations built on Store
  - batch.go: Snapshot-classify-apply built on Store
  - orders.go: Reservation/execution built on Store + OrderStore
*/
package inventory

import "context"

// =============================================================================
// STORE - Per-item stock state
// =============================================================================

// Store handles persistence of stock items.
type Store interface {
	// GetItem returns the item, or ErrItemNotFound.
	GetItem(ctx context.Context, itemName string) (*StockItem, error)

	// GetItems returns every listed item that exists, keyed by name.
	// Absent names are simply missing from the result, not an error.
	// This is the multi-key snapshot read used by batch classification.
	GetItems(ctx context.Context, itemNames []string) (map[string]StockItem, error)

	// ListItems returns all items, ordered by name.
	ListItems(ctx context.Context) ([]StockItem, error)

	// SearchItems returns up to limit items whose name contains query.
	SearchItems(ctx context.Context, query string, limit int) ([]StockItem, error)

	// AddStock atomically increments quantity, creating the item when
	// absent (upsert). quantity must be positive. Returns the new state.
	AddStock(ctx context.Context, itemName string, quantity int64) (*StockItem, error)

	// RemoveStock atomically decrements quantity. The availability check
	// and the subtraction are one atomic step. Fails with
	// ErrInsufficientStock when the item is absent or quantity would go
	// negative, leaving state unchanged. Returns the new state.
	RemoveStock(ctx context.Context, itemName string, quantity int64) (*StockItem, error)

	// AdjustReserved adds delta (may be negative) to the reserved count.
	// The caller is responsible for the reserved <= quantity invariant;
	// the store rejects only a negative result. ErrItemNotFound if absent.
	AdjustReserved(ctx context.Context, itemName string, delta int64) error

	// ReserveStock atomically earmarks up to want units against the item's
	// available quantity and returns the amount actually taken:
	// min(want, quantity-reserved), floored at zero. Absent items take 0.
	ReserveStock(ctx context.Context, itemName string, want int64) (int64, error)

	// ApplyBatch applies one independent atomic write per delta,
	// best-effort. Entries whose guard rejects them are reported in
	// Outcome.Failed. A store fault mid-batch returns the outcome so far
	// together with the error.
	ApplyBatch(ctx context.Context, deltas []StockDelta) (BatchOutcome, error)
}

// =============================================================================
// ORDER STORE - Order persistence
// =============================================================================

// OrderStore handles persistence of orders.
type OrderStore interface {
	// CreateOrder inserts the order if the order number is absent.
	// ErrDuplicateOrder on collision.
	CreateOrder(ctx context.Context, order *Order) error

	// GetOrder returns the order, or ErrOrderNotFound.
	GetOrder(ctx context.Context, orderNumber string) (*Order, error)

	// ListOrders returns orders filtered by status; empty status means all.
	ListOrders(ctx context.Context, status OrderStatus) ([]Order, error)

	// MarkExecuted atomically transitions Reserved -> Executed and returns
	// the order as of the transition. The status check and the update are
	// one atomic step, so concurrent executes commit exactly once.
	// ErrOrderNotFound if absent, ErrInvalidOrderState if not Reserved.
	MarkExecuted(ctx context.Context, orderNumber string) (*Order, error)
}

// Storage is the full collaborator surface the engine is wired against.
// Both provided implementations satisfy it.
type Storage interface {
	Store
	OrderStore
}
