/*
ledger.go - Single-item stock mutation primitives

PURPOSE:
  StockLedger is the authoritative handle over per-item {quantity, reserved}
  state. It validates inputs and delegates every mutation to the injected
  Store, whose conditional primitives carry the atomicity.

CRITICAL INVARIANTS:
  1. Quantity never negative: decrement is check-and-subtract in one step
  2. Reserved never negative
  3. Items are created on first write (upsert), never deleted

WHY A THIN WRAPPER?
  The ledger is an explicit handle injected into the engine components,
  never accessed ambiently. Tests substitute the in-memory store; the
  engines can't tell the difference.

SEE ALSO:
  - store.go: The primitives this wraps
  - batch.go: Multi-item pipeline using the same store
*/
package inventory

import "context"

// StockLedger exposes single-item operations over a Store handle.
type StockLedger struct {
	Store Store
}

func NewStockLedger(store Store) *StockLedger {
	return &StockLedger{Store: store}
}

// Get returns the current state of an item, or ErrItemNotFound.
func (l *StockLedger) Get(ctx context.Context, itemName string) (*StockItem, error) {
	return l.Store.GetItem(ctx, itemName)
}

// List returns all items.
func (l *StockLedger) List(ctx context.Context) ([]StockItem, error) {
	return l.Store.ListItems(ctx)
}

// Search returns up to limit items whose name contains query.
func (l *StockLedger) Search(ctx context.Context, query string, limit int) ([]StockItem, error) {
	return l.Store.SearchItems(ctx, query, limit)
}

// Increment adds delta to the item's quantity, creating the item with
// quantity=delta, reserved=0 when absent. Always succeeds for delta > 0.
func (l *StockLedger) Increment(ctx context.Context, itemName string, delta int64) (*StockItem, error) {
	if delta <= 0 {
		return nil, ErrInvalidQuantity
	}
	return l.Store.AddStock(ctx, itemName, delta)
}

// Decrement subtracts amount from the item's quantity. Fails with
// ErrInsufficientStock when the item is absent or quantity < amount; the
// check and the subtraction are a single atomic step at the store.
func (l *StockLedger) Decrement(ctx context.Context, itemName string, amount int64) (*StockItem, error) {
	if amount <= 0 {
		return nil, ErrInvalidQuantity
	}
	return l.Store.RemoveStock(ctx, itemName, amount)
}

// AdjustReserved adds delta (may be negative) to the item's reserved count.
// The caller is responsible for respecting reserved <= quantity; the ledger
// does not silently clamp.
func (l *StockLedger) AdjustReserved(ctx context.Context, itemName string, delta int64) error {
	return l.Store.AdjustReserved(ctx, itemName, delta)
}

// Reserve earmarks up to want units and returns the amount actually taken.
func (l *StockLedger) Reserve(ctx context.Context, itemName string, want int64) (int64, error) {
	if want <= 0 {
		return 0, ErrInvalidQuantity
	}
	return l.Store.ReserveStock(ctx, itemName, want)
}

// Snapshot performs one multi-key lookup for the given names. Absent names
// are missing from the result.
func (l *StockLedger) Snapshot(ctx context.Context, itemNames []string) (map[string]StockItem, error) {
	return l.Store.GetItems(ctx, itemNames)
}

// Apply issues one batched best-effort write.
func (l *StockLedger) Apply(ctx context.Context, deltas []StockDelta) (BatchOutcome, error) {
	return l.Store.ApplyBatch(ctx, deltas)
}
