/*
orders.go - Order reservation, execution, and check report

PURPOSE:
  Implements the two-phase order workflow:
    1. Reserve: earmark available quantity per line, persist the order
    2. Execute: convert the reservation into an actual deduction

RESERVATION SEMANTICS:
  Each line is allocated against available = quantity - reserved:
    available >= requested      -> fully reserved
    0 < available < requested   -> partially reserved, shortfall recorded
    available == 0 (or unknown) -> shortage
  The order is persisted with status Reserved regardless of outcome.
  Partial fulfillment is a valid terminal business outcome, not an error.

EXECUTION SEMANTICS:
  Deducts the amount ACTUALLY reserved per line - never the originally
  requested amount. A partially reserved line deducts only its reserved
  share; using the requested amount would drive reserved negative.
  The Reserved -> Executed transition is an atomic check-and-set at the
  store, so concurrent executes commit exactly once.

CHECK REPORT:
  Pure read. Compares requested lines against current availability so a
  caller can later commit only the lines with balance >= 0.

SEE ALSO:
  - ledger.go: The stock handle used for allocation
  - store.go: OrderStore contract (insert-if-absent, status CAS)
*/
package inventory

import (
	"context"
	"time"
)

// OrderEngine allocates, executes, and simulates orders against the ledger.
type OrderEngine struct {
	Ledger *StockLedger
	Orders OrderStore
}

func NewOrderEngine(ledger *StockLedger, orders OrderStore) *OrderEngine {
	return &OrderEngine{Ledger: ledger, Orders: orders}
}

// =============================================================================
// RESERVATION
// =============================================================================

// Reserve allocates available quantity against each line in listed order
// and persists the order with status Reserved. Duplicate item names across
// lines are processed sequentially against the evolving reserved count.
// Fails with ErrDuplicateOrder if the order number already exists.
func (e *OrderEngine) Reserve(ctx context.Context, orderNumber, partyName string, items []StockOp) (*ReservationResult, *Order, error) {
	// Fast-fail on an existing order number before touching stock. The
	// insert below remains the authoritative duplicate check.
	if _, err := e.Orders.GetOrder(ctx, orderNumber); err == nil {
		return nil, nil, ErrDuplicateOrder
	} else if !IsNotFound(err) {
		return nil, nil, err
	}

	result := &ReservationResult{}
	lines := make([]OrderLine, 0, len(items))

	for _, line := range items {
		took, err := e.Ledger.Reserve(ctx, line.ItemName, line.Quantity)
		if err != nil {
			e.releaseLines(ctx, lines)
			return nil, nil, err
		}

		switch {
		case took >= line.Quantity:
			result.ReservedItems = append(result.ReservedItems, ReservedLine{
				ItemName: line.ItemName,
				Reserved: took,
			})
		case took > 0:
			result.PartiallyReserved = append(result.PartiallyReserved, PartialLine{
				ItemName:  line.ItemName,
				Reserved:  took,
				Shortfall: line.Quantity - took,
			})
		default:
			result.Shortages = append(result.Shortages, ShortageLine{
				ItemName:  line.ItemName,
				Shortfall: line.Quantity,
			})
		}

		lines = append(lines, OrderLine{
			ItemName: line.ItemName,
			Quantity: line.Quantity,
			Reserved: took,
		})
	}

	order := &Order{
		OrderNumber: orderNumber,
		PartyName:   partyName,
		Items:       lines,
		Status:      StatusReserved,
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.Orders.CreateOrder(ctx, order); err != nil {
		// Lost the duplicate race after earmarking stock: hand it back.
		e.releaseLines(ctx, lines)
		return nil, nil, err
	}

	return result, order, nil
}

// releaseLines returns earmarked stock after a failed reservation.
func (e *OrderEngine) releaseLines(ctx context.Context, lines []OrderLine) {
	for _, line := range lines {
		if line.Reserved > 0 {
			_ = e.Ledger.AdjustReserved(ctx, line.ItemName, -line.Reserved)
		}
	}
}

// =============================================================================
// EXECUTION
// =============================================================================

// Execute commits a Reserved order: deducts each line's reserved amount
// from both quantity and reserved, then the order is Executed. Fails with
// ErrOrderNotFound or ErrInvalidOrderState; a rejected execute performs no
// mutation.
func (e *OrderEngine) Execute(ctx context.Context, orderNumber string) (*Order, error) {
	order, err := e.Orders.MarkExecuted(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	deltas := make([]StockDelta, 0, len(order.Items))
	for _, line := range order.Items {
		if line.Reserved == 0 {
			// Fully short at reservation time: nothing to deduct.
			continue
		}
		deltas = append(deltas, StockDelta{
			ItemName: line.ItemName,
			Quantity: -line.Reserved,
			Reserved: -line.Reserved,
		})
	}
	if len(deltas) == 0 {
		return order, nil
	}

	if _, err := e.Ledger.Apply(ctx, deltas); err != nil {
		return order, err
	}
	return order, nil
}

// =============================================================================
// CHECK REPORT
// =============================================================================

// Check compares requested lines against current availability. Pure read:
// never mutates quantity or reserved, and identical ledger state yields
// identical output. Unknown items report available 0.
func (e *OrderEngine) Check(ctx context.Context, items []StockOp) ([]OrderCheckEntry, error) {
	names := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, line := range items {
		if !seen[line.ItemName] {
			seen[line.ItemName] = true
			names = append(names, line.ItemName)
		}
	}

	snapshot, err := e.Ledger.Snapshot(ctx, names)
	if err != nil {
		return nil, err
	}

	report := make([]OrderCheckEntry, len(items))
	for i, line := range items {
		available := int64(0)
		if item, ok := snapshot[line.ItemName]; ok {
			available = item.Available()
		}
		report[i] = OrderCheckEntry{
			ItemName:  line.ItemName,
			Requested: line.Quantity,
			Available: available,
			Balance:   available - line.Quantity,
		}
	}
	return report, nil
}
