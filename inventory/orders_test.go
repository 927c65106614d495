package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/stock-engine/inventory"
	"github.com/warp/stock-engine/inventory/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T) (*inventory.OrderEngine, *inventory.StockLedger) {
	t.Helper()
	mem := store.NewMemory()
	ledger := inventory.NewStockLedger(mem)
	return inventory.NewOrderEngine(ledger, mem), ledger
}

func itemState(t *testing.T, ledger *inventory.StockLedger, name string) inventory.StockItem {
	t.Helper()
	item, err := ledger.Get(context.Background(), name)
	require.NoError(t, err)
	return *item
}

// =============================================================================
// RESERVATION
// =============================================================================

func TestReserve_FullReservation(t *testing.T) {
	// GIVEN: bolt with quantity 10, reserved 0
	// WHEN: Reserving 4
	// THEN: The line is fully reserved and reserved becomes 4

	engine, ledger := newTestEngine(t)
	ctx := context.Background()
	seedItem(t, ledger, "bolt", 10)

	result, order, err := engine.Reserve(ctx, "ord-1", "Acme", []inventory.StockOp{
		{ItemName: "bolt", Quantity: 4},
	})
	require.NoError(t, err)

	assert.Equal(t, []inventory.ReservedLine{{ItemName: "bolt", Reserved: 4}}, result.ReservedItems)
	assert.Empty(t, result.PartiallyReserved)
	assert.Empty(t, result.Shortages)
	assert.Equal(t, inventory.StatusReserved, order.Status)

	item := itemState(t, ledger, "bolt")
	assert.Equal(t, int64(4), item.Reserved)
	assert.Equal(t, int64(10), item.Quantity)
}

func TestReserve_ConservationAcrossOrders(t *testing.T) {
	// GIVEN: bolt 10/0; a first order reserved 4
	// WHEN: A second order requests 8
	// THEN: Only the remaining 6 are reserved, shortfall 2, available 0

	engine, ledger := newTestEngine(t)
	ctx := context.Background()
	seedItem(t, ledger, "bolt", 10)

	_, _, err := engine.Reserve(ctx, "ord-1", "Acme", []inventory.StockOp{
		{ItemName: "bolt", Quantity: 4},
	})
	require.NoError(t, err)

	result, _, err := engine.Reserve(ctx, "ord-2", "Globex", []inventory.StockOp{
		{ItemName: "bolt", Quantity: 8},
	})
	require.NoError(t, err)

	assert.Equal(t, []inventory.PartialLine{
		{ItemName: "bolt", Reserved: 6, Shortfall: 2},
	}, result.PartiallyReserved)

	item := itemState(t, ledger, "bolt")
	assert.Equal(t, int64(10), item.Reserved)
	assert.Equal(t, int64(0), item.Available())
}

func TestReserve_ShortageOnUnknownAndExhausted(t *testing.T) {
	// GIVEN: gear 2/2 (nothing available); widget unknown
	// WHEN: Reserving both
	// THEN: Both lines are shortages for the full requested amount

	engine, ledger := newTestEngine(t)
	ctx := context.Background()
	seedItem(t, ledger, "gear", 2)
	require.NoError(t, ledger.AdjustReserved(ctx, "gear", 2))

	result, order, err := engine.Reserve(ctx, "ord-1", "Acme", []inventory.StockOp{
		{ItemName: "widget", Quantity: 3},
		{ItemName: "gear", Quantity: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, []inventory.ShortageLine{
		{ItemName: "widget", Shortfall: 3},
		{ItemName: "gear", Shortfall: 1},
	}, result.Shortages)

	// Always persisted, even when every line is a shortage.
	assert.Equal(t, inventory.StatusReserved, order.Status)
	persisted, err := engine.Orders.GetOrder(ctx, "ord-1")
	require.NoError(t, err)
	assert.Len(t, persisted.Items, 2)
}

func TestReserve_DuplicateLinesEvolveReserved(t *testing.T) {
	// GIVEN: bolt 10/0
	// WHEN: One order holds two lines for bolt: 7 then 7
	// THEN: The second line sees only what the first left behind

	engine, ledger := newTestEngine(t)
	ctx := context.Background()
	seedItem(t, ledger, "bolt", 10)

	result, _, err := engine.Reserve(ctx, "ord-1", "Acme", []inventory.StockOp{
		{ItemName: "bolt", Quantity: 7},
		{ItemName: "bolt", Quantity: 7},
	})
	require.NoError(t, err)

	assert.Equal(t, []inventory.ReservedLine{{ItemName: "bolt", Reserved: 7}}, result.ReservedItems)
	assert.Equal(t, []inventory.PartialLine{
		{ItemName: "bolt", Reserved: 3, Shortfall: 4},
	}, result.PartiallyReserved)

	item := itemState(t, ledger, "bolt")
	assert.Equal(t, int64(10), item.Reserved)
}

func TestReserve_DuplicateOrderNumber(t *testing.T) {
	// GIVEN: ord-1 already exists
	// WHEN: Reserving ord-1 again
	// THEN: DuplicateOrder, and no stock is earmarked by the failed call

	engine, ledger := newTestEngine(t)
	ctx := context.Background()
	seedItem(t, ledger, "bolt", 10)

	_, _, err := engine.Reserve(ctx, "ord-1", "Acme", []inventory.StockOp{
		{ItemName: "bolt", Quantity: 2},
	})
	require.NoError(t, err)

	_, _, err = engine.Reserve(ctx, "ord-1", "Globex", []inventory.StockOp{
		{ItemName: "bolt", Quantity: 3},
	})
	assert.ErrorIs(t, err, inventory.ErrDuplicateOrder)

	item := itemState(t, ledger, "bolt")
	assert.Equal(t, int64(2), item.Reserved, "failed reservation must not leak earmarks")
}

// =============================================================================
// EXECUTION
// =============================================================================

func TestExecute_DeductsReservedAmounts(t *testing.T) {
	// GIVEN: bolt 10/0 with an order that only partially reserved (wants 15)
	// WHEN: Executing
	// THEN: The 10 actually reserved are deducted - not the requested 15

	engine, ledger := newTestEngine(t)
	ctx := context.Background()
	seedItem(t, ledger, "bolt", 10)

	_, _, err := engine.Reserve(ctx, "ord-1", "Acme", []inventory.StockOp{
		{ItemName: "bolt", Quantity: 15},
	})
	require.NoError(t, err)

	order, err := engine.Execute(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusExecuted, order.Status)

	item := itemState(t, ledger, "bolt")
	assert.Equal(t, int64(0), item.Quantity)
	assert.Equal(t, int64(0), item.Reserved, "reserved must not go negative")
}

func TestExecute_SkipsFullyShortLines(t *testing.T) {
	// GIVEN: An order whose only line was a shortage (reserved 0)
	// WHEN: Executing
	// THEN: The order transitions, nothing is deducted

	engine, ledger := newTestEngine(t)
	ctx := context.Background()
	seedItem(t, ledger, "gear", 3)
	require.NoError(t, ledger.AdjustReserved(ctx, "gear", 3))

	_, _, err := engine.Reserve(ctx, "ord-1", "Acme", []inventory.StockOp{
		{ItemName: "gear", Quantity: 2},
	})
	require.NoError(t, err)

	order, err := engine.Execute(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusExecuted, order.Status)

	item := itemState(t, ledger, "gear")
	assert.Equal(t, int64(3), item.Quantity)
	assert.Equal(t, int64(3), item.Reserved)
}

func TestExecute_ReExecutionRejectedWithoutMutation(t *testing.T) {
	// GIVEN: An executed order
	// WHEN: Executing it a second time
	// THEN: InvalidState, and quantity/reserved are unchanged

	engine, ledger := newTestEngine(t)
	ctx := context.Background()
	seedItem(t, ledger, "bolt", 10)

	_, _, err := engine.Reserve(ctx, "ord-1", "Acme", []inventory.StockOp{
		{ItemName: "bolt", Quantity: 4},
	})
	require.NoError(t, err)

	_, err = engine.Execute(ctx, "ord-1")
	require.NoError(t, err)
	after := itemState(t, ledger, "bolt")

	_, err = engine.Execute(ctx, "ord-1")
	assert.ErrorIs(t, err, inventory.ErrInvalidOrderState)

	assert.Equal(t, after, itemState(t, ledger, "bolt"), "rejected execute performs no mutation")
}

func TestExecute_UnknownOrder(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Execute(context.Background(), "ghost")
	assert.ErrorIs(t, err, inventory.ErrOrderNotFound)
}

// =============================================================================
// CHECK REPORT
// =============================================================================

func TestCheck_ReportsBalances(t *testing.T) {
	// GIVEN: A 3 available, B 4 available
	// WHEN: Checking A:5 and B:1
	// THEN: A balance -2, B balance 3

	engine, ledger := newTestEngine(t)
	ctx := context.Background()
	seedItem(t, ledger, "A", 3)
	seedItem(t, ledger, "B", 4)

	report, err := engine.Check(ctx, []inventory.StockOp{
		{ItemName: "A", Quantity: 5},
		{ItemName: "B", Quantity: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, []inventory.OrderCheckEntry{
		{ItemName: "A", Requested: 5, Available: 3, Balance: -2},
		{ItemName: "B", Requested: 1, Available: 4, Balance: 3},
	}, report)
}

func TestCheck_UnknownItemDefaultsToZero(t *testing.T) {
	engine, _ := newTestEngine(t)

	report, err := engine.Check(context.Background(), []inventory.StockOp{
		{ItemName: "ghost", Quantity: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, []inventory.OrderCheckEntry{
		{ItemName: "ghost", Requested: 2, Available: 0, Balance: -2},
	}, report)
}

func TestCheck_AvailableExcludesReserved(t *testing.T) {
	engine, ledger := newTestEngine(t)
	ctx := context.Background()
	seedItem(t, ledger, "A", 10)
	require.NoError(t, ledger.AdjustReserved(ctx, "A", 6))

	report, err := engine.Check(ctx, []inventory.StockOp{{ItemName: "A", Quantity: 5}})
	require.NoError(t, err)
	assert.Equal(t, int64(4), report[0].Available)
	assert.Equal(t, int64(-1), report[0].Balance)
}

func TestCheck_IsIdempotentAndPure(t *testing.T) {
	// GIVEN: Fixed ledger state
	// WHEN: Checking the same input twice
	// THEN: Identical output, and quantity/reserved are untouched

	engine, ledger := newTestEngine(t)
	ctx := context.Background()
	seedItem(t, ledger, "A", 3)

	input := []inventory.StockOp{{ItemName: "A", Quantity: 5}}

	first, err := engine.Check(ctx, input)
	require.NoError(t, err)
	second, err := engine.Check(ctx, input)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	item := itemState(t, ledger, "A")
	assert.Equal(t, int64(3), item.Quantity)
	assert.Equal(t, int64(0), item.Reserved)
}

// =============================================================================
// SUBMIT-AFTER-CHECK SCENARIO
// =============================================================================

func TestSubmitAfterCheck_OnlyDeliverableLinesCommit(t *testing.T) {
	// GIVEN: Check reports A balance -2 and B balance 3
	// WHEN: Forwarding only the balance >= 0 lines to a bulk remove
	// THEN: B is deducted by 1, A stays untouched

	engine, ledger := newTestEngine(t)
	batch := inventory.NewBatchProcessor(ledger)
	ctx := context.Background()
	seedItem(t, ledger, "A", 3)
	seedItem(t, ledger, "B", 4)

	report, err := engine.Check(ctx, []inventory.StockOp{
		{ItemName: "A", Quantity: 5},
		{ItemName: "B", Quantity: 1},
	})
	require.NoError(t, err)

	var commit []inventory.StockOp
	for _, entry := range report {
		if entry.Balance >= 0 {
			commit = append(commit, inventory.StockOp{
				ItemName: entry.ItemName,
				Quantity: entry.Requested,
			})
		}
	}

	result, err := batch.BulkAdjust(ctx, commit, inventory.BatchRemove, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.AppliedCount)

	assert.Equal(t, int64(3), quantityOf(t, ledger, "A"))
	assert.Equal(t, int64(3), quantityOf(t, ledger, "B"))
}
