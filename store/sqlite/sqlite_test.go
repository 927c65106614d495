package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-engine/inventory"
	"github.com/warp/stock-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// newTestStore opens a store on a per-test database file. A file (not
// ":memory:") because database/sql pools connections and each in-memory
// connection would otherwise see its own empty schema.
func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "stock.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// =============================================================================
// STOCK ITEMS
// =============================================================================

func TestSQLite_AddStockCreatesAndAccumulates(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: Adding 5 then 3 bolts
	// THEN: The first write creates the row, the second increments it

	st := newTestStore(t)
	ctx := context.Background()

	item, err := st.AddStock(ctx, "bolt", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), item.Quantity)
	assert.Equal(t, int64(0), item.Reserved)

	item, err = st.AddStock(ctx, "bolt", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(8), item.Quantity)
}

func TestSQLite_RemoveStockGuard(t *testing.T) {
	// GIVEN: bolt with quantity 8
	// WHEN: Removing 20
	// THEN: The guarded UPDATE rejects and state is unchanged

	st := newTestStore(t)
	ctx := context.Background()
	_, err := st.AddStock(ctx, "bolt", 8)
	require.NoError(t, err)

	_, err = st.RemoveStock(ctx, "bolt", 20)
	require.Error(t, err)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	var detail *inventory.InsufficientStockError
	require.ErrorAs(t, err, &detail)
	assert.Equal(t, int64(20), detail.Requested)
	assert.Equal(t, int64(8), detail.Available)

	item, err := st.GetItem(ctx, "bolt")
	require.NoError(t, err)
	assert.Equal(t, int64(8), item.Quantity)
}

func TestSQLite_RemoveStockAbsentItem(t *testing.T) {
	st := newTestStore(t)

	_, err := st.RemoveStock(context.Background(), "ghost", 1)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
}

func TestSQLite_AdjustReservedRejectsNegativeResult(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	_, err := st.AddStock(ctx, "bolt", 5)
	require.NoError(t, err)

	require.NoError(t, st.AdjustReserved(ctx, "bolt", 3))
	assert.ErrorIs(t, st.AdjustReserved(ctx, "bolt", -4), inventory.ErrInvalidQuantity)
	assert.ErrorIs(t, st.AdjustReserved(ctx, "ghost", 1), inventory.ErrItemNotFound)

	item, err := st.GetItem(ctx, "bolt")
	require.NoError(t, err)
	assert.Equal(t, int64(3), item.Reserved)
}

func TestSQLite_ReserveStockTakesUpToAvailable(t *testing.T) {
	// GIVEN: bolt 10/7
	// WHEN: Reserving 5
	// THEN: Only the available 3 are taken

	st := newTestStore(t)
	ctx := context.Background()
	_, err := st.AddStock(ctx, "bolt", 10)
	require.NoError(t, err)
	require.NoError(t, st.AdjustReserved(ctx, "bolt", 7))

	took, err := st.ReserveStock(ctx, "bolt", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), took)

	took, err = st.ReserveStock(ctx, "bolt", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(0), took, "exhausted item yields zero")

	took, err = st.ReserveStock(ctx, "ghost", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(0), took, "absent item yields zero")
}

func TestSQLite_GetItemsSnapshotOmitsAbsent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	_, err := st.AddStock(ctx, "bolt", 2)
	require.NoError(t, err)

	snap, err := st.GetItems(ctx, []string{"bolt", "ghost"})
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, int64(2), snap["bolt"].Quantity)
}

func TestSQLite_SearchItems(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"wood-glue", "wood-screw", "bolt"} {
		_, err := st.AddStock(ctx, name, 1)
		require.NoError(t, err)
	}

	items, err := st.SearchItems(ctx, "wood", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "wood-glue", items[0].ItemName)
	assert.Equal(t, "wood-screw", items[1].ItemName)

	items, err = st.SearchItems(ctx, "wood", 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

// =============================================================================
// BATCH
// =============================================================================

func TestSQLite_ApplyBatchBestEffort(t *testing.T) {
	// GIVEN: bolt 5/0; gear absent
	// WHEN: A batch removes 3 bolts, removes 2 gears, upserts 4 washers
	// THEN: bolt and washer apply, gear is reported failed

	st := newTestStore(t)
	ctx := context.Background()
	_, err := st.AddStock(ctx, "bolt", 5)
	require.NoError(t, err)

	outcome, err := st.ApplyBatch(ctx, []inventory.StockDelta{
		{ItemName: "bolt", Quantity: -3},
		{ItemName: "gear", Quantity: -2},
		{ItemName: "washer", Quantity: 4, Upsert: true},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.Applied)
	assert.Equal(t, []string{"gear"}, outcome.Failed)

	item, err := st.GetItem(ctx, "bolt")
	require.NoError(t, err)
	assert.Equal(t, int64(2), item.Quantity)

	item, err = st.GetItem(ctx, "washer")
	require.NoError(t, err)
	assert.Equal(t, int64(4), item.Quantity)
}

func TestSQLite_ApplyBatchGuardsReserved(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	_, err := st.AddStock(ctx, "bolt", 4)
	require.NoError(t, err)
	require.NoError(t, st.AdjustReserved(ctx, "bolt", 4))

	// Execution-style delta: deduct both quantity and reserved.
	outcome, err := st.ApplyBatch(ctx, []inventory.StockDelta{
		{ItemName: "bolt", Quantity: -4, Reserved: -4},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Applied)

	item, err := st.GetItem(ctx, "bolt")
	require.NoError(t, err)
	assert.Equal(t, int64(0), item.Quantity)
	assert.Equal(t, int64(0), item.Reserved)

	// A second identical delta would drive both counts negative.
	outcome, err = st.ApplyBatch(ctx, []inventory.StockDelta{
		{ItemName: "bolt", Quantity: -4, Reserved: -4},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"bolt"}, outcome.Failed)
}

// =============================================================================
// ORDERS
// =============================================================================

func testOrder(number string) *inventory.Order {
	return &inventory.Order{
		OrderNumber: number,
		PartyName:   "Acme",
		Status:      inventory.StatusReserved,
		Items: []inventory.OrderLine{
			{ItemName: "bolt", Quantity: 4, Reserved: 4},
			{ItemName: "gear", Quantity: 2, Reserved: 1},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestSQLite_CreateAndGetOrder(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateOrder(ctx, testOrder("ord-1")))

	order, err := st.GetOrder(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", order.PartyName)
	assert.Equal(t, inventory.StatusReserved, order.Status)
	require.Len(t, order.Items, 2)
	assert.Equal(t, inventory.OrderLine{ItemName: "bolt", Quantity: 4, Reserved: 4}, order.Items[0])
	assert.Equal(t, inventory.OrderLine{ItemName: "gear", Quantity: 2, Reserved: 1}, order.Items[1])
}

func TestSQLite_CreateOrderDuplicate(t *testing.T) {
	// GIVEN: ord-1 exists
	// WHEN: Inserting ord-1 again
	// THEN: The primary key rejects it and no partial lines leak

	st := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.CreateOrder(ctx, testOrder("ord-1")))

	dup := testOrder("ord-1")
	dup.PartyName = "Globex"
	assert.ErrorIs(t, st.CreateOrder(ctx, dup), inventory.ErrDuplicateOrder)

	order, err := st.GetOrder(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", order.PartyName, "original order survives the duplicate insert")
	assert.Len(t, order.Items, 2)
}

func TestSQLite_GetOrderNotFound(t *testing.T) {
	st := newTestStore(t)

	_, err := st.GetOrder(context.Background(), "ghost")
	assert.ErrorIs(t, err, inventory.ErrOrderNotFound)
}

func TestSQLite_MarkExecutedCAS(t *testing.T) {
	// GIVEN: A reserved order
	// WHEN: Executing twice
	// THEN: The first transition wins, the second is rejected as invalid state

	st := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.CreateOrder(ctx, testOrder("ord-1")))

	order, err := st.MarkExecuted(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusExecuted, order.Status)
	assert.Len(t, order.Items, 2, "executed order still carries its lines")

	_, err = st.MarkExecuted(ctx, "ord-1")
	assert.ErrorIs(t, err, inventory.ErrInvalidOrderState)

	_, err = st.MarkExecuted(ctx, "ghost")
	assert.ErrorIs(t, err, inventory.ErrOrderNotFound)
}

func TestSQLite_ListOrdersByStatus(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.CreateOrder(ctx, testOrder("ord-1")))
	require.NoError(t, st.CreateOrder(ctx, testOrder("ord-2")))

	_, err := st.MarkExecuted(ctx, "ord-1")
	require.NoError(t, err)

	reserved, err := st.ListOrders(ctx, inventory.StatusReserved)
	require.NoError(t, err)
	require.Len(t, reserved, 1)
	assert.Equal(t, "ord-2", reserved[0].OrderNumber)

	all, err := st.ListOrders(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	for _, order := range all {
		assert.NotEmpty(t, order.Items, "listing hydrates order lines")
	}
}
