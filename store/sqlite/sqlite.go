/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements inventory.Store and inventory.OrderStore using SQLite. In
  production the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

ATOMICITY:
  Every conditional mutation is a single guarded UPDATE:
    - check-and-subtract:  UPDATE ... WHERE quantity >= ?
    - reserve-up-to-avail: computed under the store write lock
    - status CAS:          UPDATE orders ... WHERE status = 'Reserved'
  The row-count result of the guarded statement IS the check; there is no
  separate read that a concurrent writer could invalidate.

BEST-EFFORT BATCHES:
  ApplyBatch issues one independent statement per entry with NO wrapping
  transaction. A mid-batch fault leaves already-applied entries committed,
  matching the engine's best-effort contract.

KEY TABLES:
  items:        item_name -> {quantity, reserved}
  orders:       order_number -> {party_name, status}
  order_lines:  per-order requested and reserved amounts

CONCURRENCY:
  Uses sync.RWMutex around writes. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and there is a single writer at a time.

USAGE:
  st, err := sqlite.New("./data/stock.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  ledger := inventory.NewStockLedger(st)

SEE ALSO:
  - inventory/store.go: Interface definitions
  - inventory/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/stock-engine/inventory"
)

// Store implements inventory.Storage using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ inventory.Storage = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Stock items (authoritative quantity/reserved state)
	CREATE TABLE IF NOT EXISTS items (
		item_name TEXT PRIMARY KEY,
		quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
		reserved INTEGER NOT NULL DEFAULT 0 CHECK (reserved >= 0),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Orders (Reserved -> Executed, exactly once)
	CREATE TABLE IF NOT EXISTS orders (
		order_number TEXT PRIMARY KEY,
		party_name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Reserved',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_orders_status
		ON orders(status);

	-- Order lines (immutable once written; reserved tracks the amount
	-- actually earmarked, which execution deducts)
	CREATE TABLE IF NOT EXISTS order_lines (
		order_number TEXT NOT NULL REFERENCES orders(order_number),
		line_no INTEGER NOT NULL,
		item_name TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		reserved INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (order_number, line_no)
	);

	CREATE INDEX IF NOT EXISTS idx_order_lines_item
		ON order_lines(item_name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// STOCK ITEMS (inventory.Store interface)
// =============================================================================

const itemColumns = "item_name, quantity, reserved, created_at, updated_at"

// GetItem returns a single item by name.
func (s *Store) GetItem(ctx context.Context, itemName string) (*inventory.StockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getItemLocked(ctx, itemName)
}

// GetItems performs the multi-key snapshot lookup for batch classification.
func (s *Store) GetItems(ctx context.Context, itemNames []string) (map[string]inventory.StockItem, error) {
	result := make(map[string]inventory.StockItem, len(itemNames))
	if len(itemNames) == 0 {
		return result, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(itemNames)), ",")
	args := make([]any, len(itemNames))
	for i, name := range itemNames {
		args[i] = name
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE item_name IN ("+placeholders+")", args...)
	if err != nil {
		return nil, storeFault("snapshot items", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, storeFault("snapshot items", err)
		}
		result[item.ItemName] = *item
	}
	return result, rows.Err()
}

// ListItems returns all items ordered by name.
func (s *Store) ListItems(ctx context.Context) ([]inventory.StockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryItems(ctx,
		"SELECT "+itemColumns+" FROM items ORDER BY item_name ASC")
}

// SearchItems returns up to limit items whose name contains query.
func (s *Store) SearchItems(ctx context.Context, query string, limit int) ([]inventory.StockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	return s.queryItems(ctx,
		"SELECT "+itemColumns+" FROM items WHERE item_name LIKE ? ORDER BY item_name ASC LIMIT ?",
		"%"+query+"%", limit)
}

// AddStock atomically increments quantity, creating the item when absent.
func (s *Store) AddStock(ctx context.Context, itemName string, quantity int64) (*inventory.StockItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (item_name, quantity, reserved, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?)
		ON CONFLICT(item_name) DO UPDATE SET
			quantity = quantity + excluded.quantity,
			updated_at = excluded.updated_at
	`, itemName, quantity, now, now)
	if err != nil {
		return nil, storeFault("add stock", err)
	}
	return s.getItemLocked(ctx, itemName)
}

// RemoveStock atomically decrements quantity. The WHERE clause is the
// availability guard; zero rows affected means the check failed.
func (s *Store) RemoveStock(ctx context.Context, itemName string, quantity int64) (*inventory.StockItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE items SET quantity = quantity - ?, updated_at = ?
		WHERE item_name = ? AND quantity >= ?
	`, quantity, timestamp(), itemName, quantity)
	if err != nil {
		return nil, storeFault("remove stock", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, storeFault("remove stock", err)
	}
	if affected == 0 {
		// Guard rejected the write. Read current state only for the error
		// detail; the UPDATE above was the authoritative check.
		available := int64(0)
		if item, err := s.getItemLocked(ctx, itemName); err == nil {
			available = item.Quantity
		}
		return nil, &inventory.InsufficientStockError{
			ItemName:  itemName,
			Requested: quantity,
			Available: available,
		}
	}
	return s.getItemLocked(ctx, itemName)
}

// AdjustReserved adds delta to the reserved count. The caller owns the
// reserved <= quantity invariant; only a negative result is rejected.
func (s *Store) AdjustReserved(ctx context.Context, itemName string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE items SET reserved = reserved + ?, updated_at = ?
		WHERE item_name = ? AND reserved + ? >= 0
	`, delta, timestamp(), itemName, delta)
	if err != nil {
		return storeFault("adjust reserved", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storeFault("adjust reserved", err)
	}
	if affected == 0 {
		if _, err := s.getItemLocked(ctx, itemName); err != nil {
			return err
		}
		return inventory.ErrInvalidQuantity
	}
	return nil
}

// ReserveStock earmarks up to want units. The write lock spans the read of
// available and the guarded write, so concurrent reserves on the same key
// serialize here.
func (s *Store) ReserveStock(ctx context.Context, itemName string, want int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.getItemLocked(ctx, itemName)
	if errors.Is(err, inventory.ErrItemNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	take := item.Quantity - item.Reserved
	if take <= 0 {
		return 0, nil
	}
	if take > want {
		take = want
	}

	// The availability recheck in the WHERE clause keeps this safe even if
	// another connection commits between the read and the write.
	res, err := s.db.ExecContext(ctx, `
		UPDATE items SET reserved = reserved + ?, updated_at = ?
		WHERE item_name = ? AND quantity - reserved >= ?
	`, take, timestamp(), itemName, take)
	if err != nil {
		return 0, storeFault("reserve stock", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, storeFault("reserve stock", err)
	}
	if affected == 0 {
		return 0, nil
	}
	return take, nil
}

// ApplyBatch applies one independent statement per entry, best-effort.
// No wrapping transaction: a mid-batch fault leaves applied entries
// committed and reports the count so far.
func (s *Store) ApplyBatch(ctx context.Context, deltas []inventory.StockDelta) (inventory.BatchOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var outcome inventory.BatchOutcome
	now := timestamp()
	for _, d := range deltas {
		ok, err := s.applyDeltaLocked(ctx, d, now)
		if err != nil {
			return outcome, err
		}
		if ok {
			outcome.Applied++
		} else {
			outcome.Failed = append(outcome.Failed, d.ItemName)
		}
	}
	return outcome, nil
}

func (s *Store) applyDeltaLocked(ctx context.Context, d inventory.StockDelta, now string) (bool, error) {
	if d.Upsert && d.Quantity > 0 && d.Reserved == 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO items (item_name, quantity, reserved, created_at, updated_at)
			VALUES (?, ?, 0, ?, ?)
			ON CONFLICT(item_name) DO UPDATE SET
				quantity = quantity + excluded.quantity,
				updated_at = excluded.updated_at
		`, d.ItemName, d.Quantity, now, now)
		if err != nil {
			return false, storeFault("apply batch", err)
		}
		return true, nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE items SET quantity = quantity + ?, reserved = reserved + ?, updated_at = ?
		WHERE item_name = ? AND quantity + ? >= 0 AND reserved + ? >= 0
	`, d.Quantity, d.Reserved, now, d.ItemName, d.Quantity, d.Reserved)
	if err != nil {
		return false, storeFault("apply batch", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storeFault("apply batch", err)
	}
	return affected > 0, nil
}

func (s *Store) getItemLocked(ctx context.Context, itemName string) (*inventory.StockItem, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE item_name = ?", itemName)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrItemNotFound
	}
	if err != nil {
		return nil, storeFault("get item", err)
	}
	return item, nil
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]inventory.StockItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeFault("query items", err)
	}
	defer rows.Close()

	var result []inventory.StockItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, storeFault("query items", err)
		}
		result = append(result, *item)
	}
	return result, rows.Err()
}

// =============================================================================
// ORDERS (inventory.OrderStore interface)
// =============================================================================

// CreateOrder inserts the order and its lines in one transaction. The
// primary key on order_number enforces insert-if-absent.
func (s *Store) CreateOrder(ctx context.Context, order *inventory.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeFault("create order", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (order_number, party_name, status, created_at)
		VALUES (?, ?, ?, ?)
	`, order.OrderNumber, order.PartyName, string(order.Status),
		order.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return inventory.ErrDuplicateOrder
		}
		return storeFault("create order", err)
	}

	for i, line := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_number, line_no, item_name, quantity, reserved)
			VALUES (?, ?, ?, ?, ?)
		`, order.OrderNumber, i, line.ItemName, line.Quantity, line.Reserved)
		if err != nil {
			return storeFault("create order", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeFault("create order", err)
	}
	return nil
}

// GetOrder returns the order with its lines.
func (s *Store) GetOrder(ctx context.Context, orderNumber string) (*inventory.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getOrderLocked(ctx, orderNumber)
}

// ListOrders returns orders filtered by status; empty status means all.
func (s *Store) ListOrders(ctx context.Context, status inventory.OrderStatus) ([]inventory.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT order_number, party_name, status, created_at FROM orders"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at ASC, order_number ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeFault("list orders", err)
	}
	defer rows.Close()

	var result []inventory.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, storeFault("list orders", err)
		}
		result = append(result, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFault("list orders", err)
	}

	for i := range result {
		lines, err := s.loadLines(ctx, result[i].OrderNumber)
		if err != nil {
			return nil, err
		}
		result[i].Items = lines
	}
	return result, nil
}

// MarkExecuted performs the Reserved -> Executed check-and-set. The status
// predicate in the WHERE clause is the guard; zero rows affected means the
// order is absent or past Reserved.
func (s *Store) MarkExecuted(ctx context.Context, orderNumber string) (*inventory.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET status = ? WHERE order_number = ? AND status = ?
	`, string(inventory.StatusExecuted), orderNumber, string(inventory.StatusReserved))
	if err != nil {
		return nil, storeFault("execute order", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, storeFault("execute order", err)
	}
	if affected == 0 {
		// Disambiguate for the caller; the CAS above already decided.
		if _, err := s.getOrderLocked(ctx, orderNumber); err != nil {
			return nil, err
		}
		return nil, inventory.ErrInvalidOrderState
	}
	return s.getOrderLocked(ctx, orderNumber)
}

func (s *Store) getOrderLocked(ctx context.Context, orderNumber string) (*inventory.Order, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT order_number, party_name, status, created_at FROM orders WHERE order_number = ?",
		orderNumber)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrOrderNotFound
	}
	if err != nil {
		return nil, storeFault("get order", err)
	}

	lines, err := s.loadLines(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	order.Items = lines
	return order, nil
}

func (s *Store) loadLines(ctx context.Context, orderNumber string) ([]inventory.OrderLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_name, quantity, reserved FROM order_lines
		WHERE order_number = ? ORDER BY line_no ASC
	`, orderNumber)
	if err != nil {
		return nil, storeFault("load order lines", err)
	}
	defer rows.Close()

	var lines []inventory.OrderLine
	for rows.Next() {
		var line inventory.OrderLine
		if err := rows.Scan(&line.ItemName, &line.Quantity, &line.Reserved); err != nil {
			return nil, storeFault("load order lines", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*inventory.StockItem, error) {
	var item inventory.StockItem
	var createdAt, updatedAt string
	if err := row.Scan(&item.ItemName, &item.Quantity, &item.Reserved, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	item.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	item.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &item, nil
}

func scanOrder(row rowScanner) (*inventory.Order, error) {
	var order inventory.Order
	var status, createdAt string
	if err := row.Scan(&order.OrderNumber, &order.PartyName, &status, &createdAt); err != nil {
		return nil, err
	}
	order.Status = inventory.OrderStatus(status)
	order.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &order, nil
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// storeFault tags a driver-level failure with the cross-cutting sentinel so
// callers can distinguish collaborator faults from business failures.
func storeFault(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", inventory.ErrStoreUnavailable, op, err)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
