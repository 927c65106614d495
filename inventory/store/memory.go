// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/warp/stock-engine/inventory"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements inventory.Storage with mutex-guarded maps. Every
// conditional mutation holds the lock across its guard check and write, so
// the atomicity contract of the Store interface holds process-wide.
type Memory struct {
	mu     sync.RWMutex
	items  map[string]inventory.StockItem
	orders map[string]inventory.Order
}

var _ inventory.Storage = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		items:  make(map[string]inventory.StockItem),
		orders: make(map[string]inventory.Order),
	}
}

// =============================================================================
// STOCK ITEMS (inventory.Store interface)
// =============================================================================

func (m *Memory) GetItem(_ context.Context, itemName string) (*inventory.StockItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[itemName]
	if !ok {
		return nil, inventory.ErrItemNotFound
	}
	return &item, nil
}

func (m *Memory) GetItems(_ context.Context, itemNames []string) (map[string]inventory.StockItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]inventory.StockItem, len(itemNames))
	for _, name := range itemNames {
		if item, ok := m.items[name]; ok {
			result[name] = item
		}
	}
	return result, nil
}

func (m *Memory) ListItems(_ context.Context) ([]inventory.StockItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]inventory.StockItem, 0, len(m.items))
	for _, item := range m.items {
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ItemName < result[j].ItemName
	})
	return result, nil
}

func (m *Memory) SearchItems(_ context.Context, query string, limit int) ([]inventory.StockItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	query = strings.ToLower(query)
	var result []inventory.StockItem
	for _, item := range m.items {
		if strings.Contains(strings.ToLower(item.ItemName), query) {
			result = append(result, item)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ItemName < result[j].ItemName
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *Memory) AddStock(_ context.Context, itemName string, quantity int64) (*inventory.StockItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	item, ok := m.items[itemName]
	if !ok {
		item = inventory.StockItem{ItemName: itemName, CreatedAt: now}
	}
	item.Quantity += quantity
	item.UpdatedAt = now
	m.items[itemName] = item
	return &item, nil
}

func (m *Memory) RemoveStock(_ context.Context, itemName string, quantity int64) (*inventory.StockItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemName]
	if !ok {
		return nil, &inventory.InsufficientStockError{
			ItemName:  itemName,
			Requested: quantity,
			Available: 0,
		}
	}
	if item.Quantity < quantity {
		return nil, &inventory.InsufficientStockError{
			ItemName:  itemName,
			Requested: quantity,
			Available: item.Quantity,
		}
	}
	item.Quantity -= quantity
	item.UpdatedAt = time.Now().UTC()
	m.items[itemName] = item
	return &item, nil
}

func (m *Memory) AdjustReserved(_ context.Context, itemName string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemName]
	if !ok {
		return inventory.ErrItemNotFound
	}
	if item.Reserved+delta < 0 {
		return inventory.ErrInvalidQuantity
	}
	item.Reserved += delta
	item.UpdatedAt = time.Now().UTC()
	m.items[itemName] = item
	return nil
}

func (m *Memory) ReserveStock(_ context.Context, itemName string, want int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemName]
	if !ok {
		return 0, nil
	}
	take := item.Quantity - item.Reserved
	if take <= 0 {
		return 0, nil
	}
	if take > want {
		take = want
	}
	item.Reserved += take
	item.UpdatedAt = time.Now().UTC()
	m.items[itemName] = item
	return take, nil
}

func (m *Memory) ApplyBatch(_ context.Context, deltas []inventory.StockDelta) (inventory.BatchOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var outcome inventory.BatchOutcome
	now := time.Now().UTC()
	for _, d := range deltas {
		if m.applyDeltaLocked(d, now) {
			outcome.Applied++
		} else {
			outcome.Failed = append(outcome.Failed, d.ItemName)
		}
	}
	return outcome, nil
}

// applyDeltaLocked applies one independent entry. Guard and write are a
// single step under the store lock.
func (m *Memory) applyDeltaLocked(d inventory.StockDelta, now time.Time) bool {
	item, ok := m.items[d.ItemName]
	if !ok {
		if !d.Upsert || d.Quantity <= 0 || d.Reserved != 0 {
			return false
		}
		item = inventory.StockItem{ItemName: d.ItemName, CreatedAt: now}
	}
	if item.Quantity+d.Quantity < 0 || item.Reserved+d.Reserved < 0 {
		return false
	}
	item.Quantity += d.Quantity
	item.Reserved += d.Reserved
	item.UpdatedAt = now
	m.items[d.ItemName] = item
	return true
}

// =============================================================================
// ORDERS (inventory.OrderStore interface)
// =============================================================================

func (m *Memory) CreateOrder(_ context.Context, order *inventory.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.orders[order.OrderNumber]; exists {
		return inventory.ErrDuplicateOrder
	}
	m.orders[order.OrderNumber] = copyOrder(*order)
	return nil
}

func (m *Memory) GetOrder(_ context.Context, orderNumber string) (*inventory.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, ok := m.orders[orderNumber]
	if !ok {
		return nil, inventory.ErrOrderNotFound
	}
	out := copyOrder(order)
	return &out, nil
}

func (m *Memory) ListOrders(_ context.Context, status inventory.OrderStatus) ([]inventory.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []inventory.Order
	for _, order := range m.orders {
		if status != "" && order.Status != status {
			continue
		}
		result = append(result, copyOrder(order))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].OrderNumber < result[j].OrderNumber
	})
	return result, nil
}

func (m *Memory) MarkExecuted(_ context.Context, orderNumber string) (*inventory.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderNumber]
	if !ok {
		return nil, inventory.ErrOrderNotFound
	}
	if order.Status != inventory.StatusReserved {
		return nil, inventory.ErrInvalidOrderState
	}
	order.Status = inventory.StatusExecuted
	m.orders[orderNumber] = order

	out := copyOrder(order)
	return &out, nil
}

// copyOrder deep-copies the line slice so callers can't mutate stored state.
func copyOrder(o inventory.Order) inventory.Order {
	lines := make([]inventory.OrderLine, len(o.Items))
	copy(lines, o.Items)
	o.Items = lines
	return o
}
