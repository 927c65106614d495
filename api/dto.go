/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import "github.com/warp/stock-engine/inventory"

// =============================================================================
// STOCK TYPES
// =============================================================================

// StockItemDTO represents one stock item in API responses.
type StockItemDTO struct {
	ItemName  string `json:"itemName"`
	Quantity  int64  `json:"quantity"`
	Reserved  int64  `json:"reserved"`
	Available int64  `json:"available"`
}

func toStockItemDTO(item *inventory.StockItem) StockItemDTO {
	return StockItemDTO{
		ItemName:  item.ItemName,
		Quantity:  item.Quantity,
		Reserved:  item.Reserved,
		Available: item.Available(),
	}
}

// AdjustStockRequest is the body of single add/remove calls.
type AdjustStockRequest struct {
	ItemName string `json:"itemName"`
	Quantity int64  `json:"quantity"`
}

// StockOpDTO is one {itemName, quantity} line in bulk and order payloads.
type StockOpDTO struct {
	ItemName string `json:"itemName"`
	Quantity int64  `json:"quantity"`
}

// BulkRequest is the body of bulk add/remove and order submission calls.
type BulkRequest struct {
	Items []StockOpDTO `json:"items"`
}

func (r BulkRequest) toOps() []inventory.StockOp {
	ops := make([]inventory.StockOp, len(r.Items))
	for i, line := range r.Items {
		ops[i] = inventory.StockOp{ItemName: line.ItemName, Quantity: line.Quantity}
	}
	return ops
}

// BatchResultDTO reports a bulk adjustment.
type BatchResultDTO struct {
	AppliedCount int          `json:"appliedCount"`
	SkippedItems []StockOpDTO `json:"skippedItems"`
	InvalidItems []string     `json:"invalidItems"`
}

func toBatchResultDTO(result *inventory.BatchResult) BatchResultDTO {
	dto := BatchResultDTO{
		AppliedCount: result.AppliedCount,
		SkippedItems: make([]StockOpDTO, len(result.SkippedItems)),
		InvalidItems: result.InvalidItems,
	}
	for i, op := range result.SkippedItems {
		dto.SkippedItems[i] = StockOpDTO{ItemName: op.ItemName, Quantity: op.Quantity}
	}
	if dto.InvalidItems == nil {
		dto.InvalidItems = []string{}
	}
	return dto
}

// =============================================================================
// ORDER TYPES
// =============================================================================

// ReserveOrderRequest is the body of POST /api/orders/reserve.
type ReserveOrderRequest struct {
	OrderNumber string       `json:"orderNumber"`
	PartyName   string       `json:"partyName"`
	Items       []StockOpDTO `json:"items"`
}

// ExecuteOrderRequest is the body of POST /api/orders/execute.
type ExecuteOrderRequest struct {
	OrderNumber string `json:"orderNumber"`
}

// OrderLineDTO is one line of a persisted order.
type OrderLineDTO struct {
	ItemName string `json:"itemName"`
	Quantity int64  `json:"quantity"`
	Reserved int64  `json:"reserved"`
}

// OrderDTO represents an order in API responses.
type OrderDTO struct {
	OrderNumber string         `json:"orderNumber"`
	PartyName   string         `json:"partyName"`
	Items       []OrderLineDTO `json:"items"`
	Status      string         `json:"status"`
	CreatedAt   string         `json:"createdAt,omitempty"`
}

func toOrderDTO(order *inventory.Order) OrderDTO {
	dto := OrderDTO{
		OrderNumber: order.OrderNumber,
		PartyName:   order.PartyName,
		Items:       make([]OrderLineDTO, len(order.Items)),
		Status:      string(order.Status),
	}
	if !order.CreatedAt.IsZero() {
		dto.CreatedAt = order.CreatedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	for i, line := range order.Items {
		dto.Items[i] = OrderLineDTO{
			ItemName: line.ItemName,
			Quantity: line.Quantity,
			Reserved: line.Reserved,
		}
	}
	return dto
}

// ReservationResultDTO itemizes a reservation outcome.
type ReservationResultDTO struct {
	Message           string            `json:"message"`
	ReservedItems     []ReservedLineDTO `json:"reservedItems"`
	PartiallyReserved []PartialLineDTO  `json:"partiallyReserved"`
	Shortages         []ShortageLineDTO `json:"shortages"`
	Order             OrderDTO          `json:"order"`
}

type ReservedLineDTO struct {
	ItemName string `json:"itemName"`
	Reserved int64  `json:"reserved"`
}

type PartialLineDTO struct {
	ItemName  string `json:"itemName"`
	Reserved  int64  `json:"reserved"`
	Shortfall int64  `json:"shortfall"`
}

type ShortageLineDTO struct {
	ItemName  string `json:"itemName"`
	Shortfall int64  `json:"shortfall"`
}

func toReservationResultDTO(result *inventory.ReservationResult, order *inventory.Order) ReservationResultDTO {
	dto := ReservationResultDTO{
		Message:           "Order reservation processed",
		ReservedItems:     []ReservedLineDTO{},
		PartiallyReserved: []PartialLineDTO{},
		Shortages:         []ShortageLineDTO{},
		Order:             toOrderDTO(order),
	}
	for _, line := range result.ReservedItems {
		dto.ReservedItems = append(dto.ReservedItems, ReservedLineDTO(line))
	}
	for _, line := range result.PartiallyReserved {
		dto.PartiallyReserved = append(dto.PartiallyReserved, PartialLineDTO(line))
	}
	for _, line := range result.Shortages {
		dto.Shortages = append(dto.Shortages, ShortageLineDTO(line))
	}
	return dto
}

// OrderCheckEntryDTO is one line of the read-only order check report.
type OrderCheckEntryDTO struct {
	ItemName  string `json:"itemName"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
	Balance   int64  `json:"balance"`
}

// =============================================================================
// SCENARIOS AND ERRORS
// =============================================================================

// ScenarioDTO describes one loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ID string `json:"id"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
