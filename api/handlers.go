/*
handlers.go - HTTP API handlers for the stock engine

PURPOSE:
  Exposes the stock ledger and order engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Stock:
    GET    /api/stock                 Full stock listing
    GET    /api/stock/{itemName}      Single item
    GET    /api/stock/search?q=       Name search
    GET    /api/items                 Item names only
    POST   /api/stock/add             Single increment
    POST   /api/stock/remove          Single decrement
    POST   /api/stock/bulk-add        Bulk add (existing items only)
    POST   /api/items/bulk-add        Bulk add (creates missing items)
    POST   /api/stock/bulk-remove     Bulk remove with skip semantics
    POST   /api/stock/order-check     Read-only availability report
    POST   /api/stock/submit-order    Deduct the deliverable lines

  Orders:
    POST   /api/orders/reserve        Two-phase reserve
    POST   /api/orders/execute        Execute a reserved order
    GET    /api/orders?status=        Order listing
    GET    /api/orders/{orderNumber}  Single order

  Scenarios:
    GET    /api/scenarios             List demo scenarios
    POST   /api/scenarios/load        Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, insufficient stock
  - 404: Item or order not found
  - 409: Duplicate order, execute on non-reserved order
  - 503: Storage collaborator fault
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/warp/stock-engine/inventory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger *inventory.StockLedger
	Batch  *inventory.BatchProcessor
	Engine *inventory.OrderEngine

	log zerolog.Logger

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler wires the engine components over the given storage.
func NewHandler(storage inventory.Storage, log zerolog.Logger) *Handler {
	ledger := inventory.NewStockLedger(storage)
	return &Handler{
		Ledger: ledger,
		Batch:  inventory.NewBatchProcessor(ledger),
		Engine: inventory.NewOrderEngine(ledger, storage),
		log:    log,
	}
}

// =============================================================================
// STOCK HANDLERS
// =============================================================================

// ListStock returns the full stock listing.
func (h *Handler) ListStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.Ledger.List(r.Context())
	if err != nil {
		h.writeEngineError(w, "Failed to list stock", err)
		return
	}

	dtos := make([]StockItemDTO, len(items))
	for i := range items {
		dtos[i] = toStockItemDTO(&items[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStock returns a single item's state.
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	itemName := chi.URLParam(r, "itemName")

	item, err := h.Ledger.Get(r.Context(), itemName)
	if err != nil {
		h.writeEngineError(w, "Failed to fetch item", err)
		return
	}
	writeJSON(w, http.StatusOK, toStockItemDTO(item))
}

// SearchStock returns items whose name contains the q parameter.
func (h *Handler) SearchStock(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	items, err := h.Ledger.Search(r.Context(), query, 20)
	if err != nil {
		h.writeEngineError(w, "Failed to search stock", err)
		return
	}

	dtos := make([]StockItemDTO, len(items))
	for i := range items {
		dtos[i] = toStockItemDTO(&items[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListItemNames returns item names only.
func (h *Handler) ListItemNames(w http.ResponseWriter, r *http.Request) {
	items, err := h.Ledger.List(r.Context())
	if err != nil {
		h.writeEngineError(w, "Failed to list items", err)
		return
	}

	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.ItemName
	}
	writeJSON(w, http.StatusOK, names)
}

// AddStock handles a single increment.
func (h *Handler) AddStock(w http.ResponseWriter, r *http.Request) {
	var req AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ItemName == "" {
		writeError(w, http.StatusBadRequest, "itemName is required", nil)
		return
	}

	item, err := h.Ledger.Increment(r.Context(), req.ItemName, req.Quantity)
	if err != nil {
		h.writeEngineError(w, "Failed to add stock", err)
		return
	}
	writeJSON(w, http.StatusOK, toStockItemDTO(item))
}

// RemoveStock handles a single decrement.
func (h *Handler) RemoveStock(w http.ResponseWriter, r *http.Request) {
	var req AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ItemName == "" {
		writeError(w, http.StatusBadRequest, "itemName is required", nil)
		return
	}

	item, err := h.Ledger.Decrement(r.Context(), req.ItemName, req.Quantity)
	if err != nil {
		h.writeEngineError(w, "Not enough stock", err)
		return
	}
	writeJSON(w, http.StatusOK, toStockItemDTO(item))
}

// BulkAddStock adds quantities to existing items only; unknown names are
// reported as invalid.
func (h *Handler) BulkAddStock(w http.ResponseWriter, r *http.Request) {
	h.bulkAdjust(w, r, inventory.BatchAdd, true)
}

// BulkAddItems adds quantities, creating missing items on the fly.
func (h *Handler) BulkAddItems(w http.ResponseWriter, r *http.Request) {
	h.bulkAdjust(w, r, inventory.BatchAdd, false)
}

// BulkRemoveStock removes quantities with skip semantics for lines that
// fail the availability check.
func (h *Handler) BulkRemoveStock(w http.ResponseWriter, r *http.Request) {
	h.bulkAdjust(w, r, inventory.BatchRemove, true)
}

func (h *Handler) bulkAdjust(w http.ResponseWriter, r *http.Request, mode inventory.BatchMode, existenceRequired bool) {
	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Batch.BulkAdjust(r.Context(), req.toOps(), mode, existenceRequired)
	if err != nil {
		h.log.Error().Err(err).Str("mode", string(mode)).Msg("bulk adjust aborted")
		// Best-effort: surface what was applied before the fault.
		if result != nil {
			writeJSON(w, http.StatusServiceUnavailable, toBatchResultDTO(result))
			return
		}
		h.writeEngineError(w, "Failed to process bulk adjustment", err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResultDTO(result))
}

// =============================================================================
// ORDER CHECK AND SUBMISSION
// =============================================================================

// OrderCheck returns the read-only availability report for requested lines.
func (h *Handler) OrderCheck(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	report, err := h.Engine.Check(r.Context(), req.toOps())
	if err != nil {
		h.writeEngineError(w, "Failed to process order check", err)
		return
	}

	dtos := make([]OrderCheckEntryDTO, len(report))
	for i, entry := range report {
		dtos[i] = OrderCheckEntryDTO(entry)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SubmitOrder deducts the deliverable lines of a checked order. Lines that
// fail the availability check are skipped, not retried.
func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "No valid items to deduct", nil)
		return
	}

	result, err := h.Batch.BulkAdjust(r.Context(), req.toOps(), inventory.BatchRemove, true)
	if err != nil {
		h.writeEngineError(w, "Failed to process order submission", err)
		return
	}
	if result.AppliedCount == 0 {
		writeError(w, http.StatusBadRequest, "No valid items to deduct", nil)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResultDTO(result))
}

// =============================================================================
// ORDER HANDLERS
// =============================================================================

// ReserveOrder runs the reservation phase of the two-phase workflow.
func (h *Handler) ReserveOrder(w http.ResponseWriter, r *http.Request) {
	var req ReserveOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.OrderNumber == "" {
		writeError(w, http.StatusBadRequest, "orderNumber is required", nil)
		return
	}

	ops := make([]inventory.StockOp, len(req.Items))
	for i, line := range req.Items {
		ops[i] = inventory.StockOp{ItemName: line.ItemName, Quantity: line.Quantity}
	}

	result, order, err := h.Engine.Reserve(r.Context(), req.OrderNumber, req.PartyName, ops)
	if err != nil {
		h.writeEngineError(w, "Failed to reserve order", err)
		return
	}

	h.log.Info().
		Str("order", order.OrderNumber).
		Int("reserved", len(result.ReservedItems)).
		Int("partial", len(result.PartiallyReserved)).
		Int("shortage", len(result.Shortages)).
		Msg("order reserved")

	writeJSON(w, http.StatusOK, toReservationResultDTO(result, order))
}

// ExecuteOrder commits a reserved order.
func (h *Handler) ExecuteOrder(w http.ResponseWriter, r *http.Request) {
	var req ExecuteOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	order, err := h.Engine.Execute(r.Context(), req.OrderNumber)
	if err != nil {
		h.writeEngineError(w, "Failed to execute order", err)
		return
	}

	h.log.Info().Str("order", order.OrderNumber).Msg("order executed")

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Order executed successfully",
		"order":   toOrderDTO(order),
	})
}

// ListOrders returns orders, optionally filtered by ?status=.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	status := inventory.OrderStatus(r.URL.Query().Get("status"))
	if status != "" && status != inventory.StatusReserved && status != inventory.StatusExecuted {
		writeError(w, http.StatusBadRequest, "Invalid status filter", nil)
		return
	}

	orders, err := h.Engine.Orders.ListOrders(r.Context(), status)
	if err != nil {
		h.writeEngineError(w, "Failed to list orders", err)
		return
	}

	dtos := make([]OrderDTO, len(orders))
	for i := range orders {
		dtos[i] = toOrderDTO(&orders[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetOrder returns a single order.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	order, err := h.Engine.Orders.GetOrder(r.Context(), orderNumber)
	if err != nil {
		h.writeEngineError(w, "Failed to fetch order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// writeEngineError maps domain errors onto HTTP statuses.
func (h *Handler) writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case inventory.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case inventory.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case inventory.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, inventory.ErrStoreUnavailable):
		h.log.Error().Err(err).Msg("store unavailable")
		writeError(w, http.StatusServiceUnavailable, message, err)
	default:
		h.log.Error().Err(err).Msg(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
