/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for testing and demos. Each scenario seeds stock items and,
	where relevant, orders that demonstrate specific engine behaviors.

AVAILABLE SCENARIOS:

	warehouse:       A stocked hardware warehouse, no orders
	reservations:    Stock plus a partially reserved open order
	tight-stock:     Low quantities so shortages show up immediately

HOW SCENARIOS WORK:
 1. Seed stock items via the ledger (create-on-write upsert)
 2. Optionally reserve demo orders via the order engine

NOTE:

	Scenarios add on top of existing data. Only use in development/demo
	environments.

SEE ALSO:
  - handlers.go: Shared response helpers
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/warp/stock-engine/inventory"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "warehouse",
		Name:        "Stocked Warehouse",
		Description: "Hardware items with healthy quantities, no open orders",
	},
	{
		ID:          "reservations",
		Name:        "Open Reservations",
		Description: "Stocked items with a partially reserved open order",
	},
	{
		ID:          "tight-stock",
		Name:        "Tight Stock",
		Description: "Minimal quantities so shortages and skips show immediately",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario seeds the selected scenario's data.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var err error
	switch req.ID {
	case "warehouse":
		err = h.loadWarehouseScenario(r.Context())
	case "reservations":
		err = h.loadReservationsScenario(r.Context())
	case "tight-stock":
		err = h.loadTightStockScenario(r.Context())
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown scenario %q", req.ID), nil)
		return
	}
	if err != nil {
		h.writeEngineError(w, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ID
	h.log.Info().Str("scenario", req.ID).Msg("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]any{"loaded": req.ID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadWarehouseScenario(ctx context.Context) error {
	return h.seedStock(ctx, []inventory.StockOp{
		{ItemName: "bolt-m8", Quantity: 500},
		{ItemName: "nut-m8", Quantity: 480},
		{ItemName: "washer-8mm", Quantity: 1000},
		{ItemName: "hinge-steel", Quantity: 120},
		{ItemName: "bracket-corner", Quantity: 75},
	})
}

func (h *Handler) loadReservationsScenario(ctx context.Context) error {
	if err := h.seedStock(ctx, []inventory.StockOp{
		{ItemName: "plywood-sheet", Quantity: 40},
		{ItemName: "dowel-6mm", Quantity: 200},
		{ItemName: "wood-glue", Quantity: 10},
	}); err != nil {
		return err
	}

	// Demands more glue than exists so the partial branch is visible.
	_, _, err := h.Engine.Reserve(ctx, demoOrderNumber(), "Demo Joinery Ltd",
		[]inventory.StockOp{
			{ItemName: "plywood-sheet", Quantity: 12},
			{ItemName: "wood-glue", Quantity: 25},
		})
	return err
}

func (h *Handler) loadTightStockScenario(ctx context.Context) error {
	return h.seedStock(ctx, []inventory.StockOp{
		{ItemName: "gasket-rubber", Quantity: 3},
		{ItemName: "o-ring-12mm", Quantity: 1},
		{ItemName: "valve-brass", Quantity: 2},
	})
}

func (h *Handler) seedStock(ctx context.Context, items []inventory.StockOp) error {
	for _, item := range items {
		if _, err := h.Ledger.Increment(ctx, item.ItemName, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func demoOrderNumber() string {
	return "DEMO-" + uuid.NewString()[:8]
}
