package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"go-popup-ledger/internal/service"
)

type WarehouseHandler struct {
	ledger service.StockLedger
}

func NewWarehouseHandler(ledger service.StockLedger) *WarehouseHandler {
	return &WarehouseHandler{ledger: ledger}
}

// Restock adds goods to the central warehouse
// POST /api/v1/warehouse/restock
func (h *WarehouseHandler) Restock(c *fiber.Ctx) error {
	var req struct {
		Barcode  string `json:"barcode"`
		Quantity int    `json:"quantity"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	row, err := h.ledger.Restock(c.UserContext(), strings.TrimSpace(req.Barcode), req.Quantity, actorID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Warehouse restocked", "data": row})
}

// GetStock returns warehouse rows. Query params: barcodes (comma separated, optional)
// GET /api/v1/warehouse/stock
func (h *WarehouseHandler) GetStock(c *fiber.Ctx) error {
	var barcodes []string
	for _, b := range strings.Split(c.Query("barcodes"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			barcodes = append(barcodes, b)
		}
	}

	rows, err := h.ledger.WarehouseStock(c.UserContext(), barcodes)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(rows)
}
