package handler

import (
	"github.com/gofiber/fiber/v2"

	"go-popup-ledger/internal/service"
)

type SaleHandler struct {
	sales service.SaleService
}

func NewSaleHandler(sales service.SaleService) *SaleHandler {
	return &SaleHandler{sales: sales}
}

// CreateSale records a POS transaction
// POST /api/v1/sales
func (h *SaleHandler) CreateSale(c *fiber.Ctx) error {
	var req service.CreateSaleInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	req.ActorID = actorID(c)

	sale, err := h.sales.CreateSale(c.UserContext(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Sale recorded",
		"data":    sale,
	})
}

// GET /api/v1/sales/:id
func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid sale ID")
	}
	sale, err := h.sales.GetSale(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(sale)
}

// GET /api/v1/channels/:id/sales
func (h *SaleHandler) GetChannelSales(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid channel ID")
	}
	sales, err := h.sales.ListChannelSales(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(sales)
}

// POST /api/v1/sales/:id/cancel
func (h *SaleHandler) CancelSale(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid sale ID")
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	sale, err := h.sales.CancelSale(c.UserContext(), id, req.Reason, actorID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Sale cancelled", "data": sale})
}
