package handler

import (
	"github.com/gofiber/fiber/v2"

	"go-popup-ledger/internal/service"
)

type ReturnHandler struct {
	returns service.ReturnService
}

func NewReturnHandler(returns service.ReturnService) *ReturnHandler {
	return &ReturnHandler{returns: returns}
}

// CloseOut records the end-of-channel floor count.
// POST /api/v1/channels/:id/close-out
func (h *ReturnHandler) CloseOut(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid channel ID")
	}
	var req service.CloseOutInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid JSON")
		}
	}
	req.ChannelID = id
	req.ActorID = actorID(c)

	summary, err := h.returns.CloseOut(c.UserContext(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Channel closed out", "data": summary})
}

// POST /api/v1/channels/:id/return/ship
func (h *ReturnHandler) ShipReturn(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid channel ID")
	}
	var req service.ShipmentInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	summary, err := h.returns.ShipReturn(c.UserContext(), id, req, actorID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Return shipped", "data": summary})
}

// POST /api/v1/channels/:id/return/confirm
func (h *ReturnHandler) ConfirmReturn(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid channel ID")
	}
	summary, err := h.returns.ConfirmReturn(c.UserContext(), id, actorID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Return confirmed", "data": summary})
}

// GET /api/v1/channels/:id/return
func (h *ReturnHandler) GetSummary(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid channel ID")
	}
	summary, err := h.returns.GetReturnSummary(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(summary)
}
