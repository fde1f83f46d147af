package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"go-popup-ledger/internal/apperror"
	"go-popup-ledger/internal/middleware"
	"go-popup-ledger/internal/model"
	"go-popup-ledger/internal/service"
)

type ChannelHandler struct {
	channels service.ChannelService
	status   service.StatusService
	ledger   service.StockLedger
}

func NewChannelHandler(channels service.ChannelService, status service.StatusService, ledger service.StockLedger) *ChannelHandler {
	return &ChannelHandler{channels: channels, status: status, ledger: ledger}
}

// CreateChannel handles channel creation
// POST /api/v1/channels
func (h *ChannelHandler) CreateChannel(c *fiber.Ctx) error {
	var req service.CreateChannelInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	req.ActorID = actorID(c)

	channel, err := h.channels.Create(c.UserContext(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Channel created successfully",
		"data":    channel,
	})
}

// GetChannels lists channels, optionally filtered by ?status=
// GET /api/v1/channels
func (h *ChannelHandler) GetChannels(c *fiber.Ctx) error {
	channels, err := h.channels.List(c.UserContext(), model.ChannelStatus(c.Query("status")))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(channels)
}

// GET /api/v1/channels/:id
func (h *ChannelHandler) GetChannel(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid channel ID")
	}
	channel, err := h.channels.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(channel)
}

// GetActions returns the next states the tables allow. Guards are only
// evaluated when a move is attempted.
// GET /api/v1/channels/:id/actions
func (h *ChannelHandler) GetActions(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid channel ID")
	}
	actions, err := h.status.AllowedChannelActions(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(actions)
}

type transitionRequest struct {
	Status   model.ChannelStatus `json:"status"`
	Override bool                `json:"override"`
	Reason   string              `json:"reason"`
}

// Transition moves the goods track. Approving a channel additionally needs
// the channel:approve privilege.
// POST /api/v1/channels/:id/transition
func (h *ChannelHandler) Transition(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid channel ID")
	}
	var req transitionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	if !req.Status.Valid() {
		return badRequest(c, "Unknown status")
	}
	if req.Status == model.ChannelApproved && !hasPrivilege(c, model.PrivChannelApprove) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: requires '" + model.PrivChannelApprove + "' privilege",
		})
	}

	channel, err := h.status.TransitionChannel(c.UserContext(), id, req.Status, service.TransitionOptions{
		Override: req.Override,
		Reason:   req.Reason,
		ActorID:  actorID(c),
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Channel moved to " + string(channel.Status), "data": channel})
}

// POST /api/v1/channels/:id/payment
func (h *ChannelHandler) TransitionPayment(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid channel ID")
	}
	var req struct {
		Status model.PaymentStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	if !req.Status.Valid() {
		return badRequest(c, "Unknown payment status")
	}

	channel, err := h.status.TransitionPayment(c.UserContext(), id, req.Status, actorID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Payment moved to " + string(channel.PaymentStatus), "data": channel})
}

// POST /api/v1/channels/:id/staff
func (h *ChannelHandler) AssignStaff(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid channel ID")
	}
	var req struct {
		StaffID uuid.UUID `json:"staff_id"`
		IsMain  bool      `json:"is_main"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	if req.StaffID == uuid.Nil {
		return badRequest(c, "staff_id is required")
	}

	assignment, err := h.channels.AssignStaff(c.UserContext(), id, req.StaffID, req.IsMain, actorID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Staff assigned", "data": assignment})
}

// DELETE /api/v1/channels/:id/staff/:staffId
func (h *ChannelHandler) UnassignStaff(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid channel ID")
	}
	staffID, ok := paramID(c, "staffId")
	if !ok {
		return badRequest(c, "Invalid staff ID")
	}

	if err := h.channels.UnassignStaff(c.UserContext(), id, staffID, actorID(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Staff unassigned"})
}

// GetEvents returns the audit trail, newest first. Query params: limit (default 50)
// GET /api/v1/channels/:id/events
func (h *ChannelHandler) GetEvents(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid channel ID")
	}
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	evts, err := h.channels.Events(c.UserContext(), id, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(evts)
}

// GET /api/v1/channels/:id/stock
func (h *ChannelHandler) GetStock(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid channel ID")
	}
	rows, err := h.ledger.ChannelStock(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(rows)
}

// CheckConservation verifies every stock row of the channel balances.
// GET /api/v1/channels/:id/stock/check
func (h *ChannelHandler) CheckConservation(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid channel ID")
	}
	err := h.ledger.CheckConservation(c.UserContext(), id)
	if apperror.Is(err, apperror.KindLedgerInvariantViolation) {
		return c.JSON(fiber.Map{"balanced": false, "error": err.Error()})
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"balanced": true})
}

func hasPrivilege(c *fiber.Ctx, code string) bool {
	privileges, _ := c.Locals(middleware.LocalPrivileges).([]string)
	for _, p := range privileges {
		if p == code {
			return true
		}
	}
	return false
}
