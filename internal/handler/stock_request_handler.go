package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"go-popup-ledger/internal/model"
	"go-popup-ledger/internal/service"
)

type StockRequestHandler struct {
	requests service.StockRequestService
}

func NewStockRequestHandler(requests service.StockRequestService) *StockRequestHandler {
	return &StockRequestHandler{requests: requests}
}

// POST /api/v1/stock-requests
func (h *StockRequestHandler) CreateRequest(c *fiber.Ctx) error {
	var req service.CreateStockRequestInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	req.ActorID = actorID(c)

	created, err := h.requests.Create(c.UserContext(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Stock request created successfully",
		"data":    created,
	})
}

// GET /api/v1/stock-requests/:id
func (h *StockRequestHandler) GetRequest(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid stock request ID")
	}
	req, err := h.requests.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(req)
}

// GET /api/v1/channels/:id/stock-requests
func (h *StockRequestHandler) GetChannelRequests(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid channel ID")
	}
	list, err := h.requests.ListByChannel(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(list)
}

type simpleMove func(ctx context.Context, id uuid.UUID, actorID string) (*model.StockRequest, error)

func (h *StockRequestHandler) move(c *fiber.Ctx, fn simpleMove) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid stock request ID")
	}
	req, err := fn(c.UserContext(), id, actorID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Stock request is " + string(req.Status), "data": req})
}

// POST /api/v1/stock-requests/:id/submit
func (h *StockRequestHandler) Submit(c *fiber.Ctx) error {
	return h.move(c, h.requests.Submit)
}

// POST /api/v1/stock-requests/:id/approve
func (h *StockRequestHandler) Approve(c *fiber.Ctx) error {
	return h.move(c, h.requests.Approve)
}

// POST /api/v1/stock-requests/:id/cancel
func (h *StockRequestHandler) Cancel(c *fiber.Ctx) error {
	return h.move(c, h.requests.Cancel)
}

type quantityMove func(ctx context.Context, id uuid.UUID, lines []service.QuantityLine, actorID string) (*service.StockRequestResult, error)

// quantities accepts {"items": [...]} or an empty body, which keeps every
// line at the previous stage's quantity.
func (h *StockRequestHandler) quantities(c *fiber.Ctx, fn quantityMove) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid stock request ID")
	}
	var req struct {
		Items []service.QuantityLine `json:"items"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid JSON")
		}
	}

	result, err := fn(c.UserContext(), id, req.Items, actorID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(result)
}

// POST /api/v1/stock-requests/:id/allocate
func (h *StockRequestHandler) Allocate(c *fiber.Ctx) error {
	return h.quantities(c, h.requests.Allocate)
}

// POST /api/v1/stock-requests/:id/pack
func (h *StockRequestHandler) Pack(c *fiber.Ctx) error {
	return h.quantities(c, h.requests.Pack)
}

// POST /api/v1/stock-requests/:id/receive
func (h *StockRequestHandler) Receive(c *fiber.Ctx) error {
	return h.quantities(c, h.requests.Receive)
}

// POST /api/v1/stock-requests/:id/ship
func (h *StockRequestHandler) Ship(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid stock request ID")
	}
	var req service.ShipmentInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	shipped, err := h.requests.Ship(c.UserContext(), id, req, actorID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Stock request shipped", "data": shipped})
}

// Release returns allocated or packed goods to the warehouse and cancels
// the request.
// POST /api/v1/stock-requests/:id/release
func (h *StockRequestHandler) Release(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid stock request ID")
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid JSON")
		}
	}

	released, err := h.requests.Release(c.UserContext(), id, req.Reason, actorID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Stock request released", "data": released})
}
