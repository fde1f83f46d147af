package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"go-popup-ledger/internal/service"
)

type DashboardHandler struct {
	service service.DashboardService
}

func NewDashboardHandler(s service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

// GetDailySales returns per-day sales for charts
// Query params: days (default 7)
func (h *DashboardHandler) GetDailySales(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid channel ID")
	}
	days, err := strconv.Atoi(c.Query("days", "7"))
	if err != nil || days <= 0 {
		days = 7
	}

	data, err := h.service.GetDailySales(c.UserContext(), id, days)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"period": days,
		"data":   data,
	})
}

// GetSummary returns sales, stock and target progress for one channel
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid channel ID")
	}
	summary, err := h.service.GetChannelSummary(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(summary)
}
