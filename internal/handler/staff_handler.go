package handler

import (
	"github.com/gofiber/fiber/v2"

	"go-popup-ledger/internal/service"
)

type StaffHandler struct {
	staffService service.StaffService
}

func NewStaffHandler(staffService service.StaffService) *StaffHandler {
	return &StaffHandler{staffService: staffService}
}

// RegisterStaff mirrors a staff member from the identity provider
// POST /api/v1/staff
func (h *StaffHandler) RegisterStaff(c *fiber.Ctx) error {
	var req service.RegisterStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	staff, err := h.staffService.RegisterStaff(c.UserContext(), &req, actorID(c))
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Staff registered successfully",
		"data":    staff,
	})
}

// UpdateStaffPrivileges handles privilege assignment
// PUT /api/v1/staff/:id/privileges
func (h *StaffHandler) UpdateStaffPrivileges(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid staff ID")
	}

	var req struct {
		Privileges []string `json:"privileges"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	staff, err := h.staffService.UpdateStaffPrivileges(c.UserContext(), id, req.Privileges, actorID(c))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Privileges updated successfully",
		"data":    staff,
	})
}

// GetStaff returns all staff; ?active=true limits to active accounts
// GET /api/v1/staff
func (h *StaffHandler) GetStaff(c *fiber.Ctx) error {
	staff, err := h.staffService.GetAllStaff(c.UserContext(), c.QueryBool("active", false))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(staff)
}

// GET /api/v1/staff/:id
func (h *StaffHandler) GetStaffMember(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid staff ID")
	}

	staff, err := h.staffService.GetStaffByID(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(staff)
}
