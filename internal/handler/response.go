package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"go-popup-ledger/internal/apperror"
	"go-popup-ledger/internal/middleware"
	"go-popup-ledger/internal/service"
)

const genericError = "Internal server error"

// statusFor maps an error kind onto an HTTP status.
func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindNotFound:
		return fiber.StatusNotFound
	case apperror.KindValidation:
		return fiber.StatusBadRequest
	case apperror.KindInvalidTransition,
		apperror.KindGuardFailed,
		apperror.KindInsufficientStock,
		apperror.KindAlreadyCancelled,
		apperror.KindConflict,
		apperror.KindConcurrencyConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// fail renders err. Storage and invariant failures get a generic message;
// their detail is already in the service logs.
func fail(c *fiber.Ctx, err error) error {
	kind := apperror.KindOf(err)
	body := fiber.Map{"error": err.Error(), "kind": kind}
	if apperror.IsFatal(err) {
		body["error"] = genericError
	}
	if apperror.IsRetryable(err) {
		body["retryable"] = true
	}
	return c.Status(statusFor(kind)).JSON(body)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// actorID returns the authenticated staff id, or the system actor when the
// route is not behind RequireAuth.
func actorID(c *fiber.Ctx) string {
	if id, ok := c.Locals(middleware.LocalStaffID).(string); ok && id != "" {
		return id
	}
	return service.SystemActor
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}
