package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"go-popup-ledger/internal/repository"
	"go-popup-ledger/pkg/jwt"
)

// Locals keys set by RequireAuth.
const (
	LocalStaffID    = "staff_id"
	LocalStaffName  = "staff_name"
	LocalPrivileges = "privileges"
)

// RequireAuth validates the bearer token issued by the identity provider
// and puts the staff identity on the request. When staffRepo is set the
// staff record must exist and be active.
func RequireAuth(signer *jwt.Signer, staffRepo repository.StaffRepository, log *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		claims, err := signer.ValidateToken(parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		if staffRepo != nil {
			staff, err := staffRepo.FindByID(nil, claims.StaffID)
			if err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Staff not found"})
			}
			if !staff.IsActive {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Staff account is inactive"})
			}
			if err := staffRepo.UpdateLastSeen(nil, staff.ID); err != nil {
				log.WithError(err).WithField("staff_id", staff.ID).Warn("failed to update last seen")
			}
		}

		c.Locals(LocalStaffID, claims.StaffID.String())
		c.Locals(LocalStaffName, claims.Name)
		c.Locals(LocalPrivileges, claims.Privileges)

		return c.Next()
	}
}

// RequirePrivilege checks if the authenticated staff member has the required privilege
func RequirePrivilege(requiredPrivilege string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		privileges, ok := c.Locals(LocalPrivileges).([]string)
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No privileges found"})
		}

		for _, p := range privileges {
			if p == requiredPrivilege {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: requires '" + requiredPrivilege + "' privilege",
		})
	}
}

// RequireAnyPrivilege checks if the staff member has at least one of the specified privileges
func RequireAnyPrivilege(requiredPrivileges ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		privileges, ok := c.Locals(LocalPrivileges).([]string)
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No privileges found"})
		}

		for _, have := range privileges {
			for _, want := range requiredPrivileges {
				if have == want {
					return c.Next()
				}
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: requires one of " + strings.Join(requiredPrivileges, ", ") + " privileges",
		})
	}
}
