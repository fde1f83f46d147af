package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-popup-ledger/internal/middleware"
	"go-popup-ledger/internal/model"
	"go-popup-ledger/internal/repository"
	"go-popup-ledger/internal/testutil"
	"go-popup-ledger/pkg/jwt"
	"go-popup-ledger/pkg/logger"
)

func TestRequireAuth_StaffRecord(t *testing.T) {
	db := testutil.NewDB(t)
	staffRepo := repository.NewStaffRepo(db)
	signer := jwt.NewSigner("secret", time.Hour)

	active := &model.Staff{Code: "ACT", FullName: "Active", IsActive: true}
	require.NoError(t, staffRepo.Create(nil, active))
	idle := &model.Staff{Code: "IDLE", FullName: "Idle", IsActive: true}
	require.NoError(t, staffRepo.Create(nil, idle))
	require.NoError(t, db.Model(&model.Staff{}).Where("id = ?", idle.ID).Update("is_active", false).Error)

	app := fiber.New()
	app.Get("/me",
		middleware.RequireAuth(signer, staffRepo, logger.Discard()),
		middleware.RequireAnyPrivilege(model.PrivSaleCreate, model.PrivChannelView),
		func(c *fiber.Ctx) error {
			return c.SendString(c.Locals(middleware.LocalStaffID).(string))
		})

	do := func(staffID uuid.UUID, privileges ...string) *http.Response {
		tok, err := signer.GenerateToken(staffID, "x", model.RoleCashier, privileges)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	assert.Equal(t, fiber.StatusOK, do(active.ID, model.PrivChannelView).StatusCode)
	assert.Equal(t, fiber.StatusForbidden, do(active.ID, model.PrivStaffManage).StatusCode)
	assert.Equal(t, fiber.StatusForbidden, do(idle.ID, model.PrivChannelView).StatusCode)
	assert.Equal(t, fiber.StatusUnauthorized, do(uuid.New(), model.PrivChannelView).StatusCode)

	seen, err := staffRepo.FindByID(nil, active.ID)
	require.NoError(t, err)
	assert.NotNil(t, seen.LastSeenAt)
}

func TestRequireAuth_HeaderFormat(t *testing.T) {
	app := fiber.New()
	app.Get("/me", middleware.RequireAuth(jwt.NewSigner("secret", time.Hour), nil, logger.Discard()), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	for _, header := range []string{"", "Token abc", "Bearer", "Bearer a b"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "header %q", header)
	}
}
