package service_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-popup-ledger/internal/apperror"
	"go-popup-ledger/internal/model"
	"go-popup-ledger/internal/repository"
	"go-popup-ledger/internal/service"
	"go-popup-ledger/pkg/logger"
)

func TestStaffRegistration(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, repository.Seed(f.db, logger.Discard()))

	id := uuid.New()
	resp, err := f.staff.RegisterStaff(f.ctx, &service.RegisterStaffRequest{
		ID:       id,
		Code:     "kasir-01",
		FullName: "Sari",
		Email:    "sari@example.com",
		RoleCode: model.RoleCashier,
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, id, resp.ID)
	assert.Equal(t, "KASIR-01", resp.Code)
	assert.True(t, resp.IsActive)
	assert.ElementsMatch(t, model.DefaultRolePrivileges[model.RoleCashier], resp.Privileges)

	_, err = f.staff.RegisterStaff(f.ctx, &service.RegisterStaffRequest{
		Code: "KASIR-01", FullName: "Other", RoleCode: model.RoleCashier,
	}, "admin")
	assert.True(t, apperror.Is(err, apperror.KindConflict), "got %v", err)

	_, err = f.staff.RegisterStaff(f.ctx, &service.RegisterStaffRequest{
		Code: "X1", FullName: "Nobody", RoleCode: "JANITOR",
	}, "admin")
	assert.True(t, apperror.Is(err, apperror.KindNotFound), "got %v", err)

	_, err = f.staff.RegisterStaff(f.ctx, &service.RegisterStaffRequest{
		Code: "X2", FullName: "Bad Mail", Email: "nope", RoleCode: model.RoleCashier,
	}, "admin")
	assert.True(t, apperror.Is(err, apperror.KindValidation), "got %v", err)

	all, err := f.staff.GetAllStaff(f.ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdateStaffPrivileges(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, repository.Seed(f.db, logger.Discard()))

	resp, err := f.staff.RegisterStaff(f.ctx, &service.RegisterStaffRequest{
		Code: "WH-01", FullName: "Dedi", RoleCode: model.RoleWarehouse,
	}, "admin")
	require.NoError(t, err)

	updated, err := f.staff.UpdateStaffPrivileges(f.ctx, resp.ID,
		[]string{model.PrivChannelView, model.PrivReturnConfirm, model.PrivChannelView}, "admin")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{model.PrivChannelView, model.PrivReturnConfirm}, updated.Privileges)

	_, err = f.staff.UpdateStaffPrivileges(f.ctx, resp.ID, []string{"root:everything"}, "admin")
	assert.True(t, apperror.Is(err, apperror.KindValidation), "got %v", err)

	got, err := f.staff.GetStaffByID(f.ctx, resp.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{model.PrivChannelView, model.PrivReturnConfirm}, got.Privileges)
	require.NotNil(t, got.Role)
	assert.Equal(t, model.RoleWarehouse, got.Role.Code)

	_, err = f.staff.GetStaffByID(f.ctx, uuid.New())
	assert.True(t, apperror.Is(err, apperror.KindNotFound), "got %v", err)
}
