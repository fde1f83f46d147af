package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"go-popup-ledger/internal/apperror"
	"go-popup-ledger/internal/model"
	"go-popup-ledger/internal/repository"
)

// StaffService mirrors staff records from the identity provider so they
// can be assigned to channels. Credentials are not handled here.
type StaffService interface {
	RegisterStaff(ctx context.Context, req *RegisterStaffRequest, creatorID string) (*model.StaffResponse, error)
	UpdateStaffPrivileges(ctx context.Context, staffID uuid.UUID, privilegeCodes []string, updaterID string) (*model.StaffResponse, error)
	GetAllStaff(ctx context.Context, activeOnly bool) ([]model.StaffResponse, error)
	GetStaffByID(ctx context.Context, id uuid.UUID) (*model.StaffResponse, error)
}

type RegisterStaffRequest struct {
	ID       uuid.UUID `json:"id"`
	Code     string    `json:"code" validate:"required,max=32"`
	FullName string    `json:"full_name" validate:"required,max=255"`
	Email    string    `json:"email" validate:"omitempty,email"`
	RoleCode string    `json:"role_code" validate:"required"`
}

type staffService struct {
	staffRepo     repository.StaffRepository
	privilegeRepo repository.PrivilegeRepository
	roleRepo      repository.RoleRepository
	txRunner      repository.TxRunner
	db            *gorm.DB
}

func NewStaffService(
	staffRepo repository.StaffRepository,
	privilegeRepo repository.PrivilegeRepository,
	roleRepo repository.RoleRepository,
	txRunner repository.TxRunner,
	db *gorm.DB,
) StaffService {
	return &staffService{
		staffRepo:     staffRepo,
		privilegeRepo: privilegeRepo,
		roleRepo:      roleRepo,
		txRunner:      txRunner,
		db:            db,
	}
}

// RegisterStaff creates the local record with its role's privileges. The
// caller may pass the identity provider's id to keep both in sync.
func (s *staffService) RegisterStaff(ctx context.Context, req *RegisterStaffRequest, creatorID string) (*model.StaffResponse, error) {
	const op = "staff.register"
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if err := validateInput(op, req); err != nil {
		return nil, err
	}

	role, err := s.roleRepo.FindByCode(req.RoleCode)
	if err != nil {
		return nil, readErr(op, err)
	}

	var staff *model.Staff
	err = s.txRunner.RunAtomic(ctx, op, func(tx *gorm.DB) error {
		if _, err := s.staffRepo.FindByCode(tx, req.Code); err == nil {
			return apperror.Conflict(op, "staff code %s already exists", req.Code)
		} else if !apperror.Is(err, apperror.KindNotFound) {
			return err
		}

		staff = &model.Staff{
			Code:       req.Code,
			FullName:   req.FullName,
			Email:      req.Email,
			RoleID:     &role.ID,
			IsActive:   true,
			Privileges: role.Privileges,
		}
		staff.ID = req.ID
		staff.Stamp(actorOr(creatorID))
		return s.staffRepo.Create(tx, staff)
	})
	if err != nil {
		return nil, err
	}
	staff.Role = role
	resp := staff.ToResponse()
	return &resp, nil
}

func (s *staffService) UpdateStaffPrivileges(ctx context.Context, staffID uuid.UUID, privilegeCodes []string, updaterID string) (*model.StaffResponse, error) {
	const op = "staff.update_privileges"
	seen := make(map[string]bool, len(privilegeCodes))
	codes := privilegeCodes[:0:0]
	for _, c := range privilegeCodes {
		if !seen[c] {
			seen[c] = true
			codes = append(codes, c)
		}
	}
	privilegeCodes = codes

	privileges, err := s.privilegeRepo.FindByCodes(privilegeCodes)
	if err != nil {
		return nil, apperror.Storage(op, err)
	}
	if len(privileges) != len(privilegeCodes) {
		return nil, apperror.Validation(op, "unknown privilege code in %v", privilegeCodes)
	}

	var staff *model.Staff
	err = s.txRunner.RunAtomic(ctx, op, func(tx *gorm.DB) error {
		if err := s.staffRepo.UpdatePrivileges(tx, staffID, privileges); err != nil {
			return err
		}
		err := tx.Model(&model.Staff{}).Where("id = ?", staffID).Update("updated_by", actorOr(updaterID)).Error
		if err != nil {
			return err
		}
		staff, err = s.staffRepo.FindByID(tx, staffID)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := staff.ToResponse()
	return &resp, nil
}

func (s *staffService) GetAllStaff(ctx context.Context, activeOnly bool) ([]model.StaffResponse, error) {
	staff, err := s.staffRepo.FindAll(s.db.WithContext(ctx), activeOnly)
	if err != nil {
		return nil, readErr("staff.list", err)
	}

	responses := make([]model.StaffResponse, len(staff))
	for i, st := range staff {
		responses[i] = st.ToResponse()
	}
	return responses, nil
}

func (s *staffService) GetStaffByID(ctx context.Context, id uuid.UUID) (*model.StaffResponse, error) {
	staff, err := s.staffRepo.FindByID(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, readErr("staff.get", err)
	}
	response := staff.ToResponse()
	return &response, nil
}
