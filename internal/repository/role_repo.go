package repository

import (
	"errors"

	"gorm.io/gorm"

	"go-popup-ledger/internal/model"
)

type RoleRepository interface {
	FindAll() ([]model.Role, error)
	FindByCode(code string) (*model.Role, error)
	SeedDefaults() error
	AssignDefaultPrivileges() error
}

type roleRepo struct {
	db *gorm.DB
}

func NewRoleRepo(db *gorm.DB) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) FindAll() ([]model.Role, error) {
	var roles []model.Role
	err := r.db.Preload("Privileges").Order("id ASC").Find(&roles).Error
	return roles, err
}

func (r *roleRepo) FindByCode(code string) (*model.Role, error) {
	var role model.Role
	err := r.db.Preload("Privileges").Where("code = ?", code).First(&role).Error
	if err != nil {
		return nil, notFound(err, "role.find", "role", code)
	}
	return &role, nil
}

func (r *roleRepo) SeedDefaults() error {
	for _, defaultRole := range model.DefaultRoles {
		var existingRole model.Role
		err := r.db.Where("code = ?", defaultRole.Code).First(&existingRole).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			role := defaultRole
			if err := r.db.Create(&role).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}
	return nil
}

// AssignDefaultPrivileges fills roles that have no privileges yet. ADMIN
// gets every privilege; edits made later by an operator are left alone.
func (r *roleRepo) AssignDefaultPrivileges() error {
	var all []model.Privilege
	if err := r.db.Find(&all).Error; err != nil {
		return err
	}
	byCode := make(map[string]model.Privilege, len(all))
	for _, p := range all {
		byCode[p.Code] = p
	}

	for _, defaultRole := range model.DefaultRoles {
		role, err := r.FindByCode(defaultRole.Code)
		if err != nil {
			return err
		}
		if len(role.Privileges) > 0 {
			continue
		}

		grant := all
		if role.Code != model.RoleAdmin {
			grant = nil
			for _, code := range model.DefaultRolePrivileges[role.Code] {
				if p, ok := byCode[code]; ok {
					grant = append(grant, p)
				}
			}
		}
		if len(grant) == 0 {
			continue
		}
		if err := r.db.Model(role).Association("Privileges").Replace(grant); err != nil {
			return err
		}
	}
	return nil
}
