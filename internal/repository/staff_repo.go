package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"go-popup-ledger/internal/model"
)

type StaffRepository interface {
	FindByID(tx *gorm.DB, id uuid.UUID) (*model.Staff, error)
	FindByCode(tx *gorm.DB, code string) (*model.Staff, error)
	FindAll(tx *gorm.DB, activeOnly bool) ([]model.Staff, error)
	Create(tx *gorm.DB, staff *model.Staff) error
	UpdatePrivileges(tx *gorm.DB, staffID uuid.UUID, privileges []model.Privilege) error
	UpdateLastSeen(tx *gorm.DB, staffID uuid.UUID) error
}

type staffRepo struct {
	db *gorm.DB
}

func NewStaffRepo(db *gorm.DB) StaffRepository {
	return &staffRepo{db}
}

func (r *staffRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *staffRepo) FindByID(tx *gorm.DB, id uuid.UUID) (*model.Staff, error) {
	var staff model.Staff
	if err := r.conn(tx).Preload("Role").Preload("Privileges").First(&staff, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "staff.find", "staff", id)
	}
	return &staff, nil
}

func (r *staffRepo) FindByCode(tx *gorm.DB, code string) (*model.Staff, error) {
	var staff model.Staff
	if err := r.conn(tx).Preload("Role").Preload("Privileges").Where("code = ?", code).First(&staff).Error; err != nil {
		return nil, notFound(err, "staff.find", "staff", code)
	}
	return &staff, nil
}

func (r *staffRepo) FindAll(tx *gorm.DB, activeOnly bool) ([]model.Staff, error) {
	var staff []model.Staff
	q := r.conn(tx).Preload("Role").Preload("Privileges").Order("code ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&staff).Error; err != nil {
		return nil, err
	}
	return staff, nil
}

func (r *staffRepo) Create(tx *gorm.DB, staff *model.Staff) error {
	return r.conn(tx).Create(staff).Error
}

func (r *staffRepo) UpdatePrivileges(tx *gorm.DB, staffID uuid.UUID, privileges []model.Privilege) error {
	db := r.conn(tx)
	var staff model.Staff
	if err := db.First(&staff, "id = ?", staffID).Error; err != nil {
		return notFound(err, "staff.find", "staff", staffID)
	}
	return db.Model(&staff).Association("Privileges").Replace(privileges)
}

func (r *staffRepo) UpdateLastSeen(tx *gorm.DB, staffID uuid.UUID) error {
	return r.conn(tx).Model(&model.Staff{}).Where("id = ?", staffID).Update("last_seen_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}
