package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"go-popup-ledger/internal/model"
)

type ReturnRepository interface {
	Create(tx *gorm.DB, summary *model.ReturnSummary) error
	FindByChannel(tx *gorm.DB, channelID uuid.UUID) (*model.ReturnSummary, error)
	Exists(tx *gorm.DB, channelID uuid.UUID) (bool, error)
	MarkSettled(tx *gorm.DB, id uuid.UUID, actorID string, at time.Time) (bool, error)
	CreateShipment(tx *gorm.DB, shipment *model.Shipment) error
}

type returnRepo struct {
	db *gorm.DB
}

func NewReturnRepo(db *gorm.DB) ReturnRepository {
	return &returnRepo{db}
}

func (r *returnRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *returnRepo) Create(tx *gorm.DB, summary *model.ReturnSummary) error {
	return r.conn(tx).Create(summary).Error
}

func (r *returnRepo) FindByChannel(tx *gorm.DB, channelID uuid.UUID) (*model.ReturnSummary, error) {
	var summary model.ReturnSummary
	err := r.conn(tx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("barcode ASC") }).
		Preload("Shipment").
		Where("channel_id = ?", channelID).
		First(&summary).Error
	if err != nil {
		return nil, notFound(err, "return.find", "return summary for channel", channelID)
	}
	return &summary, nil
}

func (r *returnRepo) Exists(tx *gorm.DB, channelID uuid.UUID) (bool, error) {
	var count int64
	err := r.conn(tx).Model(&model.ReturnSummary{}).Where("channel_id = ?", channelID).Count(&count).Error
	return count > 0, err
}

// MarkSettled flips a pending summary; false means it was already settled.
func (r *returnRepo) MarkSettled(tx *gorm.DB, id uuid.UUID, actorID string, at time.Time) (bool, error) {
	res := r.conn(tx).Model(&model.ReturnSummary{}).
		Where("id = ? AND status = ?", id, model.ReturnPending).
		Updates(map[string]interface{}{
			"status":     model.ReturnSettled,
			"settled_at": at,
			"settled_by": actorID,
			"updated_by": actorID,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *returnRepo) CreateShipment(tx *gorm.DB, shipment *model.Shipment) error {
	return r.conn(tx).Create(shipment).Error
}
