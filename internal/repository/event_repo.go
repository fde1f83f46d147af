package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"go-popup-ledger/internal/model"
)

// EventRepository writes the append-only audit trail.
type EventRepository interface {
	Append(tx *gorm.DB, event *model.EventLog) error
	FindByChannel(tx *gorm.DB, channelID uuid.UUID, limit int) ([]model.EventLog, error)
}

type eventRepo struct {
	db *gorm.DB
}

func NewEventRepo(db *gorm.DB) EventRepository {
	return &eventRepo{db}
}

func (r *eventRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *eventRepo) Append(tx *gorm.DB, event *model.EventLog) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return r.conn(tx).Create(event).Error
}

// FindByChannel returns the newest entries first; limit <= 0 means all.
func (r *eventRepo) FindByChannel(tx *gorm.DB, channelID uuid.UUID, limit int) ([]model.EventLog, error) {
	var events []model.EventLog
	q := r.conn(tx).Where("channel_id = ?", channelID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&events).Error
	return events, err
}
