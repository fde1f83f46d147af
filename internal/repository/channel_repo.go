package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"go-popup-ledger/internal/model"
)

type ChannelRepository interface {
	Create(tx *gorm.DB, channel *model.Channel) error
	FindByID(tx *gorm.DB, id uuid.UUID) (*model.Channel, error)
	FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Channel, error)
	FindByCode(tx *gorm.DB, code string) (*model.Channel, error)
	FindAll(tx *gorm.DB, status model.ChannelStatus) ([]model.Channel, error)
	UpdateStatus(tx *gorm.DB, id uuid.UUID, from, to model.ChannelStatus, actorID, reason string) (bool, error)
	UpdatePaymentStatus(tx *gorm.DB, id uuid.UUID, from, to model.PaymentStatus, actorID string) (bool, error)

	FindAssignments(tx *gorm.DB, channelID uuid.UUID) ([]model.StaffAssignment, error)
	FindAssignment(tx *gorm.DB, channelID, staffID uuid.UUID) (*model.StaffAssignment, error)
	CreateAssignment(tx *gorm.DB, assignment *model.StaffAssignment) error
	SetMain(tx *gorm.DB, channelID, staffID uuid.UUID, actorID string) error
	ClearMain(tx *gorm.DB, channelID uuid.UUID, actorID string) error
	DeleteAssignment(tx *gorm.DB, channelID, staffID uuid.UUID) error
	FindOverlappingChannels(tx *gorm.DB, staffID uuid.UUID, start, end time.Time, excludeID uuid.UUID, skip []model.ChannelStatus) ([]model.Channel, error)
}

type channelRepo struct {
	db *gorm.DB
}

func NewChannelRepo(db *gorm.DB) ChannelRepository {
	return &channelRepo{db}
}

func (r *channelRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *channelRepo) Create(tx *gorm.DB, channel *model.Channel) error {
	return r.conn(tx).Create(channel).Error
}

func (r *channelRepo) FindByID(tx *gorm.DB, id uuid.UUID) (*model.Channel, error) {
	var channel model.Channel
	err := r.conn(tx).
		Preload("ResponsibleStaff").
		Preload("Assignments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Assignments.Staff").
		First(&channel, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "channel.find", "channel", id)
	}
	return &channel, nil
}

// FindByIDForUpdate loads the bare row under a row lock.
func (r *channelRepo) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Channel, error) {
	var channel model.Channel
	if err := forUpdate(r.conn(tx)).First(&channel, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "channel.find", "channel", id)
	}
	return &channel, nil
}

func (r *channelRepo) FindByCode(tx *gorm.DB, code string) (*model.Channel, error) {
	var channel model.Channel
	if err := r.conn(tx).Where("code = ?", code).First(&channel).Error; err != nil {
		return nil, notFound(err, "channel.find", "channel", code)
	}
	return &channel, nil
}

// FindAll lists channels newest first; an empty status means no filter.
func (r *channelRepo) FindAll(tx *gorm.DB, status model.ChannelStatus) ([]model.Channel, error) {
	var channels []model.Channel
	q := r.conn(tx).Order("start_date DESC, code ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&channels).Error
	return channels, err
}

// UpdateStatus applies the move only if the row still holds from. A false
// result means another writer got there first.
func (r *channelRepo) UpdateStatus(tx *gorm.DB, id uuid.UUID, from, to model.ChannelStatus, actorID, reason string) (bool, error) {
	fields := map[string]interface{}{
		"status":     to,
		"updated_by": actorID,
	}
	if reason != "" && to == model.ChannelCancelled {
		fields["cancel_reason"] = reason
	}
	res := r.conn(tx).Model(&model.Channel{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	return res.RowsAffected == 1, res.Error
}

func (r *channelRepo) UpdatePaymentStatus(tx *gorm.DB, id uuid.UUID, from, to model.PaymentStatus, actorID string) (bool, error) {
	res := r.conn(tx).Model(&model.Channel{}).
		Where("id = ? AND payment_status = ?", id, from).
		Updates(map[string]interface{}{
			"payment_status": to,
			"updated_by":     actorID,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *channelRepo) FindAssignments(tx *gorm.DB, channelID uuid.UUID) ([]model.StaffAssignment, error) {
	var assignments []model.StaffAssignment
	err := r.conn(tx).Preload("Staff").
		Where("channel_id = ?", channelID).
		Order("created_at ASC").
		Find(&assignments).Error
	return assignments, err
}

func (r *channelRepo) FindAssignment(tx *gorm.DB, channelID, staffID uuid.UUID) (*model.StaffAssignment, error) {
	var assignment model.StaffAssignment
	err := r.conn(tx).Where("channel_id = ? AND staff_id = ?", channelID, staffID).First(&assignment).Error
	if err != nil {
		return nil, notFound(err, "assignment.find", "assignment for staff", staffID)
	}
	return &assignment, nil
}

func (r *channelRepo) CreateAssignment(tx *gorm.DB, assignment *model.StaffAssignment) error {
	return r.conn(tx).Create(assignment).Error
}

// SetMain makes staffID the only main assignee and mirrors it onto the
// channel's responsible person.
func (r *channelRepo) SetMain(tx *gorm.DB, channelID, staffID uuid.UUID, actorID string) error {
	db := r.conn(tx)
	if err := r.ClearMain(db, channelID, actorID); err != nil {
		return err
	}
	err := db.Model(&model.StaffAssignment{}).
		Where("channel_id = ? AND staff_id = ?", channelID, staffID).
		Updates(map[string]interface{}{"is_main": true, "updated_by": actorID}).Error
	if err != nil {
		return err
	}
	return db.Model(&model.Channel{}).
		Where("id = ?", channelID).
		Updates(map[string]interface{}{"responsible_staff_id": staffID, "updated_by": actorID}).Error
}

func (r *channelRepo) ClearMain(tx *gorm.DB, channelID uuid.UUID, actorID string) error {
	db := r.conn(tx)
	err := db.Model(&model.StaffAssignment{}).
		Where("channel_id = ? AND is_main = ?", channelID, true).
		Updates(map[string]interface{}{"is_main": false, "updated_by": actorID}).Error
	if err != nil {
		return err
	}
	return db.Model(&model.Channel{}).
		Where("id = ?", channelID).
		Updates(map[string]interface{}{"responsible_staff_id": nil, "updated_by": actorID}).Error
}

// DeleteAssignment hard-deletes so the pair can be assigned again later.
func (r *channelRepo) DeleteAssignment(tx *gorm.DB, channelID, staffID uuid.UUID) error {
	return r.conn(tx).Unscoped().
		Where("channel_id = ? AND staff_id = ?", channelID, staffID).
		Delete(&model.StaffAssignment{}).Error
}

// FindOverlappingChannels returns the channels staffID is already assigned
// to whose date range intersects [start, end]. Channels in skip are ignored.
func (r *channelRepo) FindOverlappingChannels(tx *gorm.DB, staffID uuid.UUID, start, end time.Time, excludeID uuid.UUID, skip []model.ChannelStatus) ([]model.Channel, error) {
	var channels []model.Channel
	q := r.conn(tx).Model(&model.Channel{}).
		Joins("JOIN staff_assignments sa ON sa.channel_id = channels.id AND sa.deleted_at IS NULL").
		Where("sa.staff_id = ?", staffID).
		Where("channels.id <> ?", excludeID).
		Where("channels.start_date <= ? AND channels.end_date >= ?", end, start)
	if len(skip) > 0 {
		q = q.Where("channels.status NOT IN ?", skip)
	}
	err := q.Order("channels.start_date ASC").Find(&channels).Error
	return channels, err
}
