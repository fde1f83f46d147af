package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-popup-ledger/internal/model"
)

// SequenceRepository hands out gap-free running numbers. Next must run
// inside the caller's transaction so a rollback also returns the number.
type SequenceRepository interface {
	Next(tx *gorm.DB, name string) (int64, error)
	Current(tx *gorm.DB, name string) (int64, error)
}

type sequenceRepo struct {
	db *gorm.DB
}

func NewSequenceRepo(db *gorm.DB) SequenceRepository {
	return &sequenceRepo{db}
}

func (r *sequenceRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *sequenceRepo) Next(tx *gorm.DB, name string) (int64, error) {
	db := r.conn(tx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&model.Sequence{Name: name}).Error
	if err != nil {
		return 0, err
	}

	// The increment takes the row lock; concurrent callers queue here.
	err = db.Model(&model.Sequence{}).
		Where("name = ?", name).
		Update("value", gorm.Expr("value + 1")).Error
	if err != nil {
		return 0, err
	}
	return r.Current(db, name)
}

func (r *sequenceRepo) Current(tx *gorm.DB, name string) (int64, error) {
	var seq model.Sequence
	err := r.conn(tx).Where("name = ?", name).Limit(1).Find(&seq).Error
	return seq.Value, err
}
