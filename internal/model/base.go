package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel handles ID (UUID) and standard Audit Trails
type BaseModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key;" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Actor stamps, filled from the identity collaborator's staff id
	CreatedBy string `gorm:"type:varchar(64)" json:"created_by"`
	UpdatedBy string `gorm:"type:varchar(64)" json:"updated_by"`
	DeletedBy string `gorm:"type:varchar(64)" json:"-"`
}

// BeforeCreate generates the UUID unless the caller already chose one.
func (base *BaseModel) BeforeCreate(tx *gorm.DB) (err error) {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	return
}

// Stamp sets both audit actors for a new row.
func (base *BaseModel) Stamp(actorID string) {
	base.CreatedBy = actorID
	base.UpdatedBy = actorID
}
