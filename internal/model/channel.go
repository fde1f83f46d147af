package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Channel is a pop-up sales event. It is never deleted; it ends in one of
// the terminal statuses instead.
type Channel struct {
	BaseModel
	Code               string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"code"`
	Name               string          `gorm:"type:varchar(255);not null" json:"name"`
	Location           string          `gorm:"type:varchar(255)" json:"location"`
	StartDate          time.Time       `gorm:"type:date;not null" json:"start_date"`
	EndDate            time.Time       `gorm:"type:date;not null" json:"end_date"`
	Status             ChannelStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentStatus      PaymentStatus   `gorm:"type:varchar(20);not null;default:'none'" json:"payment_status"`
	SalesTarget        decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"sales_target"`
	ResponsibleStaffID *uuid.UUID      `gorm:"type:uuid" json:"responsible_staff_id,omitempty"`
	ResponsibleStaff   *Staff          `gorm:"foreignKey:ResponsibleStaffID" json:"responsible_staff,omitempty"`
	CancelReason       string          `gorm:"type:text" json:"cancel_reason,omitempty"`

	Assignments []StaffAssignment `gorm:"foreignKey:ChannelID" json:"assignments,omitempty"`
}

// StaffAssignment links a staff member to a channel. At most one
// assignment per channel carries IsMain; the service keeps it that way.
type StaffAssignment struct {
	BaseModel
	ChannelID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_assignment_channel_staff" json:"channel_id"`
	StaffID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_assignment_channel_staff" json:"staff_id"`
	Staff     *Staff    `gorm:"foreignKey:StaffID" json:"staff,omitempty"`
	IsMain    bool      `gorm:"default:false" json:"is_main"`
}
