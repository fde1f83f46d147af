package model

import (
	"time"

	"github.com/google/uuid"
)

// ReturnSummary is the close-out snapshot of a channel. Only Status and the
// settlement stamps change after creation.
type ReturnSummary struct {
	BaseModel
	ChannelID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex" json:"channel_id"`
	Status    ReturnStatus `gorm:"type:varchar(20);not null" json:"status"`
	SettledAt *time.Time   `json:"settled_at,omitempty"`
	SettledBy string       `gorm:"type:varchar(64)" json:"settled_by,omitempty"`
	Items     []ReturnItem `gorm:"foreignKey:ReturnSummaryID" json:"items"`
	Shipment  *Shipment    `gorm:"foreignKey:ReturnSummaryID" json:"shipment,omitempty"`
}

type ReturnItem struct {
	BaseModel
	ReturnSummaryID   uuid.UUID `gorm:"type:uuid;not null;index" json:"return_summary_id"`
	Barcode           string    `gorm:"type:varchar(64);not null" json:"barcode"`
	ReceivedQuantity  int       `gorm:"not null" json:"received_quantity"`
	SoldQuantity      int       `gorm:"not null" json:"sold_quantity"`
	DamagedQuantity   int       `gorm:"not null" json:"damaged_quantity"`
	MissingQuantity   int       `gorm:"not null" json:"missing_quantity"`
	RemainingQuantity int       `gorm:"not null" json:"remaining_quantity"`
}

// TotalRemaining sums what is expected back at the warehouse.
func (r *ReturnSummary) TotalRemaining() int {
	total := 0
	for _, it := range r.Items {
		total += it.RemainingQuantity
	}
	return total
}
