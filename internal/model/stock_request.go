package model

import (
	"time"

	"github.com/google/uuid"
)

type RequestType string

const (
	RequestInitial RequestType = "INITIAL"
	RequestTopUp   RequestType = "TOPUP"
)

// StockRequest moves inventory from the warehouse into one channel.
type StockRequest struct {
	BaseModel
	ChannelID uuid.UUID          `gorm:"type:uuid;not null;index" json:"channel_id"`
	Type      RequestType        `gorm:"type:varchar(10);not null" json:"type"`
	Status    RequestStatus      `gorm:"type:varchar(20);not null;index" json:"status"`
	Note      string             `gorm:"type:text" json:"note,omitempty"`
	Items     []StockRequestItem `gorm:"foreignKey:StockRequestID" json:"items"`
	Shipment  *Shipment          `gorm:"foreignKey:StockRequestID" json:"shipment,omitempty"`
}

// StockRequestItem is one barcode line. The expected relationship
// Received <= Packed <= Allocated <= Requested is surfaced, not enforced
// by the database.
type StockRequestItem struct {
	BaseModel
	StockRequestID    uuid.UUID `gorm:"type:uuid;not null;index" json:"stock_request_id"`
	Barcode           string    `gorm:"type:varchar(64);not null" json:"barcode"`
	RequestedQuantity int       `gorm:"not null" json:"requested_quantity"`
	AllocatedQuantity int       `gorm:"not null;default:0" json:"allocated_quantity"`
	PackedQuantity    int       `gorm:"not null;default:0" json:"packed_quantity"`
	ReceivedQuantity  int       `gorm:"not null;default:0" json:"received_quantity"`
}

// Totals sums requested and allocated quantities across items.
func (r *StockRequest) Totals() (requested, allocated int) {
	for _, it := range r.Items {
		requested += it.RequestedQuantity
		allocated += it.AllocatedQuantity
	}
	return requested, allocated
}

// Shipment records carrier metadata for goods leaving the warehouse on a
// stock request, or coming back on a return summary.
type Shipment struct {
	BaseModel
	StockRequestID  *uuid.UUID `gorm:"type:uuid;index" json:"stock_request_id,omitempty"`
	ReturnSummaryID *uuid.UUID `gorm:"type:uuid;index" json:"return_summary_id,omitempty"`
	Carrier         string     `gorm:"type:varchar(100)" json:"carrier"`
	TrackingNumber  string     `gorm:"type:varchar(100)" json:"tracking_number"`
	ShippedAt       time.Time  `json:"shipped_at"`
}
