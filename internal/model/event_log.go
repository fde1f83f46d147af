package model

import (
	"time"

	"github.com/google/uuid"
)

// Event log actions.
const (
	ActionChannelCreated     = "channel_created"
	ActionChannelTransition  = "channel_transition"
	ActionPaymentTransition  = "payment_transition"
	ActionRequestCreated     = "stock_request_created"
	ActionRequestTransition  = "stock_request_transition"
	ActionRequestReleased    = "stock_request_released"
	ActionStockReceived      = "stock_received"
	ActionSaleRecorded       = "sale_recorded"
	ActionSaleCancelled      = "sale_cancelled"
	ActionCloseOut           = "close_out"
	ActionReturnShipped      = "return_shipped"
	ActionReturnConfirmed    = "return_confirmed"
	ActionStaffAssigned      = "staff_assigned"
	ActionStaffUnassigned    = "staff_unassigned"
	ActionWarehouseRestocked = "warehouse_restocked"
)

// EventLog is the append-only audit trail. Rows are inserted, never updated.
type EventLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	ChannelID  *uuid.UUID `gorm:"type:uuid;index" json:"channel_id,omitempty"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType string     `gorm:"type:varchar(50);not null" json:"entity_type"`
	EntityID   uuid.UUID  `gorm:"type:uuid;not null" json:"entity_id"`
	Detail     string     `gorm:"type:text" json:"detail"`
	ActorID    string     `gorm:"type:varchar(64)" json:"actor_id"`
	CreatedAt  time.Time  `json:"created_at"`
}
