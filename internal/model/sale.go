package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is a POS transaction. It is immutable once created; cancellation
// flips Status and is compensated in the stock ledger.
type Sale struct {
	BaseModel
	ChannelID       *uuid.UUID       `gorm:"type:uuid;index" json:"channel_id,omitempty"`
	BillCode        string           `gorm:"type:varchar(64);uniqueIndex;not null" json:"bill_code"`
	Status          SaleStatus       `gorm:"type:varchar(20);not null;index" json:"status"`
	Subtotal        decimal.Decimal  `gorm:"type:decimal(20,2);not null" json:"subtotal"`
	AdjustmentTotal decimal.Decimal  `gorm:"type:decimal(20,2);not null" json:"adjustment_total"`
	BillDiscount    decimal.Decimal  `gorm:"type:decimal(20,2);not null" json:"bill_discount"`
	TotalAmount     decimal.Decimal  `gorm:"type:decimal(20,2);not null" json:"total_amount"`
	PaymentMethod   string           `gorm:"type:varchar(20)" json:"payment_method"`
	CancelReason    string           `gorm:"type:text" json:"cancel_reason,omitempty"`
	CancelledAt     *time.Time       `json:"cancelled_at,omitempty"`
	CancelledBy     string           `gorm:"type:varchar(64)" json:"cancelled_by,omitempty"`
	Items           []SaleItem       `gorm:"foreignKey:SaleID" json:"items"`
	Adjustments     []SaleAdjustment `gorm:"foreignKey:SaleID" json:"adjustments,omitempty"`
}

type SaleItem struct {
	BaseModel
	SaleID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	Barcode      string          `gorm:"type:varchar(64);not null" json:"barcode"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"unit_price"`
	LineDiscount decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"line_discount"`
	IsFreebie    bool            `gorm:"default:false" json:"is_freebie"`
	LineTotal    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"line_total"`
}

// SaleAdjustment is a signed bill-level amount (service fee, rounding...).
type SaleAdjustment struct {
	BaseModel
	SaleID uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	Label  string          `gorm:"type:varchar(100)" json:"label"`
	Amount decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
}

// Sequence is a named monotonic counter; incremented under the row lock of
// the surrounding transaction.
type Sequence struct {
	Name  string `gorm:"type:varchar(100);primaryKey" json:"name"`
	Value int64  `gorm:"not null;default:0" json:"value"`
}
