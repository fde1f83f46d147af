package model

import "github.com/google/uuid"

// ChannelStock holds the live per-barcode counters of a channel. Rows are
// only ever mutated through the stock ledger.
//
// Conservation: Received = Sold + Damaged + Missing + Returned + Available.
type ChannelStock struct {
	BaseModel
	ChannelID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_channel_stock_barcode" json:"channel_id"`
	Barcode   string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_channel_stock_barcode" json:"barcode"`
	Received  int       `gorm:"not null;default:0" json:"received"`
	Available int       `gorm:"not null;default:0" json:"available"`
	Sold      int       `gorm:"not null;default:0" json:"sold"`
	Damaged   int       `gorm:"not null;default:0" json:"damaged"`
	Missing   int       `gorm:"not null;default:0" json:"missing"`
	Returned  int       `gorm:"not null;default:0" json:"returned"`
}

// Balanced reports whether the conservation law holds for this row.
func (s ChannelStock) Balanced() bool {
	if s.Available < 0 || s.Sold < 0 || s.Damaged < 0 || s.Missing < 0 || s.Returned < 0 {
		return false
	}
	return s.Received == s.Sold+s.Damaged+s.Missing+s.Returned+s.Available
}

// WarehouseStock is the central pool that allocations draw from and
// confirmed returns flow back into.
type WarehouseStock struct {
	BaseModel
	Barcode  string `gorm:"type:varchar(64);uniqueIndex;not null" json:"barcode"`
	Quantity int    `gorm:"not null;default:0" json:"quantity"`
}
