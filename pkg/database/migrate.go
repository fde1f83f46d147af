package database

import (
	"gorm.io/gorm"

	"go-popup-ledger/internal/model"
)

// Models lists every table owned by this service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.Privilege{},
		&model.Role{},
		&model.Staff{},
		&model.Channel{},
		&model.StaffAssignment{},
		&model.StockRequest{},
		&model.StockRequestItem{},
		&model.Shipment{},
		&model.WarehouseStock{},
		&model.ChannelStock{},
		&model.Sequence{},
		&model.Sale{},
		&model.SaleItem{},
		&model.SaleAdjustment{},
		&model.ReturnSummary{},
		&model.ReturnItem{},
		&model.EventLog{},
	}
}

// Migrate runs AutoMigrate for all models. Production deployments may
// prefer a versioned migration tool; the schema here is the reference.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
