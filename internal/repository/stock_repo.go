package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-popup-ledger/internal/model"
)

// StockRepository is the persistence side of the stock ledger. Every
// mutation is a single conditional UPDATE moving quantity between buckets;
// the returned row count tells the caller whether the condition held.
type StockRepository interface {
	FindChannelStock(tx *gorm.DB, channelID uuid.UUID, barcode string) (*model.ChannelStock, error)
	FindChannelStocks(tx *gorm.DB, channelID uuid.UUID) ([]model.ChannelStock, error)
	OpenChannelStock(tx *gorm.DB, channelID uuid.UUID, barcode, actorID string) error
	AddReceived(tx *gorm.DB, channelID uuid.UUID, barcode string, qty int) (int64, error)
	SellAvailable(tx *gorm.DB, channelID uuid.UUID, barcode string, qty int) (int64, error)
	ReverseSold(tx *gorm.DB, channelID uuid.UUID, barcode string, qty int) (int64, error)
	WriteOff(tx *gorm.DB, channelID uuid.UUID, barcode string, damaged, missing int) (int64, error)
	MoveToReturned(tx *gorm.DB, channelID uuid.UUID, barcode string, qty int) (int64, error)

	FindWarehouseStock(tx *gorm.DB, barcode string) (*model.WarehouseStock, error)
	FindWarehouseStocks(tx *gorm.DB, barcodes []string) ([]model.WarehouseStock, error)
	AddWarehouse(tx *gorm.DB, barcode string, qty int, actorID string) error
	TakeWarehouse(tx *gorm.DB, barcode string, qty int) (int64, error)
}

type stockRepo struct {
	db *gorm.DB
}

func NewStockRepo(db *gorm.DB) StockRepository {
	return &stockRepo{db}
}

func (r *stockRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *stockRepo) channelRow(tx *gorm.DB, channelID uuid.UUID, barcode string) *gorm.DB {
	return r.conn(tx).Model(&model.ChannelStock{}).Where("channel_id = ? AND barcode = ?", channelID, barcode)
}

func (r *stockRepo) FindChannelStock(tx *gorm.DB, channelID uuid.UUID, barcode string) (*model.ChannelStock, error) {
	var row model.ChannelStock
	err := r.conn(tx).Where("channel_id = ? AND barcode = ?", channelID, barcode).First(&row).Error
	if err != nil {
		return nil, notFound(err, "stock.find", "channel stock for barcode", barcode)
	}
	return &row, nil
}

func (r *stockRepo) FindChannelStocks(tx *gorm.DB, channelID uuid.UUID) ([]model.ChannelStock, error) {
	var rows []model.ChannelStock
	err := r.conn(tx).Where("channel_id = ?", channelID).Order("barcode ASC").Find(&rows).Error
	return rows, err
}

// OpenChannelStock inserts an all-zero row unless one already exists.
func (r *stockRepo) OpenChannelStock(tx *gorm.DB, channelID uuid.UUID, barcode, actorID string) error {
	row := model.ChannelStock{ChannelID: channelID, Barcode: barcode}
	row.Stamp(actorID)
	return r.conn(tx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}, {Name: "barcode"}},
		DoNothing: true,
	}).Create(&row).Error
}

func (r *stockRepo) AddReceived(tx *gorm.DB, channelID uuid.UUID, barcode string, qty int) (int64, error) {
	res := r.channelRow(tx, channelID, barcode).Updates(map[string]interface{}{
		"received":  gorm.Expr("received + ?", qty),
		"available": gorm.Expr("available + ?", qty),
	})
	return res.RowsAffected, res.Error
}

// SellAvailable is the oversell guard: available only drops when it covers qty.
func (r *stockRepo) SellAvailable(tx *gorm.DB, channelID uuid.UUID, barcode string, qty int) (int64, error) {
	res := r.channelRow(tx, channelID, barcode).
		Where("available >= ?", qty).
		Updates(map[string]interface{}{
			"available": gorm.Expr("available - ?", qty),
			"sold":      gorm.Expr("sold + ?", qty),
		})
	return res.RowsAffected, res.Error
}

func (r *stockRepo) ReverseSold(tx *gorm.DB, channelID uuid.UUID, barcode string, qty int) (int64, error) {
	res := r.channelRow(tx, channelID, barcode).
		Where("sold >= ?", qty).
		Updates(map[string]interface{}{
			"available": gorm.Expr("available + ?", qty),
			"sold":      gorm.Expr("sold - ?", qty),
		})
	return res.RowsAffected, res.Error
}

func (r *stockRepo) WriteOff(tx *gorm.DB, channelID uuid.UUID, barcode string, damaged, missing int) (int64, error) {
	res := r.channelRow(tx, channelID, barcode).
		Where("available >= ?", damaged+missing).
		Updates(map[string]interface{}{
			"available": gorm.Expr("available - ?", damaged+missing),
			"damaged":   gorm.Expr("damaged + ?", damaged),
			"missing":   gorm.Expr("missing + ?", missing),
		})
	return res.RowsAffected, res.Error
}

func (r *stockRepo) MoveToReturned(tx *gorm.DB, channelID uuid.UUID, barcode string, qty int) (int64, error) {
	res := r.channelRow(tx, channelID, barcode).
		Where("available >= ?", qty).
		Updates(map[string]interface{}{
			"available": gorm.Expr("available - ?", qty),
			"returned":  gorm.Expr("returned + ?", qty),
		})
	return res.RowsAffected, res.Error
}

func (r *stockRepo) FindWarehouseStock(tx *gorm.DB, barcode string) (*model.WarehouseStock, error) {
	var row model.WarehouseStock
	if err := r.conn(tx).Where("barcode = ?", barcode).First(&row).Error; err != nil {
		return nil, notFound(err, "warehouse.find", "warehouse stock for barcode", barcode)
	}
	return &row, nil
}

func (r *stockRepo) FindWarehouseStocks(tx *gorm.DB, barcodes []string) ([]model.WarehouseStock, error) {
	var rows []model.WarehouseStock
	q := r.conn(tx).Order("barcode ASC")
	if len(barcodes) > 0 {
		q = q.Where("barcode IN ?", barcodes)
	}
	err := q.Find(&rows).Error
	return rows, err
}

// AddWarehouse credits the pool, creating the barcode's row on first use.
func (r *stockRepo) AddWarehouse(tx *gorm.DB, barcode string, qty int, actorID string) error {
	db := r.conn(tx)
	row := model.WarehouseStock{Barcode: barcode}
	row.Stamp(actorID)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "barcode"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return err
	}
	return db.Model(&model.WarehouseStock{}).
		Where("barcode = ?", barcode).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", qty),
			"updated_by": actorID,
		}).Error
}

func (r *stockRepo) TakeWarehouse(tx *gorm.DB, barcode string, qty int) (int64, error) {
	res := r.conn(tx).Model(&model.WarehouseStock{}).
		Where("barcode = ? AND quantity >= ?", barcode, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	return res.RowsAffected, res.Error
}
