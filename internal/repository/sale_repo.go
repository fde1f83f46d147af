package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go-popup-ledger/internal/model"
)

type SaleRepository interface {
	Create(tx *gorm.DB, sale *model.Sale) error
	FindByID(tx *gorm.DB, id uuid.UUID) (*model.Sale, error)
	FindByChannel(tx *gorm.DB, channelID uuid.UUID) ([]model.Sale, error)
	MarkCancelled(tx *gorm.DB, id uuid.UUID, reason, actorID string, at time.Time) (bool, error)
	GetSalesSummary(tx *gorm.DB, channelID uuid.UUID) (*SalesSummary, error)
	GetDailySales(tx *gorm.DB, channelID uuid.UUID, startDate, endDate time.Time) ([]DailySales, error)
}

// SalesSummary aggregates a channel's sales for the dashboard.
type SalesSummary struct {
	ActiveCount    int64           `json:"active_count"`
	CancelledCount int64           `json:"cancelled_count"`
	GrossTotal     decimal.Decimal `json:"gross_total"`
	UnitsSold      int64           `json:"units_sold"`
}

// DailySales is one point of the sales chart.
type DailySales struct {
	Date  string          `json:"date"`
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type saleRepo struct {
	db *gorm.DB
}

func NewSaleRepo(db *gorm.DB) SaleRepository {
	return &saleRepo{db}
}

func (r *saleRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create inserts the sale together with its items and adjustments.
func (r *saleRepo) Create(tx *gorm.DB, sale *model.Sale) error {
	return r.conn(tx).Create(sale).Error
}

func (r *saleRepo) FindByID(tx *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	err := r.conn(tx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("barcode ASC") }).
		Preload("Adjustments").
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "sale.find", "sale", id)
	}
	return &sale, nil
}

func (r *saleRepo) FindByChannel(tx *gorm.DB, channelID uuid.UUID) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.conn(tx).
		Preload("Items").
		Preload("Adjustments").
		Where("channel_id = ?", channelID).
		Order("bill_code ASC").
		Find(&sales).Error
	return sales, err
}

// MarkCancelled flips an active sale; false means it was not active.
func (r *saleRepo) MarkCancelled(tx *gorm.DB, id uuid.UUID, reason, actorID string, at time.Time) (bool, error) {
	res := r.conn(tx).Model(&model.Sale{}).
		Where("id = ? AND status = ?", id, model.SaleActive).
		Updates(map[string]interface{}{
			"status":        model.SaleCancelled,
			"cancel_reason": reason,
			"cancelled_at":  at,
			"cancelled_by":  actorID,
			"updated_by":    actorID,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *saleRepo) GetSalesSummary(tx *gorm.DB, channelID uuid.UUID) (*SalesSummary, error) {
	db := r.conn(tx)
	summary := SalesSummary{GrossTotal: decimal.Zero}

	err := db.Model(&model.Sale{}).
		Where("channel_id = ? AND status = ?", channelID, model.SaleActive).
		Count(&summary.ActiveCount).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&model.Sale{}).
		Where("channel_id = ? AND status = ?", channelID, model.SaleCancelled).
		Count(&summary.CancelledCount).Error
	if err != nil {
		return nil, err
	}

	var gross decimal.NullDecimal
	err = db.Model(&model.Sale{}).
		Where("channel_id = ? AND status = ?", channelID, model.SaleActive).
		Select("SUM(total_amount)").
		Row().Scan(&gross)
	if err != nil {
		return nil, err
	}
	if gross.Valid {
		summary.GrossTotal = gross.Decimal
	}

	err = db.Model(&model.SaleItem{}).
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.channel_id = ? AND sales.status = ? AND sales.deleted_at IS NULL", channelID, model.SaleActive).
		Select("COALESCE(SUM(sale_items.quantity), 0)").
		Scan(&summary.UnitsSold).Error
	if err != nil {
		return nil, err
	}

	return &summary, nil
}

func (r *saleRepo) GetDailySales(tx *gorm.DB, channelID uuid.UUID, startDate, endDate time.Time) ([]DailySales, error) {
	var results []DailySales

	rows, err := r.conn(tx).Model(&model.Sale{}).
		Select("DATE(created_at) AS date, COUNT(*) AS count, SUM(total_amount) AS total").
		Where("channel_id = ? AND status = ?", channelID, model.SaleActive).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data DailySales
		var date interface{}
		if err := rows.Scan(&date, &data.Count, &data.Total); err != nil {
			return nil, err
		}
		data.Date = formatDate(date)
		results = append(results, data)
	}

	return results, rows.Err()
}

// formatDate normalizes DATE() output, which postgres returns as a time
// and sqlite as text.
func formatDate(v interface{}) string {
	switch d := v.(type) {
	case time.Time:
		return d.Format("2006-01-02")
	case []byte:
		return string(d)
	case string:
		return d
	default:
		return ""
	}
}
