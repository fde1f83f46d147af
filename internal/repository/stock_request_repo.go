package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"go-popup-ledger/internal/model"
)

type StockRequestRepository interface {
	Create(tx *gorm.DB, request *model.StockRequest) error
	FindByID(tx *gorm.DB, id uuid.UUID) (*model.StockRequest, error)
	FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.StockRequest, error)
	FindByChannel(tx *gorm.DB, channelID uuid.UUID) ([]model.StockRequest, error)
	FindLatest(tx *gorm.DB, channelID uuid.UUID, reqType model.RequestType) (*model.StockRequest, error)
	CountByStatus(tx *gorm.DB, channelID uuid.UUID, reqType model.RequestType, statuses []model.RequestStatus) (int64, error)
	Barcodes(tx *gorm.DB, channelID uuid.UUID) ([]string, error)
	UpdateStatus(tx *gorm.DB, id uuid.UUID, from, to model.RequestStatus, actorID string) (bool, error)
	UpdateItem(tx *gorm.DB, item *model.StockRequestItem) error
	CreateShipment(tx *gorm.DB, shipment *model.Shipment) error
}

type stockRequestRepo struct {
	db *gorm.DB
}

func NewStockRequestRepo(db *gorm.DB) StockRequestRepository {
	return &stockRequestRepo{db}
}

func (r *stockRequestRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func itemsByBarcode(db *gorm.DB) *gorm.DB {
	return db.Order("barcode ASC")
}

func (r *stockRequestRepo) Create(tx *gorm.DB, request *model.StockRequest) error {
	return r.conn(tx).Create(request).Error
}

func (r *stockRequestRepo) FindByID(tx *gorm.DB, id uuid.UUID) (*model.StockRequest, error) {
	var request model.StockRequest
	err := r.conn(tx).
		Preload("Items", itemsByBarcode).
		Preload("Shipment").
		First(&request, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "stock_request.find", "stock request", id)
	}
	return &request, nil
}

func (r *stockRequestRepo) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.StockRequest, error) {
	var request model.StockRequest
	err := forUpdate(r.conn(tx)).First(&request, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "stock_request.find", "stock request", id)
	}
	if err := r.conn(tx).Scopes(itemsByBarcode).Where("stock_request_id = ?", id).Find(&request.Items).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *stockRequestRepo) FindByChannel(tx *gorm.DB, channelID uuid.UUID) ([]model.StockRequest, error) {
	var requests []model.StockRequest
	err := r.conn(tx).
		Preload("Items", itemsByBarcode).
		Preload("Shipment").
		Where("channel_id = ?", channelID).
		Order("created_at ASC").
		Find(&requests).Error
	return requests, err
}

// FindLatest returns the most recent non-cancelled request of reqType.
func (r *stockRequestRepo) FindLatest(tx *gorm.DB, channelID uuid.UUID, reqType model.RequestType) (*model.StockRequest, error) {
	var request model.StockRequest
	err := r.conn(tx).
		Preload("Items", itemsByBarcode).
		Where("channel_id = ? AND type = ? AND status <> ?", channelID, reqType, model.RequestCancelled).
		Order("created_at DESC").
		First(&request).Error
	if err != nil {
		return nil, notFound(err, "stock_request.find", "live request of type", reqType)
	}
	return &request, nil
}

// CountByStatus counts requests of the channel in any of statuses. An empty
// reqType matches both types.
func (r *stockRequestRepo) CountByStatus(tx *gorm.DB, channelID uuid.UUID, reqType model.RequestType, statuses []model.RequestStatus) (int64, error) {
	var count int64
	q := r.conn(tx).Model(&model.StockRequest{}).Where("channel_id = ? AND status IN ?", channelID, statuses)
	if reqType != "" {
		q = q.Where("type = ?", reqType)
	}
	err := q.Count(&count).Error
	return count, err
}

// Barcodes lists every barcode on the channel's live requests.
func (r *stockRequestRepo) Barcodes(tx *gorm.DB, channelID uuid.UUID) ([]string, error) {
	var barcodes []string
	err := r.conn(tx).Model(&model.StockRequestItem{}).
		Joins("JOIN stock_requests ON stock_requests.id = stock_request_items.stock_request_id").
		Where("stock_requests.channel_id = ? AND stock_requests.status <> ?", channelID, model.RequestCancelled).
		Where("stock_requests.deleted_at IS NULL").
		Distinct().
		Order("stock_request_items.barcode ASC").
		Pluck("stock_request_items.barcode", &barcodes).Error
	return barcodes, err
}

func (r *stockRequestRepo) UpdateStatus(tx *gorm.DB, id uuid.UUID, from, to model.RequestStatus, actorID string) (bool, error) {
	res := r.conn(tx).Model(&model.StockRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_by": actorID,
		})
	return res.RowsAffected == 1, res.Error
}

// UpdateItem persists the warehouse-filled quantities of one line.
func (r *stockRequestRepo) UpdateItem(tx *gorm.DB, item *model.StockRequestItem) error {
	return r.conn(tx).Model(item).
		Select("allocated_quantity", "packed_quantity", "received_quantity", "updated_by").
		Updates(item).Error
}

func (r *stockRequestRepo) CreateShipment(tx *gorm.DB, shipment *model.Shipment) error {
	return r.conn(tx).Create(shipment).Error
}
