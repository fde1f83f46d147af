package service

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"go-popup-ledger/internal/apperror"
	"go-popup-ledger/internal/events"
	"go-popup-ledger/internal/model"
	"go-popup-ledger/internal/repository"
)

// StockLedger is the only writer of ChannelStock and WarehouseStock. Each
// mutating call moves quantity between buckets so that, per channel and
// barcode, Received = Sold + Damaged + Missing + Returned + Available.
//
// Methods taking tx must run inside the caller's RunAtomic.
type StockLedger interface {
	Open(tx *gorm.DB, channelID uuid.UUID, barcode, actorID string) error
	Receive(tx *gorm.DB, channelID uuid.UUID, barcode string, qty int, actorID string) error
	Sell(tx *gorm.DB, channelID uuid.UUID, barcode string, qty int) error
	ReverseSale(tx *gorm.DB, channelID uuid.UUID, barcode string, qty int) error
	CloseOut(tx *gorm.DB, channelID uuid.UUID, barcode string, damaged, missing int) (int, error)
	ConfirmReturn(tx *gorm.DB, channelID uuid.UUID, items []model.ReturnItem, actorID string) error
	AllocateFromWarehouse(tx *gorm.DB, barcode string, qty int) error
	ReleaseToWarehouse(tx *gorm.DB, barcode string, qty int, actorID string) error

	Restock(ctx context.Context, barcode string, qty int, actorID string) (*model.WarehouseStock, error)
	CheckConservation(ctx context.Context, channelID uuid.UUID) error
	ChannelStock(ctx context.Context, channelID uuid.UUID) ([]model.ChannelStock, error)
	WarehouseStock(ctx context.Context, barcodes []string) ([]model.WarehouseStock, error)
}

type stockLedger struct {
	stockRepo repository.StockRepository
	eventRepo repository.EventRepository
	txRunner  repository.TxRunner
	db        *gorm.DB
	publisher events.Publisher
	log       *logrus.Logger
}

func NewStockLedger(
	stockRepo repository.StockRepository,
	eventRepo repository.EventRepository,
	txRunner repository.TxRunner,
	db *gorm.DB,
	publisher events.Publisher,
	log *logrus.Logger,
) StockLedger {
	return &stockLedger{
		stockRepo: stockRepo,
		eventRepo: eventRepo,
		txRunner:  txRunner,
		db:        db,
		publisher: publisher,
		log:       log,
	}
}

func (l *stockLedger) Open(tx *gorm.DB, channelID uuid.UUID, barcode, actorID string) error {
	if strings.TrimSpace(barcode) == "" {
		return apperror.Validation("ledger.open", "barcode is required")
	}
	return l.stockRepo.OpenChannelStock(tx, channelID, barcode, actorOr(actorID))
}

func (l *stockLedger) Receive(tx *gorm.DB, channelID uuid.UUID, barcode string, qty int, actorID string) error {
	const op = "ledger.receive"
	if qty <= 0 {
		return apperror.Validation(op, "quantity must be positive, got %d", qty)
	}
	if err := l.Open(tx, channelID, barcode, actorID); err != nil {
		return err
	}
	n, err := l.stockRepo.AddReceived(tx, channelID, barcode, qty)
	if err != nil {
		return err
	}
	if n != 1 {
		return apperror.InvariantViolation(op, "channel stock row for %s vanished during receive", barcode)
	}
	return nil
}

func (l *stockLedger) Sell(tx *gorm.DB, channelID uuid.UUID, barcode string, qty int) error {
	const op = "ledger.sell"
	if qty <= 0 {
		return apperror.Validation(op, "quantity must be positive, got %d", qty)
	}
	n, err := l.stockRepo.SellAvailable(tx, channelID, barcode, qty)
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	// The guard did not hold; find out whether stock is short or the row
	// moved under us.
	row, err := l.stockRepo.FindChannelStock(tx, channelID, barcode)
	if apperror.Is(err, apperror.KindNotFound) {
		return apperror.InsufficientStock(op, "barcode %s is not stocked at this channel", barcode)
	}
	if err != nil {
		return err
	}
	if row.Available < qty {
		return apperror.InsufficientStock(op, "barcode %s: requested %d, available %d", barcode, qty, row.Available)
	}
	return apperror.ConcurrencyConflict(op, "barcode %s changed concurrently, retry", barcode)
}

func (l *stockLedger) ReverseSale(tx *gorm.DB, channelID uuid.UUID, barcode string, qty int) error {
	const op = "ledger.reverse_sale"
	if qty <= 0 {
		return apperror.Validation(op, "quantity must be positive, got %d", qty)
	}
	n, err := l.stockRepo.ReverseSold(tx, channelID, barcode, qty)
	if err != nil {
		return err
	}
	if n != 1 {
		return apperror.InvariantViolation(op, "reversing %d of %s would drive sold negative", qty, barcode)
	}
	return nil
}

// CloseOut writes off damaged and missing units and returns what is left
// on hand for the return shipment.
func (l *stockLedger) CloseOut(tx *gorm.DB, channelID uuid.UUID, barcode string, damaged, missing int) (int, error) {
	const op = "ledger.close_out"
	if damaged < 0 || missing < 0 {
		return 0, apperror.Validation(op, "damaged and missing must not be negative")
	}
	n, err := l.stockRepo.WriteOff(tx, channelID, barcode, damaged, missing)
	if err != nil {
		return 0, err
	}
	row, err := l.stockRepo.FindChannelStock(tx, channelID, barcode)
	if err != nil {
		return 0, err
	}
	if n != 1 {
		return 0, apperror.Validation(op, "barcode %s: damaged %d + missing %d exceeds available %d",
			barcode, damaged, missing, row.Available)
	}
	return row.Available, nil
}

// ConfirmReturn moves each item's remaining quantity from the channel back
// into the warehouse pool.
func (l *stockLedger) ConfirmReturn(tx *gorm.DB, channelID uuid.UUID, items []model.ReturnItem, actorID string) error {
	const op = "ledger.confirm_return"
	for _, it := range items {
		if it.RemainingQuantity <= 0 {
			continue
		}
		n, err := l.stockRepo.MoveToReturned(tx, channelID, it.Barcode, it.RemainingQuantity)
		if err != nil {
			return err
		}
		if n != 1 {
			return apperror.InvariantViolation(op, "barcode %s: %d to return exceeds what is on hand",
				it.Barcode, it.RemainingQuantity)
		}
		if err := l.stockRepo.AddWarehouse(tx, it.Barcode, it.RemainingQuantity, actorOr(actorID)); err != nil {
			return err
		}
	}
	return nil
}

func (l *stockLedger) AllocateFromWarehouse(tx *gorm.DB, barcode string, qty int) error {
	const op = "ledger.allocate"
	if qty <= 0 {
		return apperror.Validation(op, "quantity must be positive, got %d", qty)
	}
	n, err := l.stockRepo.TakeWarehouse(tx, barcode, qty)
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	row, err := l.stockRepo.FindWarehouseStock(tx, barcode)
	if apperror.Is(err, apperror.KindNotFound) {
		return apperror.InsufficientStock(op, "barcode %s has no warehouse stock", barcode)
	}
	if err != nil {
		return err
	}
	if row.Quantity < qty {
		return apperror.InsufficientStock(op, "barcode %s: requested %d, warehouse holds %d", barcode, qty, row.Quantity)
	}
	return apperror.ConcurrencyConflict(op, "warehouse stock for %s changed concurrently, retry", barcode)
}

func (l *stockLedger) ReleaseToWarehouse(tx *gorm.DB, barcode string, qty int, actorID string) error {
	if qty <= 0 {
		return apperror.Validation("ledger.release", "quantity must be positive, got %d", qty)
	}
	return l.stockRepo.AddWarehouse(tx, barcode, qty, actorOr(actorID))
}

// Restock books goods arriving at the warehouse from outside the channel
// flow (purchasing, transfers).
func (l *stockLedger) Restock(ctx context.Context, barcode string, qty int, actorID string) (*model.WarehouseStock, error) {
	const op = "ledger.restock"
	if strings.TrimSpace(barcode) == "" {
		return nil, apperror.Validation(op, "barcode is required")
	}
	if qty <= 0 {
		return nil, apperror.Validation(op, "quantity must be positive, got %d", qty)
	}

	var (
		row   *model.WarehouseStock
		event model.EventLog
	)
	err := l.txRunner.RunAtomic(ctx, op, func(tx *gorm.DB) error {
		if err := l.stockRepo.AddWarehouse(tx, barcode, qty, actorOr(actorID)); err != nil {
			return err
		}
		var err error
		if row, err = l.stockRepo.FindWarehouseStock(tx, barcode); err != nil {
			return err
		}
		event = newEvent(nil, model.ActionWarehouseRestocked, "warehouse_stock", row.ID, actorID,
			"%s +%d (now %d)", barcode, qty, row.Quantity)
		return l.eventRepo.Append(tx, &event)
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, l.publisher, l.log, event)
	return row, nil
}

// CheckConservation verifies every row of the channel and names the
// barcodes that do not balance.
func (l *stockLedger) CheckConservation(ctx context.Context, channelID uuid.UUID) error {
	const op = "ledger.check"
	rows, err := l.stockRepo.FindChannelStocks(l.db.WithContext(ctx), channelID)
	if err != nil {
		return apperror.Storage(op, err)
	}
	var bad []string
	for _, r := range rows {
		if !r.Balanced() {
			bad = append(bad, r.Barcode)
		}
	}
	if len(bad) == 0 {
		return nil
	}
	sort.Strings(bad)
	verr := apperror.InvariantViolation(op, "conservation broken for %s", strings.Join(bad, ", "))
	l.log.WithFields(logrus.Fields{"channel_id": channelID, "barcodes": bad}).Error(verr.Error())
	return verr
}

func (l *stockLedger) ChannelStock(ctx context.Context, channelID uuid.UUID) ([]model.ChannelStock, error) {
	rows, err := l.stockRepo.FindChannelStocks(l.db.WithContext(ctx), channelID)
	return rows, readErr("ledger.channel_stock", err)
}

func (l *stockLedger) WarehouseStock(ctx context.Context, barcodes []string) ([]model.WarehouseStock, error) {
	rows, err := l.stockRepo.FindWarehouseStocks(l.db.WithContext(ctx), barcodes)
	return rows, readErr("ledger.warehouse_stock", err)
}
