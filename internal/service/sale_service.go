package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"go-popup-ledger/internal/apperror"
	"go-popup-ledger/internal/events"
	"go-popup-ledger/internal/model"
	"go-popup-ledger/internal/repository"
)

type SaleLineInput struct {
	Barcode      string          `json:"barcode" validate:"required,max=64"`
	Quantity     int             `json:"quantity" validate:"gt=0"`
	UnitPrice    decimal.Decimal `json:"unit_price" validate:"decimal_gte0"`
	LineDiscount decimal.Decimal `json:"line_discount" validate:"decimal_gte0"`
	IsFreebie    bool            `json:"is_freebie"`
}

type AdjustmentInput struct {
	Label  string          `json:"label" validate:"required,max=100"`
	Amount decimal.Decimal `json:"amount"`
}

type CreateSaleInput struct {
	// ChannelID is nil for a counter sale outside any channel.
	ChannelID     *uuid.UUID        `json:"channel_id"`
	Items         []SaleLineInput   `json:"items" validate:"required,min=1,dive"`
	Adjustments   []AdjustmentInput `json:"adjustments" validate:"dive"`
	BillDiscount  decimal.Decimal   `json:"bill_discount" validate:"decimal_gte0"`
	PaymentMethod string            `json:"payment_method" validate:"max=20"`
	ActorID       string            `json:"-"`
}

// SaleTotals is the priced form of a cart.
type SaleTotals struct {
	LineTotals      []decimal.Decimal
	Subtotal        decimal.Decimal
	AdjustmentTotal decimal.Decimal
	BillDiscount    decimal.Decimal
	TotalAmount     decimal.Decimal
}

type SaleService interface {
	CreateSale(ctx context.Context, input CreateSaleInput) (*model.Sale, error)
	CancelSale(ctx context.Context, id uuid.UUID, reason, actorID string) (*model.Sale, error)
	GetSale(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	ListChannelSales(ctx context.Context, channelID uuid.UUID) ([]model.Sale, error)
}

type saleService struct {
	saleRepo    repository.SaleRepository
	channelRepo repository.ChannelRepository
	seqRepo     repository.SequenceRepository
	eventRepo   repository.EventRepository
	ledger      StockLedger
	txRunner    repository.TxRunner
	db          *gorm.DB
	publisher   events.Publisher
	log         *logrus.Logger
}

func NewSaleService(
	saleRepo repository.SaleRepository,
	channelRepo repository.ChannelRepository,
	seqRepo repository.SequenceRepository,
	eventRepo repository.EventRepository,
	ledger StockLedger,
	txRunner repository.TxRunner,
	db *gorm.DB,
	publisher events.Publisher,
	log *logrus.Logger,
) SaleService {
	return &saleService{
		saleRepo:    saleRepo,
		channelRepo: channelRepo,
		seqRepo:     seqRepo,
		eventRepo:   eventRepo,
		ledger:      ledger,
		txRunner:    txRunner,
		db:          db,
		publisher:   publisher,
		log:         log,
	}
}

const (
	counterSequence = "sale:pos"
	counterPrefix   = "POS"
)

func channelSequence(channelID uuid.UUID) string {
	return "sale:" + channelID.String()
}

// ComputeTotals prices a cart. Freebie lines are worth zero but still take
// stock. A line discount is per unit and may not exceed the unit price.
func ComputeTotals(input CreateSaleInput) (SaleTotals, error) {
	const op = "sale.totals"
	t := SaleTotals{
		Subtotal:        decimal.Zero,
		AdjustmentTotal: decimal.Zero,
		BillDiscount:    input.BillDiscount.Round(2),
	}
	for _, l := range input.Items {
		if l.LineDiscount.GreaterThan(l.UnitPrice) {
			return SaleTotals{}, apperror.Validation(op, "barcode %s: line discount exceeds unit price", l.Barcode)
		}
		line := decimal.Zero
		if !l.IsFreebie {
			line = l.UnitPrice.Sub(l.LineDiscount).Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
		}
		t.LineTotals = append(t.LineTotals, line)
		t.Subtotal = t.Subtotal.Add(line)
	}
	for _, a := range input.Adjustments {
		t.AdjustmentTotal = t.AdjustmentTotal.Add(a.Amount.Round(2))
	}
	t.TotalAmount = t.Subtotal.Add(t.AdjustmentTotal).Sub(t.BillDiscount)
	if t.TotalAmount.IsNegative() {
		return SaleTotals{}, apperror.Validation(op, "total amount %s is negative", t.TotalAmount.StringFixed(2))
	}
	return t, nil
}

// stockLines sums quantities per barcode in barcode order so concurrent
// sales touch rows in the same sequence.
func stockLines[T any](lines []T, key func(T) (string, int)) ([]string, map[string]int) {
	qty := map[string]int{}
	for _, l := range lines {
		b, q := key(l)
		qty[b] += q
	}
	barcodes := make([]string, 0, len(qty))
	for b := range qty {
		barcodes = append(barcodes, b)
	}
	sort.Strings(barcodes)
	return barcodes, qty
}

func (s *saleService) CreateSale(ctx context.Context, input CreateSaleInput) (*model.Sale, error) {
	const op = "sale.create"
	if err := validateInput(op, &input); err != nil {
		return nil, err
	}
	for i := range input.Items {
		input.Items[i].Barcode = strings.TrimSpace(input.Items[i].Barcode)
		if input.Items[i].Barcode == "" {
			return nil, apperror.Validation(op, "line %d: barcode must not be blank", i+1)
		}
	}
	totals, err := ComputeTotals(input)
	if err != nil {
		return nil, err
	}
	actor := actorOr(input.ActorID)

	var (
		sale *model.Sale
		evt  model.EventLog
	)
	err = s.txRunner.RunAtomic(ctx, op, func(tx *gorm.DB) error {
		var billCode string
		if input.ChannelID != nil {
			channel, err := s.channelRepo.FindByIDForUpdate(tx, *input.ChannelID)
			if err != nil {
				return err
			}
			if channel.Status != model.ChannelActive {
				return apperror.GuardFailed(op, "channel %s is %s; sales need an active channel", channel.Code, channel.Status)
			}

			barcodes, qty := stockLines(input.Items, func(l SaleLineInput) (string, int) { return l.Barcode, l.Quantity })
			for _, b := range barcodes {
				if err := s.ledger.Sell(tx, channel.ID, b, qty[b]); err != nil {
					return err
				}
			}

			n, err := s.seqRepo.Next(tx, channelSequence(channel.ID))
			if err != nil {
				return err
			}
			billCode = fmt.Sprintf("%s-%04d", channel.Code, n)
		} else {
			n, err := s.seqRepo.Next(tx, counterSequence)
			if err != nil {
				return err
			}
			billCode = fmt.Sprintf("%s-%06d", counterPrefix, n)
		}

		sale = &model.Sale{
			ChannelID:       input.ChannelID,
			BillCode:        billCode,
			Status:          model.SaleActive,
			Subtotal:        totals.Subtotal,
			AdjustmentTotal: totals.AdjustmentTotal,
			BillDiscount:    totals.BillDiscount,
			TotalAmount:     totals.TotalAmount,
			PaymentMethod:   input.PaymentMethod,
		}
		sale.Stamp(actor)
		for i, l := range input.Items {
			item := model.SaleItem{
				Barcode:      l.Barcode,
				Quantity:     l.Quantity,
				UnitPrice:    l.UnitPrice,
				LineDiscount: l.LineDiscount,
				IsFreebie:    l.IsFreebie,
				LineTotal:    totals.LineTotals[i],
			}
			item.Stamp(actor)
			sale.Items = append(sale.Items, item)
		}
		for _, a := range input.Adjustments {
			adj := model.SaleAdjustment{Label: a.Label, Amount: a.Amount.Round(2)}
			adj.Stamp(actor)
			sale.Adjustments = append(sale.Adjustments, adj)
		}
		if err := s.saleRepo.Create(tx, sale); err != nil {
			return err
		}

		evt = newEvent(input.ChannelID, model.ActionSaleRecorded, "sale", sale.ID, input.ActorID,
			"%s total %s", sale.BillCode, sale.TotalAmount.StringFixed(2))
		return s.eventRepo.Append(tx, &evt)
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.log, evt)
	return sale, nil
}

// CancelSale is the compensating transaction for CreateSale: every stock
// line is reversed and the sale is flagged, never deleted.
func (s *saleService) CancelSale(ctx context.Context, id uuid.UUID, reason, actorID string) (*model.Sale, error) {
	const op = "sale.cancel"
	if len(reason) > 1000 {
		return nil, apperror.Validation(op, "reason is too long")
	}
	var (
		sale *model.Sale
		evt  model.EventLog
	)
	err := s.txRunner.RunAtomic(ctx, op, func(tx *gorm.DB) error {
		var err error
		sale, err = s.saleRepo.FindByID(tx, id)
		if err != nil {
			return err
		}
		if sale.Status == model.SaleCancelled {
			return apperror.AlreadyCancelled(op, "sale %s is already cancelled", sale.BillCode)
		}
		// After close-out the counted stock is frozen; a reversal would not
		// reach the return summary.
		if sale.ChannelID != nil {
			channel, err := s.channelRepo.FindByIDForUpdate(tx, *sale.ChannelID)
			if err != nil {
				return err
			}
			if channel.Status != model.ChannelActive {
				return apperror.GuardFailed(op, "channel %s is %s; sales can only be cancelled while it is active", channel.Code, channel.Status)
			}
		}

		now := time.Now()
		ok, err := s.saleRepo.MarkCancelled(tx, id, reason, actorOr(actorID), now)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.AlreadyCancelled(op, "sale %s is already cancelled", sale.BillCode)
		}
		sale.Status = model.SaleCancelled
		sale.CancelReason = reason
		sale.CancelledAt = &now
		sale.CancelledBy = actorOr(actorID)

		if sale.ChannelID != nil {
			barcodes, qty := stockLines(sale.Items, func(it model.SaleItem) (string, int) { return it.Barcode, it.Quantity })
			for _, b := range barcodes {
				if err := s.ledger.ReverseSale(tx, *sale.ChannelID, b, qty[b]); err != nil {
					return err
				}
			}
		}

		detail := sale.BillCode + " cancelled"
		if reason != "" {
			detail += ": " + reason
		}
		evt = newEvent(sale.ChannelID, model.ActionSaleCancelled, "sale", sale.ID, actorID, "%s", detail)
		return s.eventRepo.Append(tx, &evt)
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.log, evt)
	return sale, nil
}

func (s *saleService) GetSale(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	sale, err := s.saleRepo.FindByID(s.db.WithContext(ctx), id)
	return sale, readErr("sale.get", err)
}

func (s *saleService) ListChannelSales(ctx context.Context, channelID uuid.UUID) ([]model.Sale, error) {
	sales, err := s.saleRepo.FindByChannel(s.db.WithContext(ctx), channelID)
	return sales, readErr("sale.list", err)
}
