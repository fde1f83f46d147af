package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"go-popup-ledger/internal/apperror"
	"go-popup-ledger/internal/events"
	"go-popup-ledger/internal/lifecycle"
	"go-popup-ledger/internal/model"
	"go-popup-ledger/internal/repository"
)

type StockRequestLine struct {
	Barcode  string `json:"barcode" validate:"required,max=64"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

type CreateStockRequestInput struct {
	ChannelID uuid.UUID          `json:"channel_id" validate:"uuid_required"`
	Type      model.RequestType  `json:"type" validate:"required,oneof=INITIAL TOPUP"`
	Note      string             `json:"note" validate:"max=1000"`
	Items     []StockRequestLine `json:"items" validate:"required,min=1,dive"`
	ActorID   string             `json:"-"`
}

// QuantityLine sets a warehouse or receiving quantity for one barcode.
// Barcodes left out default to the previous stage's quantity.
type QuantityLine struct {
	Barcode  string `json:"barcode" validate:"required,max=64"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

type ShipmentInput struct {
	Carrier        string     `json:"carrier" validate:"required,max=100"`
	TrackingNumber string     `json:"tracking_number" validate:"max=100"`
	ShippedAt      *time.Time `json:"shipped_at"`
}

// LineDiscrepancy reports a line whose quantity differs from the stage
// before it. Discrepancies are surfaced, never blocked.
type LineDiscrepancy struct {
	Barcode  string `json:"barcode"`
	Expected int    `json:"expected"`
	Actual   int    `json:"actual"`
}

type StockRequestResult struct {
	Request       *model.StockRequest `json:"request"`
	Discrepancies []LineDiscrepancy   `json:"discrepancies,omitempty"`
}

type StockRequestService interface {
	Create(ctx context.Context, input CreateStockRequestInput) (*model.StockRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*model.StockRequest, error)
	ListByChannel(ctx context.Context, channelID uuid.UUID) ([]model.StockRequest, error)
	Submit(ctx context.Context, id uuid.UUID, actorID string) (*model.StockRequest, error)
	Approve(ctx context.Context, id uuid.UUID, actorID string) (*model.StockRequest, error)
	Cancel(ctx context.Context, id uuid.UUID, actorID string) (*model.StockRequest, error)
	Allocate(ctx context.Context, id uuid.UUID, lines []QuantityLine, actorID string) (*StockRequestResult, error)
	Pack(ctx context.Context, id uuid.UUID, lines []QuantityLine, actorID string) (*StockRequestResult, error)
	Ship(ctx context.Context, id uuid.UUID, input ShipmentInput, actorID string) (*model.StockRequest, error)
	Receive(ctx context.Context, id uuid.UUID, lines []QuantityLine, actorID string) (*StockRequestResult, error)
	Release(ctx context.Context, id uuid.UUID, reason, actorID string) (*model.StockRequest, error)
}

type stockRequestService struct {
	requestRepo repository.StockRequestRepository
	channelRepo repository.ChannelRepository
	eventRepo   repository.EventRepository
	status      StatusService
	ledger      StockLedger
	txRunner    repository.TxRunner
	db          *gorm.DB
	publisher   events.Publisher
	log         *logrus.Logger
}

func NewStockRequestService(
	requestRepo repository.StockRequestRepository,
	channelRepo repository.ChannelRepository,
	eventRepo repository.EventRepository,
	status StatusService,
	ledger StockLedger,
	txRunner repository.TxRunner,
	db *gorm.DB,
	publisher events.Publisher,
	log *logrus.Logger,
) StockRequestService {
	return &stockRequestService{
		requestRepo: requestRepo,
		channelRepo: channelRepo,
		eventRepo:   eventRepo,
		status:      status,
		ledger:      ledger,
		txRunner:    txRunner,
		db:          db,
		publisher:   publisher,
		log:         log,
	}
}

// Channel states in which an INITIAL request may still be raised.
var initialWindow = map[model.ChannelStatus]bool{
	model.ChannelDraft:           true,
	model.ChannelPendingApproval: true,
	model.ChannelApproved:        true,
}

func (s *stockRequestService) Create(ctx context.Context, input CreateStockRequestInput) (*model.StockRequest, error) {
	const op = "stock_request.create"
	if err := validateInput(op, &input); err != nil {
		return nil, err
	}

	merged := map[string]int{}
	for _, it := range input.Items {
		merged[strings.TrimSpace(it.Barcode)] += it.Quantity
	}
	barcodes := make([]string, 0, len(merged))
	for b := range merged {
		if b == "" {
			return nil, apperror.Validation(op, "barcode must not be blank")
		}
		barcodes = append(barcodes, b)
	}
	sort.Strings(barcodes)

	var (
		req *model.StockRequest
		evt model.EventLog
	)
	err := s.txRunner.RunAtomic(ctx, op, func(tx *gorm.DB) error {
		channel, err := s.channelRepo.FindByIDForUpdate(tx, input.ChannelID)
		if err != nil {
			return err
		}

		switch input.Type {
		case model.RequestInitial:
			if !initialWindow[channel.Status] {
				return apperror.GuardFailed(op, "initial request not allowed while channel is %s", channel.Status)
			}
			_, err := s.requestRepo.FindLatest(tx, channel.ID, model.RequestInitial)
			if err == nil {
				return apperror.Conflict(op, "channel %s already has a live initial request", channel.Code)
			}
			if !apperror.Is(err, apperror.KindNotFound) {
				return err
			}
		case model.RequestTopUp:
			if channel.Status != model.ChannelActive {
				return apperror.GuardFailed(op, "top-up requires an active channel, %s is %s", channel.Code, channel.Status)
			}
		}

		req = &model.StockRequest{
			ChannelID: channel.ID,
			Type:      input.Type,
			Status:    model.RequestDraft,
			Note:      input.Note,
		}
		req.Stamp(actorOr(input.ActorID))
		for _, b := range barcodes {
			item := model.StockRequestItem{Barcode: b, RequestedQuantity: merged[b]}
			item.Stamp(actorOr(input.ActorID))
			req.Items = append(req.Items, item)
		}
		if err := s.requestRepo.Create(tx, req); err != nil {
			return err
		}

		requested, _ := req.Totals()
		evt = newEvent(ptr(channel.ID), model.ActionRequestCreated, lifecycle.EntityStockRequest, req.ID, input.ActorID,
			"%s request for %d units over %d barcodes", req.Type, requested, len(req.Items))
		return s.eventRepo.Append(tx, &evt)
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.log, evt)
	return req, nil
}

func (s *stockRequestService) Get(ctx context.Context, id uuid.UUID) (*model.StockRequest, error) {
	req, err := s.requestRepo.FindByID(s.db.WithContext(ctx), id)
	return req, readErr("stock_request.get", err)
}

func (s *stockRequestService) ListByChannel(ctx context.Context, channelID uuid.UUID) ([]model.StockRequest, error) {
	reqs, err := s.requestRepo.FindByChannel(s.db.WithContext(ctx), channelID)
	return reqs, readErr("stock_request.list", err)
}

func (s *stockRequestService) Submit(ctx context.Context, id uuid.UUID, actorID string) (*model.StockRequest, error) {
	return s.status.TransitionRequest(ctx, id, model.RequestSubmitted, actorID)
}

func (s *stockRequestService) Approve(ctx context.Context, id uuid.UUID, actorID string) (*model.StockRequest, error) {
	return s.status.TransitionRequest(ctx, id, model.RequestApproved, actorID)
}

func (s *stockRequestService) Cancel(ctx context.Context, id uuid.UUID, actorID string) (*model.StockRequest, error) {
	return s.status.TransitionRequest(ctx, id, model.RequestCancelled, actorID)
}

// quantities resolves caller lines against the request items. Unknown or
// repeated barcodes are rejected; missing ones take fallback(item).
func quantities(op string, items []model.StockRequestItem, lines []QuantityLine, fallback func(model.StockRequestItem) int) (map[string]int, error) {
	known := make(map[string]bool, len(items))
	for _, it := range items {
		known[it.Barcode] = true
	}
	out := make(map[string]int, len(items))
	for _, l := range lines {
		b := strings.TrimSpace(l.Barcode)
		if !known[b] {
			return nil, apperror.Validation(op, "barcode %s is not on this request", b)
		}
		if _, dup := out[b]; dup {
			return nil, apperror.Validation(op, "barcode %s listed twice", b)
		}
		if l.Quantity < 0 {
			return nil, apperror.Validation(op, "quantity for %s must not be negative", b)
		}
		out[b] = l.Quantity
	}
	for _, it := range items {
		if _, ok := out[it.Barcode]; !ok {
			out[it.Barcode] = fallback(it)
		}
	}
	return out, nil
}

// Allocate reserves warehouse stock for an approved request. Lines may be
// short of the requested quantity; the shortfall is reported.
func (s *stockRequestService) Allocate(ctx context.Context, id uuid.UUID, lines []QuantityLine, actorID string) (*StockRequestResult, error) {
	const op = "stock_request.allocate"
	result := &StockRequestResult{}
	var evt model.EventLog

	err := s.txRunner.RunAtomic(ctx, op, func(tx *gorm.DB) error {
		req, err := s.requestRepo.FindByIDForUpdate(tx, id)
		if err != nil {
			return err
		}
		if err := lifecycle.ValidateRequest(req.Status, model.RequestAllocated); err != nil {
			return err
		}
		if req.Type == model.RequestTopUp {
			channel, err := s.channelRepo.FindByIDForUpdate(tx, req.ChannelID)
			if err != nil {
				return err
			}
			if channel.Status != model.ChannelActive {
				return lifecycle.Guard(lifecycle.EntityStockRequest, string(req.Status), string(model.RequestAllocated),
					fmt.Sprintf("top-up needs an active channel, %s is %s", channel.Code, channel.Status))
			}
		}
		qty, err := quantities(op, req.Items, lines, func(it model.StockRequestItem) int { return it.RequestedQuantity })
		if err != nil {
			return err
		}

		total := 0
		for i := range req.Items {
			it := &req.Items[i]
			q := qty[it.Barcode]
			if q > it.RequestedQuantity {
				return apperror.Validation(op, "barcode %s: allocation %d exceeds requested %d", it.Barcode, q, it.RequestedQuantity)
			}
			if q > 0 {
				if err := s.ledger.AllocateFromWarehouse(tx, it.Barcode, q); err != nil {
					return err
				}
			}
			if q != it.RequestedQuantity {
				result.Discrepancies = append(result.Discrepancies, LineDiscrepancy{Barcode: it.Barcode, Expected: it.RequestedQuantity, Actual: q})
			}
			it.AllocatedQuantity = q
			it.UpdatedBy = actorOr(actorID)
			if err := s.requestRepo.UpdateItem(tx, it); err != nil {
				return err
			}
			total += q
		}
		if total == 0 {
			return apperror.Validation(op, "allocation is empty")
		}

		req, evt, err = s.status.ApplyRequest(tx, id, model.RequestAllocated, actorID)
		if err != nil {
			return err
		}
		result.Request = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.log, evt)
	return result, nil
}

// Pack records what actually went into boxes. The allocated remainder is
// released back to the warehouse.
func (s *stockRequestService) Pack(ctx context.Context, id uuid.UUID, lines []QuantityLine, actorID string) (*StockRequestResult, error) {
	const op = "stock_request.pack"
	result := &StockRequestResult{}
	var evt model.EventLog

	err := s.txRunner.RunAtomic(ctx, op, func(tx *gorm.DB) error {
		req, err := s.requestRepo.FindByIDForUpdate(tx, id)
		if err != nil {
			return err
		}
		if err := lifecycle.ValidateRequest(req.Status, model.RequestPacked); err != nil {
			return err
		}
		qty, err := quantities(op, req.Items, lines, func(it model.StockRequestItem) int { return it.AllocatedQuantity })
		if err != nil {
			return err
		}

		for i := range req.Items {
			it := &req.Items[i]
			q := qty[it.Barcode]
			if q > it.AllocatedQuantity {
				return apperror.Validation(op, "barcode %s: packed %d exceeds allocated %d", it.Barcode, q, it.AllocatedQuantity)
			}
			if rest := it.AllocatedQuantity - q; rest > 0 {
				if err := s.ledger.ReleaseToWarehouse(tx, it.Barcode, rest, actorID); err != nil {
					return err
				}
				result.Discrepancies = append(result.Discrepancies, LineDiscrepancy{Barcode: it.Barcode, Expected: it.AllocatedQuantity, Actual: q})
			}
			it.PackedQuantity = q
			it.UpdatedBy = actorOr(actorID)
			if err := s.requestRepo.UpdateItem(tx, it); err != nil {
				return err
			}
		}

		req, evt, err = s.status.ApplyRequest(tx, id, model.RequestPacked, actorID)
		if err != nil {
			return err
		}
		result.Request = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.log, evt)
	return result, nil
}

func (s *stockRequestService) Ship(ctx context.Context, id uuid.UUID, input ShipmentInput, actorID string) (*model.StockRequest, error) {
	const op = "stock_request.ship"
	if err := validateInput(op, &input); err != nil {
		return nil, err
	}

	var (
		req *model.StockRequest
		evt model.EventLog
	)
	err := s.txRunner.RunAtomic(ctx, op, func(tx *gorm.DB) error {
		var err error
		req, evt, err = s.status.ApplyRequest(tx, id, model.RequestShipped, actorID)
		if err != nil {
			return err
		}
		shipment := newShipment(input, actorID)
		shipment.StockRequestID = ptr(req.ID)
		if err := s.requestRepo.CreateShipment(tx, shipment); err != nil {
			return err
		}
		req.Shipment = shipment
		return nil
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.log, evt)
	return req, nil
}

func newShipment(input ShipmentInput, actorID string) *model.Shipment {
	shippedAt := time.Now()
	if input.ShippedAt != nil {
		shippedAt = *input.ShippedAt
	}
	shipment := &model.Shipment{
		Carrier:        input.Carrier,
		TrackingNumber: input.TrackingNumber,
		ShippedAt:      shippedAt,
	}
	shipment.Stamp(actorOr(actorID))
	return shipment
}

// Receive books the delivered quantities into the channel's stock. Counts
// that differ from what was packed are reported, not refused.
func (s *stockRequestService) Receive(ctx context.Context, id uuid.UUID, lines []QuantityLine, actorID string) (*StockRequestResult, error) {
	const op = "stock_request.receive"
	result := &StockRequestResult{}
	var evts []model.EventLog

	err := s.txRunner.RunAtomic(ctx, op, func(tx *gorm.DB) error {
		req, err := s.requestRepo.FindByIDForUpdate(tx, id)
		if err != nil {
			return err
		}
		if err := lifecycle.ValidateRequest(req.Status, model.RequestReceived); err != nil {
			return err
		}
		channel, err := s.channelRepo.FindByIDForUpdate(tx, req.ChannelID)
		if err != nil {
			return err
		}
		switch {
		case req.Type == model.RequestTopUp && channel.Status != model.ChannelActive:
			return apperror.GuardFailed(op, "top-up can only be received while the channel is active, %s is %s", channel.Code, channel.Status)
		case channel.Status != model.ChannelShipped && channel.Status != model.ChannelActive:
			return apperror.GuardFailed(op, "channel %s is %s and cannot take deliveries", channel.Code, channel.Status)
		}

		qty, err := quantities(op, req.Items, lines, func(it model.StockRequestItem) int { return it.PackedQuantity })
		if err != nil {
			return err
		}

		received := 0
		for i := range req.Items {
			it := &req.Items[i]
			q := qty[it.Barcode]
			if q > 0 {
				if err := s.ledger.Receive(tx, channel.ID, it.Barcode, q, actorID); err != nil {
					return err
				}
			}
			if q != it.PackedQuantity {
				result.Discrepancies = append(result.Discrepancies, LineDiscrepancy{Barcode: it.Barcode, Expected: it.PackedQuantity, Actual: q})
			}
			it.ReceivedQuantity = q
			it.UpdatedBy = actorOr(actorID)
			if err := s.requestRepo.UpdateItem(tx, it); err != nil {
				return err
			}
			received += q
		}

		req, evt, err := s.status.ApplyRequest(tx, id, model.RequestReceived, actorID)
		if err != nil {
			return err
		}
		result.Request = req

		detail := fmt.Sprintf("%d units received", received)
		if n := len(result.Discrepancies); n > 0 {
			detail += fmt.Sprintf(", %d line(s) differ from packing", n)
		}
		stockEvt := newEvent(ptr(channel.ID), model.ActionStockReceived, lifecycle.EntityStockRequest, req.ID, actorID, "%s", detail)
		if err := s.eventRepo.Append(tx, &stockEvt); err != nil {
			return err
		}
		evts = []model.EventLog{evt, stockEvt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.log, evts...)
	return result, nil
}

// Release cancels a request whose goods are committed but still in the
// warehouse, returning them to the pool. Shipped goods must come back
// through close-out instead.
func (s *stockRequestService) Release(ctx context.Context, id uuid.UUID, reason, actorID string) (*model.StockRequest, error) {
	const op = "stock_request.release"
	var (
		req *model.StockRequest
		evt model.EventLog
	)
	err := s.txRunner.RunAtomic(ctx, op, func(tx *gorm.DB) error {
		var err error
		req, err = s.requestRepo.FindByIDForUpdate(tx, id)
		if err != nil {
			return err
		}
		if !lifecycle.ReleasableRequest(req.Status) {
			why := "only allocated or packed requests hold releasable goods"
			if req.Status.AtLeast(model.RequestShipped) {
				why = "goods already left the warehouse"
			}
			return lifecycle.Guard(lifecycle.EntityStockRequest, string(req.Status), string(model.RequestCancelled), why)
		}

		from := req.Status
		units := 0
		for _, it := range req.Items {
			q := it.AllocatedQuantity
			if from == model.RequestPacked {
				q = it.PackedQuantity
			}
			if q > 0 {
				if err := s.ledger.ReleaseToWarehouse(tx, it.Barcode, q, actorID); err != nil {
					return err
				}
				units += q
			}
		}

		ok, err := s.requestRepo.UpdateStatus(tx, id, from, model.RequestCancelled, actorOr(actorID))
		if err != nil {
			return err
		}
		if !ok {
			return apperror.ConcurrencyConflict(op, "stock request %s left %s concurrently", id, from)
		}
		req.Status = model.RequestCancelled

		detail := fmt.Sprintf("%s released from %s, %d units back to warehouse", req.Type, from, units)
		if reason != "" {
			detail += ": " + reason
		}
		evt = newEvent(ptr(req.ChannelID), model.ActionRequestReleased, lifecycle.EntityStockRequest, req.ID, actorID, "%s", detail)
		return s.eventRepo.Append(tx, &evt)
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.log, evt)
	return req, nil
}
