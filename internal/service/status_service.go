package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"go-popup-ledger/internal/apperror"
	"go-popup-ledger/internal/events"
	"go-popup-ledger/internal/lifecycle"
	"go-popup-ledger/internal/model"
	"go-popup-ledger/internal/repository"
)

// TransitionOptions carries the caller's intent for a channel move.
type TransitionOptions struct {
	// Override lets approved -> packing proceed on a partial allocation.
	Override bool
	Reason   string
	ActorID  string
}

// StatusService applies lifecycle moves: table check, then guards, then a
// conditional write plus an event log entry, all in one transaction.
type StatusService interface {
	CanTransitionChannel(ctx context.Context, id uuid.UUID, target model.ChannelStatus) (bool, error)
	AllowedChannelActions(ctx context.Context, id uuid.UUID) (*ChannelActions, error)
	TransitionChannel(ctx context.Context, id uuid.UUID, target model.ChannelStatus, opts TransitionOptions) (*model.Channel, error)
	TransitionPayment(ctx context.Context, id uuid.UUID, target model.PaymentStatus, actorID string) (*model.Channel, error)
	TransitionRequest(ctx context.Context, id uuid.UUID, target model.RequestStatus, actorID string) (*model.StockRequest, error)

	// Tx variants let other services compose a move into their own unit of work.
	ApplyChannel(tx *gorm.DB, id uuid.UUID, target model.ChannelStatus, opts TransitionOptions) (*model.Channel, []model.EventLog, error)
	ApplyRequest(tx *gorm.DB, id uuid.UUID, target model.RequestStatus, actorID string) (*model.StockRequest, model.EventLog, error)
}

// ChannelActions lists the table-legal next states of both tracks.
type ChannelActions struct {
	Status        model.ChannelStatus   `json:"status"`
	PaymentStatus model.PaymentStatus   `json:"payment_status"`
	Goods         []model.ChannelStatus `json:"goods"`
	Payment       []model.PaymentStatus `json:"payment"`
}

type statusService struct {
	channelRepo repository.ChannelRepository
	requestRepo repository.StockRequestRepository
	stockRepo   repository.StockRepository
	returnRepo  repository.ReturnRepository
	eventRepo   repository.EventRepository
	ledger      StockLedger
	txRunner    repository.TxRunner
	db          *gorm.DB
	publisher   events.Publisher
	log         *logrus.Logger
}

func NewStatusService(
	channelRepo repository.ChannelRepository,
	requestRepo repository.StockRequestRepository,
	stockRepo repository.StockRepository,
	returnRepo repository.ReturnRepository,
	eventRepo repository.EventRepository,
	ledger StockLedger,
	txRunner repository.TxRunner,
	db *gorm.DB,
	publisher events.Publisher,
	log *logrus.Logger,
) StatusService {
	return &statusService{
		channelRepo: channelRepo,
		requestRepo: requestRepo,
		stockRepo:   stockRepo,
		returnRepo:  returnRepo,
		eventRepo:   eventRepo,
		ledger:      ledger,
		txRunner:    txRunner,
		db:          db,
		publisher:   publisher,
		log:         log,
	}
}

var inFlightRequests = []model.RequestStatus{model.RequestAllocated, model.RequestPacked, model.RequestShipped}

func (s *statusService) CanTransitionChannel(ctx context.Context, id uuid.UUID, target model.ChannelStatus) (bool, error) {
	channel, err := s.channelRepo.FindByID(s.db.WithContext(ctx), id)
	if err != nil {
		return false, readErr("channel.can_transition", err)
	}
	return lifecycle.CanTransitionChannel(channel.Status, target), nil
}

func (s *statusService) AllowedChannelActions(ctx context.Context, id uuid.UUID) (*ChannelActions, error) {
	channel, err := s.channelRepo.FindByID(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, readErr("channel.actions", err)
	}
	return &ChannelActions{
		Status:        channel.Status,
		PaymentStatus: channel.PaymentStatus,
		Goods:         lifecycle.ChannelSuccessors(channel.Status),
		Payment:       lifecycle.PaymentSuccessors(channel.PaymentStatus),
	}, nil
}

func (s *statusService) TransitionChannel(ctx context.Context, id uuid.UUID, target model.ChannelStatus, opts TransitionOptions) (*model.Channel, error) {
	var (
		channel *model.Channel
		evts    []model.EventLog
	)
	err := s.txRunner.RunAtomic(ctx, "channel.transition", func(tx *gorm.DB) error {
		var err error
		channel, evts, err = s.ApplyChannel(tx, id, target, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.log, evts...)
	return channel, nil
}

func (s *statusService) ApplyChannel(tx *gorm.DB, id uuid.UUID, target model.ChannelStatus, opts TransitionOptions) (*model.Channel, []model.EventLog, error) {
	channel, err := s.channelRepo.FindByIDForUpdate(tx, id)
	if err != nil {
		return nil, nil, err
	}
	from := channel.Status
	if err := lifecycle.ValidateChannel(from, target); err != nil {
		return nil, nil, err
	}
	if err := s.guardChannel(tx, channel, target, opts); err != nil {
		return nil, nil, err
	}

	ok, err := s.channelRepo.UpdateStatus(tx, id, from, target, actorOr(opts.ActorID), opts.Reason)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, apperror.ConcurrencyConflict("channel.transition", "channel %s left %s concurrently", channel.Code, from)
	}
	channel.Status = target

	detail := fmt.Sprintf("%s -> %s", from, target)
	if opts.Reason != "" {
		detail += ": " + opts.Reason
		if target == model.ChannelCancelled {
			channel.CancelReason = opts.Reason
		}
	}
	evt := newEvent(ptr(channel.ID), model.ActionChannelTransition, lifecycle.EntityChannel, channel.ID, opts.ActorID, "%s", detail)
	if err := s.eventRepo.Append(tx, &evt); err != nil {
		return nil, nil, err
	}
	evts := []model.EventLog{evt}

	switch target {
	case model.ChannelActive:
		if err := s.openChannelStock(tx, channel.ID, opts.ActorID); err != nil {
			return nil, nil, err
		}
	case model.ChannelCancelled:
		cancelled, err := s.cancelOpenRequests(tx, channel.ID, opts.ActorID)
		if err != nil {
			return nil, nil, err
		}
		evts = append(evts, cancelled...)
	}
	return channel, evts, nil
}

func (s *statusService) guardChannel(tx *gorm.DB, channel *model.Channel, target model.ChannelStatus, opts TransitionOptions) error {
	from, to := string(channel.Status), string(target)
	guard := func(format string, args ...any) error {
		return lifecycle.Guard(lifecycle.EntityChannel, from, to, fmt.Sprintf(format, args...))
	}

	switch target {
	case model.ChannelPacking:
		initial, err := s.initialRequest(tx, channel.ID)
		if err != nil {
			return err
		}
		if initial == nil || !initial.Status.AtLeast(model.RequestAllocated) {
			return guard("initial stock request is not allocated yet")
		}
		requested, allocated := initial.Totals()
		if allocated == requested {
			return nil
		}
		if opts.Override && allocated > 0 {
			return nil
		}
		return guard("allocated %d of %d requested units; override required for partial packing", allocated, requested)

	case model.ChannelPacked:
		return s.requireInitialAt(tx, channel.ID, model.RequestPacked, guard)

	case model.ChannelShipped:
		return s.requireInitialAt(tx, channel.ID, model.RequestShipped, guard)

	case model.ChannelActive:
		return s.requireInitialAt(tx, channel.ID, model.RequestReceived, guard)

	case model.ChannelPendingReturn:
		n, err := s.requestRepo.CountByStatus(tx, channel.ID, "", inFlightRequests)
		if err != nil {
			return err
		}
		if n > 0 {
			return guard("%d stock request(s) still in flight; receive or release them first", n)
		}

	case model.ChannelReturning:
		exists, err := s.returnRepo.Exists(tx, channel.ID)
		if err != nil {
			return err
		}
		if !exists {
			return guard("close-out has not been recorded")
		}

	case model.ChannelReturned:
		summary, err := s.returnRepo.FindByChannel(tx, channel.ID)
		if apperror.Is(err, apperror.KindNotFound) {
			return guard("close-out has not been recorded")
		}
		if err != nil {
			return err
		}
		if summary.Status != model.ReturnSettled {
			return guard("returned goods are not confirmed by the warehouse")
		}

	case model.ChannelCompleted:
		if channel.PaymentStatus != model.PaymentApproved {
			return guard("payment track is %s, needs %s", channel.PaymentStatus, model.PaymentApproved)
		}

	case model.ChannelCancelled:
		n, err := s.requestRepo.CountByStatus(tx, channel.ID, "", inFlightRequests)
		if err != nil {
			return err
		}
		if n > 0 {
			return guard("%d stock request(s) hold warehouse goods; release them first", n)
		}

	case model.ChannelClosed:
		n, err := s.requestRepo.CountByStatus(tx, channel.ID, "", inFlightRequests)
		if err != nil {
			return err
		}
		if n > 0 {
			return guard("%d stock request(s) still in flight", n)
		}
		rows, err := s.stockRepo.FindChannelStocks(tx, channel.ID)
		if err != nil {
			return err
		}
		for _, r := range rows {
			if r.Available != 0 {
				return guard("barcode %s still has %d unprocessed units", r.Barcode, r.Available)
			}
		}
	}
	return nil
}

// initialRequest returns the live INITIAL request or nil when there is none.
func (s *statusService) initialRequest(tx *gorm.DB, channelID uuid.UUID) (*model.StockRequest, error) {
	req, err := s.requestRepo.FindLatest(tx, channelID, model.RequestInitial)
	if apperror.Is(err, apperror.KindNotFound) {
		return nil, nil
	}
	return req, err
}

func (s *statusService) requireInitialAt(tx *gorm.DB, channelID uuid.UUID, least model.RequestStatus, guard func(string, ...any) error) error {
	initial, err := s.initialRequest(tx, channelID)
	if err != nil {
		return err
	}
	if initial == nil {
		return guard("channel has no initial stock request")
	}
	if !initial.Status.AtLeast(least) {
		return guard("initial stock request is %s, needs %s", initial.Status, least)
	}
	return nil
}

func (s *statusService) openChannelStock(tx *gorm.DB, channelID uuid.UUID, actorID string) error {
	barcodes, err := s.requestRepo.Barcodes(tx, channelID)
	if err != nil {
		return err
	}
	for _, b := range barcodes {
		if err := s.ledger.Open(tx, channelID, b, actorID); err != nil {
			return err
		}
	}
	return nil
}

// cancelOpenRequests cancels requests that never reached the warehouse.
func (s *statusService) cancelOpenRequests(tx *gorm.DB, channelID uuid.UUID, actorID string) ([]model.EventLog, error) {
	requests, err := s.requestRepo.FindByChannel(tx, channelID)
	if err != nil {
		return nil, err
	}
	var evts []model.EventLog
	for _, r := range requests {
		if !lifecycle.CanTransitionRequest(r.Status, model.RequestCancelled) {
			continue
		}
		_, evt, err := s.ApplyRequest(tx, r.ID, model.RequestCancelled, actorID)
		if err != nil {
			return nil, err
		}
		evts = append(evts, evt)
	}
	return evts, nil
}

func (s *statusService) TransitionPayment(ctx context.Context, id uuid.UUID, target model.PaymentStatus, actorID string) (*model.Channel, error) {
	const op = "channel.payment"
	var (
		channel *model.Channel
		evt     model.EventLog
	)
	err := s.txRunner.RunAtomic(ctx, op, func(tx *gorm.DB) error {
		var err error
		channel, err = s.channelRepo.FindByIDForUpdate(tx, id)
		if err != nil {
			return err
		}
		from := channel.PaymentStatus
		if err := lifecycle.ValidatePayment(from, target); err != nil {
			return err
		}
		if target == model.PaymentPending && !lifecycle.GoodsSettledForPayment(channel.Status) {
			return lifecycle.Guard(lifecycle.EntityPayment, string(from), string(target),
				fmt.Sprintf("goods track is %s; payment opens once the channel is active", channel.Status))
		}

		ok, err := s.channelRepo.UpdatePaymentStatus(tx, id, from, target, actorOr(actorID))
		if err != nil {
			return err
		}
		if !ok {
			return apperror.ConcurrencyConflict(op, "payment status of %s changed concurrently", channel.Code)
		}
		channel.PaymentStatus = target

		evt = newEvent(ptr(channel.ID), model.ActionPaymentTransition, lifecycle.EntityPayment, channel.ID, actorID,
			"%s -> %s", from, target)
		return s.eventRepo.Append(tx, &evt)
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.log, evt)
	return channel, nil
}

// Warehouse-side states are reached only through the stock request
// operations that also set the quantities.
var warehouseOnly = map[model.RequestStatus]bool{
	model.RequestAllocated: true,
	model.RequestPacked:    true,
	model.RequestShipped:   true,
	model.RequestReceived:  true,
}

func (s *statusService) TransitionRequest(ctx context.Context, id uuid.UUID, target model.RequestStatus, actorID string) (*model.StockRequest, error) {
	var (
		req *model.StockRequest
		evt model.EventLog
	)
	err := s.txRunner.RunAtomic(ctx, "stock_request.transition", func(tx *gorm.DB) error {
		current, err := s.requestRepo.FindByIDForUpdate(tx, id)
		if err != nil {
			return err
		}
		if err := lifecycle.ValidateRequest(current.Status, target); err != nil {
			return err
		}
		if warehouseOnly[target] {
			return lifecycle.Guard(lifecycle.EntityStockRequest, string(current.Status), string(target),
				"use the warehouse operation for this step")
		}
		req, evt, err = s.ApplyRequest(tx, id, target, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.log, evt)
	return req, nil
}

func (s *statusService) ApplyRequest(tx *gorm.DB, id uuid.UUID, target model.RequestStatus, actorID string) (*model.StockRequest, model.EventLog, error) {
	req, err := s.requestRepo.FindByIDForUpdate(tx, id)
	if err != nil {
		return nil, model.EventLog{}, err
	}
	from := req.Status
	if err := lifecycle.ValidateRequest(from, target); err != nil {
		return nil, model.EventLog{}, err
	}
	if target == model.RequestApproved {
		channel, err := s.channelRepo.FindByIDForUpdate(tx, req.ChannelID)
		if err != nil {
			return nil, model.EventLog{}, err
		}
		if lifecycle.IsChannelTerminal(channel.Status) {
			return nil, model.EventLog{}, lifecycle.Guard(lifecycle.EntityStockRequest, string(from), string(target),
				fmt.Sprintf("channel %s is %s", channel.Code, channel.Status))
		}
		if req.Type == model.RequestTopUp && channel.Status != model.ChannelActive {
			return nil, model.EventLog{}, lifecycle.Guard(lifecycle.EntityStockRequest, string(from), string(target),
				fmt.Sprintf("top-up needs an active channel, %s is %s", channel.Code, channel.Status))
		}
	}

	ok, err := s.requestRepo.UpdateStatus(tx, id, from, target, actorOr(actorID))
	if err != nil {
		return nil, model.EventLog{}, err
	}
	if !ok {
		return nil, model.EventLog{}, apperror.ConcurrencyConflict("stock_request.transition", "stock request %s left %s concurrently", id, from)
	}
	req.Status = target

	evt := newEvent(ptr(req.ChannelID), model.ActionRequestTransition, lifecycle.EntityStockRequest, req.ID, actorID,
		"%s %s -> %s", req.Type, from, target)
	if err := s.eventRepo.Append(tx, &evt); err != nil {
		return nil, model.EventLog{}, err
	}
	return req, evt, nil
}
