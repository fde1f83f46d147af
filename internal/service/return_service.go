package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"go-popup-ledger/internal/apperror"
	"go-popup-ledger/internal/events"
	"go-popup-ledger/internal/model"
	"go-popup-ledger/internal/repository"
	"go-popup-ledger/pkg/lock"
)

// CloseOutLine is the floor count for one barcode. Barcodes not reported
// close out with zero damaged and zero missing.
type CloseOutLine struct {
	Barcode string `json:"barcode" validate:"required,max=64"`
	Damaged int    `json:"damaged" validate:"gte=0"`
	Missing int    `json:"missing" validate:"gte=0"`
}

type CloseOutInput struct {
	ChannelID uuid.UUID      `json:"channel_id" validate:"uuid_required"`
	Reports   []CloseOutLine `json:"reports" validate:"dive"`
	ActorID   string         `json:"-"`
}

type ReturnService interface {
	CloseOut(ctx context.Context, input CloseOutInput) (*model.ReturnSummary, error)
	ShipReturn(ctx context.Context, channelID uuid.UUID, input ShipmentInput, actorID string) (*model.ReturnSummary, error)
	ConfirmReturn(ctx context.Context, channelID uuid.UUID, actorID string) (*model.ReturnSummary, error)
	GetReturnSummary(ctx context.Context, channelID uuid.UUID) (*model.ReturnSummary, error)
}

type returnService struct {
	returnRepo  repository.ReturnRepository
	channelRepo repository.ChannelRepository
	stockRepo   repository.StockRepository
	eventRepo   repository.EventRepository
	status      StatusService
	ledger      StockLedger
	locker      lock.Locker
	lockTTL     time.Duration
	txRunner    repository.TxRunner
	db          *gorm.DB
	publisher   events.Publisher
	log         *logrus.Logger
}

func NewReturnService(
	returnRepo repository.ReturnRepository,
	channelRepo repository.ChannelRepository,
	stockRepo repository.StockRepository,
	eventRepo repository.EventRepository,
	status StatusService,
	ledger StockLedger,
	locker lock.Locker,
	lockTTL time.Duration,
	txRunner repository.TxRunner,
	db *gorm.DB,
	publisher events.Publisher,
	log *logrus.Logger,
) ReturnService {
	return &returnService{
		returnRepo:  returnRepo,
		channelRepo: channelRepo,
		stockRepo:   stockRepo,
		eventRepo:   eventRepo,
		status:      status,
		ledger:      ledger,
		locker:      locker,
		lockTTL:     lockTTL,
		txRunner:    txRunner,
		db:          db,
		publisher:   publisher,
		log:         log,
	}
}

// withChannelLock serializes close-out work per channel across instances.
func (s *returnService) withChannelLock(ctx context.Context, op string, channelID uuid.UUID, fn func() error) error {
	release, err := s.locker.Obtain(ctx, "ledger:return:"+channelID.String(), s.lockTTL)
	if errors.Is(err, lock.ErrNotObtained) {
		return apperror.ConcurrencyConflict(op, "another close-out step is running for this channel")
	}
	if err != nil {
		return apperror.Storage(op, err)
	}
	defer release()
	return fn()
}

// CloseOut snapshots the channel's stock into a return summary. It runs
// once per channel.
func (s *returnService) CloseOut(ctx context.Context, input CloseOutInput) (*model.ReturnSummary, error) {
	const op = "return.close_out"
	if err := validateInput(op, &input); err != nil {
		return nil, err
	}
	reports := make(map[string]CloseOutLine, len(input.Reports))
	for _, r := range input.Reports {
		b := strings.TrimSpace(r.Barcode)
		if _, dup := reports[b]; dup {
			return nil, apperror.Validation(op, "barcode %s reported twice", b)
		}
		reports[b] = r
	}

	var (
		summary *model.ReturnSummary
		evt     model.EventLog
	)
	err := s.withChannelLock(ctx, op, input.ChannelID, func() error {
		return s.txRunner.RunAtomic(ctx, op, func(tx *gorm.DB) error {
			channel, err := s.channelRepo.FindByIDForUpdate(tx, input.ChannelID)
			if err != nil {
				return err
			}
			if channel.Status != model.ChannelPendingReturn {
				return apperror.GuardFailed(op, "channel %s is %s; close-out needs %s", channel.Code, channel.Status, model.ChannelPendingReturn)
			}
			exists, err := s.returnRepo.Exists(tx, channel.ID)
			if err != nil {
				return err
			}
			if exists {
				return apperror.Conflict(op, "channel %s is already closed out", channel.Code)
			}

			rows, err := s.stockRepo.FindChannelStocks(tx, channel.ID)
			if err != nil {
				return err
			}
			stocked := make(map[string]bool, len(rows))
			for _, r := range rows {
				stocked[r.Barcode] = true
			}
			var unknown []string
			for b := range reports {
				if !stocked[b] {
					unknown = append(unknown, b)
				}
			}
			if len(unknown) > 0 {
				sort.Strings(unknown)
				return apperror.Validation(op, "barcodes not stocked at this channel: %s", strings.Join(unknown, ", "))
			}

			actor := actorOr(input.ActorID)
			summary = &model.ReturnSummary{ChannelID: channel.ID, Status: model.ReturnPending}
			summary.Stamp(actor)
			var damaged, missing int
			for _, r := range rows {
				rep := reports[r.Barcode]
				remaining, err := s.ledger.CloseOut(tx, channel.ID, r.Barcode, rep.Damaged, rep.Missing)
				if err != nil {
					return err
				}
				item := model.ReturnItem{
					Barcode:           r.Barcode,
					ReceivedQuantity:  r.Received,
					SoldQuantity:      r.Sold,
					DamagedQuantity:   rep.Damaged,
					MissingQuantity:   rep.Missing,
					RemainingQuantity: remaining,
				}
				item.Stamp(actor)
				summary.Items = append(summary.Items, item)
				damaged += rep.Damaged
				missing += rep.Missing
			}
			if err := s.returnRepo.Create(tx, summary); err != nil {
				return err
			}

			evt = newEvent(ptr(channel.ID), model.ActionCloseOut, "return_summary", summary.ID, input.ActorID,
				"%d units to return, %d damaged, %d missing", summary.TotalRemaining(), damaged, missing)
			return s.eventRepo.Append(tx, &evt)
		})
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.log, evt)
	return summary, nil
}

// ShipReturn records the carrier taking goods back and moves the channel
// to returning.
func (s *returnService) ShipReturn(ctx context.Context, channelID uuid.UUID, input ShipmentInput, actorID string) (*model.ReturnSummary, error) {
	const op = "return.ship"
	if err := validateInput(op, &input); err != nil {
		return nil, err
	}
	var (
		summary *model.ReturnSummary
		evts    []model.EventLog
	)
	err := s.txRunner.RunAtomic(ctx, op, func(tx *gorm.DB) error {
		var err error
		summary, err = s.returnRepo.FindByChannel(tx, channelID)
		if err != nil {
			return err
		}
		if summary.Shipment != nil {
			return apperror.Conflict(op, "return shipment already recorded")
		}
		shipment := newShipment(input, actorID)
		shipment.ReturnSummaryID = ptr(summary.ID)
		if err := s.returnRepo.CreateShipment(tx, shipment); err != nil {
			return err
		}
		summary.Shipment = shipment

		evt := newEvent(ptr(channelID), model.ActionReturnShipped, "return_summary", summary.ID, actorID,
			"%d units via %s %s", summary.TotalRemaining(), shipment.Carrier, shipment.TrackingNumber)
		if err := s.eventRepo.Append(tx, &evt); err != nil {
			return err
		}
		_, moved, err := s.status.ApplyChannel(tx, channelID, model.ChannelReturning, TransitionOptions{ActorID: actorID})
		if err != nil {
			return err
		}
		evts = append([]model.EventLog{evt}, moved...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.log, evts...)
	return summary, nil
}

// ConfirmReturn books the returned goods into the warehouse, settles the
// summary and moves the channel to returned.
func (s *returnService) ConfirmReturn(ctx context.Context, channelID uuid.UUID, actorID string) (*model.ReturnSummary, error) {
	const op = "return.confirm"
	var (
		summary *model.ReturnSummary
		evts    []model.EventLog
	)
	err := s.withChannelLock(ctx, op, channelID, func() error {
		return s.txRunner.RunAtomic(ctx, op, func(tx *gorm.DB) error {
			channel, err := s.channelRepo.FindByIDForUpdate(tx, channelID)
			if err != nil {
				return err
			}
			if channel.Status != model.ChannelReturning {
				return apperror.GuardFailed(op, "channel %s is %s; returns are confirmed while %s", channel.Code, channel.Status, model.ChannelReturning)
			}
			summary, err = s.returnRepo.FindByChannel(tx, channelID)
			if err != nil {
				return err
			}
			if summary.Status != model.ReturnPending {
				return apperror.Conflict(op, "return for %s is already settled", channel.Code)
			}

			if err := s.ledger.ConfirmReturn(tx, channelID, summary.Items, actorID); err != nil {
				return err
			}
			now := time.Now()
			ok, err := s.returnRepo.MarkSettled(tx, summary.ID, actorOr(actorID), now)
			if err != nil {
				return err
			}
			if !ok {
				return apperror.ConcurrencyConflict(op, "return for %s settled concurrently", channel.Code)
			}
			summary.Status = model.ReturnSettled
			summary.SettledAt = &now
			summary.SettledBy = actorOr(actorID)

			evt := newEvent(ptr(channelID), model.ActionReturnConfirmed, "return_summary", summary.ID, actorID,
				"%d units back in warehouse", summary.TotalRemaining())
			if err := s.eventRepo.Append(tx, &evt); err != nil {
				return err
			}
			_, moved, err := s.status.ApplyChannel(tx, channelID, model.ChannelReturned, TransitionOptions{ActorID: actorID})
			if err != nil {
				return err
			}
			evts = append([]model.EventLog{evt}, moved...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.log, evts...)
	return summary, nil
}

func (s *returnService) GetReturnSummary(ctx context.Context, channelID uuid.UUID) (*model.ReturnSummary, error) {
	summary, err := s.returnRepo.FindByChannel(s.db.WithContext(ctx), channelID)
	return summary, readErr("return.get", err)
}
