package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"go-popup-ledger/internal/apperror"
	"go-popup-ledger/internal/events"
	"go-popup-ledger/internal/lifecycle"
	"go-popup-ledger/internal/model"
	"go-popup-ledger/internal/repository"
)

type CreateChannelInput struct {
	Code        string          `json:"code" validate:"required,max=32"`
	Name        string          `json:"name" validate:"required,max=255"`
	Location    string          `json:"location" validate:"max=255"`
	StartDate   time.Time       `json:"start_date" validate:"required"`
	EndDate     time.Time       `json:"end_date" validate:"required,gtefield=StartDate"`
	SalesTarget decimal.Decimal `json:"sales_target" validate:"decimal_gte0"`
	ActorID     string          `json:"-"`
}

type ChannelService interface {
	Create(ctx context.Context, input CreateChannelInput) (*model.Channel, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Channel, error)
	List(ctx context.Context, status model.ChannelStatus) ([]model.Channel, error)
	AssignStaff(ctx context.Context, channelID, staffID uuid.UUID, isMain bool, actorID string) (*model.StaffAssignment, error)
	UnassignStaff(ctx context.Context, channelID, staffID uuid.UUID, actorID string) error
	Events(ctx context.Context, channelID uuid.UUID, limit int) ([]model.EventLog, error)
}

type channelService struct {
	channelRepo repository.ChannelRepository
	staffRepo   repository.StaffRepository
	eventRepo   repository.EventRepository
	txRunner    repository.TxRunner
	db          *gorm.DB
	publisher   events.Publisher
	log         *logrus.Logger
}

func NewChannelService(
	channelRepo repository.ChannelRepository,
	staffRepo repository.StaffRepository,
	eventRepo repository.EventRepository,
	txRunner repository.TxRunner,
	db *gorm.DB,
	publisher events.Publisher,
	log *logrus.Logger,
) ChannelService {
	return &channelService{
		channelRepo: channelRepo,
		staffRepo:   staffRepo,
		eventRepo:   eventRepo,
		txRunner:    txRunner,
		db:          db,
		publisher:   publisher,
		log:         log,
	}
}

func (s *channelService) Create(ctx context.Context, input CreateChannelInput) (*model.Channel, error) {
	const op = "channel.create"
	input.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	if err := validateInput(op, &input); err != nil {
		return nil, err
	}

	var (
		channel *model.Channel
		evt     model.EventLog
	)
	err := s.txRunner.RunAtomic(ctx, op, func(tx *gorm.DB) error {
		_, err := s.channelRepo.FindByCode(tx, input.Code)
		if err == nil {
			return apperror.Conflict(op, "channel code %s already exists", input.Code)
		}
		if !apperror.Is(err, apperror.KindNotFound) {
			return err
		}

		channel = &model.Channel{
			Code:          input.Code,
			Name:          strings.TrimSpace(input.Name),
			Location:      strings.TrimSpace(input.Location),
			StartDate:     input.StartDate,
			EndDate:       input.EndDate,
			Status:        model.ChannelDraft,
			PaymentStatus: model.PaymentNone,
			SalesTarget:   input.SalesTarget.Round(2),
		}
		channel.Stamp(actorOr(input.ActorID))
		if err := s.channelRepo.Create(tx, channel); err != nil {
			return err
		}
		evt = newEvent(ptr(channel.ID), model.ActionChannelCreated, lifecycle.EntityChannel, channel.ID, input.ActorID,
			"%s %s", channel.Code, channel.Name)
		return s.eventRepo.Append(tx, &evt)
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.log, evt)
	return channel, nil
}

func (s *channelService) Get(ctx context.Context, id uuid.UUID) (*model.Channel, error) {
	channel, err := s.channelRepo.FindByID(s.db.WithContext(ctx), id)
	return channel, readErr("channel.get", err)
}

func (s *channelService) List(ctx context.Context, status model.ChannelStatus) ([]model.Channel, error) {
	if status != "" && !status.Valid() {
		return nil, apperror.Validation("channel.list", "unknown status %q", status)
	}
	channels, err := s.channelRepo.FindAll(s.db.WithContext(ctx), status)
	return channels, readErr("channel.list", err)
}

// AssignStaff is idempotent per pair. The first assignee becomes main; an
// explicit isMain demotes the previous main.
func (s *channelService) AssignStaff(ctx context.Context, channelID, staffID uuid.UUID, isMain bool, actorID string) (*model.StaffAssignment, error) {
	const op = "channel.assign_staff"
	var (
		assignment *model.StaffAssignment
		evts       []model.EventLog
	)
	err := s.txRunner.RunAtomic(ctx, op, func(tx *gorm.DB) error {
		channel, err := s.channelRepo.FindByIDForUpdate(tx, channelID)
		if err != nil {
			return err
		}
		if lifecycle.IsChannelTerminal(channel.Status) {
			return apperror.GuardFailed(op, "channel %s is %s", channel.Code, channel.Status)
		}
		staff, err := s.staffRepo.FindByID(tx, staffID)
		if err != nil {
			return err
		}
		if !staff.IsActive {
			return apperror.GuardFailed(op, "staff %s is inactive", staff.Code)
		}

		existing, err := s.channelRepo.FindAssignments(tx, channelID)
		if err != nil {
			return err
		}
		for i := range existing {
			if existing[i].StaffID == staffID {
				assignment = &existing[i]
			}
		}

		created := false
		if assignment == nil {
			clash, err := s.channelRepo.FindOverlappingChannels(tx, staffID, channel.StartDate, channel.EndDate,
				channelID, lifecycle.TerminalChannelStatuses())
			if err != nil {
				return err
			}
			if len(clash) > 0 {
				return apperror.Conflict(op, "staff %s already booked: %s", staff.Code, formatClashes(clash))
			}
			assignment = &model.StaffAssignment{ChannelID: channelID, StaffID: staffID}
			assignment.Stamp(actorOr(actorID))
			if err := s.channelRepo.CreateAssignment(tx, assignment); err != nil {
				return err
			}
			assignment.Staff = staff
			created = true
		}

		promoted := false
		if (isMain || len(existing) == 0) && !assignment.IsMain {
			if err := s.channelRepo.SetMain(tx, channelID, staffID, actorOr(actorID)); err != nil {
				return err
			}
			assignment.IsMain = true
			promoted = true
		}
		if !created && !promoted {
			return nil
		}

		evt := newEvent(ptr(channelID), model.ActionStaffAssigned, "staff_assignment", assignment.ID, actorID,
			"%s assigned (main=%t)", staff.Code, assignment.IsMain)
		if err := s.eventRepo.Append(tx, &evt); err != nil {
			return err
		}
		evts = append(evts, evt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.log, evts...)
	return assignment, nil
}

// UnassignStaff removes the pair. Removing the main assignee promotes the
// earliest remaining one.
func (s *channelService) UnassignStaff(ctx context.Context, channelID, staffID uuid.UUID, actorID string) error {
	const op = "channel.unassign_staff"
	var evt model.EventLog
	err := s.txRunner.RunAtomic(ctx, op, func(tx *gorm.DB) error {
		if _, err := s.channelRepo.FindByIDForUpdate(tx, channelID); err != nil {
			return err
		}
		assignment, err := s.channelRepo.FindAssignment(tx, channelID, staffID)
		if err != nil {
			return err
		}
		if err := s.channelRepo.DeleteAssignment(tx, channelID, staffID); err != nil {
			return err
		}

		detail := "staff unassigned"
		if assignment.IsMain {
			if err := s.channelRepo.ClearMain(tx, channelID, actorOr(actorID)); err != nil {
				return err
			}
			rest, err := s.channelRepo.FindAssignments(tx, channelID)
			if err != nil {
				return err
			}
			if len(rest) > 0 {
				if err := s.channelRepo.SetMain(tx, channelID, rest[0].StaffID, actorOr(actorID)); err != nil {
					return err
				}
				detail += "; main passed to " + rest[0].StaffID.String()
			}
		}
		evt = newEvent(ptr(channelID), model.ActionStaffUnassigned, "staff_assignment", assignment.ID, actorID, "%s", detail)
		return s.eventRepo.Append(tx, &evt)
	})
	if err != nil {
		return err
	}
	publish(ctx, s.publisher, s.log, evt)
	return nil
}

func (s *channelService) Events(ctx context.Context, channelID uuid.UUID, limit int) ([]model.EventLog, error) {
	evts, err := s.eventRepo.FindByChannel(s.db.WithContext(ctx), channelID, limit)
	return evts, readErr("channel.events", err)
}

// formatClashes renders overlapping channels as "[CODE 2006-01-02 to 2006-01-02]".
func formatClashes(channels []model.Channel) string {
	details := make([]string, len(channels))
	for i, c := range channels {
		details[i] = fmt.Sprintf("[%s %s to %s]", c.Code,
			c.StartDate.Format("2006-01-02"), c.EndDate.Format("2006-01-02"))
	}
	return strings.Join(details, ", ")
}
