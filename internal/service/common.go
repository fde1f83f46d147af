package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go-popup-ledger/internal/apperror"
	"go-popup-ledger/internal/events"
	"go-popup-ledger/internal/model"
	"go-popup-ledger/pkg/logger"
	"go-popup-ledger/pkg/validator"
)

// SystemActor stamps rows written without an authenticated caller.
const SystemActor = "system"

func actorOr(actorID string) string {
	if actorID == "" {
		return SystemActor
	}
	return actorID
}

// validateInput runs struct validation and reports the first failure.
func validateInput(op string, input interface{}) error {
	if errs := validator.ValidateStruct(input); len(errs) > 0 {
		return apperror.Validation(op, "validation failed: %s", errs[0].String())
	}
	return nil
}

// readErr classifies errors from reads made outside a transaction.
func readErr(op string, err error) error {
	if err == nil || apperror.IsDomain(err) {
		return err
	}
	return apperror.Storage(op, err)
}

func newEvent(channelID *uuid.UUID, action, entityType string, entityID uuid.UUID, actorID, format string, args ...any) model.EventLog {
	return model.EventLog{
		ID:         uuid.New(),
		ChannelID:  channelID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     fmt.Sprintf(format, args...),
		ActorID:    actorOr(actorID),
	}
}

func ptr(id uuid.UUID) *uuid.UUID {
	return &id
}

// publish hands committed events to the publisher. Failures are logged;
// the ledger write has already happened.
func publish(ctx context.Context, pub events.Publisher, log *logrus.Logger, evts ...model.EventLog) {
	if pub == nil {
		return
	}
	for _, e := range evts {
		if err := pub.Publish(ctx, e); err != nil {
			logger.LogError(log, "service", "publish", e.Action, e.ID, err)
		}
	}
}
