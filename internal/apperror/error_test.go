package apperror_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"go-popup-ledger/internal/apperror"
)

func TestKindOf_ThroughWrapping(t *testing.T) {
	base := apperror.InsufficientStock("ledger.sell", "barcode %s: available %d, requested %d", "B1", 2, 5)
	wrapped := fmt.Errorf("checkout: %w", base)

	assert.Equal(t, apperror.KindInsufficientStock, apperror.KindOf(wrapped))
	assert.True(t, apperror.Is(wrapped, apperror.KindInsufficientStock))
	assert.True(t, apperror.IsDomain(wrapped))
	assert.False(t, apperror.IsFatal(wrapped))
	assert.Contains(t, base.Error(), "available 2, requested 5")
}

func TestKindOf_UnclassifiedIsStorage(t *testing.T) {
	err := errors.New("connection reset")
	assert.Equal(t, apperror.KindStorage, apperror.KindOf(err))
	assert.False(t, apperror.IsDomain(err))
	assert.True(t, apperror.IsFatal(err))
	assert.Equal(t, apperror.Kind(""), apperror.KindOf(nil))
}

func TestFatalAndRetryable(t *testing.T) {
	assert.True(t, apperror.IsFatal(apperror.InvariantViolation("ledger.reverse", "sold would go negative")))
	assert.True(t, apperror.IsRetryable(apperror.ConcurrencyConflict("ledger.sell", "lost race")))
	assert.False(t, apperror.IsRetryable(apperror.NotFound("sale.cancel", "sale not found")))
}

func TestStorage_HidesCauseInMessage(t *testing.T) {
	cause := errors.New("pq: relation does not exist")
	err := apperror.Storage("sale.create", cause)

	assert.Equal(t, "storage failure", err.Message)
	assert.ErrorIs(t, err, cause)
}
