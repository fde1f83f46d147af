package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"go-popup-ledger/internal/apperror"
	"go-popup-ledger/pkg/logger"
)

// TxRunner is the atomicity boundary for every multi-row ledger mutation.
// Writes made through the tx handle are committed together or not at all.
type TxRunner interface {
	RunAtomic(ctx context.Context, op string, fn func(tx *gorm.DB) error) error
}

type txRunner struct {
	db      *gorm.DB
	log     *logrus.Logger
	timeout time.Duration
}

// NewTxRunner builds a runner. timeout applies only when the caller's
// context has no deadline of its own; zero disables it.
func NewTxRunner(db *gorm.DB, log *logrus.Logger, timeout time.Duration) TxRunner {
	return &txRunner{db: db, log: log, timeout: timeout}
}

func (r *txRunner) RunAtomic(ctx context.Context, op string, fn func(tx *gorm.DB) error) (err error) {
	if _, ok := ctx.Deadline(); !ok && r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	// gorm rolls back before re-panicking, so only the conversion is left.
	defer func() {
		if p := recover(); p != nil {
			err = apperror.Storage(op, fmt.Errorf("panic: %v", p))
			logger.LogError(r.log, "repository", "RunAtomic", op, nil, err)
		}
	}()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
	if err == nil {
		return nil
	}

	if apperror.IsDomain(err) {
		if apperror.IsFatal(err) {
			logger.LogError(r.log, "repository", "RunAtomic", op, nil, err)
		}
		return err
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %v", ctxErr, err)
	}
	wrapped := apperror.Storage(op, err)
	logger.LogError(r.log, "repository", "RunAtomic", op, nil, wrapped)
	return wrapped
}
