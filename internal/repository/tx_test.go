package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"go-popup-ledger/internal/apperror"
	"go-popup-ledger/internal/model"
	"go-popup-ledger/internal/repository"
	"go-popup-ledger/internal/testutil"
	"go-popup-ledger/pkg/logger"
)

func countWarehouse(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.WarehouseStock{}).Count(&n).Error)
	return n
}

func TestRunAtomic_CommitsOnSuccess(t *testing.T) {
	db := testutil.NewDB(t)
	runner := repository.NewTxRunner(db, logger.Discard(), time.Second)
	stock := repository.NewStockRepo(db)

	err := runner.RunAtomic(context.Background(), "test.commit", func(tx *gorm.DB) error {
		return stock.AddWarehouse(tx, "B1", 5, "tester")
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), countWarehouse(t, db))
}

func TestRunAtomic_DomainErrorRollsBackAndPassesThrough(t *testing.T) {
	db := testutil.NewDB(t)
	runner := repository.NewTxRunner(db, logger.Discard(), time.Second)
	stock := repository.NewStockRepo(db)

	want := apperror.InsufficientStock("test.sell", "not enough")
	err := runner.RunAtomic(context.Background(), "test.rollback", func(tx *gorm.DB) error {
		require.NoError(t, stock.AddWarehouse(tx, "B1", 5, "tester"))
		return want
	})

	assert.Same(t, want, err)
	assert.Equal(t, int64(0), countWarehouse(t, db))
}

func TestRunAtomic_PlainErrorBecomesStorage(t *testing.T) {
	db := testutil.NewDB(t)
	runner := repository.NewTxRunner(db, logger.Discard(), time.Second)

	cause := errors.New("disk full")
	err := runner.RunAtomic(context.Background(), "test.storage", func(tx *gorm.DB) error {
		return cause
	})

	assert.Equal(t, apperror.KindStorage, apperror.KindOf(err))
	assert.ErrorIs(t, err, cause)
}

func TestRunAtomic_PanicRollsBack(t *testing.T) {
	db := testutil.NewDB(t)
	runner := repository.NewTxRunner(db, logger.Discard(), time.Second)
	stock := repository.NewStockRepo(db)

	err := runner.RunAtomic(context.Background(), "test.panic", func(tx *gorm.DB) error {
		require.NoError(t, stock.AddWarehouse(tx, "B1", 5, "tester"))
		panic("boom")
	})

	require.Error(t, err)
	assert.Equal(t, apperror.KindStorage, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, int64(0), countWarehouse(t, db))
}

func TestRunAtomic_CancelledContext(t *testing.T) {
	db := testutil.NewDB(t)
	runner := repository.NewTxRunner(db, logger.Discard(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := runner.RunAtomic(ctx, "test.cancelled", func(tx *gorm.DB) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, apperror.KindStorage, apperror.KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}
