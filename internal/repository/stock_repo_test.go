package repository_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-popup-ledger/internal/apperror"
	"go-popup-ledger/internal/repository"
	"go-popup-ledger/internal/testutil"
)

func TestStockRepo_ChannelBuckets(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewStockRepo(db)
	channelID := uuid.New()

	require.NoError(t, repo.OpenChannelStock(nil, channelID, "B1", "tester"))
	// opening twice keeps the single row
	require.NoError(t, repo.OpenChannelStock(nil, channelID, "B1", "tester"))

	n, err := repo.AddReceived(nil, channelID, "B1", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.SellAvailable(nil, channelID, "B1", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// the guard refuses to oversell
	n, err = repo.SellAvailable(nil, channelID, "B1", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = repo.ReverseSold(nil, channelID, "B1", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "cannot reverse more than sold")

	n, err = repo.WriteOff(nil, channelID, "B1", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.MoveToReturned(nil, channelID, "B1", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	row, err := repo.FindChannelStock(nil, channelID, "B1")
	require.NoError(t, err)
	assert.Equal(t, 10, row.Received)
	assert.Equal(t, 4, row.Sold)
	assert.Equal(t, 1, row.Damaged)
	assert.Equal(t, 2, row.Missing)
	assert.Equal(t, 3, row.Returned)
	assert.Equal(t, 0, row.Available)
	assert.True(t, row.Balanced())

	rows, err := repo.FindChannelStocks(nil, channelID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestStockRepo_FindChannelStockMissing(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewStockRepo(db)

	_, err := repo.FindChannelStock(nil, uuid.New(), "NOPE")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestStockRepo_Warehouse(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewStockRepo(db)

	require.NoError(t, repo.AddWarehouse(nil, "B1", 5, "tester"))
	require.NoError(t, repo.AddWarehouse(nil, "B1", 3, "tester"))
	require.NoError(t, repo.AddWarehouse(nil, "B2", 1, "tester"))

	row, err := repo.FindWarehouseStock(nil, "B1")
	require.NoError(t, err)
	assert.Equal(t, 8, row.Quantity)

	n, err := repo.TakeWarehouse(nil, "B1", 9)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = repo.TakeWarehouse(nil, "B1", 8)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows, err := repo.FindWarehouseStocks(nil, []string{"B2"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "B2", rows[0].Barcode)

	all, err := repo.FindWarehouseStocks(nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
