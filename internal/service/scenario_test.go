package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-popup-ledger/internal/apperror"
	"go-popup-ledger/internal/model"
	"go-popup-ledger/internal/service"
)

// TestChannelLifecycle walks one channel from planning to completion and
// checks every stock bucket on the way.
func TestChannelLifecycle(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.Restock(f.ctx, "B1", 100, "warehouse")
	require.NoError(t, err)

	ch, req := f.approvedWithRequest(t, "C1", map[string]int{"B1": 100})
	assert.Equal(t, model.ChannelDraft, ch.Status)

	alloc, err := f.requests.Allocate(f.ctx, req.ID, nil, "warehouse")
	require.NoError(t, err)
	assert.Empty(t, alloc.Discrepancies)
	assert.Equal(t, 0, f.warehouse(t, "B1"))
	f.move(t, ch.ID, model.ChannelPacking)

	_, err = f.requests.Pack(f.ctx, req.ID, nil, "warehouse")
	require.NoError(t, err)
	f.move(t, ch.ID, model.ChannelPacked)

	shipped, err := f.requests.Ship(f.ctx, req.ID, service.ShipmentInput{Carrier: "JNE", TrackingNumber: "TRK-1"}, "warehouse")
	require.NoError(t, err)
	require.NotNil(t, shipped.Shipment)
	assert.Equal(t, "JNE", shipped.Shipment.Carrier)
	f.move(t, ch.ID, model.ChannelShipped)

	recv, err := f.requests.Receive(f.ctx, req.ID, nil, "cashier")
	require.NoError(t, err)
	assert.Empty(t, recv.Discrepancies)
	assert.Equal(t, model.RequestReceived, recv.Request.Status)
	f.move(t, ch.ID, model.ChannelActive)

	row := f.stock(t, ch.ID, "B1")
	assert.Equal(t, 100, row.Received)
	assert.Equal(t, 100, row.Available)

	sale, err := f.sales.CreateSale(f.ctx, saleOf(&ch.ID, line("B1", 30, 10000)))
	require.NoError(t, err)
	assert.Equal(t, "C1-0001", sale.BillCode)
	assert.Equal(t, "300000.00", sale.TotalAmount.StringFixed(2))
	row = f.stock(t, ch.ID, "B1")
	assert.Equal(t, 70, row.Available)
	assert.Equal(t, 30, row.Sold)

	cancelled, err := f.sales.CancelSale(f.ctx, sale.ID, "customer changed mind", "cashier")
	require.NoError(t, err)
	assert.Equal(t, model.SaleCancelled, cancelled.Status)
	row = f.stock(t, ch.ID, "B1")
	assert.Equal(t, 100, row.Available)
	assert.Equal(t, 0, row.Sold)

	f.move(t, ch.ID, model.ChannelPendingReturn)
	summary, err := f.returns.CloseOut(f.ctx, service.CloseOutInput{
		ChannelID: ch.ID,
		Reports:   []service.CloseOutLine{{Barcode: "B1", Damaged: 5, Missing: 2}},
		ActorID:   "manager",
	})
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, 93, summary.Items[0].RemainingQuantity)
	assert.Equal(t, model.ReturnPending, summary.Status)

	_, err = f.returns.ShipReturn(f.ctx, ch.ID, service.ShipmentInput{Carrier: "JNE"}, "manager")
	require.NoError(t, err)
	got, err := f.channels.Get(f.ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ChannelReturning, got.Status)

	settled, err := f.returns.ConfirmReturn(f.ctx, ch.ID, "warehouse")
	require.NoError(t, err)
	assert.Equal(t, model.ReturnSettled, settled.Status)
	got, err = f.channels.Get(f.ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ChannelReturned, got.Status)

	assert.Equal(t, 93, f.warehouse(t, "B1"))
	row = f.stock(t, ch.ID, "B1")
	assert.Equal(t, 100, row.Received)
	assert.Equal(t, 0, row.Sold)
	assert.Equal(t, 5, row.Damaged)
	assert.Equal(t, 2, row.Missing)
	assert.Equal(t, 93, row.Returned)
	assert.Equal(t, 0, row.Available)
	require.NoError(t, f.ledger.CheckConservation(f.ctx, ch.ID))

	_, err = f.status.TransitionChannel(f.ctx, ch.ID, model.ChannelCompleted, service.TransitionOptions{ActorID: "finance"})
	assert.True(t, apperror.Is(err, apperror.KindGuardFailed), "got %v", err)

	_, err = f.status.TransitionPayment(f.ctx, ch.ID, model.PaymentPending, "finance")
	require.NoError(t, err)
	_, err = f.status.TransitionPayment(f.ctx, ch.ID, model.PaymentApproved, "finance")
	require.NoError(t, err)
	done, err := f.status.TransitionChannel(f.ctx, ch.ID, model.ChannelCompleted, service.TransitionOptions{ActorID: "finance"})
	require.NoError(t, err)
	assert.Equal(t, model.ChannelCompleted, done.Status)

	actions := f.pub.actions()
	assert.Contains(t, actions, model.ActionSaleRecorded)
	assert.Contains(t, actions, model.ActionSaleCancelled)
	assert.Contains(t, actions, model.ActionCloseOut)
	assert.Contains(t, actions, model.ActionReturnConfirmed)
	assert.Equal(t, model.ActionChannelTransition, actions[len(actions)-1])

	evts, err := f.channels.Events(f.ctx, ch.ID, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, evts)
}
