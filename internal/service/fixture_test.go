package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"go-popup-ledger/internal/model"
	"go-popup-ledger/internal/repository"
	"go-popup-ledger/internal/service"
	"go-popup-ledger/internal/testutil"
	"go-popup-ledger/pkg/lock"
	"go-popup-ledger/pkg/logger"
)

// recorder keeps every published event in order.
type recorder struct {
	mu     sync.Mutex
	events []model.EventLog
}

func (r *recorder) Publish(_ context.Context, e model.EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action
	}
	return out
}

type fixture struct {
	ctx    context.Context
	db     *gorm.DB
	pub    *recorder
	locker *lock.LocalLocker

	stockRepo   repository.StockRepository
	staffRepo   repository.StaffRepository
	channelRepo repository.ChannelRepository

	ledger    service.StockLedger
	status    service.StatusService
	channels  service.ChannelService
	requests  service.StockRequestService
	sales     service.SaleService
	returns   service.ReturnService
	dashboard service.DashboardService
	staff     service.StaffService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	log := logger.Discard()
	pub := &recorder{}
	locker := lock.NewLocalLocker()

	channelRepo := repository.NewChannelRepo(db)
	stockRepo := repository.NewStockRepo(db)
	requestRepo := repository.NewStockRequestRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	seqRepo := repository.NewSequenceRepo(db)
	returnRepo := repository.NewReturnRepo(db)
	eventRepo := repository.NewEventRepo(db)
	staffRepo := repository.NewStaffRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	txRunner := repository.NewTxRunner(db, log, 5*time.Second)

	ledger := service.NewStockLedger(stockRepo, eventRepo, txRunner, db, pub, log)
	status := service.NewStatusService(channelRepo, requestRepo, stockRepo, returnRepo, eventRepo, ledger, txRunner, db, pub, log)

	return &fixture{
		ctx:    context.Background(),
		db:     db,
		pub:    pub,
		locker: locker,

		stockRepo:   stockRepo,
		staffRepo:   staffRepo,
		channelRepo: channelRepo,

		ledger:    ledger,
		status:    status,
		channels:  service.NewChannelService(channelRepo, staffRepo, eventRepo, txRunner, db, pub, log),
		requests:  service.NewStockRequestService(requestRepo, channelRepo, eventRepo, status, ledger, txRunner, db, pub, log),
		sales:     service.NewSaleService(saleRepo, channelRepo, seqRepo, eventRepo, ledger, txRunner, db, pub, log),
		returns:   service.NewReturnService(returnRepo, channelRepo, stockRepo, eventRepo, status, ledger, locker, time.Minute, txRunner, db, pub, log),
		dashboard: service.NewDashboardService(channelRepo, saleRepo, stockRepo, db),
		staff:     service.NewStaffService(staffRepo, privilegeRepo, roleRepo, txRunner, db),
	}
}

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func (f *fixture) createChannel(t *testing.T, code string, start, end time.Time) *model.Channel {
	t.Helper()
	ch, err := f.channels.Create(f.ctx, service.CreateChannelInput{
		Code:        code,
		Name:        "Pop-up " + code,
		Location:    "Mall",
		StartDate:   start,
		EndDate:     end,
		SalesTarget: decimal.NewFromInt(1000000),
		ActorID:     "planner",
	})
	require.NoError(t, err)
	return ch
}

func (f *fixture) move(t *testing.T, channelID uuid.UUID, path ...model.ChannelStatus) {
	t.Helper()
	for _, to := range path {
		_, err := f.status.TransitionChannel(f.ctx, channelID, to, service.TransitionOptions{ActorID: "planner"})
		require.NoError(t, err, "move to %s", to)
	}
}

// approvedWithRequest returns an approved channel with an approved INITIAL
// request for the given barcode quantities.
func (f *fixture) approvedWithRequest(t *testing.T, code string, lines map[string]int) (*model.Channel, *model.StockRequest) {
	t.Helper()
	ch := f.createChannel(t, code, day(1), day(5))

	input := service.CreateStockRequestInput{ChannelID: ch.ID, Type: model.RequestInitial, ActorID: "planner"}
	for b, q := range lines {
		input.Items = append(input.Items, service.StockRequestLine{Barcode: b, Quantity: q})
	}
	req, err := f.requests.Create(f.ctx, input)
	require.NoError(t, err)
	_, err = f.requests.Submit(f.ctx, req.ID, "planner")
	require.NoError(t, err)
	_, err = f.requests.Approve(f.ctx, req.ID, "manager")
	require.NoError(t, err)

	f.move(t, ch.ID, model.ChannelPendingApproval, model.ChannelApproved)
	return ch, req
}

// activeChannel restocks the warehouse and walks a channel all the way to
// active with the full quantities received.
func (f *fixture) activeChannel(t *testing.T, code string, lines map[string]int) *model.Channel {
	t.Helper()
	for b, q := range lines {
		_, err := f.ledger.Restock(f.ctx, b, q, "warehouse")
		require.NoError(t, err)
	}
	ch, req := f.approvedWithRequest(t, code, lines)

	_, err := f.requests.Allocate(f.ctx, req.ID, nil, "warehouse")
	require.NoError(t, err)
	f.move(t, ch.ID, model.ChannelPacking)
	_, err = f.requests.Pack(f.ctx, req.ID, nil, "warehouse")
	require.NoError(t, err)
	f.move(t, ch.ID, model.ChannelPacked)
	_, err = f.requests.Ship(f.ctx, req.ID, service.ShipmentInput{Carrier: "JNE", TrackingNumber: "TRK-1"}, "warehouse")
	require.NoError(t, err)
	f.move(t, ch.ID, model.ChannelShipped)
	_, err = f.requests.Receive(f.ctx, req.ID, nil, "cashier")
	require.NoError(t, err)
	f.move(t, ch.ID, model.ChannelActive)
	return ch
}

func (f *fixture) stock(t *testing.T, channelID uuid.UUID, barcode string) *model.ChannelStock {
	t.Helper()
	row, err := f.stockRepo.FindChannelStock(nil, channelID, barcode)
	require.NoError(t, err)
	return row
}

func (f *fixture) warehouse(t *testing.T, barcode string) int {
	t.Helper()
	row, err := f.stockRepo.FindWarehouseStock(nil, barcode)
	require.NoError(t, err)
	return row.Quantity
}

func saleOf(channelID *uuid.UUID, lines ...service.SaleLineInput) service.CreateSaleInput {
	return service.CreateSaleInput{
		ChannelID:     channelID,
		Items:         lines,
		PaymentMethod: "cash",
		ActorID:       "cashier",
	}
}

func line(barcode string, qty int, price int64) service.SaleLineInput {
	return service.SaleLineInput{Barcode: barcode, Quantity: qty, UnitPrice: decimal.NewFromInt(price)}
}

func (f *fixture) newStaff(t *testing.T, code string) *model.Staff {
	t.Helper()
	st := &model.Staff{Code: code, FullName: "Staff " + code, IsActive: true}
	require.NoError(t, f.staffRepo.Create(nil, st))
	return st
}
