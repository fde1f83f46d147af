package service_test

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-popup-ledger/internal/apperror"
	"go-popup-ledger/internal/model"
	"go-popup-ledger/internal/service"
)

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name    string
		input   service.CreateSaleInput
		total   string
		wantErr bool
	}{
		{
			name:  "plain lines",
			input: saleOf(nil, line("A", 2, 15000), line("B", 1, 5000)),
			total: "35000.00",
		},
		{
			name: "per unit discount",
			input: saleOf(nil, service.SaleLineInput{
				Barcode: "A", Quantity: 3,
				UnitPrice:    decimal.NewFromInt(10000),
				LineDiscount: decimal.NewFromInt(2500),
			}),
			total: "22500.00",
		},
		{
			name: "freebie is free",
			input: saleOf(nil, line("A", 1, 10000), service.SaleLineInput{
				Barcode: "B", Quantity: 1, UnitPrice: decimal.NewFromInt(7000), IsFreebie: true,
			}),
			total: "10000.00",
		},
		{
			name: "adjustments and bill discount",
			input: func() service.CreateSaleInput {
				in := saleOf(nil, line("A", 1, 10000))
				in.Adjustments = []service.AdjustmentInput{
					{Label: "service", Amount: decimal.NewFromInt(500)},
					{Label: "rounding", Amount: decimal.RequireFromString("-0.50")},
				}
				in.BillDiscount = decimal.NewFromInt(1000)
				return in
			}(),
			total: "9499.50",
		},
		{
			name: "discount above price",
			input: saleOf(nil, service.SaleLineInput{
				Barcode: "A", Quantity: 1,
				UnitPrice:    decimal.NewFromInt(100),
				LineDiscount: decimal.NewFromInt(101),
			}),
			wantErr: true,
		},
		{
			name: "negative total",
			input: func() service.CreateSaleInput {
				in := saleOf(nil, line("A", 1, 100))
				in.BillDiscount = decimal.NewFromInt(200)
				return in
			}(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.ComputeTotals(tt.input)
			if tt.wantErr {
				assert.True(t, apperror.Is(err, apperror.KindValidation), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.total, got.TotalAmount.StringFixed(2))
			assert.Len(t, got.LineTotals, len(tt.input.Items))
		})
	}
}

func TestCreateSale_Oversell(t *testing.T) {
	f := newFixture(t)
	ch := f.activeChannel(t, "C1", map[string]int{"B1": 10})

	_, err := f.sales.CreateSale(f.ctx, saleOf(&ch.ID, line("B1", 11, 1000)))
	assert.True(t, apperror.Is(err, apperror.KindInsufficientStock), "got %v", err)

	row := f.stock(t, ch.ID, "B1")
	assert.Equal(t, 10, row.Available)
	assert.Equal(t, 0, row.Sold)

	// A failed sale must not burn a bill number.
	sale, err := f.sales.CreateSale(f.ctx, saleOf(&ch.ID, line("B1", 10, 1000)))
	require.NoError(t, err)
	assert.Equal(t, "C1-0001", sale.BillCode)
	assert.Equal(t, 0, f.stock(t, ch.ID, "B1").Available)
}

func TestCreateSale_ConcurrentOversell(t *testing.T) {
	f := newFixture(t)
	ch := f.activeChannel(t, "C1", map[string]int{"B1": 5})
	const buyers = 12

	var (
		wg                   sync.WaitGroup
		mu                   sync.Mutex
		ok, short, conflicts int
		bills                []string
		others               []error
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sale, err := f.sales.CreateSale(f.ctx, saleOf(&ch.ID, line("B1", 1, 1000)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
				bills = append(bills, sale.BillCode)
			case apperror.Is(err, apperror.KindInsufficientStock):
				short++
			case apperror.Is(err, apperror.KindConcurrencyConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, others)
	assert.Equal(t, buyers, ok+short+conflicts)
	assert.Equal(t, 5, ok)
	assert.ElementsMatch(t, []string{"C1-0001", "C1-0002", "C1-0003", "C1-0004", "C1-0005"}, bills)

	row := f.stock(t, ch.ID, "B1")
	assert.Equal(t, 5, row.Sold)
	assert.Equal(t, 0, row.Available)
	require.NoError(t, f.ledger.CheckConservation(f.ctx, ch.ID))
}

func TestCreateSale_AllLinesOrNothing(t *testing.T) {
	f := newFixture(t)
	ch := f.activeChannel(t, "C1", map[string]int{"B1": 10})

	_, err := f.sales.CreateSale(f.ctx, saleOf(&ch.ID, line("B1", 2, 1000), line("B2", 1, 1000)))
	assert.True(t, apperror.Is(err, apperror.KindInsufficientStock), "got %v", err)

	row := f.stock(t, ch.ID, "B1")
	assert.Equal(t, 10, row.Available)
	assert.Equal(t, 0, row.Sold)

	sales, err := f.sales.ListChannelSales(f.ctx, ch.ID)
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func TestCreateSale_RepeatedBarcodeIsSummed(t *testing.T) {
	f := newFixture(t)
	ch := f.activeChannel(t, "C1", map[string]int{"B1": 5})

	_, err := f.sales.CreateSale(f.ctx, saleOf(&ch.ID, line("B1", 3, 1000), line("B1", 3, 1000)))
	assert.True(t, apperror.Is(err, apperror.KindInsufficientStock), "got %v", err)

	sale, err := f.sales.CreateSale(f.ctx, saleOf(&ch.ID, line("B1", 2, 1000), line("B1", 3, 1000)))
	require.NoError(t, err)
	assert.Len(t, sale.Items, 2)
	assert.Equal(t, 5, f.stock(t, ch.ID, "B1").Sold)
}

func TestCreateSale_BillNumbering(t *testing.T) {
	f := newFixture(t)
	ch := f.activeChannel(t, "C1", map[string]int{"B1": 10})

	for _, want := range []string{"C1-0001", "C1-0002", "C1-0003"} {
		sale, err := f.sales.CreateSale(f.ctx, saleOf(&ch.ID, line("B1", 1, 1000)))
		require.NoError(t, err)
		assert.Equal(t, want, sale.BillCode)
	}

	counter, err := f.sales.CreateSale(f.ctx, saleOf(nil, line("ANY", 1, 1000)))
	require.NoError(t, err)
	assert.Equal(t, "POS-000001", counter.BillCode)
	assert.Nil(t, counter.ChannelID)
}

func TestCreateSale_FreebieTakesStock(t *testing.T) {
	f := newFixture(t)
	ch := f.activeChannel(t, "C1", map[string]int{"B1": 10, "GIFT": 3})

	sale, err := f.sales.CreateSale(f.ctx, saleOf(&ch.ID,
		line("B1", 1, 50000),
		service.SaleLineInput{Barcode: "GIFT", Quantity: 1, UnitPrice: decimal.NewFromInt(20000), IsFreebie: true},
	))
	require.NoError(t, err)
	assert.Equal(t, "50000.00", sale.TotalAmount.StringFixed(2))
	assert.Equal(t, 2, f.stock(t, ch.ID, "GIFT").Available)
	assert.Equal(t, 1, f.stock(t, ch.ID, "GIFT").Sold)
}

func TestCreateSale_NeedsActiveChannel(t *testing.T) {
	f := newFixture(t)
	ch := f.createChannel(t, "C1", day(1), day(3))

	_, err := f.sales.CreateSale(f.ctx, saleOf(&ch.ID, line("B1", 1, 1000)))
	assert.True(t, apperror.Is(err, apperror.KindGuardFailed), "got %v", err)

	missing := uuid.New()
	_, err = f.sales.CreateSale(f.ctx, saleOf(&missing, line("B1", 1, 1000)))
	assert.True(t, apperror.Is(err, apperror.KindNotFound), "got %v", err)
}

func TestCreateSale_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.sales.CreateSale(f.ctx, saleOf(nil))
	assert.True(t, apperror.Is(err, apperror.KindValidation), "got %v", err)

	_, err = f.sales.CreateSale(f.ctx, saleOf(nil, line("B1", 0, 1000)))
	assert.True(t, apperror.Is(err, apperror.KindValidation), "got %v", err)

	_, err = f.sales.CreateSale(f.ctx, saleOf(nil, line("  ", 1, 1000)))
	assert.True(t, apperror.Is(err, apperror.KindValidation), "got %v", err)
}

func TestCancelSale(t *testing.T) {
	f := newFixture(t)
	ch := f.activeChannel(t, "C1", map[string]int{"B1": 10})

	sale, err := f.sales.CreateSale(f.ctx, saleOf(&ch.ID, line("B1", 4, 1000)))
	require.NoError(t, err)

	got, err := f.sales.CancelSale(f.ctx, sale.ID, "wrong item", "cashier")
	require.NoError(t, err)
	assert.Equal(t, model.SaleCancelled, got.Status)
	assert.Equal(t, "wrong item", got.CancelReason)
	assert.NotNil(t, got.CancelledAt)
	assert.Equal(t, 10, f.stock(t, ch.ID, "B1").Available)

	_, err = f.sales.CancelSale(f.ctx, sale.ID, "again", "cashier")
	assert.True(t, apperror.Is(err, apperror.KindAlreadyCancelled), "got %v", err)
	assert.Equal(t, 10, f.stock(t, ch.ID, "B1").Available)

	stored, err := f.sales.GetSale(f.ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SaleCancelled, stored.Status)
	require.NoError(t, f.ledger.CheckConservation(f.ctx, ch.ID))
}

func TestCancelSale_FrozenAfterActive(t *testing.T) {
	f := newFixture(t)
	ch := f.activeChannel(t, "C1", map[string]int{"B1": 10})

	sale, err := f.sales.CreateSale(f.ctx, saleOf(&ch.ID, line("B1", 4, 1000)))
	require.NoError(t, err)
	f.move(t, ch.ID, model.ChannelPendingReturn)

	_, err = f.sales.CancelSale(f.ctx, sale.ID, "", "cashier")
	assert.True(t, apperror.Is(err, apperror.KindGuardFailed), "got %v", err)
	assert.Equal(t, 4, f.stock(t, ch.ID, "B1").Sold)
}

func TestCancelSale_CounterSale(t *testing.T) {
	f := newFixture(t)

	sale, err := f.sales.CreateSale(f.ctx, saleOf(nil, line("B1", 1, 1000)))
	require.NoError(t, err)
	got, err := f.sales.CancelSale(f.ctx, sale.ID, "", "cashier")
	require.NoError(t, err)
	assert.Equal(t, model.SaleCancelled, got.Status)

	_, err = f.sales.CancelSale(f.ctx, uuid.New(), "", "cashier")
	assert.True(t, apperror.Is(err, apperror.KindNotFound), "got %v", err)
}

func TestDashboard_ChannelSummary(t *testing.T) {
	f := newFixture(t)
	ch := f.activeChannel(t, "C1", map[string]int{"B1": 20})

	_, err := f.sales.CreateSale(f.ctx, saleOf(&ch.ID, line("B1", 5, 20000)))
	require.NoError(t, err)
	_, err = f.sales.CreateSale(f.ctx, saleOf(&ch.ID, line("B1", 10, 10000)))
	require.NoError(t, err)
	cancelled, err := f.sales.CreateSale(f.ctx, saleOf(&ch.ID, line("B1", 1, 10000)))
	require.NoError(t, err)
	_, err = f.sales.CancelSale(f.ctx, cancelled.ID, "", "cashier")
	require.NoError(t, err)

	summary, err := f.dashboard.GetChannelSummary(f.ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Sales.ActiveCount)
	assert.Equal(t, int64(1), summary.Sales.CancelledCount)
	assert.Equal(t, int64(15), summary.Sales.UnitsSold)
	assert.True(t, decimal.NewFromInt(200000).Equal(summary.Sales.GrossTotal), "gross %s", summary.Sales.GrossTotal)
	assert.Equal(t, "20.00", summary.TargetProgress.StringFixed(2))
	assert.Equal(t, service.StockTotals{Received: 20, Available: 5, Sold: 15}, summary.Totals)

	daily, err := f.dashboard.GetDailySales(f.ctx, ch.ID, 7)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, int64(2), daily[0].Count)

	_, err = f.dashboard.GetChannelSummary(f.ctx, uuid.New())
	assert.True(t, apperror.Is(err, apperror.KindNotFound), "got %v", err)
}
