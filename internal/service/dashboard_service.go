package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go-popup-ledger/internal/model"
	"go-popup-ledger/internal/repository"
)

// StockTotals sums a channel's stock buckets across barcodes.
type StockTotals struct {
	Received  int `json:"received"`
	Available int `json:"available"`
	Sold      int `json:"sold"`
	Damaged   int `json:"damaged"`
	Missing   int `json:"missing"`
	Returned  int `json:"returned"`
}

type ChannelSummary struct {
	Channel *model.Channel           `json:"channel"`
	Sales   *repository.SalesSummary `json:"sales"`
	Totals  StockTotals              `json:"totals"`
	Stock   []model.ChannelStock     `json:"stock"`
	// TargetProgress is gross sales as a percentage of the sales target.
	TargetProgress decimal.Decimal `json:"target_progress"`
}

type DashboardService interface {
	GetChannelSummary(ctx context.Context, channelID uuid.UUID) (*ChannelSummary, error)
	GetDailySales(ctx context.Context, channelID uuid.UUID, days int) ([]repository.DailySales, error)
}

type dashboardService struct {
	channelRepo repository.ChannelRepository
	saleRepo    repository.SaleRepository
	stockRepo   repository.StockRepository
	db          *gorm.DB
}

func NewDashboardService(
	channelRepo repository.ChannelRepository,
	saleRepo repository.SaleRepository,
	stockRepo repository.StockRepository,
	db *gorm.DB,
) DashboardService {
	return &dashboardService{channelRepo: channelRepo, saleRepo: saleRepo, stockRepo: stockRepo, db: db}
}

func (s *dashboardService) GetChannelSummary(ctx context.Context, channelID uuid.UUID) (*ChannelSummary, error) {
	const op = "dashboard.summary"
	db := s.db.WithContext(ctx)

	channel, err := s.channelRepo.FindByID(db, channelID)
	if err != nil {
		return nil, readErr(op, err)
	}
	sales, err := s.saleRepo.GetSalesSummary(db, channelID)
	if err != nil {
		return nil, readErr(op, err)
	}
	stock, err := s.stockRepo.FindChannelStocks(db, channelID)
	if err != nil {
		return nil, readErr(op, err)
	}

	summary := &ChannelSummary{
		Channel:        channel,
		Sales:          sales,
		Stock:          stock,
		TargetProgress: decimal.Zero,
	}
	for _, r := range stock {
		summary.Totals.Received += r.Received
		summary.Totals.Available += r.Available
		summary.Totals.Sold += r.Sold
		summary.Totals.Damaged += r.Damaged
		summary.Totals.Missing += r.Missing
		summary.Totals.Returned += r.Returned
	}
	if channel.SalesTarget.IsPositive() {
		summary.TargetProgress = sales.GrossTotal.Div(channel.SalesTarget).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return summary, nil
}

func (s *dashboardService) GetDailySales(ctx context.Context, channelID uuid.UUID, days int) ([]repository.DailySales, error) {
	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -days)

	data, err := s.saleRepo.GetDailySales(s.db.WithContext(ctx), channelID, startDate, endDate)
	return data, readErr("dashboard.daily_sales", err)
}
