package analytics

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/sellerdesk/internal/shared"
)

const (
	DefaultTrendMonths = 6
	MaxTrendMonths     = 24
	DefaultTopProducts = 5
	MaxTopProducts     = 50
)

// GetRevenueTrend returns invoiced and collected amounts for each of the last
// months calendar months, oldest first, the current month included. The two
// series are windowed independently and need not reconcile.
func (s *Service) GetRevenueTrend(ctx context.Context, sellerID int64, months int) ([]TrendPoint, error) {
	if months == 0 {
		months = DefaultTrendMonths
	}
	if months < 1 || months > MaxTrendMonths {
		return nil, shared.BadRequest("months must be between 1 and %d", MaxTrendMonths)
	}
	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

	loader := func(ctx context.Context) (any, error) {
		var invoiced, collected []MonthAmount
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			invoiced, err = s.repo.MonthlyInvoiced(gctx, sellerID, start)
			return err
		})
		g.Go(func() error {
			var err error
			collected, err = s.repo.MonthlyCollected(gctx, sellerID, start)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return buildTrend(start, months, invoiced, collected), nil
	}

	var points []TrendPoint
	err := s.cached(ctx, sellerID, &points, loader, "trend", strconv.Itoa(months), start.Format("2006-01"))
	return points, err
}

func buildTrend(start time.Time, months int, invoiced, collected []MonthAmount) []TrendPoint {
	index := make(map[string]int, months)
	points := make([]TrendPoint, months)
	for i := range points {
		month := start.AddDate(0, i, 0).Format("2006-01")
		points[i] = TrendPoint{Month: month, Invoiced: decimal.Zero, Collected: decimal.Zero}
		index[month] = i
	}
	for _, m := range invoiced {
		if i, ok := index[m.Month]; ok {
			points[i].Invoiced = points[i].Invoiced.Add(m.Amount)
		}
	}
	for _, m := range collected {
		if i, ok := index[m.Month]; ok {
			points[i].Collected = points[i].Collected.Add(m.Amount)
		}
	}
	return points
}

// GetTopProducts ranks the seller's products by invoiced revenue.
func (s *Service) GetTopProducts(ctx context.Context, sellerID int64, limit int) ([]ProductRevenue, error) {
	if limit == 0 {
		limit = DefaultTopProducts
	}
	if limit < 1 || limit > MaxTopProducts {
		return nil, shared.BadRequest("limit must be between 1 and %d", MaxTopProducts)
	}
	loader := func(ctx context.Context) (any, error) {
		return s.repo.TopProducts(ctx, sellerID, limit)
	}
	var products []ProductRevenue
	err := s.cached(ctx, sellerID, &products, loader, "top_products", strconv.Itoa(limit))
	return products, err
}
