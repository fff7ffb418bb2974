package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/sellerdesk/internal/procurement"
)

// Repository exposes the read models the aggregator relies on. Statuses are
// reported as effective at now, so lapsed SENT documents count as expired or
// overdue before the sweep persists them.
type Repository interface {
	StatusTotals(ctx context.Context, sellerID int64, doc Document, from, now time.Time) ([]StatusTotal, error)
	PIPipeline(ctx context.Context, sellerID int64, now time.Time) ([]PipelineStage, error)
	OpenInvoices(ctx context.Context, sellerID int64) ([]OpenInvoice, error)
	MonthlyInvoiced(ctx context.Context, sellerID int64, from time.Time) ([]MonthAmount, error)
	MonthlyCollected(ctx context.Context, sellerID int64, from time.Time) ([]MonthAmount, error)
	TopProducts(ctx context.Context, sellerID int64, limit int) ([]ProductRevenue, error)
}

// Service coordinates analytics query execution with the cache layer.
type Service struct {
	repo  Repository
	cache *Cache
	now   func() time.Time
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// GetDashboardSummary aggregates PI, PO and invoice collections created
// within the period.
func (s *Service) GetDashboardSummary(ctx context.Context, sellerID int64, period Period) (DashboardSummary, error) {
	now := s.now()
	from := period.Start(now)

	loader := func(ctx context.Context) (any, error) {
		out := DashboardSummary{Period: period, From: from, To: now}
		var pis, pos, invoices []StatusTotal
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			pis, err = s.repo.StatusTotals(gctx, sellerID, DocumentPI, from, now)
			return err
		})
		g.Go(func() error {
			var err error
			pos, err = s.repo.StatusTotals(gctx, sellerID, DocumentPO, from, now)
			return err
		})
		g.Go(func() error {
			var err error
			invoices, err = s.repo.StatusTotals(gctx, sellerID, DocumentInvoice, from, now)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		out.PI = summarize(pis)
		out.PO = summarize(pos)
		out.Invoices = InvoiceSummary{DocumentSummary: summarize(invoices), Paid: decimal.Zero, Outstanding: decimal.Zero}
		for _, row := range invoices {
			out.Invoices.Paid = out.Invoices.Paid.Add(row.Paid)
			out.Invoices.Outstanding = out.Invoices.Outstanding.Add(row.Balance)
		}
		return out, nil
	}

	var summary DashboardSummary
	err := s.cached(ctx, sellerID, &summary, loader, "summary", string(period))
	return summary, err
}

func summarize(rows []StatusTotal) DocumentSummary {
	out := DocumentSummary{Total: decimal.Zero, ByStatus: make(map[string]int64, len(rows))}
	for _, row := range rows {
		out.Count += row.Count
		out.Total = out.Total.Add(row.Total)
		out.ByStatus[row.Status] += row.Count
	}
	return out
}

// GetPIPipeline reports count and value for every PI status, including the
// ones with no documents.
func (s *Service) GetPIPipeline(ctx context.Context, sellerID int64) ([]PipelineStage, error) {
	loader := func(ctx context.Context) (any, error) {
		rows, err := s.repo.PIPipeline(ctx, sellerID, s.now())
		if err != nil {
			return nil, err
		}
		found := make(map[string]PipelineStage, len(rows))
		for _, row := range rows {
			found[row.Status] = row
		}
		stages := make([]PipelineStage, 0, len(procurement.AllPIStatuses))
		for _, status := range procurement.AllPIStatuses {
			stage, ok := found[string(status)]
			if !ok {
				stage = PipelineStage{Status: string(status), Value: decimal.Zero}
			}
			stages = append(stages, stage)
		}
		return stages, nil
	}
	var stages []PipelineStage
	err := s.cached(ctx, sellerID, &stages, loader, "pipeline")
	return stages, err
}

func (s *Service) cached(ctx context.Context, sellerID int64, dest any, loader func(context.Context) (any, error), parts ...string) error {
	key, err := s.cache.BuildKey(ctx, sellerID, parts...)
	if err != nil {
		return err
	}
	return s.cache.FetchJSON(ctx, key, dest, loader)
}
