package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository runs the aggregate queries against PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const (
	effectivePIStatus      = `CASE WHEN status = 'SENT' AND valid_until < $3 THEN 'EXPIRED' ELSE status END`
	effectiveInvoiceStatus = `CASE WHEN status IN ('SENT', 'VIEWED', 'PARTIALLY_PAID') AND due_date < $3
		THEN 'OVERDUE' ELSE status END`
)

var statusTotalsQueries = map[Document]string{
	DocumentPI: `SELECT ` + effectivePIStatus + ` AS st, COUNT(*), COALESCE(SUM(total), 0), 0::numeric, 0::numeric
		FROM proforma_invoices
		WHERE seller_id = $1 AND deleted_at IS NULL AND created_at >= $2 AND created_at <= $3
		GROUP BY st`,
	DocumentPO: `SELECT status, COUNT(*), COALESCE(SUM(total), 0), 0::numeric, 0::numeric
		FROM purchase_orders
		WHERE seller_id = $1 AND deleted_at IS NULL AND created_at >= $2 AND created_at <= $3
		GROUP BY status`,
	DocumentInvoice: `SELECT ` + effectiveInvoiceStatus + ` AS st, COUNT(*), COALESCE(SUM(total), 0),
			COALESCE(SUM(paid_amount), 0), COALESCE(SUM(balance_amount), 0)
		FROM invoices
		WHERE seller_id = $1 AND deleted_at IS NULL AND created_at >= $2 AND created_at <= $3
		GROUP BY st`,
}

// StatusTotals groups one document collection created in [from, now] by effective status.
func (r *PostgresRepository) StatusTotals(ctx context.Context, sellerID int64, doc Document, from, now time.Time) ([]StatusTotal, error) {
	query, ok := statusTotalsQueries[doc]
	if !ok {
		return nil, fmt.Errorf("analytics: unknown document %q", doc)
	}
	rows, err := r.pool.Query(ctx, query, sellerID, from, now)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (StatusTotal, error) {
		var t StatusTotal
		err := row.Scan(&t.Status, &t.Count, &t.Total, &t.Paid, &t.Balance)
		return t, err
	})
}

// PIPipeline groups all live PIs by effective status.
func (r *PostgresRepository) PIPipeline(ctx context.Context, sellerID int64, now time.Time) ([]PipelineStage, error) {
	rows, err := r.pool.Query(ctx, `SELECT CASE WHEN status = 'SENT' AND valid_until < $2 THEN 'EXPIRED' ELSE status END AS st,
			COUNT(*), COALESCE(SUM(total), 0)
		FROM proforma_invoices
		WHERE seller_id = $1 AND deleted_at IS NULL
		GROUP BY st`, sellerID, now)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (PipelineStage, error) {
		var s PipelineStage
		err := row.Scan(&s.Status, &s.Count, &s.Value)
		return s, err
	})
}

// OpenInvoices lists invoices awaiting payment, oldest due date first.
func (r *PostgresRepository) OpenInvoices(ctx context.Context, sellerID int64) ([]OpenInvoice, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, invoice_number, due_date, balance_amount
		FROM invoices
		WHERE seller_id = $1 AND deleted_at IS NULL
		  AND status IN ('SENT', 'VIEWED', 'PARTIALLY_PAID', 'OVERDUE')
		ORDER BY due_date, id`, sellerID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (OpenInvoice, error) {
		var inv OpenInvoice
		err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.DueDate, &inv.Balance)
		return inv, err
	})
}

// MonthlyInvoiced sums invoice totals by creation month (UTC) since from.
func (r *PostgresRepository) MonthlyInvoiced(ctx context.Context, sellerID int64, from time.Time) ([]MonthAmount, error) {
	return r.monthly(ctx, `SELECT to_char(date_trunc('month', created_at AT TIME ZONE 'UTC'), 'YYYY-MM') AS month,
			COALESCE(SUM(total), 0)
		FROM invoices
		WHERE seller_id = $1 AND deleted_at IS NULL AND status <> 'CANCELLED' AND created_at >= $2
		GROUP BY month`, sellerID, from)
}

// MonthlyCollected sums payments by payment month (UTC) since from.
func (r *PostgresRepository) MonthlyCollected(ctx context.Context, sellerID int64, from time.Time) ([]MonthAmount, error) {
	return r.monthly(ctx, `SELECT to_char(date_trunc('month', p.paid_at AT TIME ZONE 'UTC'), 'YYYY-MM') AS month,
			COALESCE(SUM(p.amount), 0)
		FROM payment_records p
		JOIN invoices i ON i.id = p.invoice_id
		WHERE i.seller_id = $1 AND i.deleted_at IS NULL AND p.paid_at >= $2
		GROUP BY month`, sellerID, from)
}

func (r *PostgresRepository) monthly(ctx context.Context, query string, args ...any) ([]MonthAmount, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (MonthAmount, error) {
		var m MonthAmount
		err := row.Scan(&m.Month, &m.Amount)
		return m, err
	})
}

// Product names come only from the invoicing seller's own catalog.
const topProductsQuery = `SELECT ii.product_id, COALESCE(MAX(p.name), ''),
		COALESCE(SUM(ii.quantity), 0)::bigint, COALESCE(SUM(ii.total_price), 0)
	FROM invoice_items ii
	JOIN invoices i ON i.id = ii.invoice_id
	LEFT JOIN products p ON p.id = ii.product_id AND p.seller_id = i.seller_id
	WHERE i.seller_id = $1 AND i.deleted_at IS NULL AND i.status <> 'CANCELLED'
	GROUP BY ii.product_id
	ORDER BY 4 DESC, 1
	LIMIT $2`

// TopProducts ranks products by revenue on non-cancelled invoices.
func (r *PostgresRepository) TopProducts(ctx context.Context, sellerID int64, limit int) ([]ProductRevenue, error) {
	rows, err := r.pool.Query(ctx, topProductsQuery, sellerID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ProductRevenue, error) {
		var p ProductRevenue
		err := row.Scan(&p.ProductID, &p.Name, &p.Quantity, &p.Revenue)
		return p, err
	})
}
