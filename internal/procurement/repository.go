package procurement

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/sellerdesk/internal/platform/db"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPI(ctx context.Context, sellerID, id int64, opts ReadOptions) (ProformaInvoice, error)
	GetPO(ctx context.Context, sellerID, id int64, opts ReadOptions) (PurchaseOrder, error)
	GetInvoice(ctx context.Context, sellerID, id int64, opts ReadOptions) (Invoice, error)
	ListExpiredPIs(ctx context.Context, now time.Time, limit int) ([]ProformaInvoice, error)
	ListOverdueInvoices(ctx context.Context, now time.Time, limit int) ([]Invoice, error)
}

// TxRepository exposes transactional operations. Lock* methods take a row lock
// and never return soft-deleted rows.
type TxRepository interface {
	LockPI(ctx context.Context, sellerID, id int64) (ProformaInvoice, error)
	CreatePI(ctx context.Context, pi ProformaInvoice) (ProformaInvoice, error)
	UpdatePI(ctx context.Context, pi ProformaInvoice) error
	ReplacePIItems(ctx context.Context, piID int64, items []LineItem) ([]LineItem, error)

	LockPO(ctx context.Context, sellerID, id int64) (PurchaseOrder, error)
	CreatePO(ctx context.Context, po PurchaseOrder) (PurchaseOrder, error)
	UpdatePO(ctx context.Context, po PurchaseOrder) error
	UpdatePOItem(ctx context.Context, item POItem) error

	ActiveInvoiceExists(ctx context.Context, poID int64) (bool, error)
	LockInvoice(ctx context.Context, sellerID, id int64) (Invoice, error)
	CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	UpdateInvoice(ctx context.Context, inv Invoice) error
	InsertPayment(ctx context.Context, payment PaymentRecord) (PaymentRecord, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	q querier
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{q: tx})
	})
}

const (
	piColumns = `id, pi_number, seller_id, buyer_id, valid_until, credit_terms, delivery_terms, notes,
		tax_rate, discount, subtotal, tax_amount, total, status, sent_at, created_at, updated_at, deleted_at`
	poColumns = `id, po_number, pi_id, seller_id, buyer_id, tax_rate, discount, subtotal, tax_amount, total,
		status, acknowledged_at, shipped_at, delivered_at, cancelled_at, tracking_number, internal_notes,
		cancel_reason, created_at, updated_at, deleted_at`
	invoiceColumns = `id, invoice_number, po_id, pi_id, seller_id, buyer_id, due_date, tax_rate, discount,
		subtotal, tax_amount, total, paid_amount, balance_amount, status, payment_terms, notes, sent_at,
		paid_at, created_at, updated_at, deleted_at`
)

func deletedFilter(opts ReadOptions) string {
	if opts.IncludeDeleted {
		return ""
	}
	return " AND deleted_at IS NULL"
}

// GetPI returns a PI with items.
func (r *Repository) GetPI(ctx context.Context, sellerID, id int64, opts ReadOptions) (ProformaInvoice, error) {
	return loadPI(ctx, r.pool, `SELECT `+piColumns+` FROM proforma_invoices WHERE id = $1 AND seller_id = $2`+deletedFilter(opts), id, sellerID)
}

// GetPO returns a PO with items.
func (r *Repository) GetPO(ctx context.Context, sellerID, id int64, opts ReadOptions) (PurchaseOrder, error) {
	return loadPO(ctx, r.pool, `SELECT `+poColumns+` FROM purchase_orders WHERE id = $1 AND seller_id = $2`+deletedFilter(opts), id, sellerID)
}

// GetInvoice returns an invoice with items and payments.
func (r *Repository) GetInvoice(ctx context.Context, sellerID, id int64, opts ReadOptions) (Invoice, error) {
	return loadInvoice(ctx, r.pool, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 AND seller_id = $2`+deletedFilter(opts), id, sellerID)
}

// ListExpiredPIs returns SENT PIs whose validity has lapsed, across sellers.
func (r *Repository) ListExpiredPIs(ctx context.Context, now time.Time, limit int) ([]ProformaInvoice, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+piColumns+` FROM proforma_invoices
		WHERE status = 'SENT' AND valid_until < $1 AND deleted_at IS NULL
		ORDER BY valid_until LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ProformaInvoice, error) {
		return scanPI(row)
	})
}

// ListOverdueInvoices returns open invoices past due, across sellers.
func (r *Repository) ListOverdueInvoices(ctx context.Context, now time.Time, limit int) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices
		WHERE status IN ('SENT', 'VIEWED', 'PARTIALLY_PAID') AND due_date < $1 AND deleted_at IS NULL
		ORDER BY due_date LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Invoice, error) {
		return scanInvoice(row)
	})
}

func (t *txRepo) LockPI(ctx context.Context, sellerID, id int64) (ProformaInvoice, error) {
	return loadPI(ctx, t.q, `SELECT `+piColumns+` FROM proforma_invoices
		WHERE id = $1 AND seller_id = $2 AND deleted_at IS NULL FOR UPDATE`, id, sellerID)
}

func (t *txRepo) CreatePI(ctx context.Context, pi ProformaInvoice) (ProformaInvoice, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO proforma_invoices
		(pi_number, seller_id, buyer_id, valid_until, credit_terms, delivery_terms, notes,
		 tax_rate, discount, subtotal, tax_amount, total, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		RETURNING id`,
		pi.Number, pi.SellerID, pi.BuyerID, pi.ValidUntil, pi.CreditTerms, pi.DeliveryTerms, pi.Notes,
		pi.TaxRate, pi.Discount, pi.Subtotal, pi.TaxAmount, pi.Total, pi.Status, pi.CreatedAt).Scan(&pi.ID)
	if err != nil {
		return ProformaInvoice{}, translateWriteError(err)
	}
	pi.UpdatedAt = pi.CreatedAt
	pi.Items, err = t.insertItems(ctx, "proforma_invoice_items", "pi_id", pi.ID, pi.Items)
	if err != nil {
		return ProformaInvoice{}, err
	}
	return pi, nil
}

func (t *txRepo) UpdatePI(ctx context.Context, pi ProformaInvoice) error {
	_, err := t.q.Exec(ctx, `UPDATE proforma_invoices SET
		buyer_id = $2, valid_until = $3, credit_terms = $4, delivery_terms = $5, notes = $6,
		tax_rate = $7, discount = $8, subtotal = $9, tax_amount = $10, total = $11,
		status = $12, sent_at = $13, updated_at = $14, deleted_at = $15
		WHERE id = $1`,
		pi.ID, pi.BuyerID, pi.ValidUntil, pi.CreditTerms, pi.DeliveryTerms, pi.Notes,
		pi.TaxRate, pi.Discount, pi.Subtotal, pi.TaxAmount, pi.Total,
		pi.Status, pi.SentAt, pi.UpdatedAt, pi.DeletedAt)
	return err
}

func (t *txRepo) ReplacePIItems(ctx context.Context, piID int64, items []LineItem) ([]LineItem, error) {
	if _, err := t.q.Exec(ctx, `DELETE FROM proforma_invoice_items WHERE pi_id = $1`, piID); err != nil {
		return nil, err
	}
	return t.insertItems(ctx, "proforma_invoice_items", "pi_id", piID, items)
}

// insertItems writes plain line items into one of the item tables. table and
// parentColumn are constants from this package, never user input.
func (t *txRepo) insertItems(ctx context.Context, table, parentColumn string, parentID int64, items []LineItem) ([]LineItem, error) {
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		err := t.q.QueryRow(ctx, `INSERT INTO `+table+` (`+parentColumn+`, product_id, variant_id, description, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			parentID, item.ProductID, item.VariantID, item.Description, item.Quantity, item.UnitPrice, item.TotalPrice).Scan(&item.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (t *txRepo) LockPO(ctx context.Context, sellerID, id int64) (PurchaseOrder, error) {
	return loadPO(ctx, t.q, `SELECT `+poColumns+` FROM purchase_orders
		WHERE id = $1 AND seller_id = $2 AND deleted_at IS NULL FOR UPDATE`, id, sellerID)
}

func (t *txRepo) CreatePO(ctx context.Context, po PurchaseOrder) (PurchaseOrder, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO purchase_orders
		(po_number, pi_id, seller_id, buyer_id, tax_rate, discount, subtotal, tax_amount, total,
		 status, tracking_number, internal_notes, cancel_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		RETURNING id`,
		po.Number, po.PIID, po.SellerID, po.BuyerID, po.TaxRate, po.Discount, po.Subtotal, po.TaxAmount, po.Total,
		po.Status, po.TrackingNumber, po.InternalNotes, po.CancelReason, po.CreatedAt).Scan(&po.ID)
	if err != nil {
		return PurchaseOrder{}, translateWriteError(err)
	}
	po.UpdatedAt = po.CreatedAt
	items := make([]POItem, 0, len(po.Items))
	for _, item := range po.Items {
		err := t.q.QueryRow(ctx, `INSERT INTO purchase_order_items
			(po_id, product_id, variant_id, description, quantity, unit_price, total_price, quantity_shipped, quantity_received)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
			po.ID, item.ProductID, item.VariantID, item.Description, item.Quantity, item.UnitPrice, item.TotalPrice,
			item.QuantityShipped, item.QuantityReceived).Scan(&item.ID)
		if err != nil {
			return PurchaseOrder{}, err
		}
		items = append(items, item)
	}
	po.Items = items
	return po, nil
}

func (t *txRepo) UpdatePO(ctx context.Context, po PurchaseOrder) error {
	_, err := t.q.Exec(ctx, `UPDATE purchase_orders SET
		status = $2, acknowledged_at = $3, shipped_at = $4, delivered_at = $5, cancelled_at = $6,
		tracking_number = $7, internal_notes = $8, cancel_reason = $9, updated_at = $10
		WHERE id = $1`,
		po.ID, po.Status, po.AcknowledgedAt, po.ShippedAt, po.DeliveredAt, po.CancelledAt,
		po.TrackingNumber, po.InternalNotes, po.CancelReason, po.UpdatedAt)
	return err
}

func (t *txRepo) UpdatePOItem(ctx context.Context, item POItem) error {
	_, err := t.q.Exec(ctx, `UPDATE purchase_order_items SET quantity_shipped = $2, quantity_received = $3 WHERE id = $1`,
		item.ID, item.QuantityShipped, item.QuantityReceived)
	return err
}

func (t *txRepo) ActiveInvoiceExists(ctx context.Context, poID int64) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices
		WHERE po_id = $1 AND deleted_at IS NULL AND status <> 'CANCELLED')`, poID).Scan(&exists)
	return exists, err
}

func (t *txRepo) LockInvoice(ctx context.Context, sellerID, id int64) (Invoice, error) {
	return loadInvoice(ctx, t.q, `SELECT `+invoiceColumns+` FROM invoices
		WHERE id = $1 AND seller_id = $2 AND deleted_at IS NULL FOR UPDATE`, id, sellerID)
}

func (t *txRepo) CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO invoices
		(invoice_number, po_id, pi_id, seller_id, buyer_id, due_date, tax_rate, discount, subtotal, tax_amount, total,
		 paid_amount, balance_amount, status, payment_terms, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $17)
		RETURNING id`,
		inv.Number, inv.POID, inv.PIID, inv.SellerID, inv.BuyerID, inv.DueDate, inv.TaxRate, inv.Discount,
		inv.Subtotal, inv.TaxAmount, inv.Total, inv.PaidAmount, inv.BalanceAmount, inv.Status,
		inv.PaymentTerms, inv.Notes, inv.CreatedAt).Scan(&inv.ID)
	if err != nil {
		return Invoice{}, translateWriteError(err)
	}
	inv.UpdatedAt = inv.CreatedAt
	inv.Items, err = t.insertItems(ctx, "invoice_items", "invoice_id", inv.ID, inv.Items)
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func (t *txRepo) UpdateInvoice(ctx context.Context, inv Invoice) error {
	_, err := t.q.Exec(ctx, `UPDATE invoices SET
		status = $2, paid_amount = $3, balance_amount = $4, sent_at = $5, paid_at = $6, updated_at = $7
		WHERE id = $1`,
		inv.ID, inv.Status, inv.PaidAmount, inv.BalanceAmount, inv.SentAt, inv.PaidAt, inv.UpdatedAt)
	return err
}

func (t *txRepo) InsertPayment(ctx context.Context, payment PaymentRecord) (PaymentRecord, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO payment_records (invoice_id, amount, paid_at, method, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		payment.InvoiceID, payment.Amount, payment.PaidAt, payment.Method, payment.Reference, payment.CreatedAt).Scan(&payment.ID)
	return payment, err
}

// translateWriteError maps unique violations on document tables to caller
// facing conflicts.
func translateWriteError(err error) error {
	if !db.IsUniqueViolation(err) {
		return err
	}
	if db.ConstraintName(err) == "invoices_po_id_active_key" {
		return ErrInvoiceRace
	}
	return ErrNumberCollision
}

func loadPI(ctx context.Context, q querier, query string, args ...any) (ProformaInvoice, error) {
	pi, err := scanPI(q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return ProformaInvoice{}, ErrPINotFound
	}
	if err != nil {
		return ProformaInvoice{}, err
	}
	pi.Items, err = loadItems(ctx, q, `SELECT id, product_id, variant_id, description, quantity, unit_price, total_price
		FROM proforma_invoice_items WHERE pi_id = $1 ORDER BY id`, pi.ID)
	return pi, err
}

func loadPO(ctx context.Context, q querier, query string, args ...any) (PurchaseOrder, error) {
	po, err := scanPO(q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseOrder{}, ErrPONotFound
	}
	if err != nil {
		return PurchaseOrder{}, err
	}
	rows, err := q.Query(ctx, `SELECT id, product_id, variant_id, description, quantity, unit_price, total_price,
		quantity_shipped, quantity_received
		FROM purchase_order_items WHERE po_id = $1 ORDER BY id`, po.ID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (POItem, error) {
		var item POItem
		err := row.Scan(&item.ID, &item.ProductID, &item.VariantID, &item.Description, &item.Quantity,
			&item.UnitPrice, &item.TotalPrice, &item.QuantityShipped, &item.QuantityReceived)
		return item, err
	})
	return po, err
}

func loadInvoice(ctx context.Context, q querier, query string, args ...any) (Invoice, error) {
	inv, err := scanInvoice(q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrInvoiceNotFound
	}
	if err != nil {
		return Invoice{}, err
	}
	inv.Items, err = loadItems(ctx, q, `SELECT id, product_id, variant_id, description, quantity, unit_price, total_price
		FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, inv.ID)
	if err != nil {
		return Invoice{}, err
	}
	rows, err := q.Query(ctx, `SELECT id, invoice_id, amount, paid_at, method, reference, created_at
		FROM payment_records WHERE invoice_id = $1 ORDER BY paid_at, id`, inv.ID)
	if err != nil {
		return Invoice{}, err
	}
	inv.Payments, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (PaymentRecord, error) {
		var p PaymentRecord
		err := row.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.PaidAt, &p.Method, &p.Reference, &p.CreatedAt)
		return p, err
	})
	return inv, err
}

func loadItems(ctx context.Context, q querier, query string, parentID int64) ([]LineItem, error) {
	rows, err := q.Query(ctx, query, parentID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (LineItem, error) {
		var item LineItem
		err := row.Scan(&item.ID, &item.ProductID, &item.VariantID, &item.Description, &item.Quantity, &item.UnitPrice, &item.TotalPrice)
		return item, err
	})
}

func scanPI(row pgx.Row) (ProformaInvoice, error) {
	var pi ProformaInvoice
	err := row.Scan(&pi.ID, &pi.Number, &pi.SellerID, &pi.BuyerID, &pi.ValidUntil, &pi.CreditTerms,
		&pi.DeliveryTerms, &pi.Notes, &pi.TaxRate, &pi.Discount, &pi.Subtotal, &pi.TaxAmount, &pi.Total,
		&pi.Status, &pi.SentAt, &pi.CreatedAt, &pi.UpdatedAt, &pi.DeletedAt)
	return pi, err
}

// scanPO reads tracking_number and cancel_reason through pgtype.Text so rows
// written before those columns became NOT NULL still load.
func scanPO(row pgx.Row) (PurchaseOrder, error) {
	var (
		po       PurchaseOrder
		tracking pgtype.Text
		reason   pgtype.Text
	)
	err := row.Scan(&po.ID, &po.Number, &po.PIID, &po.SellerID, &po.BuyerID, &po.TaxRate, &po.Discount,
		&po.Subtotal, &po.TaxAmount, &po.Total, &po.Status, &po.AcknowledgedAt, &po.ShippedAt,
		&po.DeliveredAt, &po.CancelledAt, &tracking, &po.InternalNotes, &reason,
		&po.CreatedAt, &po.UpdatedAt, &po.DeletedAt)
	po.TrackingNumber = tracking.String
	po.CancelReason = reason.String
	return po, err
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.POID, &inv.PIID, &inv.SellerID, &inv.BuyerID, &inv.DueDate,
		&inv.TaxRate, &inv.Discount, &inv.Subtotal, &inv.TaxAmount, &inv.Total, &inv.PaidAmount,
		&inv.BalanceAmount, &inv.Status, &inv.PaymentTerms, &inv.Notes, &inv.SentAt, &inv.PaidAt,
		&inv.CreatedAt, &inv.UpdatedAt, &inv.DeletedAt)
	return inv, err
}
