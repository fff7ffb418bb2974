package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/sellerdesk/internal/platform/db"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetLocation(ctx context.Context, sellerID, id int64) (ProductLocation, error)
	BinsHolding(ctx context.Context, sellerID int64, item Item) ([]int64, error)
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	LocationExists(ctx context.Context, item Item, binID int64) (bool, error)
	InsertLocation(ctx context.Context, loc ProductLocation) (ProductLocation, error)
	LockLocation(ctx context.Context, sellerID, id int64) (ProductLocation, error)
	UpdateQuantity(ctx context.Context, id, quantity int64, at time.Time) error
	DeleteLocation(ctx context.Context, id int64) error
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists product locations in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	q querier
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{q: tx})
	})
}

// Ownership is resolved through the bin so a location can never outlive the
// seller's claim on its warehouse.
const locationSelect = `SELECT pl.id, b.seller_id, pl.product_id, pl.product_variant_id, pl.bin_id,
		pl.quantity, pl.created_at, pl.updated_at
	FROM product_locations pl
	JOIN bins b ON b.id = pl.bin_id
	WHERE pl.id = $1 AND b.seller_id = $2`

// GetLocation returns one owned location.
func (r *Repository) GetLocation(ctx context.Context, sellerID, id int64) (ProductLocation, error) {
	return scanLocation(r.pool.QueryRow(ctx, locationSelect, id, sellerID))
}

// BinsHolding lists the seller's bins that already store item.
func (r *Repository) BinsHolding(ctx context.Context, sellerID int64, item Item) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT pl.bin_id
		FROM product_locations pl
		JOIN bins b ON b.id = pl.bin_id
		WHERE b.seller_id = $1
		  AND (($2::bigint IS NOT NULL AND pl.product_id = $2)
		    OR ($3::bigint IS NOT NULL AND pl.product_variant_id = $3))`,
		sellerID, item.ProductID, item.ProductVariantID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (t *txRepo) LocationExists(ctx context.Context, item Item, binID int64) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM product_locations
		WHERE bin_id = $1
		  AND (($2::bigint IS NOT NULL AND product_id = $2)
		    OR ($3::bigint IS NOT NULL AND product_variant_id = $3)))`,
		binID, item.ProductID, item.ProductVariantID).Scan(&exists)
	return exists, err
}

func (t *txRepo) InsertLocation(ctx context.Context, loc ProductLocation) (ProductLocation, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO product_locations
		(seller_id, product_id, product_variant_id, bin_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id`,
		loc.SellerID, loc.ProductID, loc.ProductVariantID, loc.BinID, loc.Quantity, loc.CreatedAt).Scan(&loc.ID)
	if db.IsUniqueViolation(err) {
		return ProductLocation{}, ErrLocationExists
	}
	loc.UpdatedAt = loc.CreatedAt
	return loc, err
}

func (t *txRepo) LockLocation(ctx context.Context, sellerID, id int64) (ProductLocation, error) {
	return scanLocation(t.q.QueryRow(ctx, locationSelect+` FOR UPDATE OF pl`, id, sellerID))
}

func (t *txRepo) UpdateQuantity(ctx context.Context, id, quantity int64, at time.Time) error {
	_, err := t.q.Exec(ctx, `UPDATE product_locations SET quantity = $2, updated_at = $3 WHERE id = $1`, id, quantity, at)
	return err
}

func (t *txRepo) DeleteLocation(ctx context.Context, id int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM product_locations WHERE id = $1`, id)
	return err
}

func scanLocation(row pgx.Row) (ProductLocation, error) {
	var loc ProductLocation
	err := row.Scan(&loc.ID, &loc.SellerID, &loc.ProductID, &loc.ProductVariantID, &loc.BinID,
		&loc.Quantity, &loc.CreatedAt, &loc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductLocation{}, ErrLocationNotFound
	}
	return loc, err
}
