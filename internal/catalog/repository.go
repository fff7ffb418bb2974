package catalog

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the products tables, which are owned by the catalog UI.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ProductOwned reports whether a live product belongs to sellerID.
func (r *Repository) ProductOwned(ctx context.Context, sellerID, productID int64) (bool, error) {
	var owned bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM products WHERE id = $1 AND seller_id = $2 AND deleted_at IS NULL)`,
		productID, sellerID).Scan(&owned)
	return owned, err
}

// VariantOwned reports whether a variant's product belongs to sellerID.
func (r *Repository) VariantOwned(ctx context.Context, sellerID, variantID int64) (bool, error) {
	var owned bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id = $1 AND p.seller_id = $2 AND p.deleted_at IS NULL)`,
		variantID, sellerID).Scan(&owned)
	return owned, err
}
