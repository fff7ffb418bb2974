package sellers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrProfileMissing indicates the user has no seller profile row.
var ErrProfileMissing = errors.New("sellers: profile not found")

// Repository reads seller profiles from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ProfileByUserID loads the profile owned by userID.
func (r *Repository) ProfileByUserID(ctx context.Context, userID int64) (Profile, error) {
	var p Profile
	err := r.pool.QueryRow(ctx, `SELECT sp.id, sp.user_id, u.role, sp.business_name, sp.verification_status, sp.created_at
		FROM seller_profiles sp
		JOIN users u ON u.id = sp.user_id
		WHERE sp.user_id = $1`, userID).
		Scan(&p.ID, &p.UserID, &p.Role, &p.BusinessName, &p.VerificationStatus, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrProfileMissing
	}
	return p, err
}
