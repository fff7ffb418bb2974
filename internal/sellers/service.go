// Package sellers resolves the verified seller behind a session user.
package sellers

import (
	"context"
	"errors"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/sellerdesk/internal/shared"
)

// ErrNotVerifiedSeller is returned for users without a verified seller profile.
var ErrNotVerifiedSeller = shared.Forbidden("Seller access requires a verified seller profile")

// ErrNotOperator is returned when a non-operator reaches platform job controls.
var ErrNotOperator = shared.Forbidden("Job controls are limited to platform operators")

// ProfileSource loads profiles by user id.
type ProfileSource interface {
	ProfileByUserID(ctx context.Context, userID int64) (Profile, error)
}

// Service resolves seller actors. Concurrent lookups for the same user share
// one database round trip.
type Service struct {
	source ProfileSource
	group  singleflight.Group
}

// NewService constructs a Service.
func NewService(source ProfileSource) *Service {
	return &Service{source: source}
}

// Resolve returns the actor for userID or ErrNotVerifiedSeller.
func (s *Service) Resolve(ctx context.Context, userID int64) (shared.Actor, error) {
	if userID <= 0 {
		return shared.Actor{}, ErrNotVerifiedSeller
	}
	v, err, _ := s.group.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		return s.source.ProfileByUserID(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, ErrProfileMissing) {
			return shared.Actor{}, ErrNotVerifiedSeller
		}
		return shared.Actor{}, err
	}
	profile := v.(Profile)
	if !profile.CanOperate() {
		return shared.Actor{}, ErrNotVerifiedSeller
	}
	return shared.Actor{UserID: userID, SellerID: profile.ID}, nil
}
