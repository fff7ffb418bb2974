package sellers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/odyssey-erp/sellerdesk/internal/platform/httpx"
	"github.com/odyssey-erp/sellerdesk/internal/shared"
)

// Middleware attaches the verified seller actor to requests.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireVerifiedSeller rejects requests whose session user is not a verified
// seller and stores the actor in the request context otherwise.
func (m Middleware) RequireVerifiedSeller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := m.currentUserID(r)
		if !ok {
			httpx.RespondError(w, m.Logger, ErrNotVerifiedSeller)
			return
		}
		actor, err := m.Service.Resolve(r.Context(), userID)
		if err != nil {
			httpx.RespondError(w, m.Logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

// RequireOperator admits only session users listed in operators. It does not
// resolve a seller profile, so operators need not be sellers.
func (m Middleware) RequireOperator(operators []int64) func(http.Handler) http.Handler {
	allowed := make(map[int64]struct{}, len(operators))
	for _, id := range operators {
		allowed[id] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := m.currentUserID(r)
			if ok {
				_, ok = allowed[userID]
			}
			if !ok {
				if m.Logger != nil {
					m.Logger.Warn("sellers operator denied", slog.Int64("user_id", userID), slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, m.Logger, ErrNotOperator)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Warn("sellers parse user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}
