package analytichttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/sellerdesk/internal/platform/httpx"
	"github.com/odyssey-erp/sellerdesk/internal/shared"
)

// MountRoutes registers analytics endpoints onto the router. The combined
// dashboard fans out to every aggregate and is rate limited per seller.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(30, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too Many Requests", "Dashboard refreshed too often, try again shortly")
		}),
	)

	r.Get("/summary", h.handleSummary)
	r.Get("/pi-pipeline", h.handlePipeline)
	r.Get("/aging", h.handleAging)
	r.Get("/revenue-trend", h.handleTrend)
	r.Get("/top-products", h.handleTopProducts)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/dashboard", h.handleDashboard)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if actor, ok := shared.ActorFromContext(r.Context()); ok {
		return "seller:" + strconv.FormatInt(actor.SellerID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
