package analytichttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/sellerdesk/internal/analytics"
	"github.com/odyssey-erp/sellerdesk/internal/platform/httpx"
	"github.com/odyssey-erp/sellerdesk/internal/shared"
)

const requestTimeout = 2 * time.Second

// AnalyticsService defines the dashboard data contract used by the handler.
type AnalyticsService interface {
	GetDashboardSummary(ctx context.Context, sellerID int64, period analytics.Period) (analytics.DashboardSummary, error)
	GetPIPipeline(ctx context.Context, sellerID int64) ([]analytics.PipelineStage, error)
	GetPaymentAging(ctx context.Context, sellerID int64) (analytics.PaymentAging, error)
	GetRevenueTrend(ctx context.Context, sellerID int64, months int) ([]analytics.TrendPoint, error)
	GetTopProducts(ctx context.Context, sellerID int64, limit int) ([]analytics.ProductRevenue, error)
}

// Handler serves the seller analytics endpoints as JSON.
type Handler struct {
	logger  *slog.Logger
	service AnalyticsService
}

// NewHandler constructs the analytics HTTP handler.
func NewHandler(logger *slog.Logger, service AnalyticsService) *Handler {
	return &Handler{logger: logger, service: service}
}

// dashboard bundles every widget for a single round trip.
type dashboard struct {
	Summary     analytics.DashboardSummary `json:"summary"`
	Pipeline    []analytics.PipelineStage  `json:"piPipeline"`
	Aging       analytics.PaymentAging     `json:"paymentAging"`
	Trend       []analytics.TrendPoint     `json:"revenueTrend"`
	TopProducts []analytics.ProductRevenue `json:"topProducts"`
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	period, err := analytics.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var data dashboard
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data.Summary, err = h.service.GetDashboardSummary(ctx, actor.SellerID, period)
		return err
	})
	g.Go(func() error {
		var err error
		data.Pipeline, err = h.service.GetPIPipeline(ctx, actor.SellerID)
		return err
	})
	g.Go(func() error {
		var err error
		data.Aging, err = h.service.GetPaymentAging(ctx, actor.SellerID)
		return err
	})
	g.Go(func() error {
		var err error
		data.Trend, err = h.service.GetRevenueTrend(ctx, actor.SellerID, 0)
		return err
	})
	g.Go(func() error {
		var err error
		data.TopProducts, err = h.service.GetTopProducts(ctx, actor.SellerID, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, data)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	period, err := analytics.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	summary, err := h.service.GetDashboardSummary(r.Context(), actor.SellerID, period)
	h.respond(w, summary, err)
}

func (h *Handler) handlePipeline(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	stages, err := h.service.GetPIPipeline(r.Context(), actor.SellerID)
	h.respond(w, map[string]any{"stages": stages}, err)
}

func (h *Handler) handleAging(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	aging, err := h.service.GetPaymentAging(r.Context(), actor.SellerID)
	h.respond(w, aging, err)
}

func (h *Handler) handleTrend(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	months, err := intQuery(r, "months")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	points, err := h.service.GetRevenueTrend(r.Context(), actor.SellerID, months)
	h.respond(w, map[string]any{"points": points}, err)
}

func (h *Handler) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	limit, err := intQuery(r, "limit")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	products, err := h.service.GetTopProducts(r.Context(), actor.SellerID, limit)
	h.respond(w, map[string]any{"products": products}, err)
}

// intQuery reads an optional integer parameter; absent yields zero so the
// service applies its default.
func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v == 0 {
		return 0, shared.BadRequest("%s must be a positive number", name)
	}
	return v, nil
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (shared.Actor, bool) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, h.logger, shared.Forbidden("Seller access requires a verified seller profile"))
		return shared.Actor{}, false
	}
	return actor, true
}

func (h *Handler) respond(w http.ResponseWriter, out any, err error) {
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}
