package app

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	analytichttp "github.com/odyssey-erp/sellerdesk/internal/analytics/http"
	"github.com/odyssey-erp/sellerdesk/internal/catalog"
	"github.com/odyssey-erp/sellerdesk/internal/inventory"
	"github.com/odyssey-erp/sellerdesk/internal/observability"
	"github.com/odyssey-erp/sellerdesk/internal/platform/httpx"
	"github.com/odyssey-erp/sellerdesk/internal/procurement"
	"github.com/odyssey-erp/sellerdesk/internal/sellers"
	"github.com/odyssey-erp/sellerdesk/internal/shared"
	"github.com/odyssey-erp/sellerdesk/internal/warehouse"
	"github.com/odyssey-erp/sellerdesk/jobs"
)

// HealthCheck probes one dependency for /healthz.
type HealthCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	SellerMiddleware   sellers.Middleware
	ProcurementHandler *procurement.Handler
	WarehouseHandler   *warehouse.Handler
	InventoryHandler   *inventory.Handler
	CatalogHandler     *catalog.Handler
	AnalyticsHandler   *analytichttp.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
	HealthChecks       map[string]HealthCheck
}

// NewRouter constructs the chi.Router. /api/jobs is restricted to configured
// operators, every other /api route requires a verified seller, and /healthz
// and /metrics are public.
func NewRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", healthHandler(params.HealthChecks))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	var operators []int64
	if params.Config != nil {
		operators = params.Config.OperatorUserIDs
	}

	r.Route("/api", func(api chi.Router) {
		if params.JobHandler != nil {
			api.Group(func(ops chi.Router) {
				ops.Use(params.SellerMiddleware.RequireOperator(operators))
				ops.Route("/jobs", params.JobHandler.MountRoutes)
			})
		}
		api.Group(func(seller chi.Router) {
			seller.Use(params.SellerMiddleware.RequireVerifiedSeller)
			if params.ProcurementHandler != nil {
				seller.Route("/procurement", params.ProcurementHandler.MountRoutes)
			}
			if params.WarehouseHandler != nil {
				seller.Route("/warehouse", params.WarehouseHandler.MountRoutes)
			}
			if params.InventoryHandler != nil {
				seller.Route("/inventory", params.InventoryHandler.MountRoutes)
			}
			if params.CatalogHandler != nil {
				seller.Route("/catalog", params.CatalogHandler.MountRoutes)
			}
			if params.AnalyticsHandler != nil {
				seller.Route("/analytics", params.AnalyticsHandler.MountRoutes)
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "NOT_FOUND", "Not Found", "No route matches "+r.URL.Path)
	})

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		report := map[string]string{}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				report[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}
		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		httpx.JSON(w, status, map[string]any{"status": overall, "checks": report})
	}
}
