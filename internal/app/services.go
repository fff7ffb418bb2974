package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/sellerdesk/internal/analytics"
	"github.com/odyssey-erp/sellerdesk/internal/catalog"
	"github.com/odyssey-erp/sellerdesk/internal/inventory"
	"github.com/odyssey-erp/sellerdesk/internal/numbering"
	"github.com/odyssey-erp/sellerdesk/internal/observability"
	"github.com/odyssey-erp/sellerdesk/internal/platform/lock"
	"github.com/odyssey-erp/sellerdesk/internal/procurement"
	"github.com/odyssey-erp/sellerdesk/internal/sellers"
	"github.com/odyssey-erp/sellerdesk/internal/shared"
	"github.com/odyssey-erp/sellerdesk/internal/warehouse"
)

// Services holds the domain services shared by the API and the worker.
type Services struct {
	Sellers     *sellers.Service
	Procurement *procurement.Service
	Warehouse   *warehouse.Service
	Catalog     *catalog.Service
	Inventory   *inventory.Service
	Analytics   *analytics.Service
	Cache       *analytics.Cache
	Idempotency *shared.IdempotencyStore
}

// NewServices wires repositories and services over one pool and Redis client.
func NewServices(cfg *Config, pool *pgxpool.Pool, rdb *redis.Client, metrics *observability.Metrics, logger *slog.Logger) *Services {
	numbers := numbering.NewGenerator(numbering.NewPGSequencer(pool))
	auditLogger := shared.NewAuditLogger(pool)
	cache := analytics.NewCache(rdb, cfg.AnalyticsCacheTTL)
	idem := shared.NewIdempotencyStore(pool)

	procurementService := procurement.NewService(
		procurement.NewRepository(pool),
		numbers,
		lock.New(rdb, cfg.DocumentLockTTL),
		auditLogger,
		idem,
	).WithCache(cache).WithLogger(logger)
	catalogService := catalog.NewService(catalog.NewRepository(pool), numbers, logger).WithBarcodePrefix(cfg.BarcodePrefix)
	procurementService = procurementService.WithCatalog(catalogService)
	if metrics != nil {
		procurementService = procurementService.WithMetrics(metrics)
	}

	warehouseService := warehouse.NewService(warehouse.NewRepository(pool), logger)

	return &Services{
		Sellers:     sellers.NewService(sellers.NewRepository(pool)),
		Procurement: procurementService,
		Warehouse:   warehouseService,
		Catalog:     catalogService,
		Inventory:   inventory.NewService(inventory.NewRepository(pool), catalogService, warehouseService, auditLogger, logger),
		Analytics:   analytics.NewService(analytics.NewPostgresRepository(pool), cache),
		Cache:       cache,
		Idempotency: idem,
	}
}
