package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/sellerdesk/cmd/sellerdesk/cli"
	analytichttp "github.com/odyssey-erp/sellerdesk/internal/analytics/http"
	"github.com/odyssey-erp/sellerdesk/internal/app"
	"github.com/odyssey-erp/sellerdesk/internal/catalog"
	"github.com/odyssey-erp/sellerdesk/internal/inventory"
	"github.com/odyssey-erp/sellerdesk/internal/observability"
	"github.com/odyssey-erp/sellerdesk/internal/platform/cache"
	"github.com/odyssey-erp/sellerdesk/internal/platform/db"
	"github.com/odyssey-erp/sellerdesk/internal/procurement"
	"github.com/odyssey-erp/sellerdesk/internal/sellers"
	"github.com/odyssey-erp/sellerdesk/internal/shared"
	"github.com/odyssey-erp/sellerdesk/internal/warehouse"
	"github.com/odyssey-erp/sellerdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := runJobsCommand(ctx, cfg, os.Args[2:]); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	services := app.NewServices(cfg, pool, redisClient, metrics, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL),
		SellerMiddleware:   sellers.Middleware{Service: services.Sellers, Logger: logger},
		ProcurementHandler: procurement.NewHandler(logger, services.Procurement),
		WarehouseHandler:   warehouse.NewHandler(logger, services.Warehouse),
		InventoryHandler:   inventory.NewHandler(logger, services.Inventory),
		CatalogHandler:     catalog.NewHandler(logger, services.Catalog),
		AnalyticsHandler:   analytichttp.NewHandler(logger, services.Analytics),
		JobHandler:         jobs.NewHandler(inspector, jobClient, logger),
		Metrics:            metrics,
		HealthChecks: map[string]app.HealthCheck{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runJobsCommand(ctx context.Context, cfg *app.Config, args []string) error {
	c := cli.NewJobsCLI(cfg.RedisAddr)
	defer c.Close()

	if len(args) == 0 {
		return errors.New("usage: sellerdesk jobs trigger <name> | sellerdesk jobs inspect")
	}
	switch args[0] {
	case "trigger":
		name := jobs.TaskProcurementSweep
		if len(args) > 1 {
			name = args[1]
		}
		info, err := c.Trigger(ctx, name, cfg.SweepBatch)
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return nil
	case "inspect":
		stats, err := c.InspectQueues(ctx)
		if err != nil {
			return err
		}
		for _, s := range stats {
			fmt.Printf("%-8s pending=%d active=%d scheduled=%d retry=%d\n", s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry)
		}
		return nil
	default:
		return fmt.Errorf("unknown jobs command %q", args[0])
	}
}
