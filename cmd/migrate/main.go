package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/sellerdesk/internal/app"
	"github.com/odyssey-erp/sellerdesk/internal/platform/db"
	"github.com/odyssey-erp/sellerdesk/migrations"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping migrations")
		return
	}

	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, 2)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`); err != nil {
		logger.Error("create schema_migrations", slog.Any("error", err))
		os.Exit(1)
	}

	names, err := migrations.Names()
	if err != nil {
		logger.Error("list migrations", slog.Any("error", err))
		os.Exit(1)
	}
	for _, name := range names {
		applied, err := apply(ctx, pool, name)
		if err != nil {
			logger.Error("apply migration", slog.String("name", name), slog.Any("error", err))
			os.Exit(1)
		}
		if applied {
			logger.Info("migration applied", slog.String("name", name))
		}
	}
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// apply runs one migration in its own transaction unless already recorded.
func apply(ctx context.Context, conn txBeginner, name string) (bool, error) {
	body, err := fs.ReadFile(migrations.Files, name)
	if err != nil {
		return false, err
	}
	tx, err := conn.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var done bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, name).Scan(&done); err != nil {
		return false, err
	}
	if done {
		return false, nil
	}
	if _, err := tx.Exec(ctx, string(body)); err != nil {
		return false, fmt.Errorf("%s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		if errors.Is(err, pgx.ErrTxCommitRollback) {
			return false, fmt.Errorf("%s: commit rolled back", name)
		}
		return false, err
	}
	return true, nil
}
