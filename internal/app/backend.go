package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rickgao/coingecko-data/internal/config"
	"github.com/rickgao/coingecko-data/internal/database"
	"github.com/rickgao/coingecko-data/internal/jobs"
	"github.com/rickgao/coingecko-data/internal/store"
	"github.com/rickgao/coingecko-data/internal/store/dynamo"
)

// backend is an opened record store.
type backend struct {
	driver  string
	table   store.Table
	sweeper jobs.Sweeper // nil when the store expires records itself
	ping    func(ctx context.Context) error
	migrate func(ctx context.Context) error
	close   func()
}

func openBackend(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*backend, error) {
	switch cfg.Driver {
	case "dynamodb":
		t, err := dynamo.Open(ctx, cfg.DynamoDB, logger)
		if err != nil {
			return nil, fmt.Errorf("open dynamodb: %w", err)
		}
		logger.Info("using dynamodb store", "region", cfg.DynamoDB.Region, "table", cfg.DynamoDB.Table)
		return &backend{
			driver: cfg.Driver,
			table:  t,
			ping:   t.Ping,
			close:  func() {},
		}, nil

	case "postgres":
		logger.Info("connecting to database",
			"host", cfg.Postgres.Host,
			"port", cfg.Postgres.Port,
			"database", cfg.Postgres.Name,
		)
		s, err := database.Open(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &backend{
			driver:  cfg.Driver,
			table:   s,
			sweeper: s,
			ping:    s.Ping,
			migrate: s.Migrate,
			close:   s.Close,
		}, nil

	case "memory":
		logger.Warn("using in-memory store, records are lost on exit")
		m := store.NewMemTable()
		return &backend{
			driver:  cfg.Driver,
			table:   m,
			sweeper: m,
			ping:    func(context.Context) error { return nil },
			close:   func() {},
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
