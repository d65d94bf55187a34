package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/coingecko-data/internal/config"
	"github.com/rickgao/coingecko-data/internal/model"
	"github.com/rickgao/coingecko-data/internal/store"
)

// Store implements store.Table on a PostgreSQL records table.
type Store struct {
	pool   *pgxpool.Pool
	table  string // sanitized identifier
	logger *slog.Logger
	now    func() time.Time
}

// Open connects using cfg and returns a Store on cfg.Table.
func Open(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (*Store, error) {
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(pool, cfg.Table, logger), nil
}

// New creates a Store over an existing pool.
func New(pool *pgxpool.Pool, table string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if table == "" {
		table = config.DefaultDBTable
	}
	return &Store{
		pool:   pool,
		table:  pgx.Identifier{table}.Sanitize(),
		logger: logger,
		now:    time.Now,
	}
}

// Migrate creates the records table and its expiry index if missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema(s.table) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func schema(table string) []string {
	index := pgx.Identifier{strings.Trim(table, `"`) + "_expiry_idx"}.Sanitize()
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + table + ` (
			pk          TEXT   NOT NULL,
			sk          TEXT   COLLATE "C" NOT NULL,
			entity_type TEXT   NOT NULL,
			expiry      BIGINT NOT NULL DEFAULT 0,
			attributes  JSONB  NOT NULL DEFAULT '{}',
			PRIMARY KEY (pk, sk)
		)`,
		`CREATE INDEX IF NOT EXISTS ` + index + ` ON ` + table + ` (expiry) WHERE expiry > 0`,
	}
}

// BatchWrite upserts items in one transaction. Either every row lands or none do.
func (s *Store) BatchWrite(ctx context.Context, items []store.Item) error {
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, it := range items {
		attrs, err := encodeAttributes(it.Attributes)
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", it.PK, it.SK, err)
		}
		batch.Queue(upsertSQL(s.table), it.PK, it.SK, string(it.EntityType), it.Expiry, attrs)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	results := tx.SendBatch(ctx, batch)
	for range items {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("upsert: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Put upserts one item.
func (s *Store) Put(ctx context.Context, item store.Item) error {
	attrs, err := encodeAttributes(item.Attributes)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", item.PK, item.SK, err)
	}
	if _, err := s.pool.Exec(ctx, upsertSQL(s.table), item.PK, item.SK, string(item.EntityType), item.Expiry, attrs); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// Query reads unexpired rows of one partition.
func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Item, error) {
	sql, args := buildQuery(s.table, q, s.now())

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []store.Item
	for rows.Next() {
		var (
			it         store.Item
			entityType string
			raw        []byte
		)
		if err := rows.Scan(&it.PK, &it.SK, &entityType, &it.Expiry, &raw); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		it.EntityType = model.EntityType(entityType)
		if it.Attributes, err = decodeAttributes(raw); err != nil {
			s.logger.Warn("skipping undecodable row", "pk", it.PK, "sk", it.SK, "error", err)
			continue
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// Sweep deletes expired rows and returns how many were removed.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM `+s.table+` WHERE expiry > 0 AND expiry <= $1`,
		s.now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping checks the pool is healthy.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() {
	s.pool.Close()
}

func upsertSQL(table string) string {
	return `
		INSERT INTO ` + table + ` (pk, sk, entity_type, expiry, attributes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (pk, sk) DO UPDATE SET
			entity_type = EXCLUDED.entity_type,
			expiry      = EXCLUDED.expiry,
			attributes  = EXCLUDED.attributes
	`
}

// buildQuery returns the SELECT for q and its arguments.
func buildQuery(table string, q store.Query, now time.Time) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT pk, sk, entity_type, expiry, attributes FROM `)
	b.WriteString(table)
	b.WriteString(` WHERE pk = $1 AND (expiry = 0 OR expiry > $2)`)
	args := []any{q.PK, now.Unix()}

	if q.SKFrom != "" {
		args = append(args, q.SKFrom)
		fmt.Fprintf(&b, " AND sk >= $%d", len(args))
	}
	if q.SKTo != "" {
		args = append(args, q.SKTo)
		fmt.Fprintf(&b, " AND sk <= $%d", len(args))
	}

	if q.Descending {
		b.WriteString(" ORDER BY sk DESC")
	} else {
		b.WriteString(" ORDER BY sk ASC")
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}
