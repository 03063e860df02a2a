package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/pitchradar/radar-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool. It keeps the same logical
// key-value layout as the SQLite backend so either can serve a deployment.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: new pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS collections (
	key        TEXT PRIMARY KEY,
	items      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	storage_key TEXT NOT NULL,
	added       INTEGER NOT NULL,
	total       INTEGER NOT NULL,
	dropped     INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ingest_runs_started_at ON ingest_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_ingest_runs_source ON ingest_runs(source);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetCollection(ctx context.Context, key string) ([]model.Opportunity, error) {
	row := s.pool.QueryRow(ctx, `SELECT items FROM collections WHERE key = $1`, key)

	var itemsJSON []byte
	err := row.Scan(&itemsJSON)
	if err == pgx.ErrNoRows {
		return []model.Opportunity{}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get collection %s", key)
	}

	var items []model.Opportunity
	if err := json.Unmarshal(itemsJSON, &items); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal collection %s", key)
	}
	return items, nil
}

func (s *PostgresStore) SetCollection(ctx context.Context, key string, items []model.Opportunity) error {
	if items == nil {
		items = []model.Opportunity{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return eris.Wrapf(err, "postgres: marshal collection %s", key)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO collections (key, items, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET items = EXCLUDED.items, updated_at = EXCLUDED.updated_at`,
		key, itemsJSON, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: set collection %s", key)
}

func (s *PostgresStore) LastUpdated(ctx context.Context, key string) (time.Time, error) {
	row := s.pool.QueryRow(ctx, `SELECT updated_at FROM collections WHERE key = $1`, key)

	var updatedAt time.Time
	err := row.Scan(&updatedAt)
	if err == pgx.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "postgres: last updated %s", key)
	}
	return updatedAt, nil
}

func (s *PostgresStore) ListKeys(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key FROM collections ORDER BY key`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, eris.Wrap(err, "postgres: scan key")
		}
		keys = append(keys, key)
	}
	return keys, eris.Wrap(rows.Err(), "postgres: list keys iterate")
}

func (s *PostgresStore) SaveOutcome(ctx context.Context, outcome model.BatchOutcome) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingest_runs (id, source, storage_key, added, total, dropped, failed, started_at, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		outcome.RunID, outcome.Source, outcome.StorageKey,
		outcome.Added, outcome.Total, outcome.Dropped, outcome.Failed,
		outcome.StartedAt.UTC(), outcome.Duration,
	)
	return eris.Wrapf(err, "postgres: save outcome %s", outcome.RunID)
}

func (s *PostgresStore) ListOutcomes(ctx context.Context, limit int) ([]model.BatchOutcome, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, storage_key, added, total, dropped, failed, started_at, duration_ms
		 FROM ingest_runs ORDER BY started_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list outcomes")
	}
	defer rows.Close()

	var outcomes []model.BatchOutcome
	for rows.Next() {
		var o model.BatchOutcome
		if err := rows.Scan(&o.RunID, &o.Source, &o.StorageKey, &o.Added, &o.Total, &o.Dropped, &o.Failed, &o.StartedAt, &o.Duration); err != nil {
			return nil, eris.Wrap(err, "postgres: scan outcome")
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, eris.Wrap(rows.Err(), "postgres: list outcomes iterate")
}
