package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/pitchradar/radar-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS collections (
	key        TEXT PRIMARY KEY,
	items      TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	storage_key TEXT NOT NULL,
	added       INTEGER NOT NULL,
	total       INTEGER NOT NULL,
	dropped     INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	started_at  DATETIME NOT NULL,
	duration_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ingest_runs_started_at ON ingest_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_ingest_runs_source ON ingest_runs(source);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetCollection(ctx context.Context, key string) ([]model.Opportunity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT items FROM collections WHERE key = ?`, key,
	)

	var itemsJSON string
	err := row.Scan(&itemsJSON)
	if err == sql.ErrNoRows {
		return []model.Opportunity{}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get collection %s", key)
	}

	var items []model.Opportunity
	if err := json.Unmarshal([]byte(itemsJSON), &items); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal collection %s", key)
	}
	return items, nil
}

func (s *SQLiteStore) SetCollection(ctx context.Context, key string, items []model.Opportunity) error {
	if items == nil {
		items = []model.Opportunity{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return eris.Wrapf(err, "sqlite: marshal collection %s", key)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO collections (key, items, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET items = excluded.items, updated_at = excluded.updated_at`,
		key, string(itemsJSON), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: set collection %s", key)
}

func (s *SQLiteStore) LastUpdated(ctx context.Context, key string) (time.Time, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT updated_at FROM collections WHERE key = ?`, key,
	)

	var updatedAt time.Time
	err := row.Scan(&updatedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "sqlite: last updated %s", key)
	}
	return updatedAt, nil
}

func (s *SQLiteStore) ListKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM collections ORDER BY key`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan key")
		}
		keys = append(keys, key)
	}
	return keys, eris.Wrap(rows.Err(), "sqlite: list keys iterate")
}

func (s *SQLiteStore) SaveOutcome(ctx context.Context, outcome model.BatchOutcome) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, source, storage_key, added, total, dropped, failed, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		outcome.RunID, outcome.Source, outcome.StorageKey,
		outcome.Added, outcome.Total, outcome.Dropped, outcome.Failed,
		outcome.StartedAt.UTC(), outcome.Duration,
	)
	return eris.Wrapf(err, "sqlite: save outcome %s", outcome.RunID)
}

func (s *SQLiteStore) ListOutcomes(ctx context.Context, limit int) ([]model.BatchOutcome, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, storage_key, added, total, dropped, failed, started_at, duration_ms
		 FROM ingest_runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list outcomes")
	}
	defer rows.Close()

	var outcomes []model.BatchOutcome
	for rows.Next() {
		var o model.BatchOutcome
		if err := rows.Scan(&o.RunID, &o.Source, &o.StorageKey, &o.Added, &o.Total, &o.Dropped, &o.Failed, &o.StartedAt, &o.Duration); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan outcome")
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, eris.Wrap(rows.Err(), "sqlite: list outcomes iterate")
}
