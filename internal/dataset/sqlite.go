package dataset

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/smartmap-fr/smartmap/internal/metrics"
)

// SQLiteCache persists geometry payloads across runs using modernc.org/sqlite.
type SQLiteCache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteCache opens a SQLite database at dsn and configures WAL mode.
func NewSQLiteCache(dsn string, ttl time.Duration) (*SQLiteCache, error) {
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
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteCache{db: db, ttl: ttl, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS geometry_cache (
	id         TEXT PRIMARY KEY,
	cache_key  TEXT NOT NULL UNIQUE,
	payload    BLOB NOT NULL,
	fetched_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_geometry_cache_expires_at ON geometry_cache(expires_at);
`

// Migrate creates the cache table.
func (s *SQLiteCache) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteCache) Close() error {
	return s.db.Close()
}

// Get returns an unexpired payload.
func (s *SQLiteCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM geometry_cache WHERE cache_key = ? AND expires_at > ?`,
		key, s.now().Unix(),
	)
	var payload []byte
	err := row.Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.CacheMisses.WithLabelValues("sqlite").Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "sqlite: get %s", key)
	}
	metrics.CacheHits.WithLabelValues("sqlite").Inc()
	return payload, true, nil
}

// Put stores a payload, replacing any previous entry for key.
func (s *SQLiteCache) Put(ctx context.Context, key string, data []byte) error {
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO geometry_cache (id, cache_key, payload, fetched_at, expires_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
		   id = excluded.id, payload = excluded.payload,
		   fetched_at = excluded.fetched_at, expires_at = excluded.expires_at`,
		uuid.New().String(), key, data, now.Unix(), now.Add(s.ttl).Unix(),
	)
	return eris.Wrapf(err, "sqlite: put %s", key)
}

// DeleteExpired removes expired entries and returns how many were dropped.
func (s *SQLiteCache) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM geometry_cache WHERE expires_at <= ?`, s.now().Unix(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired geometry")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}
