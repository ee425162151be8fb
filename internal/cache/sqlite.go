package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists responses in a single SQLite table.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the cache database at path. Entries older
// than ttl are treated as missing; a zero ttl keeps them forever.
func NewSQLiteStore(path string, ttl time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening cache database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS responses (
			key TEXT PRIMARY KEY,
			body BLOB NOT NULL,
			fetched_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error creating cache table: %w", err)
	}

	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var body []byte
	var fetchedAt int64
	err := s.db.QueryRowContext(ctx, `SELECT body, fetched_at FROM responses WHERE key = ?`, key).Scan(&body, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error reading cache entry %s: %w", key, err)
	}
	if s.ttl > 0 && s.now().Sub(time.Unix(fetchedAt, 0)) >= s.ttl {
		return nil, false, nil
	}
	return body, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO responses (key, body, fetched_at) VALUES (?, ?, ?)`,
		key, value, s.now().Unix())
	if err != nil {
		return fmt.Errorf("error writing cache entry %s: %w", key, err)
	}
	return nil
}

// Count returns the number of cached responses.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM responses`).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting cache entries: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
