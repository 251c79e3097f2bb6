package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/lox/skycast/internal/history"
)

// Store is the SQLite-backed slot and resolution journal.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens the database at path, applies pragmas and migrates it.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := New(db)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return st, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key, or history.ErrSlotEmpty.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM slots WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, history.ErrSlotEmpty
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

// Set replaces the value under key. Writes that hit a locked database are
// retried for a couple of seconds; anything else fails immediately.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	operation := func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO slots (key, value, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at
		`, key, string(value), time.Now().UTC())
		if err != nil && !isBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = 2 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("set slot %s: %w", key, err)
	}
	return nil
}

// isBusy reports whether err is a lock conflict worth retrying. Extended
// result codes keep the primary code in the low byte.
func isBusy(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}
