// Package store persists snippets, their edit logs and bookmarks in SQLite.
//
// Usage:
//
//	import _ "modernc.org/sqlite"
//	st, err := store.Open("snipscrub.db")
//
// In tests:
//
//	st := store.OpenMemory(t)
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var ErrNotFound = errors.New("store: not found")

const schema = `
CREATE TABLE IF NOT EXISTS snippets (
	id              TEXT PRIMARY KEY,
	kind            TEXT NOT NULL,
	title           TEXT NOT NULL DEFAULT '',
	uri             TEXT NOT NULL DEFAULT '',
	initial_content TEXT NOT NULL DEFAULT '',
	final_content   TEXT NOT NULL DEFAULT '',
	duration        REAL NOT NULL DEFAULT 0,
	trim_start      REAL NOT NULL DEFAULT 0,
	trim_end        REAL NOT NULL DEFAULT 0,
	created_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS event_batches (
	snippet_id  TEXT NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	events_json TEXT NOT NULL,
	PRIMARY KEY (snippet_id, seq)
);

CREATE TABLE IF NOT EXISTS bookmarks (
	id         TEXT PRIMARY KEY,
	snippet_id TEXT NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
	timestamp  REAL NOT NULL,
	label      TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bookmarks_snippet ON bookmarks(snippet_id, timestamp);
`

// Store wraps the snipscrub database.
type Store struct {
	DB *sql.DB
}

type config struct {
	busyTimeout int
	mkdirAll    bool
}

// Option customises Open behaviour.
type Option func(*config)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 5000.
func WithBusyTimeout(ms int) Option { return func(c *config) { c.busyTimeout = ms } }

// WithMkdirAll creates parent directories of the database path before opening.
func WithMkdirAll() Option { return func(c *config) { c.mkdirAll = true } }

// Open opens the database at path, applies pragmas and creates the schema.
// The caller must blank-import modernc.org/sqlite.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := config{busyTimeout: 5000}
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	// Pragmas are per connection and the app has a single writer.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout),
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: exec schema: %w", err)
	}
	return &Store{DB: db}, nil
}

// OpenMemory opens an in-memory store for testing and closes it on cleanup.
func OpenMemory(t testing.TB) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("store.OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func (s *Store) Close() error { return s.DB.Close() }

// runTx runs fn in a transaction, retrying a few times while SQLite is busy.
func (s *Store) runTx(ctx context.Context, fn func(*sql.Tx) error) error {
	const maxRetries = 3
	var err error
	for i := range maxRetries {
		if err = s.runOnce(ctx, fn); err == nil || !isBusy(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("store: context cancelled during retry: %w", ctx.Err())
		case <-time.After(time.Duration(100*(i+1)) * time.Millisecond):
		}
	}
	return err
}

func (s *Store) runOnce(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
