// Package store implements the persistence collaborator: a SQLite-backed
// key-value blob store holding named JSON lists. The core treats it as a
// plain load/save contract; task backlogs and checkpoint lists round-trip
// through it across process restarts.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store manages the SQLite state database.
type Store struct {
	db     *sql.DB
	dbPath string
	lock   *flock.Flock
}

// NewStore opens (or creates) the state database at dbPath and
// initializes the schema. File-based databases are guarded by a flock
// so two maestro processes never share one state directory.
func NewStore(dbPath string) (*Store, error) {
	// Handle in-memory database (tests)
	if dbPath == ":memory:" {
		return openAndInitStore(dbPath, nil)
	}

	// Ensure parent directory exists for file-based databases
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	lock := flock.New(dbPath + ".lock")
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock state database: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("state database %s is in use by another process", dbPath)
	}

	return openAndInitStore(dbPath, lock)
}

// openAndInitStore opens the database connection and initializes schema.
func openAndInitStore(dbPath string, lock *flock.Flock) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		if lock != nil {
			lock.Unlock()
		}
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Configure SQLite for concurrent access with retry logic.
	// busy_timeout must come first so subsequent operations wait on locks.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			if lock != nil {
				lock.Unlock()
			}
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		if lock != nil {
			lock.Unlock()
		}
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath, lock: lock}, nil
}

// execWithRetry executes a SQL statement with exponential backoff on
// "database is locked" errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection and releases the process lock.
func (s *Store) Close() error {
	var err error
	if s.db != nil {
		err = s.db.Close()
	}
	if s.lock != nil {
		if uerr := s.lock.Unlock(); uerr != nil && err == nil {
			err = uerr
		}
	}
	return err
}

// LoadList returns the elements of the named list. A key that was never
// saved yields an empty list, not an error.
func (s *Store) LoadList(ctx context.Context, key string) ([]json.RawMessage, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM lists WHERE key = ?", key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load list %q: %w", key, err)
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, fmt.Errorf("decode list %q: %w", key, err)
	}
	return items, nil
}

// SaveList replaces the named list with the JSON encoding of v.
// v must marshal to a JSON array.
func (s *Store) SaveList(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode list %q: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO lists (key, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
		key, string(data))
	if err != nil {
		return fmt.Errorf("save list %q: %w", key, err)
	}
	return nil
}
