// Package cache is the durable local mirror of loaded scopes.
//
// Entries are JSON documents keyed by scope ("projects:<user>",
// "notes:<section>", ...) in a SQLite file. The cache is a hint for startup
// and offline use; the remote API stays authoritative. Several processes may
// share one file and the last writer wins.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrMiss is returned by Get when a key has no entry
var ErrMiss error = missError{}

type missError struct{}

func (missError) Error() string { return "cache miss" }

// Miss lets callers that only know the interface recognise a miss
func (missError) Miss() bool { return true }

// Cache wraps the SQLite connection
type Cache struct {
	db     *sql.DB
	path   string
	writer string // tags rows written by this instance
}

// Entry is a stored value with its write time
type Entry struct {
	Key       string
	Value     json.RawMessage
	UpdatedAt time.Time
}

// Open opens or creates the cache database at path
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	// One writer at a time inside this process; other processes go through
	// SQLite's own locking and the busy timeout.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to cache: %w", err)
	}

	c := &Cache{db: db, path: path, writer: uuid.NewString()}
	if err := c.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return c, nil
}

// Path returns the database file path
func (c *Cache) Path() string { return c.path }

// Close closes the database
func (c *Cache) Close() error { return c.db.Close() }

// Put stores v as JSON under key, replacing any previous entry
func (c *Cache) Put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO entries (key, value, updated_at, writer) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value, updated_at = excluded.updated_at, writer = excluded.writer`,
		key, string(data), time.Now().UTC().Format(time.RFC3339Nano), c.writer,
	)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Get decodes the entry for key into v. It returns ErrMiss when absent.
func (c *Cache) Get(ctx context.Context, key string, v any) error {
	var data string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM entries WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Clear removes every entry and returns how many were removed
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM entries`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	return res.RowsAffected()
}

// Entries lists all entries ordered by key
func (c *Cache) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT key, value, updated_at FROM entries ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var value, updated string
		if err := rows.Scan(&e.Key, &value, &updated); err != nil {
			return nil, err
		}
		e.Value = json.RawMessage(value)
		e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
