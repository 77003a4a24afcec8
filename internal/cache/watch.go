package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/existflow/ironnote/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of events a single SQLite commit produces
const watchDebounce = 250 * time.Millisecond

// Watch calls onChange whenever another process writes to the cache file.
// Writes made through c itself are ignored. Watch blocks until ctx is done.
func (c *Cache) Watch(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: SQLite replaces its journal files, and a watch on
	// the db file alone misses those.
	dir := filepath.Dir(c.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	base := filepath.Base(c.path)

	lastSeen, _ := c.latestForeignWrite(ctx)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), base) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Cache watcher error", logger.F("error", err))

		case <-fire:
			fire = nil
			latest, err := c.latestForeignWrite(ctx)
			if err != nil {
				logger.Debug("Cache watcher read failed", logger.F("error", err))
				continue
			}
			if latest != "" && latest != lastSeen {
				lastSeen = latest
				logger.Debug("Cache changed by another session", logger.F("updatedAt", latest))
				onChange()
			}
		}
	}
}

// latestForeignWrite returns the newest updated_at written by someone else
func (c *Cache) latestForeignWrite(ctx context.Context) (string, error) {
	var updated sql.NullString
	err := c.db.QueryRowContext(ctx,
		`SELECT MAX(updated_at) FROM entries WHERE writer != ?`, c.writer,
	).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return updated.String, nil
}
