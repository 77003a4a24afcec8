package cache

import "fmt"

// migrate runs all database migrations
func (c *Cache) migrate() error {
	migrations := []string{
		migrationPragmas,
		migrationCreateEntries,
	}

	for i, m := range migrations {
		if _, err := c.db.Exec(m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

const migrationPragmas = `
PRAGMA busy_timeout = 5000;
`

const migrationCreateEntries = `
CREATE TABLE IF NOT EXISTS entries (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    writer TEXT NOT NULL DEFAULT ''
);
`
