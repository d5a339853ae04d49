package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// migration is a numbered schema change. Migrations are applied in order
// and tracked in the schema_migrations table so each runs exactly once.
type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS responses (
    id          INTEGER PRIMARY KEY,
    query_key   TEXT UNIQUE NOT NULL,
    row_count   INTEGER NOT NULL,
    payload     BLOB NOT NULL,
    fetched_at  DATETIME DEFAULT CURRENT_TIMESTAMP
);`,
	},
	{
		Version:     2,
		Description: "create query history table",
		SQL: `
CREATE TABLE query_history (
    id          INTEGER PRIMARY KEY,
    query_key   TEXT UNIQUE NOT NULL,
    axis_x      TEXT NOT NULL DEFAULT '',
    axis_y      TEXT NOT NULL DEFAULT '',
    probe_cc    TEXT NOT NULL DEFAULT '',
    probe_asn   TEXT NOT NULL DEFAULT '',
    category    TEXT NOT NULL DEFAULT '',
    input       TEXT NOT NULL DEFAULT '',
    since       TEXT NOT NULL DEFAULT '',
    until       TEXT NOT NULL DEFAULT '',
    test_name   TEXT NOT NULL DEFAULT '',
    used_at     DATETIME DEFAULT CURRENT_TIMESTAMP,
    use_count   INTEGER NOT NULL DEFAULT 1
);`,
	},
	{
		Version:     3,
		Description: "add raw_size column to responses",
		SQL:         `ALTER TABLE responses ADD COLUMN raw_size INTEGER NOT NULL DEFAULT 0;`,
	},
}

// OpenDB opens (or creates) a SQLite database at the given path.
// It creates parent directories if needed, enables WAL mode, and runs any
// pending migrations.
func OpenDB(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// runMigrations ensures the schema_migrations table exists and applies
// every migration not yet recorded there.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.Version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if exists > 0 {
			continue
		}

		if _, err := db.Exec(m.SQL); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := db.Exec(
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// DefaultDBPath returns the default database file path:
// ~/.local/share/matdash/matdash.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "matdash", "matdash.db"), nil
}
