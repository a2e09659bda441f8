package db

import (
	"database/sql"
	"fmt"
)

// MigrateUp creates the schema for the given driver. Statements are
// idempotent so the worker can run migrations on every start.
func MigrateUp(conn *sql.DB, driver string) error {
	var statements []string
	switch driver {
	case DriverSQLite:
		statements = sqliteSchema
	case DriverPostgres:
		statements = postgresSchema
	default:
		return fmt.Errorf("MigrateUp: unsupported driver %q", driver)
	}

	for _, stmt := range statements {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("MigrateUp: %w", err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS items (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    fingerprint  TEXT NOT NULL UNIQUE,
    title        TEXT NOT NULL,
    link         TEXT NOT NULL,
    source_name  TEXT NOT NULL,
    category     TEXT NOT NULL DEFAULT '',
    subjects     TEXT NOT NULL DEFAULT '[]',
    contexts     TEXT NOT NULL DEFAULT '[]',
    summary      TEXT NOT NULL DEFAULT '',
    published_at TIMESTAMP NOT NULL,
    created_at   TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS fingerprints (
    fingerprint TEXT PRIMARY KEY,
    seen_at     TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_fingerprints_seen_at ON fingerprints(seen_at)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS items (
    id           BIGSERIAL PRIMARY KEY,
    fingerprint  TEXT NOT NULL UNIQUE,
    title        TEXT NOT NULL,
    link         TEXT NOT NULL,
    source_name  TEXT NOT NULL,
    category     TEXT NOT NULL DEFAULT '',
    subjects     TEXT NOT NULL DEFAULT '[]',
    contexts     TEXT NOT NULL DEFAULT '[]',
    summary      TEXT NOT NULL DEFAULT '',
    published_at TIMESTAMPTZ NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS fingerprints (
    fingerprint TEXT PRIMARY KEY,
    seen_at     TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_fingerprints_seen_at ON fingerprints(seen_at)`,
}
