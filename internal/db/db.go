// Package db persists run history and file tags in SQLite.
package db

import (
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	_ "modernc.org/sqlite"
)

// DB wraps the orgman SQLite store.
type DB struct {
	conn *sql.DB
	path string

	// HistoryCap bounds retained history entries; oldest are trimmed first.
	HistoryCap int
}

// Open opens or creates the store at the given path. The connection is
// instrumented through otelsql so store operations show up in traces.
func Open(path string) (*DB, error) {
	conn, err := otelsql.Open("sqlite", path,
		otelsql.WithAttributes(semconv.DBSystemSqlite),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db := &DB{conn: conn, path: path, HistoryCap: 50}
	if err := db.migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// migrate runs database migrations up to the current schema version.
func (db *DB) migrate() error {
	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var version int
	err := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if version < 1 {
		if err := db.migrateV1(); err != nil {
			return err
		}
	}

	return nil
}

// migrateV1 creates the initial schema.
func (db *DB) migrateV1() error {
	schema := `
		CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY,
			run_id TEXT UNIQUE NOT NULL,
			root_path TEXT NOT NULL,
			status TEXT NOT NULL,
			created INTEGER NOT NULL DEFAULT 0,
			moved INTEGER NOT NULL DEFAULT 0,
			renamed INTEGER NOT NULL DEFAULT 0,
			tagged INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			error_text TEXT NOT NULL DEFAULT '',
			ledger_json TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_history_root ON history(root_path);

		CREATE TABLE IF NOT EXISTS file_tags (
			path TEXT NOT NULL,
			tag TEXT NOT NULL,
			run_id TEXT NOT NULL DEFAULT '',
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (path, tag)
		);

		CREATE INDEX IF NOT EXISTS idx_file_tags_path ON file_tags(path);

		INSERT INTO schema_version (version) VALUES (1);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply v1 schema: %w", err)
	}
	return nil
}
