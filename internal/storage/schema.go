package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is written to schema_meta on creation.
const SchemaVersion = "1"

// CreateSchema creates all tables and indexes. Uses a transaction for
// atomicity and is safe to call on an existing database.
//
// Must be called with SQLite PRAGMA foreign_keys = ON.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	// Create all tables in dependency order
	tables := []struct {
		name string
		ddl  string
	}{
		{"runs", createRunsTable},
		{"file_results", createFileResultsTable},
		{"declarations", createDeclarationsTable},
		{"calls", createCallsTable},
		{"schema_meta", createSchemaMetaTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range getAllIndexes() {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(`INSERT OR IGNORE INTO schema_meta (key, value, updated_at) VALUES ('schema_version', ?, ?)`, SchemaVersion, now); err != nil {
		return fmt.Errorf("failed to bootstrap schema_meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}

	return nil
}

// GetSchemaVersion retrieves the schema version from schema_meta.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_meta'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check schema_meta existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil // New database
	}

	var version string
	err = db.QueryRow("SELECT value FROM schema_meta WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in schema_meta")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// Table DDL constants

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,                     -- UUID
    target TEXT NOT NULL,                        -- URL or local directory
    started_at TEXT NOT NULL,                    -- fixed-width ISO 8601, sorts lexically
    finished_at TEXT,                            -- NULL while running
    status TEXT NOT NULL,                        -- running, success, error
    document TEXT                                -- generated Markdown
)
`

const createFileResultsTable = `
CREATE TABLE IF NOT EXISTS file_results (
    run_id TEXT NOT NULL,
    file_path TEXT NOT NULL,
    position INTEGER NOT NULL,                   -- 0-indexed order within the run
    entry_point INTEGER NOT NULL DEFAULT 0,      -- Boolean
    error TEXT,                                  -- NULL for successful extractions
    created_at TEXT NOT NULL,
    PRIMARY KEY (run_id, file_path),
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
)
`

const createDeclarationsTable = `
CREATE TABLE IF NOT EXISTS declarations (
    run_id TEXT NOT NULL,
    file_path TEXT NOT NULL,
    kind TEXT NOT NULL,                          -- function, class
    name TEXT NOT NULL,
    line INTEGER NOT NULL,                       -- 1-based
    position INTEGER NOT NULL,                   -- 0-indexed order within kind
    FOREIGN KEY (run_id, file_path) REFERENCES file_results(run_id, file_path) ON DELETE CASCADE
)
`

const createCallsTable = `
CREATE TABLE IF NOT EXISTS calls (
    run_id TEXT NOT NULL,
    file_path TEXT NOT NULL,
    name TEXT NOT NULL,
    position INTEGER NOT NULL,                   -- 0-indexed order of appearance
    FOREIGN KEY (run_id, file_path) REFERENCES file_results(run_id, file_path) ON DELETE CASCADE
)
`

const createSchemaMetaTable = `
CREATE TABLE IF NOT EXISTS schema_meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

// getAllIndexes returns all index creation statements.
func getAllIndexes() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_file_results_position ON file_results(run_id, position)`,
		`CREATE INDEX IF NOT EXISTS idx_declarations_file ON declarations(run_id, file_path)`,
		`CREATE INDEX IF NOT EXISTS idx_declarations_name ON declarations(name)`,
		`CREATE INDEX IF NOT EXISTS idx_calls_file ON calls(run_id, file_path)`,
		`CREATE INDEX IF NOT EXISTS idx_calls_name ON calls(name)`,
	}
}
