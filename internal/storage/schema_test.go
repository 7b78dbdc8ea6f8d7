package storage

// Test Plan for SQLite Schema:
// - CreateSchema creates all 5 tables (runs, file_results, declarations, calls, schema_meta)
// - CreateSchema creates all indexes with idx_ prefix
// - CreateSchema is idempotent
// - Foreign key CASCADE deletes work (deleting a file result removes its declarations and calls)
// - Foreign keys reject declarations for unknown files
// - PRIMARY KEY prevents duplicate (run_id, file_path) file results
// - GetSchemaVersion returns "0" for new database without schema
// - GetSchemaVersion returns SchemaVersion after CreateSchema

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSchema(t *testing.T) {
	t.Parallel()

	db := NewTestDB(t)

	for _, table := range []string{"runs", "file_results", "declarations", "calls", "schema_meta"} {
		assert.True(t, tableExists(t, db, table), "table %s should exist", table)
	}

	require.NoError(t, CreateSchema(db), "CreateSchema should be idempotent")
}

func TestCreateSchema_Indexes(t *testing.T) {
	t.Parallel()

	db := NewTestDB(t)

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'index' AND name LIKE 'idx_%' ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())

	assert.Len(t, names, len(getAllIndexes()))
	assert.Contains(t, names, "idx_runs_started_at")
	assert.Contains(t, names, "idx_calls_name")
}

func TestCreateSchema_ForeignKeys(t *testing.T) {
	t.Parallel()

	db := NewTestDB(t)
	insertRunAndFile(t, db, "r1", "a.py")

	_, err := db.Exec(`INSERT INTO declarations (run_id, file_path, kind, name, line, position) VALUES ('r1', 'a.py', 'function', 'run', 1, 0)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO calls (run_id, file_path, name, position) VALUES ('r1', 'a.py', 'helper', 0)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO declarations (run_id, file_path, kind, name, line, position) VALUES ('r1', 'missing.py', 'function', 'x', 1, 0)`)
	assert.Error(t, err, "declarations need a parent file result")

	_, err = db.Exec(`DELETE FROM file_results WHERE run_id = 'r1' AND file_path = 'a.py'`)
	require.NoError(t, err)

	assert.Equal(t, 0, countRows(t, db, "declarations"))
	assert.Equal(t, 0, countRows(t, db, "calls"))
}

func TestCreateSchema_FileResultPrimaryKey(t *testing.T) {
	t.Parallel()

	db := NewTestDB(t)
	insertRunAndFile(t, db, "r1", "a.py")

	_, err := db.Exec(`INSERT INTO file_results (run_id, file_path, position, created_at) VALUES ('r1', 'a.py', 1, 'now')`)
	assert.Error(t, err, "a file appears once per run")
}

func TestGetSchemaVersion(t *testing.T) {
	t.Parallel()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	version, err := GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, "0", version)

	require.NoError(t, CreateSchema(db))

	version, err = GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)
}

// Helper functions

func insertRunAndFile(t *testing.T, db *sql.DB, runID, file string) {
	t.Helper()

	_, err := db.Exec(`INSERT INTO runs (run_id, target, started_at, status) VALUES (?, '/tmp/x', 'now', 'running')`, runID)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO file_results (run_id, file_path, position, created_at) VALUES (?, ?, 0, 'now')`, runID, file)
	require.NoError(t, err)
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&count))
	return count
}

func tableExists(t *testing.T, db *sql.DB, tableName string) bool {
	var count int
	query := `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type IN ('table', 'view') AND name = ?
	`
	err := db.QueryRow(query, tableName).Scan(&count)
	require.NoError(t, err)
	return count > 0
}
