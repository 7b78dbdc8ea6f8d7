// Package storage persists analysis runs and their extraction results in SQLite.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mvp-joe/codegenius/internal/extractor"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// Run statuses.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusError   = "error"
)

// Declaration kinds stored in the declarations table.
const (
	KindFunction = "function"
	KindClass    = "class"
)

// insertBatchSize keeps multi-row inserts under SQLite's bound-variable limit.
const insertBatchSize = 150

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Run is one recorded documentation run.
type Run struct {
	ID         string
	Target     string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Status     string
	Document   string
}

// Store reads and writes runs. Safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists. Use ":memory:" for a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is its own database
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return NewStore(db), nil
}

// NewStore wraps an open database. The schema must already exist.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun records a new running run for target and returns its id.
func (s *Store) CreateRun(target string) (string, error) {
	runID := uuid.NewString()

	_, err := sq.Insert("runs").
		Columns("run_id", "target", "started_at", "status").
		Values(runID, target, s.now().Format(timeLayout), RunStatusRunning).
		RunWith(s.db).
		Exec()
	if err != nil {
		return "", fmt.Errorf("failed to create run for %s: %w", target, err)
	}

	return runID, nil
}

// FinishRun sets the final status and document of a run.
func (s *Store) FinishRun(runID, status, document string) error {
	res, err := sq.Update("runs").
		Set("finished_at", s.now().Format(timeLayout)).
		Set("status", status).
		Set("document", document).
		Where(sq.Eq{"run_id": runID}).
		RunWith(s.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// SaveResults appends results to a run in a single transaction. A file
// saved again replaces its earlier result.
func (s *Store) SaveResults(runID string, results []extractor.Result) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	var exists int
	err = sq.Select("COUNT(*)").From("runs").Where(sq.Eq{"run_id": runID}).RunWith(tx).QueryRow().Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up run %s: %w", runID, err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	var next int
	err = sq.Select("COALESCE(MAX(position) + 1, 0)").From("file_results").Where(sq.Eq{"run_id": runID}).RunWith(tx).QueryRow().Scan(&next)
	if err != nil {
		return fmt.Errorf("failed to read next position: %w", err)
	}

	createdAt := s.now().Format(timeLayout)
	for _, r := range results {
		if err := saveResult(tx, runID, next, createdAt, r); err != nil {
			return err
		}
		next++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}
	return nil
}

func saveResult(tx *sql.Tx, runID string, position int, createdAt string, r extractor.Result) error {
	// Cascades to the file's declarations and calls
	_, err := sq.Delete("file_results").
		Where(sq.Eq{"run_id": runID, "file_path": r.File}).
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to clear result for %s: %w", r.File, err)
	}

	var errText any
	if r.Failed() {
		errText = r.Error
	}

	_, err = sq.Insert("file_results").
		Columns("run_id", "file_path", "position", "entry_point", "error", "created_at").
		Values(runID, r.File, position, r.EntryPoint, errText, createdAt).
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to write result for %s: %w", r.File, err)
	}

	if r.Failed() {
		return nil
	}

	if err := saveDeclarations(tx, runID, r.File, KindFunction, r.Functions); err != nil {
		return err
	}
	if err := saveDeclarations(tx, runID, r.File, KindClass, r.Classes); err != nil {
		return err
	}

	for start := 0; start < len(r.Calls); start += insertBatchSize {
		end := min(start+insertBatchSize, len(r.Calls))

		insert := sq.Insert("calls").Columns("run_id", "file_path", "name", "position")
		for i := start; i < end; i++ {
			insert = insert.Values(runID, r.File, r.Calls[i], i)
		}
		if _, err := insert.RunWith(tx).Exec(); err != nil {
			return fmt.Errorf("failed to write calls for %s: %w", r.File, err)
		}
	}
	return nil
}

func saveDeclarations(tx *sql.Tx, runID, file, kind string, decls []extractor.Declaration) error {
	for start := 0; start < len(decls); start += insertBatchSize {
		end := min(start+insertBatchSize, len(decls))

		insert := sq.Insert("declarations").Columns("run_id", "file_path", "kind", "name", "line", "position")
		for i := start; i < end; i++ {
			insert = insert.Values(runID, file, kind, decls[i].Name, decls[i].Line, i)
		}
		if _, err := insert.RunWith(tx).Exec(); err != nil {
			return fmt.Errorf("failed to write %s declarations for %s: %w", kind, file, err)
		}
	}
	return nil
}

// LoadResults returns the results of a run in the order they were saved.
func (s *Store) LoadResults(runID string) ([]extractor.Result, error) {
	if _, err := s.GetRun(runID); err != nil {
		return nil, err
	}

	rows, err := sq.Select("file_path", "entry_point", "error").
		From("file_results").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("position").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query results for run %s: %w", runID, err)
	}
	defer rows.Close()

	results := []extractor.Result{}
	index := map[string]int{}
	for rows.Next() {
		var (
			file       string
			entryPoint bool
			errText    sql.NullString
		)
		if err := rows.Scan(&file, &entryPoint, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		if errText.Valid {
			results = append(results, extractor.Failure(file, errors.New(errText.String)))
			continue
		}
		index[file] = len(results)
		results = append(results, extractor.Result{
			File:       file,
			Functions:  []extractor.Declaration{},
			Classes:    []extractor.Declaration{},
			Calls:      []string{},
			EntryPoint: entryPoint,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate results: %w", err)
	}

	if err := s.loadDeclarations(runID, results, index); err != nil {
		return nil, err
	}
	if err := s.loadCalls(runID, results, index); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Store) loadDeclarations(runID string, results []extractor.Result, index map[string]int) error {
	rows, err := sq.Select("file_path", "kind", "name", "line").
		From("declarations").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("file_path", "kind", "position").
		RunWith(s.db).
		Query()
	if err != nil {
		return fmt.Errorf("failed to query declarations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			file, kind string
			d          extractor.Declaration
		)
		if err := rows.Scan(&file, &kind, &d.Name, &d.Line); err != nil {
			return fmt.Errorf("failed to scan declaration: %w", err)
		}

		i, ok := index[file]
		if !ok {
			continue
		}
		switch kind {
		case KindFunction:
			results[i].Functions = append(results[i].Functions, d)
		case KindClass:
			results[i].Classes = append(results[i].Classes, d)
		}
	}
	return rows.Err()
}

func (s *Store) loadCalls(runID string, results []extractor.Result, index map[string]int) error {
	rows, err := sq.Select("file_path", "name").
		From("calls").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("file_path", "position").
		RunWith(s.db).
		Query()
	if err != nil {
		return fmt.Errorf("failed to query calls: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var file, name string
		if err := rows.Scan(&file, &name); err != nil {
			return fmt.Errorf("failed to scan call: %w", err)
		}
		if i, ok := index[file]; ok {
			results[i].Calls = append(results[i].Calls, name)
		}
	}
	return rows.Err()
}

var runColumns = []string{"run_id", "target", "started_at", "finished_at", "status", "document"}

// GetRun returns one run.
func (s *Store) GetRun(runID string) (*Run, error) {
	row := sq.Select(runColumns...).
		From("runs").
		Where(sq.Eq{"run_id": runID}).
		RunWith(s.db).
		QueryRow()

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return run, nil
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun() (*Run, error) {
	runs, err := s.ListRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrRunNotFound
	}
	return runs[0], nil
}

// ListRuns returns up to limit runs, newest first. A limit of zero returns all.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	query := sq.Select(runColumns...).
		From("runs").
		OrderBy("started_at DESC", "rowid DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	rows, err := query.RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run                  Run
		startedAt            string
		finishedAt, document sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Target, &startedAt, &finishedAt, &run.Status, &document); err != nil {
		return nil, err
	}

	run.StartedAt, _ = time.Parse(timeLayout, startedAt)
	if finishedAt.Valid {
		run.FinishedAt, _ = time.Parse(timeLayout, finishedAt.String)
	}
	run.Document = document.String
	return &run, nil
}
