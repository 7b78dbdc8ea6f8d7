package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/codegenius/internal/extractor"
)

// Test Plan for Store:
// - CreateRun records a running run with a UUID id
// - SaveResults + LoadResults round-trip successes and failures in order
// - saving a file twice replaces its declarations and calls
// - SaveResults and FinishRun on an unknown run return ErrRunNotFound
// - FinishRun sets status, document and finished_at
// - LatestRun / ListRuns order newest first, ErrRunNotFound when empty
// - deleting a run cascades to every child table
// - Open creates missing directories and reopens persisted data

func sampleResults() []extractor.Result {
	return []extractor.Result{
		{
			File:       "src/app.py",
			Functions:  []extractor.Declaration{{Name: "main", Line: 3}, {Name: "helper", Line: 9}},
			Classes:    []extractor.Declaration{{Name: "App", Line: 1}},
			Calls:      []string{"helper", "print", "helper"},
			EntryPoint: true,
		},
		extractor.Failure("src/broken.js", errors.New("byte range outside source")),
		{
			File:      "lib/util.ts",
			Functions: []extractor.Declaration{},
			Classes:   []extractor.Declaration{{Name: "Util", Line: 2}},
			Calls:     []string{},
		},
	}
}

func TestStore_CreateRun(t *testing.T) {
	t.Parallel()

	store := NewTestStore(t)

	runID, err := store.CreateRun("https://github.com/acme/widgets")
	require.NoError(t, err)
	assert.Len(t, runID, 36)

	run, err := store.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/widgets", run.Target)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.True(t, run.FinishedAt.IsZero())
	assert.False(t, run.StartedAt.IsZero())
}

func TestStore_SaveAndLoadResults(t *testing.T) {
	t.Parallel()

	store := NewTestStore(t)
	runID, err := store.CreateRun("/tmp/project")
	require.NoError(t, err)

	want := sampleResults()
	require.NoError(t, store.SaveResults(runID, want[:2]))
	require.NoError(t, store.SaveResults(runID, want[2:]))

	got, err := store.LoadResults(runID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore_SaveResultsReplacesFile(t *testing.T) {
	t.Parallel()

	store := NewTestStore(t)
	runID, err := store.CreateRun("dir")
	require.NoError(t, err)

	require.NoError(t, store.SaveResults(runID, sampleResults()[:1]))

	updated := extractor.Result{
		File:      "src/app.py",
		Functions: []extractor.Declaration{{Name: "start", Line: 1}},
		Classes:   []extractor.Declaration{},
		Calls:     []string{"boot"},
	}
	require.NoError(t, store.SaveResults(runID, []extractor.Result{updated}))

	got, err := store.LoadResults(runID)
	require.NoError(t, err)
	assert.Equal(t, []extractor.Result{updated}, got)

	var decls int
	require.NoError(t, store.DB().QueryRow("SELECT COUNT(*) FROM declarations WHERE run_id = ?", runID).Scan(&decls))
	assert.Equal(t, 1, decls)
}

func TestStore_LargeResult(t *testing.T) {
	t.Parallel()

	store := NewTestStore(t)
	runID, err := store.CreateRun("dir")
	require.NoError(t, err)

	result := extractor.Result{File: "big.js", Functions: []extractor.Declaration{}, Classes: []extractor.Declaration{}}
	for i := 0; i < 1000; i++ {
		result.Calls = append(result.Calls, fmt.Sprintf("f%d", i))
		result.Functions = append(result.Functions, extractor.Declaration{Name: fmt.Sprintf("g%d", i), Line: i + 1})
	}
	require.NoError(t, store.SaveResults(runID, []extractor.Result{result}))

	got, err := store.LoadResults(runID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, result.Calls, got[0].Calls)
	assert.Equal(t, result.Functions, got[0].Functions)
}

func TestStore_UnknownRun(t *testing.T) {
	t.Parallel()

	store := NewTestStore(t)

	err := store.SaveResults("missing", sampleResults())
	assert.ErrorIs(t, err, ErrRunNotFound)

	err = store.FinishRun("missing", RunStatusSuccess, "")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = store.LoadResults("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = store.LatestRun()
	assert.ErrorIs(t, err, ErrRunNotFound)

	assert.NoError(t, store.SaveResults("missing", nil), "nothing to save")
}

func TestStore_FinishRun(t *testing.T) {
	t.Parallel()

	store := NewTestStore(t)
	runID, err := store.CreateRun("dir")
	require.NoError(t, err)

	require.NoError(t, store.FinishRun(runID, RunStatusSuccess, "# Docs\n"))

	run, err := store.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusSuccess, run.Status)
	assert.Equal(t, "# Docs\n", run.Document)
	assert.True(t, run.FinishedAt.After(run.StartedAt))
}

func TestStore_LatestRunAndList(t *testing.T) {
	t.Parallel()

	store := NewTestStore(t)
	first, err := store.CreateRun("one")
	require.NoError(t, err)
	second, err := store.CreateRun("two")
	require.NoError(t, err)

	latest, err := store.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, second, latest.ID)

	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)

	runs, err = store.ListRuns(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestStore_DeleteRunCascades(t *testing.T) {
	t.Parallel()

	store := NewTestStore(t)
	runID, err := store.CreateRun("dir")
	require.NoError(t, err)
	require.NoError(t, store.SaveResults(runID, sampleResults()))

	_, err = store.DB().Exec("DELETE FROM runs WHERE run_id = ?", runID)
	require.NoError(t, err)

	for _, table := range []string{"file_results", "declarations", "calls"} {
		var n int
		require.NoError(t, store.DB().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		assert.Zero(t, n, table)
	}
}

func TestOpen_FileDatabasePersists(t *testing.T) {
	t.Parallel()

	store, path := NewTestStoreFile(t)
	runID, err := store.CreateRun("dir")
	require.NoError(t, err)
	require.NoError(t, store.SaveResults(runID, sampleResults()))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.LoadResults(runID)
	require.NoError(t, err)
	assert.Equal(t, sampleResults(), got)
}

func TestOpen_Memory(t *testing.T) {
	t.Parallel()

	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	runID, err := store.CreateRun("dir")
	require.NoError(t, err)

	_, err = store.GetRun(runID)
	assert.NoError(t, err)
}
