package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/codegenius/internal/extractor"
	"github.com/mvp-joe/codegenius/internal/grammar"
)

// Test Plan for Analyzer:
// - AnalyzeSource returns ErrUnsupported for unknown extensions
// - whitespace-only sources short-circuit to an empty success
// - identical path+content is served from the cache, different content is not
// - a disabled cache still analyzes
// - mutating a returned result leaves the cached entry intact
// - AnalyzeFile turns read errors into error results
// - AnalyzeBatch keeps input order, skips unsupported files, counts failures
// - AnalyzeBatch reports progress once per analyzed file with increasing counters
// - AnalyzeBatch stops on cancellation and returns ctx.Err()

type recordingReporter struct {
	mu       sync.Mutex
	total    int
	currents []int
	files    []string
	complete *BatchStats
}

func (r *recordingReporter) OnAnalyzeStart(total int) { r.total = total }

func (r *recordingReporter) OnFileAnalyzed(current, total int, file string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currents = append(r.currents, current)
	r.files = append(r.files, file)
}

func (r *recordingReporter) OnAnalyzeComplete(stats *BatchStats) { r.complete = stats }

func newTestAnalyzer(t *testing.T, opts Options) *Analyzer {
	t.Helper()

	a, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestAnalyzeSource_Unsupported(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer(t, Options{Workers: 1})

	_, err := a.AnalyzeSource(context.Background(), "notes.txt", []byte("def main(): pass"))
	require.Error(t, err)
	assert.ErrorIs(t, err, grammar.ErrUnsupported)
}

func TestAnalyzeSource_WhitespaceOnly(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer(t, Options{Workers: 1})

	result, err := a.AnalyzeSource(context.Background(), "blank.js", []byte("  \n\t"))
	require.NoError(t, err)
	assert.False(t, result.Failed())
	assert.Empty(t, result.Functions)
	assert.NotNil(t, result.Calls)
}

func TestAnalyzeSource_Cache(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer(t, Options{Workers: 1, CacheSize: 16})
	ctx := context.Background()

	first, err := a.AnalyzeSource(ctx, "a.py", []byte("def run():\n    helper()\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"helper"}, first.Calls)

	second, err := a.AnalyzeSource(ctx, "a.py", []byte("def run():\n    helper()\n"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), a.CacheHits())

	changed, err := a.AnalyzeSource(ctx, "a.py", []byte("def run():\n    other()\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, changed.Calls)

	renamed, err := a.AnalyzeSource(ctx, "b.py", []byte("def run():\n    helper()\n"))
	require.NoError(t, err)
	assert.Equal(t, "b.py", renamed.File, "the path is part of the cache key")
}

func TestAnalyzeSource_CachedResultsAreCopies(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer(t, Options{Workers: 1, CacheSize: 16})
	ctx := context.Background()
	source := []byte("class Job:\n    pass\n\ndef run():\n    helper()\n")

	first, err := a.AnalyzeSource(ctx, "job.py", source)
	require.NoError(t, err)
	first.Functions[0].Name = "mutated"
	first.Classes[0].Name = "mutated"
	first.Calls[0] = "mutated"

	second, err := a.AnalyzeSource(ctx, "job.py", source)
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.CacheHits())
	second.Calls[0] = "again"

	third, err := a.AnalyzeSource(ctx, "job.py", source)
	require.NoError(t, err)
	assert.Equal(t, []extractor.Declaration{{Name: "run", Line: 4}}, third.Functions)
	assert.Equal(t, []extractor.Declaration{{Name: "Job", Line: 1}}, third.Classes)
	assert.Equal(t, []string{"helper"}, third.Calls)
}

func TestAnalyzeSource_CacheDisabled(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer(t, Options{Workers: 1, CacheSize: 0})

	for i := 0; i < 2; i++ {
		result, err := a.AnalyzeSource(context.Background(), "w.ts", []byte("class Widget {}\n"))
		require.NoError(t, err)
		assert.Equal(t, "Widget", result.Classes[0].Name)
	}
	assert.Zero(t, a.CacheHits())
}

func TestCacheKey_SeparatesPathAndContent(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, cacheKey("ab", []byte("c")), cacheKey("a", []byte("bc")))
	assert.Equal(t, cacheKey("a.py", []byte("x")), cacheKey("a.py", []byte("x")))
}

func TestAnalyzeFile_ReadError(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer(t, Options{Workers: 1})
	missing := filepath.Join(t.TempDir(), "missing.py")

	result, err := a.AnalyzeFile(context.Background(), missing)
	require.NoError(t, err)
	assert.True(t, result.Failed())
	assert.Equal(t, missing, result.File)
	assert.Contains(t, result.Error, "failed to read file")
}

func TestAnalyzeFile_Fixture(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer(t, Options{Workers: 1})

	result, err := a.AnalyzeFile(context.Background(), filepath.Join("..", "..", "testdata", "code", "python", "helpers.py"))
	require.NoError(t, err)
	require.False(t, result.Failed(), result.Error)
	assert.Equal(t, []string{"open"}, result.Calls)
}

func TestAnalyzeBatch_OrderSkipsAndFailures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "a.py", "def alpha():\n    pass\n"),
		writeFile(t, dir, "README.md", "# readme"),
		writeFile(t, dir, "b.js", "function beta() {}\n"),
		filepath.Join(dir, "gone.ts"),
		writeFile(t, dir, "c.ts", "class Gamma {}\n"),
	}

	a := newTestAnalyzer(t, Options{Workers: 3, CacheSize: 8})
	reporter := &recordingReporter{}

	results, stats, err := a.AnalyzeBatch(context.Background(), paths, reporter)
	require.NoError(t, err)

	require.Len(t, results, 4)
	assert.Equal(t, paths[0], results[0].File)
	assert.Equal(t, paths[2], results[1].File)
	assert.Equal(t, paths[3], results[2].File)
	assert.Equal(t, paths[4], results[3].File)

	assert.Equal(t, "alpha", results[0].Functions[0].Name)
	assert.True(t, results[2].Failed())
	assert.Equal(t, "Gamma", results[3].Classes[0].Name)

	assert.Equal(t, 4, stats.Analyzed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Failed)

	assert.Equal(t, 4, reporter.total)
	assert.Equal(t, []int{1, 2, 3, 4}, reporter.currents)
	assert.ElementsMatch(t, []string{paths[0], paths[2], paths[3], paths[4]}, reporter.files)
	assert.Same(t, stats, reporter.complete)
}

func TestAnalyzeBatch_Empty(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer(t, Options{Workers: 2})

	results, stats, err := a.AnalyzeBatch(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, stats.Analyzed)
}

func TestAnalyzeBatch_Cancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.py", "b.py", "c.py"} {
		paths = append(paths, writeFile(t, dir, name, "def f():\n    pass\n"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := newTestAnalyzer(t, Options{Workers: 2})
	results, stats, err := a.AnalyzeBatch(ctx, paths, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
	assert.Zero(t, stats.Analyzed)
}

func TestNew_ClampsWorkers(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer(t, Options{Workers: -4})
	assert.Equal(t, 1, a.workers)
}
