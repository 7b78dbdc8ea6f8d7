package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for FileWatcher:
// - NewFileWatcher creates watcher successfully with valid directories
// - NewFileWatcher returns error with invalid directory
// - Single file change fires callback after debounce
// - Rapid changes to several files are batched, sorted and deduplicated
// - Pause/Resume behavior (accumulate during pause, fire on resume)
// - File deleted triggers callback
// - Directory added triggers recursive watch, ignored directories do not
// - Extension filtering is case-insensitive and drops other files
// - Stop() is idempotent, also before Start and after context cancellation

var sourceExtensions = []string{".py", ".js", ".ts"}

const testDebounce = 100 * time.Millisecond

type recorder struct {
	mu      sync.Mutex
	batches [][]string
	called  chan struct{}
}

func newRecorder() *recorder {
	return &recorder{called: make(chan struct{}, 16)}
}

func (r *recorder) callback(files []string) {
	r.mu.Lock()
	r.batches = append(r.batches, files)
	r.mu.Unlock()
	r.called <- struct{}{}
}

func (r *recorder) wait(t *testing.T) []string {
	t.Helper()

	select {
	case <-r.called:
	case <-time.After(3 * time.Second):
		t.Fatal("Callback not called after timeout")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches[len(r.batches)-1]
}

func (r *recorder) expectNone(t *testing.T, within time.Duration) {
	t.Helper()

	select {
	case <-r.called:
		r.mu.Lock()
		defer r.mu.Unlock()
		t.Fatalf("unexpected callback with %v", r.batches[len(r.batches)-1])
	case <-time.After(within):
	}
}

func startWatcher(t *testing.T, dir string, opts Options) (FileWatcher, *recorder) {
	t.Helper()

	if opts.Extensions == nil {
		opts.Extensions = sourceExtensions
	}
	if opts.Debounce == 0 {
		opts.Debounce = testDebounce
	}

	w, err := NewFileWatcher([]string{dir}, opts)
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })

	rec := newRecorder()
	require.NoError(t, w.Start(context.Background(), rec.callback))

	// Wait for watcher to initialize
	time.Sleep(50 * time.Millisecond)
	return w, rec
}

func TestNewFileWatcher_Success(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher([]string{t.TempDir()}, Options{Extensions: sourceExtensions})
	require.NoError(t, err)
	require.NotNil(t, w)

	require.NoError(t, w.Stop())
}

func TestNewFileWatcher_InvalidDirectory(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher([]string{filepath.Join(t.TempDir(), "nonexistent")}, Options{})
	assert.Error(t, err)
	assert.Nil(t, w)
}

func TestFileWatcher_SingleFileChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, rec := startWatcher(t, dir, Options{})

	file := filepath.Join(dir, "app.py")
	require.NoError(t, os.WriteFile(file, []byte("def main(): pass\n"), 0644))

	assert.Equal(t, []string{file}, rec.wait(t))
}

func TestFileWatcher_BatchedSortedDeduplicated(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, rec := startWatcher(t, dir, Options{})

	b := filepath.Join(dir, "b.ts")
	a := filepath.Join(dir, "a.js")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(b, []byte("let x = 1;\n"), 0644))
		require.NoError(t, os.WriteFile(a, []byte("let y = 2;\n"), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	assert.Equal(t, []string{a, b}, rec.wait(t))
	rec.expectNone(t, 3*testDebounce)
}

func TestFileWatcher_PauseResume(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, rec := startWatcher(t, dir, Options{})

	w.Pause()
	file := filepath.Join(dir, "paused.py")
	require.NoError(t, os.WriteFile(file, []byte("x = 1\n"), 0644))
	rec.expectNone(t, 4*testDebounce)

	w.Resume()
	assert.Equal(t, []string{file}, rec.wait(t))
}

func TestFileWatcher_FileDeleted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "gone.js")
	require.NoError(t, os.WriteFile(file, []byte("1;\n"), 0644))

	_, rec := startWatcher(t, dir, Options{})
	require.NoError(t, os.Remove(file))

	assert.Contains(t, rec.wait(t), file)
}

func TestFileWatcher_DirectoryAdded(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, rec := startWatcher(t, dir, Options{IgnoreDirs: []string{"node_modules"}})

	sub := filepath.Join(dir, "pkg")
	require.NoError(t, os.Mkdir(sub, 0755))
	time.Sleep(50 * time.Millisecond)

	file := filepath.Join(sub, "mod.py")
	require.NoError(t, os.WriteFile(file, []byte("x = 1\n"), 0644))

	assert.Contains(t, rec.wait(t), file)

	ignored := filepath.Join(dir, "node_modules")
	require.NoError(t, os.Mkdir(ignored, 0755))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(ignored, "dep.js"), []byte("1;\n"), 0644))

	rec.expectNone(t, 4*testDebounce)
}

func TestFileWatcher_ExtensionFiltering(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, rec := startWatcher(t, dir, Options{})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0644))
	upper := filepath.Join(dir, "LEGACY.PY")
	require.NoError(t, os.WriteFile(upper, []byte("x = 1\n"), 0644))

	assert.Equal(t, []string{upper}, rec.wait(t))
}

func TestFileWatcher_StopIdempotent(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher([]string{t.TempDir()}, Options{})
	require.NoError(t, err)

	// Never started
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	ctx, cancel := context.WithCancel(context.Background())
	started, err := NewFileWatcher([]string{t.TempDir()}, Options{})
	require.NoError(t, err)
	require.NoError(t, started.Start(ctx, func([]string) {}))
	cancel()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = started.Stop()
		}()
	}
	wg.Wait()
}
