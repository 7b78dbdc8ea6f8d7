package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/codegenius/internal/analyzer"
	"github.com/mvp-joe/codegenius/internal/extractor"
	"github.com/mvp-joe/codegenius/internal/filetree"
	"github.com/mvp-joe/codegenius/internal/grammar"
	"github.com/mvp-joe/codegenius/internal/watcher"
)

var (
	prettyFlag  bool
	watchFlag   bool
	workersFlag int
	quietFlag   bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [paths...]",
	Short: "Print the functions, classes and calls of source files as JSON",
	Long: `Analyze parses each supported source file (.py, .js, .ts) and prints a JSON
array with one structural summary per file. Directories are walked
recursively, skipping the configured ignore directories.

Examples:
  # Analyze the current directory
  codegenius analyze

  # Analyze two files with indented output
  codegenius analyze --pretty app.py web/index.js

  # Keep watching and print a summary for every changed file
  codegenius analyze --watch src/
`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&prettyFlag, "pretty", false, "Indent JSON output")
	analyzeCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch for file changes and re-analyze them")
	analyzeCmd.Flags().IntVar(&workersFlag, "workers", 0, "Concurrent extractions (default from config)")
	analyzeCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress output")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		args = []string{"."}
	}

	treeOpts := filetree.Options{IgnoreDirs: cfg.Tree.IgnoreDirs, Ignore: cfg.Tree.Ignore}
	paths, dirs, err := collectFiles(args, treeOpts)
	if err != nil {
		return err
	}

	workers := cfg.Analysis.Workers
	if workersFlag > 0 {
		workers = workersFlag
	}
	a, err := analyzer.New(analyzer.Options{Workers: workers, CacheSize: cfg.Analysis.CacheSize})
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}
	defer a.Close()

	progress := NewCLIProgressReporter(cmd.ErrOrStderr(), quietFlag || len(paths) < 2)
	results, _, err := a.AnalyzeBatch(ctx, paths, progress)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("analysis cancelled")
		}
		return fmt.Errorf("analysis failed: %w", err)
	}

	if err := writeResults(cmd.OutOrStdout(), results, prettyFlag); err != nil {
		return err
	}

	if !watchFlag {
		return nil
	}
	if len(dirs) == 0 {
		return fmt.Errorf("--watch needs at least one directory")
	}
	return watchAndAnalyze(ctx, a, dirs, cfg.Tree.IgnoreDirs, cmd.OutOrStdout())
}

// collectFiles expands args into the files to analyze. Directories contribute
// their supported files in tree order; explicit files are kept as given.
func collectFiles(args []string, opts filetree.Options) (files, dirs []string, err error) {
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to access %s: %w", arg, err)
		}

		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		tree, err := filetree.Build(arg, opts)
		if err != nil {
			return nil, nil, err
		}
		dirs = append(dirs, arg)
		for _, rel := range tree.Files() {
			if grammar.Supported(rel) {
				files = append(files, filepath.Join(arg, filepath.FromSlash(rel)))
			}
		}
	}
	return files, dirs, nil
}

func writeResults(w io.Writer, results []extractor.Result, pretty bool) error {
	if results == nil {
		results = []extractor.Result{}
	}

	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(results, "", "  ")
	} else {
		data, err = json.Marshal(results)
	}
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}

// watchAndAnalyze prints one JSON line per changed file until ctx is done.
func watchAndAnalyze(ctx context.Context, a *analyzer.Analyzer, dirs, ignoreDirs []string, out io.Writer) error {
	fw, err := watcher.NewFileWatcher(dirs, watcher.Options{
		Extensions: grammar.Extensions(),
		IgnoreDirs: ignoreDirs,
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	r := newReanalyzer(ctx, a, fw, out)
	if err := fw.Start(ctx, r.onChange); err != nil {
		fw.Stop()
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	log.Printf("Watching %s for changes. Press Ctrl+C to stop.", strings.Join(dirs, ", "))
	<-ctx.Done()

	err = fw.Stop()
	r.wait()
	return err
}

// reanalyzer re-runs extraction for changed files off the watcher's event
// loop. The watcher is paused while a batch runs so changes made meanwhile
// arrive as the next batch.
type reanalyzer struct {
	ctx      context.Context
	analyzer *analyzer.Analyzer
	watcher  watcher.FileWatcher

	mu  sync.Mutex // serializes output
	enc *json.Encoder
	wg  sync.WaitGroup
}

func newReanalyzer(ctx context.Context, a *analyzer.Analyzer, fw watcher.FileWatcher, out io.Writer) *reanalyzer {
	return &reanalyzer{
		ctx:      ctx,
		analyzer: a,
		watcher:  fw,
		enc:      json.NewEncoder(out),
	}
}

func (r *reanalyzer) onChange(files []string) {
	if r.ctx.Err() != nil {
		return
	}

	r.watcher.Pause()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.watcher.Resume()
		r.analyze(files)
	}()
}

func (r *reanalyzer) analyze(files []string) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		} else {
			log.Printf("Removed: %s", f)
		}
	}
	if len(existing) == 0 {
		return
	}

	results, _, err := r.analyzer.AnalyzeBatch(r.ctx, existing, nil)
	if err != nil {
		if r.ctx.Err() == nil {
			log.Printf("Warning: re-analysis failed: %v", err)
		}
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range results {
		if err := r.enc.Encode(res); err != nil {
			log.Printf("Warning: failed to write result: %v", err)
		}
	}
}

// wait blocks until in-flight batches finish.
func (r *reanalyzer) wait() {
	r.wg.Wait()
}
