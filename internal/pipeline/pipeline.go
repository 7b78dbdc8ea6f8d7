// Package pipeline runs a full documentation pass over a target: resolve,
// read the README, build the tree, rank, analyze, generate, and persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/mvp-joe/codegenius/internal/analyzer"
	"github.com/mvp-joe/codegenius/internal/docgen"
	"github.com/mvp-joe/codegenius/internal/extractor"
	"github.com/mvp-joe/codegenius/internal/filetree"
	"github.com/mvp-joe/codegenius/internal/ranking"
	"github.com/mvp-joe/codegenius/internal/report"
	"github.com/mvp-joe/codegenius/internal/repo"
	"github.com/mvp-joe/codegenius/internal/storage"
)

// ErrNoSourceFiles is returned when a target has nothing to analyze.
var ErrNoSourceFiles = errors.New("no supported source files found")

// Options configures a Pipeline.
type Options struct {
	Tree           filetree.Options
	MaxFiles       int    // ranked files analyzed per run, 0 = all
	ReadmeMaxBytes int    // README bytes kept, 0 = all
	WorkDir        string // parent of temporary clones
}

// Outcome is the product of a successful run.
type Outcome struct {
	RunID    string // empty without a store
	Target   string
	Results  []extractor.Result
	Document string
	Stats    *analyzer.BatchStats
}

// Pipeline runs documentation passes. Runs may execute concurrently.
type Pipeline struct {
	analyzer *analyzer.Analyzer
	store    *storage.Store
	opts     Options
	now      func() time.Time

	mu       sync.RWMutex
	document string
	runID    string
}

// New creates a pipeline. store may be nil to skip persistence.
func New(a *analyzer.Analyzer, store *storage.Store, opts Options) *Pipeline {
	return &Pipeline{
		analyzer: a,
		store:    store,
		opts:     opts,
		now:      time.Now,
	}
}

// LastDocument returns the most recently generated document, if any.
func (p *Pipeline) LastDocument() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.document, p.document != ""
}

// LastRunID returns the stored id of the most recent successful run.
func (p *Pipeline) LastRunID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.runID
}

// Run documents target, reporting each step to emitter. Failures emit a
// final error event and are returned; success ends with a success event
// carrying the analyzed files and the document.
func (p *Pipeline) Run(ctx context.Context, target string, emitter report.Emitter) (*Outcome, error) {
	if emitter == nil {
		emitter = report.Discard
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The first emit failure (client gone) cancels the run.
	var emitErr error
	var emitOnce sync.Once
	emit := func(ev report.Event) {
		if err := emitter.Emit(ev); err != nil {
			emitOnce.Do(func() {
				emitErr = err
				cancel()
			})
		}
	}

	runID := p.startRun(target)

	outcome, err := p.run(ctx, target, emit)
	if emitErr != nil {
		err = emitErr
	}
	if err != nil {
		p.finishRun(runID, storage.RunStatusError, "")
		emit(report.Failure(err))
		return nil, err
	}

	outcome.RunID = runID
	if runID != "" {
		if err := p.store.SaveResults(runID, outcome.Results); err != nil {
			log.Printf("Warning: failed to save results for run %s: %v\n", runID, err)
		}
	}
	p.finishRun(runID, storage.RunStatusSuccess, outcome.Document)

	p.mu.Lock()
	p.document = outcome.Document
	p.runID = runID
	p.mu.Unlock()

	analyzed := make([]string, 0, len(outcome.Results))
	for _, r := range outcome.Results {
		analyzed = append(analyzed, r.File)
	}
	emit(report.Success(analyzed, outcome.Document))

	return outcome, nil
}

func (p *Pipeline) run(ctx context.Context, target string, emit func(report.Event)) (*Outcome, error) {
	emit(report.StepEvent(report.StepCloning, fmt.Sprintf("Fetching %s", target)))
	checkout, err := repo.Resolve(ctx, target, p.opts.WorkDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := checkout.Cleanup(); err != nil {
			log.Printf("Warning: failed to remove clone %s: %v\n", checkout.Dir, err)
		}
	}()

	var revision string
	if rev, err := checkout.Revision(); err == nil {
		revision = rev.String()
	}

	emit(report.StepEvent(report.StepReadme, "Reading README"))
	var readmeText string
	readme, err := repo.FindReadme(checkout.Dir, p.opts.ReadmeMaxBytes)
	switch {
	case err == nil:
		readmeText = readme.Content
	case !errors.Is(err, repo.ErrNoReadme):
		log.Printf("Warning: failed to read README in %s: %v\n", checkout.Dir, err)
	}

	emit(report.StepEvent(report.StepTree, "Building file tree"))
	tree, err := filetree.Build(checkout.Dir, p.opts.Tree)
	if err != nil {
		return nil, fmt.Errorf("failed to build file tree: %w", err)
	}

	emit(report.StepEvent(report.StepRanking, "Ranking files"))
	ranked := ranking.Rank(tree.Files(), ranking.Options{Limit: p.opts.MaxFiles})
	if len(ranked) == 0 {
		return nil, ErrNoSourceFiles
	}

	paths := make([]string, len(ranked))
	for i, s := range ranked {
		paths[i] = filepath.Join(checkout.Dir, filepath.FromSlash(s.Path))
	}

	progress := &eventReporter{root: checkout.Dir, emit: emit}
	results, stats, err := p.analyzer.AnalyzeBatch(ctx, paths, progress)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].File = relative(checkout.Dir, results[i].File)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	emit(report.StepEvent(report.StepGenerating, "Generating documentation"))
	document, err := docgen.Generate(docgen.Input{
		Target:      target,
		Revision:    revision,
		Readme:      readmeText,
		Tree:        tree,
		Results:     results,
		GeneratedAt: p.now(),
	})
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Target:   target,
		Results:  results,
		Document: document,
		Stats:    stats,
	}, nil
}

func (p *Pipeline) startRun(target string) string {
	if p.store == nil {
		return ""
	}

	runID, err := p.store.CreateRun(target)
	if err != nil {
		log.Printf("Warning: failed to record run for %s: %v\n", target, err)
		return ""
	}
	return runID
}

func (p *Pipeline) finishRun(runID, status, document string) {
	if runID == "" {
		return
	}
	if err := p.store.FinishRun(runID, status, document); err != nil {
		log.Printf("Warning: failed to finish run %s: %v\n", runID, err)
	}
}

// eventReporter turns analyzer progress into analyzing events with
// root-relative file names.
type eventReporter struct {
	root string
	emit func(report.Event)
}

func (r *eventReporter) OnAnalyzeStart(total int) {}

func (r *eventReporter) OnFileAnalyzed(current, total int, file string) {
	r.emit(report.FileEvent(relative(r.root, file), current, total))
}

func (r *eventReporter) OnAnalyzeComplete(stats *analyzer.BatchStats) {}

func relative(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
