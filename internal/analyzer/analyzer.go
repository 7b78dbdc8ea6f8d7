// Package analyzer turns source files into extraction results: it selects the
// grammar, parses, extracts, and runs bounded concurrent batches.
package analyzer

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/mvp-joe/codegenius/internal/extractor"
	"github.com/mvp-joe/codegenius/internal/grammar"
	"github.com/mvp-joe/codegenius/internal/syntax"
)

// Options configures an Analyzer.
type Options struct {
	// Workers bounds concurrent extractions in AnalyzeBatch. Values below one mean one.
	Workers int

	// CacheSize is the number of results kept in memory. Zero disables the cache.
	CacheSize int
}

// Analyzer joins grammar selection, parsing and extraction.
// An Analyzer is safe for concurrent use.
type Analyzer struct {
	parser  *syntax.Parser
	cache   *resultCache
	workers int
}

// New creates an Analyzer.
func New(opts Options) (*Analyzer, error) {
	cache, err := newResultCache(opts.CacheSize)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	return &Analyzer{
		parser:  syntax.NewParser(),
		cache:   cache,
		workers: workers,
	}, nil
}

// Close releases the result cache.
func (a *Analyzer) Close() {
	a.cache.close()
}

// CacheHits reports how many results were served from the cache.
func (a *Analyzer) CacheHits() int64 {
	return a.cache.hits()
}

// AnalyzeSource extracts the structural summary of source. The returned error
// matches grammar.ErrUnsupported when no grammar handles path; every other
// failure is reported inside the Result.
func (a *Analyzer) AnalyzeSource(ctx context.Context, path string, source []byte) (extractor.Result, error) {
	profile, err := grammar.Select(path)
	if err != nil {
		return extractor.Result{}, err
	}

	if len(bytes.TrimSpace(source)) == 0 {
		return extractor.Extract(path, source, nil, profile), nil
	}

	key := cacheKey(path, source)
	if cached, ok := a.cache.get(key); ok {
		return cached, nil
	}

	tree, err := a.parser.Parse(ctx, profile.Name, source)
	if err != nil {
		if ctx.Err() != nil {
			return extractor.Result{}, ctx.Err()
		}
		return extractor.Failure(path, err), nil
	}
	defer tree.Close()

	result := extractor.Extract(path, source, tree.Root(), profile)
	a.cache.set(key, result)
	return result, nil
}

// AnalyzeFile reads path from disk and analyzes it. Read failures become
// error results.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (extractor.Result, error) {
	if _, err := grammar.Select(path); err != nil {
		return extractor.Result{}, err
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return extractor.Failure(path, fmt.Errorf("failed to read file: %w", err)), nil
	}

	return a.AnalyzeSource(ctx, path, source)
}
