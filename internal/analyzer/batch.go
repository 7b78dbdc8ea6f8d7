package analyzer

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/codegenius/internal/extractor"
	"github.com/mvp-joe/codegenius/internal/grammar"
)

// BatchStats summarizes an AnalyzeBatch run.
type BatchStats struct {
	Analyzed int           // results produced, failed ones included
	Skipped  int           // unsupported files
	Failed   int           // results carrying an error
	Duration time.Duration // wall time of the batch
}

// AnalyzeBatch analyzes paths with at most Workers files in flight. Results
// come back in input order with unsupported files left out. A failing file
// never aborts the batch; cancellation stops scheduling and returns ctx.Err()
// together with the results finished so far.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, paths []string, progress ProgressReporter) ([]extractor.Result, *BatchStats, error) {
	if progress == nil {
		progress = &NoOpProgressReporter{}
	}

	start := time.Now()
	stats := &BatchStats{}

	total := 0
	for _, p := range paths {
		if grammar.Supported(p) {
			total++
		}
	}
	progress.OnAnalyzeStart(total)

	slots := make([]*extractor.Result, len(paths))

	var mu sync.Mutex
	current := 0

	g := new(errgroup.Group)
	g.SetLimit(a.workers)

	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}

		if !grammar.Supported(path) {
			stats.Skipped++
			continue
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			result, err := a.AnalyzeFile(ctx, path)
			if err != nil {
				if errors.Is(err, grammar.ErrUnsupported) || ctx.Err() != nil {
					return nil
				}
				result = extractor.Failure(path, err)
			}

			slots[i] = &result

			mu.Lock()
			current++
			progress.OnFileAnalyzed(current, total, path)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	results := make([]extractor.Result, 0, total)
	for _, r := range slots {
		if r == nil {
			continue
		}
		results = append(results, *r)
		if r.Failed() {
			stats.Failed++
		}
	}
	stats.Analyzed = len(results)
	stats.Duration = time.Since(start)

	progress.OnAnalyzeComplete(stats)

	if err := ctx.Err(); err != nil {
		return results, stats, err
	}
	return results, stats, nil
}
