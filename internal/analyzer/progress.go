package analyzer

// ProgressReporter provides callbacks for reporting batch analysis progress.
// Implementations can display progress bars, log messages, or remain silent.
type ProgressReporter interface {
	// OnAnalyzeStart is called once with the number of files in the batch.
	OnAnalyzeStart(total int)

	// OnFileAnalyzed is called after each supported file is analyzed.
	// Calls are serialized and current increases by one each time.
	OnFileAnalyzed(current, total int, file string)

	// OnAnalyzeComplete is called when the batch finishes, including after cancellation.
	OnAnalyzeComplete(stats *BatchStats)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnAnalyzeStart(total int)                       {}
func (n *NoOpProgressReporter) OnFileAnalyzed(current, total int, file string) {}
func (n *NoOpProgressReporter) OnAnalyzeComplete(stats *BatchStats)            {}
