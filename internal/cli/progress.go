package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mvp-joe/codegenius/internal/analyzer"
	"github.com/mvp-joe/codegenius/internal/report"
)

var numberPrinter = message.NewPrinter(language.English)

// formatNumber renders n with thousands separators.
func formatNumber(n int) string {
	return numberPrinter.Sprintf("%d", n)
}

// CLIProgressReporter renders analysis progress as a progress bar. It serves
// both batch analysis (analyzer.ProgressReporter) and documentation runs
// (report.Emitter).
type CLIProgressReporter struct {
	mu        sync.Mutex
	quiet     bool
	out       io.Writer
	fileBar   *progressbar.ProgressBar
	startTime time.Time
}

// NewCLIProgressReporter creates a reporter writing to out.
func NewCLIProgressReporter(out io.Writer, quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{
		quiet:     quiet,
		out:       out,
		startTime: time.Now(),
	}
}

func (c *CLIProgressReporter) OnAnalyzeStart(total int) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startBar(total)
}

func (c *CLIProgressReporter) OnFileAnalyzed(current, total int, file string) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advance(current, total)
}

func (c *CLIProgressReporter) OnAnalyzeComplete(stats *analyzer.BatchStats) {
	if c.quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finishBar()

	fmt.Fprintf(c.out, "✓ Analysis complete: %s files in %.1fs\n",
		formatNumber(stats.Analyzed), stats.Duration.Seconds())
	if stats.Failed > 0 {
		fmt.Fprintf(c.out, "  Failed:  %s\n", formatNumber(stats.Failed))
	}
	if stats.Skipped > 0 {
		fmt.Fprintf(c.out, "  Skipped: %s\n", formatNumber(stats.Skipped))
	}
}

// Emit renders one pipeline event.
func (c *CLIProgressReporter) Emit(ev report.Event) error {
	if c.quiet {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case ev.Step == report.StepAnalyzing:
		if c.fileBar == nil {
			c.startBar(ev.Total)
		}
		c.advance(ev.Current, ev.Total)
	case ev.Status == report.StatusSuccess:
		c.finishBar()
		fmt.Fprintf(c.out, "✓ Documentation generated: %s files in %.1fs\n",
			formatNumber(len(ev.Analyzed)), time.Since(c.startTime).Seconds())
	case ev.Status == report.StatusError:
		c.finishBar()
		fmt.Fprintf(c.out, "✗ %s\n", ev.Error)
	case ev.Message != "":
		c.finishBar()
		fmt.Fprintln(c.out, ev.Message+"...")
	}
	return nil
}

func (c *CLIProgressReporter) startBar(total int) {
	c.fileBar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Analyzing files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) advance(current, total int) {
	if c.fileBar == nil {
		c.startBar(total)
	}
	c.fileBar.Set(current)
}

func (c *CLIProgressReporter) finishBar() {
	if c.fileBar != nil {
		c.fileBar.Finish()
		c.fileBar = nil
	}
}
