package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/codegenius/internal/analyzer"
	"github.com/mvp-joe/codegenius/internal/config"
	"github.com/mvp-joe/codegenius/internal/filetree"
	"github.com/mvp-joe/codegenius/internal/pipeline"
	"github.com/mvp-joe/codegenius/internal/report"
	"github.com/mvp-joe/codegenius/internal/storage"
)

var (
	outputFlag   string
	ndjsonFlag   bool
	maxFilesFlag int
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate <repository-url | directory>",
	Short: "Generate Markdown documentation for a repository or directory",
	Long: `Generate fetches a git repository (or uses a local directory), reads its
README, walks its file tree, ranks the source files and analyzes the most
relevant ones, then writes a Markdown document describing the project.

Examples:
  # Document a GitHub repository, printing Markdown to stdout
  codegenius generate https://github.com/psf/requests

  # Document the current directory into docs.md
  codegenius generate . -o docs.md

  # Print the raw progress stream as newline-delimited JSON
  codegenius generate . --ndjson
`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write the document to a file instead of stdout")
	generateCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress output")
	generateCmd.Flags().BoolVar(&ndjsonFlag, "ndjson", false, "Print progress events as newline-delimited JSON")
	generateCmd.Flags().IntVar(&maxFilesFlag, "max-files", 0, "Maximum files to analyze (default from config)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if maxFilesFlag > 0 {
		cfg.Analysis.MaxFiles = maxFilesFlag
	}

	a, err := analyzer.New(analyzer.Options{Workers: cfg.Analysis.Workers, CacheSize: cfg.Analysis.CacheSize})
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}
	defer a.Close()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	p := pipeline.New(a, store, pipelineOptions(cfg))

	var emitter report.Emitter
	switch {
	case ndjsonFlag:
		emitter = report.NewNDJSONEmitter(cmd.OutOrStdout())
	default:
		emitter = NewCLIProgressReporter(cmd.ErrOrStderr(), quietFlag)
	}

	outcome, err := p.Run(ctx, args[0], emitter)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("generation cancelled")
		}
		return fmt.Errorf("generation failed: %w", err)
	}

	if ndjsonFlag && outputFlag == "" {
		return nil
	}
	return writeDocument(cmd.OutOrStdout(), outputFlag, outcome.Document)
}

func pipelineOptions(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		Tree:           filetree.Options{IgnoreDirs: cfg.Tree.IgnoreDirs, Ignore: cfg.Tree.Ignore},
		MaxFiles:       cfg.Analysis.MaxFiles,
		ReadmeMaxBytes: cfg.Repo.ReadmeMaxBytes,
		WorkDir:        cfg.Repo.WorkDir,
	}
}

// openStore opens the run database when storage is enabled. A relative path is
// resolved against the working directory.
func openStore(cfg *config.Config) (*storage.Store, error) {
	if !cfg.Storage.Enabled {
		return nil, nil
	}

	path := cfg.Storage.Path
	if !filepath.IsAbs(path) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		path = filepath.Join(wd, path)
	}

	store, err := storage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run database: %w", err)
	}
	if verbose {
		log.Printf("Recording runs in %s", path)
	}
	return store, nil
}

func writeDocument(stdout io.Writer, path, document string) error {
	if path == "" {
		_, err := io.WriteString(stdout, document)
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(document), 0644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	if !quietFlag {
		log.Printf("Wrote %s", path)
	}
	return nil
}
