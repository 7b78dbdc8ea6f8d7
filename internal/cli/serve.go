package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/codegenius/internal/analyzer"
	"github.com/mvp-joe/codegenius/internal/filetree"
	"github.com/mvp-joe/codegenius/internal/pipeline"
	"github.com/mvp-joe/codegenius/internal/server"
)

var addrFlag string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the documentation pipeline over HTTP",
	Long: `Serve starts an HTTP server exposing:

  POST /api/generate           stream a documentation run as NDJSON
  POST /api/analyze            analyze one source file
  GET  /api/download           the most recently generated document
  GET  /api/tree?path=DIR      the file tree of a directory under server.tree_root
  GET  /api/runs               recorded runs (when storage is enabled)
  GET  /healthz                liveness
`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr := cfg.Server.Addr
	if addrFlag != "" {
		addr = addrFlag
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

	srv := server.New(pipeline.New(a, store, pipelineOptions(cfg)), a, server.Options{
		Tree:            filetree.Options{IgnoreDirs: cfg.Tree.IgnoreDirs, Ignore: cfg.Tree.Ignore},
		Store:           store,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		AllowLocal:      cfg.Server.AllowLocal,
		TreeRoot:        cfg.Server.TreeRoot,
	})

	if err := srv.Start(addr); err != nil {
		return err
	}
	log.Printf("Listening on http://%s", srv.Addr())

	<-ctx.Done()
	log.Println("Shutting down...")
	return srv.Stop()
}
