// Package server exposes the documentation pipeline and the extractor over
// HTTP, streaming run progress as newline-delimited JSON.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mvp-joe/codegenius/internal/analyzer"
	"github.com/mvp-joe/codegenius/internal/filetree"
	"github.com/mvp-joe/codegenius/internal/grammar"
	"github.com/mvp-joe/codegenius/internal/pipeline"
	"github.com/mvp-joe/codegenius/internal/repo"
	"github.com/mvp-joe/codegenius/internal/report"
	"github.com/mvp-joe/codegenius/internal/storage"
)

// NDJSONContentType is the media type of the progress stream.
const NDJSONContentType = "application/x-ndjson"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 8 << 20

// Options configures a Server.
type Options struct {
	Tree            filetree.Options
	Store           *storage.Store // optional, enables /api/runs
	ShutdownTimeout time.Duration

	// AllowLocal lets /api/generate read local directories and file:// URLs
	// and lets /api/tree list any directory.
	AllowLocal bool

	// TreeRoot, when set, is the directory /api/tree may list beneath.
	TreeRoot string
}

// errLocalDisabled is returned for requests that would read the server's
// filesystem while local access is off.
var errLocalDisabled = errors.New("local filesystem access is disabled")

// Server serves the JSON API over HTTP.
type Server struct {
	pipeline *pipeline.Pipeline
	analyzer *analyzer.Analyzer
	opts     Options

	mu       sync.Mutex
	listener net.Listener
	httpSrv  *http.Server
	started  time.Time
	stopOnce sync.Once
}

// New creates a server.
func New(p *pipeline.Pipeline, a *analyzer.Analyzer, opts Options) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	return &Server{
		pipeline: p,
		analyzer: a,
		opts:     opts,
		started:  time.Now(),
	}
}

// Handler returns the routing handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/download", s.handleDownload)
	mux.HandleFunc("GET /api/tree", s.handleTree)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /api/runs/{id}/results", s.handleRunResults)
	return mux
}

// Start begins listening on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.listener = ln
	s.httpSrv = srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Warning: server stopped: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server, waiting up to the shutdown
// timeout for in-flight requests. Idempotent.
func (s *Server) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		srv := s.httpSrv
		s.mu.Unlock()
		if srv == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		err = srv.Shutdown(ctx)
	})
	return err
}

// Run starts the server on addr and blocks until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if err := s.Start(addr); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop()
}

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: time.Since(s.started).Round(time.Second).String(),
	})
}

type generateRequest struct {
	URL    string `json:"url"`
	Target string `json:"target"`
}

// handleGenerate streams the run's progress events. Once streaming has begun
// the status is 200 and failures arrive as a final error event.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	target := strings.TrimSpace(req.URL)
	if target == "" {
		target = strings.TrimSpace(req.Target)
	}
	if target == "" {
		writeError(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}
	if !s.opts.AllowLocal && !isRemoteURL(target) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %s is not a remote repository URL", errLocalDisabled, target))
		return
	}

	w.Header().Set("Content-Type", NDJSONContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	if _, err := s.pipeline.Run(r.Context(), target, report.NewNDJSONEmitter(w)); err != nil {
		log.Printf("Warning: generation for %s failed: %v", target, err)
	}
}

type analyzeRequest struct {
	Path   string `json:"path"`
	Source string `json:"source"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, errors.New("path is required"))
		return
	}

	result, err := s.analyzer.AnalyzeSource(r.Context(), req.Path, []byte(req.Source))
	if err != nil {
		if errors.Is(err, grammar.ErrUnsupported) {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.pipeline.LastDocument()
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no documentation generated yet"))
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="documentation.md"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		writeError(w, http.StatusBadRequest, errors.New("path query parameter is required"))
		return
	}

	path, err := s.treePath(path)
	if err != nil {
		writeError(w, http.StatusForbidden, err)
		return
	}

	tree, err := filetree.Build(path, s.opts.Tree)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	writeJSON(w, http.StatusOK, tree)
}

// isRemoteURL reports whether target names a repository on another host.
func isRemoteURL(target string) bool {
	return repo.IsRemote(target) && !strings.HasPrefix(strings.ToLower(target), "file://")
}

// treePath resolves a /api/tree path. Relative paths are taken from TreeRoot,
// and results outside it are rejected.
func (s *Server) treePath(path string) (string, error) {
	if s.opts.TreeRoot == "" {
		if !s.opts.AllowLocal {
			return "", errLocalDisabled
		}
		return path, nil
	}

	root, err := filepath.Abs(s.opts.TreeRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve tree root: %w", err)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside the tree root", errLocalDisabled, path)
	}
	return path, nil
}

type runResponse struct {
	ID         string     `json:"id"`
	Target     string     `json:"target"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		writeError(w, http.StatusNotFound, errors.New("run history is disabled"))
		return
	}

	runs, err := s.opts.Store.ListRuns(50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		resp := runResponse{ID: run.ID, Target: run.Target, Status: run.Status, StartedAt: run.StartedAt}
		if !run.FinishedAt.IsZero() {
			finished := run.FinishedAt
			resp.FinishedAt = &finished
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRunResults(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		writeError(w, http.StatusNotFound, errors.New("run history is disabled"))
		return
	}

	results, err := s.opts.Store.LoadResults(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Warning: failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
