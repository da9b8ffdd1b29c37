// Package server exposes the upload, status and download API over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/Octrafic/api-factory/internal/core/auth"
	"github.com/Octrafic/api-factory/internal/infra/logger"
	"github.com/Octrafic/api-factory/internal/infra/storage"
	"github.com/Octrafic/api-factory/internal/pipeline"
	"github.com/rs/cors"
)

const multipartMemory = 32 << 20

type Options struct {
	Addr           string
	AllowedOrigins []string
	MaxUploadBytes int64
	// Auth guards /api/ routes. Nil means open access.
	Auth auth.AuthProvider
}

type Server struct {
	runner    *pipeline.Runner
	tasks     storage.TaskStore
	artifacts *storage.ArtifactStore
	opts      Options

	httpServer *http.Server
}

func New(runner *pipeline.Runner, tasks storage.TaskStore, artifacts *storage.ArtifactStore, opts Options) *Server {
	if opts.Auth == nil {
		opts.Auth = &auth.NoAuth{}
	}
	s := &Server{
		runner:    runner,
		tasks:     tasks,
		artifacts: artifacts,
		opts:      opts,
	}
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the full middleware chain: CORS, request logging, the
// auth guard, then the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("GET /api/status/{task_id}", s.handleStatus)
	mux.HandleFunc("GET /api/download/{task_id}/{file_type}", s.handleDownload)

	return newCORS(s.opts.AllowedOrigins).Handler(logRequests(s.requireAuth(mux)))
}

func newCORS(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	})
}

// ListenAndServe blocks until the server stops. It returns nil after a
// graceful Shutdown.
func (s *Server) ListenAndServe() error {
	logger.Info("HTTP server listening", logger.String("addr", s.opts.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight tasks.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.runner.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = fmt.Errorf("failed to drain tasks: %w", ctx.Err())
		}
	}
	return err
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "running",
		"message": "Backend is active.",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type uploadResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.opts.MaxUploadBytes > 0 {
		if r.ContentLength > s.opts.MaxUploadBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large.")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large.")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart upload.")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded.")
		return
	}
	defer func() { _ = file.Close() }()

	if !pipeline.SupportedFile(header.Filename) {
		writeError(w, http.StatusBadRequest, "Invalid file format. Please upload .xlsx")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Upload error: "+err.Error())
		return
	}

	task, err := s.runner.Submit(header.Filename, data)
	if err != nil {
		logger.Error("Failed to submit upload", logger.String("filename", header.Filename), logger.Err(err))
		writeError(w, http.StatusInternalServerError, "Upload error: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		TaskID:  task.ID,
		Message: "Upload successful, processing started.",
	})
}

type statusResponse struct {
	TaskID         string          `json:"task_id"`
	Status         storage.Status  `json:"status"`
	Logs           []string        `json:"logs"`
	APIPreview     json.RawMessage `json:"api_preview"`
	ArtifactsReady []string        `json:"artifacts_ready"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	task, ok := s.lookup(w, r.PathValue("task_id"))
	if !ok {
		return
	}

	preview := task.APIPreview
	if len(preview) == 0 {
		preview = json.RawMessage("[]")
	}
	writeJSON(w, http.StatusOK, statusResponse{
		TaskID:         task.ID,
		Status:         task.Status,
		Logs:           task.Logs,
		APIPreview:     preview,
		ArtifactsReady: task.ArtifactKinds(),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	task, ok := s.lookup(w, r.PathValue("task_id"))
	if !ok {
		return
	}

	kind := r.PathValue("file_type")
	notReady := fmt.Sprintf("Artifact '%s' not found or not ready.", kind)
	path, ok := task.Artifacts[kind]
	if !ok {
		writeError(w, http.StatusNotFound, notReady)
		return
	}

	f, info, err := s.artifacts.Open(path)
	if errors.Is(err, storage.ErrArtifactNotFound) {
		writeError(w, http.StatusNotFound, notReady)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer func() { _ = f.Close() }()

	name := storage.FileName(path)
	w.Header().Set("Content-Type", storage.ContentType(kind))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, filepath.Base(name), info.ModTime(), f)
}

func (s *Server) lookup(w http.ResponseWriter, id string) (*storage.Task, bool) {
	task, err := s.tasks.Get(id)
	if errors.Is(err, storage.ErrTaskNotFound) {
		writeError(w, http.StatusNotFound, "Task not found")
		return nil, false
	}
	if err != nil {
		logger.Error("Failed to load task", logger.String("task_id", id), logger.Err(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return task, true
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") && !s.opts.Auth.Verify(r) {
			logger.Warn("Rejected unauthenticated request",
				logger.String("path", r.URL.Path),
				logger.String("auth", s.opts.Auth.Type()))
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("HTTP request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rec.status),
			logger.Duration("duration", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}
