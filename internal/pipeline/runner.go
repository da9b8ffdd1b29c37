// Package pipeline runs the parse-then-generate flow for uploaded
// spreadsheets and records its progress on a task.
package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Octrafic/api-factory/internal/core/analyzer"
	"github.com/Octrafic/api-factory/internal/core/model"
	"github.com/Octrafic/api-factory/internal/core/parser"
	"github.com/Octrafic/api-factory/internal/core/postman"
	"github.com/Octrafic/api-factory/internal/core/pytest"
	"github.com/Octrafic/api-factory/internal/infra/logger"
	"github.com/Octrafic/api-factory/internal/infra/storage"
	"github.com/google/uuid"
)

var (
	ErrUnsupportedFile  = errors.New("invalid file format. Please upload .xlsx")
	ErrAlreadyProcessed = errors.New("task already processed")
)

// Task log lines.
const (
	logUploaded   = "File uploaded. Waiting for processing..."
	logStarted    = "Started processing file..."
	logParsing    = "Parsing XLSX file..."
	logNoAPIs     = "No valid API definitions found in file."
	logCollection = "Generating Postman Collection..."
	logPytest     = "Generating Pytest structure..."
	logFinished   = "Processing finished successfully."
)

// Runner owns the task lifecycle: pending, processing, then completed or
// failed. Each task is processed at most once.
type Runner struct {
	tasks     storage.TaskStore
	artifacts *storage.ArtifactStore

	wg       sync.WaitGroup
	mu       sync.Mutex
	inFlight map[string]bool

	generateTests func(doc *model.APIDocument, outputDir string) (string, error)
}

func NewRunner(tasks storage.TaskStore, artifacts *storage.ArtifactStore) *Runner {
	return &Runner{
		tasks:         tasks,
		artifacts:     artifacts,
		inFlight:      make(map[string]bool),
		generateTests: pytest.Generate,
	}
}

// SupportedFile reports whether filename is an .xlsx workbook.
func SupportedFile(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// Submit records a pending task for the upload and processes it in the
// background.
func (r *Runner) Submit(filename string, data []byte) (*storage.Task, error) {
	if !SupportedFile(filename) {
		return nil, ErrUnsupportedFile
	}

	sum := sha256.Sum256(data)
	task := storage.NewTask(uuid.NewString(), filepath.Base(filename))
	task.SourceHash = hex.EncodeToString(sum[:])
	task.Log(logUploaded)
	if err := r.tasks.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	logger.Info("Task submitted",
		logger.String("task_id", task.ID),
		logger.String("filename", task.Filename),
		logger.Int("size", len(data)))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.Process(task.ID, task.Filename, data); err != nil {
			logger.Error("Task processing failed", logger.String("task_id", task.ID), logger.Err(err))
		}
	}()

	return task, nil
}

// Wait blocks until every submitted task finished processing.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Process runs the pipeline for a pending task. Failures end up on the task
// as a failed status and a log line; the returned error only reports that
// the task could not be claimed or updated.
func (r *Runner) Process(taskID, filename string, data []byte) (err error) {
	if !r.claim(taskID) {
		return ErrAlreadyProcessed
	}
	defer r.release(taskID)

	_, err = r.tasks.Update(taskID, func(t *storage.Task) error {
		if t.Status != storage.StatusPending {
			return ErrAlreadyProcessed
		}
		t.Status = storage.StatusProcessing
		t.Log(logStarted)
		return nil
	})
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Recovered from panic while processing task",
				logger.String("task_id", taskID),
				logger.String("panic", fmt.Sprint(rec)))
			err = r.fail(taskID, fmt.Sprintf("ERROR: %v", rec))
		}
	}()

	status, runErr := r.run(taskID, filename, data)
	switch {
	case runErr != nil:
		return r.fail(taskID, "ERROR: "+runErr.Error())
	case status == storage.StatusFailed:
		logger.Warn("Task failed", logger.String("task_id", taskID))
		return nil
	}

	logger.Info("Task completed",
		logger.String("task_id", taskID),
		logger.Duration("duration", time.Since(start)))
	return nil
}

// run executes the steps and returns the terminal status it already
// recorded, or an error the caller records.
func (r *Runner) run(taskID, filename string, data []byte) (storage.Status, error) {
	if err := r.log(taskID, logParsing); err != nil {
		return "", err
	}

	doc, warnings, parseErr := parser.Parse(data)
	lines := make([]string, 0, len(warnings)+1)
	for _, w := range warnings {
		lines = append(lines, "WARNING: "+w)
	}

	var perr *parser.ParseError
	switch {
	case errors.As(parseErr, &perr):
		lines = append(lines, "ERROR: "+perr.Detail())
		return storage.StatusFailed, r.finish(taskID, storage.StatusFailed, lines...)
	case parseErr != nil:
		return "", parseErr
	case len(doc.Endpoints) == 0:
		lines = append(lines, logNoAPIs)
		return storage.StatusFailed, r.finish(taskID, storage.StatusFailed, lines...)
	}

	preview, err := json.Marshal(analyzer.Analyze(doc).Endpoints)
	if err != nil {
		return "", fmt.Errorf("failed to encode preview: %w", err)
	}
	lines = append(lines, fmt.Sprintf("Found %d API definitions.", len(doc.Endpoints)), logCollection)
	_, err = r.tasks.Update(taskID, func(t *storage.Task) error {
		t.Logs = append(t.Logs, lines...)
		t.APIPreview = preview
		return nil
	})
	if err != nil {
		return "", err
	}

	collection, err := postman.Marshal(postman.Generate(doc, "Generated from "+filename))
	if err != nil {
		return "", err
	}
	collectionPath, err := r.artifacts.WriteCollection(taskID, collection)
	if err != nil {
		return "", err
	}
	if err := r.record(taskID, storage.ArtifactPostman, collectionPath, logPytest); err != nil {
		return "", err
	}

	taskDir, err := r.artifacts.TaskDir(taskID)
	if err != nil {
		return "", err
	}
	archivePath, err := r.generateTests(doc, taskDir)
	if err != nil {
		return "", err
	}
	if err := r.record(taskID, storage.ArtifactPytest, archivePath, ""); err != nil {
		return "", err
	}

	return storage.StatusCompleted, r.finish(taskID, storage.StatusCompleted, logFinished)
}

func (r *Runner) claim(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFlight[taskID] {
		return false
	}
	r.inFlight[taskID] = true
	return true
}

func (r *Runner) release(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, taskID)
}

func (r *Runner) log(taskID string, lines ...string) error {
	_, err := r.tasks.Update(taskID, func(t *storage.Task) error {
		t.Logs = append(t.Logs, lines...)
		return nil
	})
	return err
}

// record stores an artifact path and optionally the next step's log line.
func (r *Runner) record(taskID, kind, path, next string) error {
	_, err := r.tasks.Update(taskID, func(t *storage.Task) error {
		t.Artifacts[kind] = path
		if next != "" {
			t.Log(next)
		}
		return nil
	})
	return err
}

func (r *Runner) finish(taskID string, status storage.Status, lines ...string) error {
	_, err := r.tasks.Update(taskID, func(t *storage.Task) error {
		t.Status = status
		t.Logs = append(t.Logs, lines...)
		return nil
	})
	return err
}

func (r *Runner) fail(taskID, line string) error {
	logger.Warn("Task failed", logger.String("task_id", taskID), logger.String("reason", line))
	return r.finish(taskID, storage.StatusFailed, line)
}
