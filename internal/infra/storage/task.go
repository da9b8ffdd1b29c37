// Package storage keeps processing tasks and the artifacts they produce.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Done reports whether the task reached a terminal state.
func (s Status) Done() bool {
	return s == StatusCompleted || s == StatusFailed
}

var ErrTaskNotFound = errors.New("task not found")

// Task tracks one uploaded spreadsheet through parsing and generation.
type Task struct {
	ID         string            `json:"id"`
	Filename   string            `json:"filename"`
	SourceHash string            `json:"source_hash,omitempty"`
	Status     Status            `json:"status"`
	Logs       []string          `json:"logs"`
	Artifacts  map[string]string `json:"artifacts"`
	APIPreview json.RawMessage   `json:"api_preview,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// NewTask returns a pending task with empty logs and artifacts.
func NewTask(id, filename string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:        id,
		Filename:  filename,
		Status:    StatusPending,
		Logs:      []string{},
		Artifacts: map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Log appends a line to the task log.
func (t *Task) Log(line string) {
	t.Logs = append(t.Logs, line)
}

// ArtifactKinds lists the recorded artifact kinds in a stable order.
func (t *Task) ArtifactKinds() []string {
	kinds := []string{}
	for _, k := range []string{ArtifactPostman, ArtifactPytest} {
		if _, ok := t.Artifacts[k]; ok {
			kinds = append(kinds, k)
		}
	}
	var extra []string
	for k := range t.Artifacts {
		if k != ArtifactPostman && k != ArtifactPytest {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(kinds, extra...)
}

// Clone returns a deep copy so callers never share state with a store.
func (t *Task) Clone() *Task {
	c := *t
	c.Logs = append([]string{}, t.Logs...)
	c.Artifacts = make(map[string]string, len(t.Artifacts))
	for k, v := range t.Artifacts {
		c.Artifacts[k] = v
	}
	if t.APIPreview != nil {
		c.APIPreview = append(json.RawMessage{}, t.APIPreview...)
	}
	return &c
}

// TaskStore persists tasks. Implementations are safe for concurrent use and
// return ErrTaskNotFound for unknown ids.
type TaskStore interface {
	Create(task *Task) error
	Get(id string) (*Task, error)
	// Update applies fn to the stored task atomically. When fn returns an
	// error nothing is written.
	Update(id string, fn func(*Task) error) (*Task, error)
	List() ([]*Task, error)
	Close() error
}

// OpenTaskStore opens the backend named by kind. dir holds tasks.json for
// the file backend and the default database for sqlite.
func OpenTaskStore(kind, dsn, dir string) (TaskStore, error) {
	switch kind {
	case "memory":
		return NewMemoryTaskStore(), nil
	case "file", "":
		return OpenFileTaskStore(dir)
	case "sqlite", "postgres", "mysql":
		return OpenSQLTaskStore(kind, dsn, dir)
	default:
		return nil, fmt.Errorf("unknown task store: %s", kind)
	}
}
