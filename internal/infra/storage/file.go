package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const tasksFile = "tasks.json"

// FileTaskStore is a MemoryTaskStore that rewrites tasks.json after every
// mutation and reloads it on open, so task state survives restarts.
type FileTaskStore struct {
	*MemoryTaskStore
	path string
}

// OpenFileTaskStore loads <dir>/tasks.json if it exists.
func OpenFileTaskStore(dir string) (*FileTaskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	s := &FileTaskStore{
		MemoryTaskStore: NewMemoryTaskStore(),
		path:            filepath.Join(dir, tasksFile),
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tasks file: %w", err)
	}

	var stored map[string]*Task
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tasks: %w", err)
	}

	tasks := make([]*Task, 0, len(stored))
	for id, task := range stored {
		task.ID = id
		if task.Logs == nil {
			task.Logs = []string{}
		}
		if task.Artifacts == nil {
			task.Artifacts = map[string]string{}
		}
		tasks = append(tasks, task)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	for _, task := range tasks {
		if err := s.create(task); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *FileTaskStore) Create(task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.create(task); err != nil {
		return err
	}
	if err := s.persist(); err != nil {
		s.remove(task.ID)
		return err
	}
	return nil
}

func (s *FileTaskStore) Update(id string, fn func(*Task) error) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.tasks[id]
	task, err := s.update(id, fn)
	if err != nil {
		return nil, err
	}
	if err := s.persist(); err != nil {
		s.tasks[id] = previous
		return nil, err
	}
	return task, nil
}

// persist writes the whole task map keyed by id. Callers hold the lock.
func (s *FileTaskStore) persist() error {
	data, err := json.MarshalIndent(s.tasks, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal tasks: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write tasks file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace tasks file: %w", err)
	}
	return nil
}
