package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Artifact kinds recorded on a task.
const (
	ArtifactPostman = "postman"
	ArtifactPytest  = "pytest"
)

const CollectionFileName = "postman_collection.json"

var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactStore owns a root directory with one sub-directory per task.
type ArtifactStore struct {
	root string
}

func NewArtifactStore(root string) (*ArtifactStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artifacts directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifacts directory: %w", err)
	}
	return &ArtifactStore{root: abs}, nil
}

func (s *ArtifactStore) Root() string {
	return s.root
}

// TaskDir creates and returns the directory that holds a task's artifacts.
func (s *ArtifactStore) TaskDir(taskID string) (string, error) {
	if taskID == "" || taskID == "." || taskID == ".." || strings.ContainsAny(taskID, `/\`) {
		return "", fmt.Errorf("invalid task id: %q", taskID)
	}
	dir := filepath.Join(s.root, taskID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create task directory: %w", err)
	}
	return dir, nil
}

// WriteCollection stores the collection JSON in the task directory.
func (s *ArtifactStore) WriteCollection(taskID string, data []byte) (string, error) {
	dir, err := s.TaskDir(taskID)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, CollectionFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write collection: %w", err)
	}
	return path, nil
}

// Open opens a recorded artifact path. Paths outside the root or missing
// files yield ErrArtifactNotFound.
func (s *ArtifactStore) Open(path string) (*os.File, os.FileInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, ErrArtifactNotFound
	}
	rel, err := filepath.Rel(s.root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, nil, ErrArtifactNotFound
	}

	f, err := os.Open(abs)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		_ = f.Close()
		return nil, nil, ErrArtifactNotFound
	}
	return f, info, nil
}

// ContentType is the media type an artifact kind is served with.
func ContentType(kind string) string {
	if kind == ArtifactPostman {
		return "application/json"
	}
	return "application/zip"
}

// FileName is the download name for an artifact stored at path.
func FileName(path string) string {
	return filepath.Base(path)
}
