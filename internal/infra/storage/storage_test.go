package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func openStores(t *testing.T) map[string]TaskStore {
	t.Helper()

	file, err := OpenTaskStore("file", "", t.TempDir())
	require.NoError(t, err)
	sqlite, err := OpenTaskStore("sqlite", "", t.TempDir())
	require.NoError(t, err)

	stores := map[string]TaskStore{
		"memory": NewMemoryTaskStore(),
		"file":   file,
		"sqlite": sqlite,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestTaskStoreLifecycle(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			task := NewTask("task-1", "apis.xlsx")
			task.Log("File uploaded. Waiting for processing...")
			require.NoError(t, store.Create(task))
			assert.Error(t, store.Create(task), "duplicate ids are rejected")

			got, err := store.Get("task-1")
			require.NoError(t, err)
			assert.Equal(t, StatusPending, got.Status)
			assert.Equal(t, []string{"File uploaded. Waiting for processing..."}, got.Logs)
			assert.Empty(t, got.Artifacts)

			updated, err := store.Update("task-1", func(t *Task) error {
				t.Status = StatusCompleted
				t.Log("Processing finished successfully.")
				t.Artifacts[ArtifactPytest] = "/tmp/x/pytest_tests.zip"
				t.Artifacts[ArtifactPostman] = "/tmp/x/postman_collection.json"
				t.APIPreview = []byte(`[{"name":"Login"}]`)
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, StatusCompleted, updated.Status)
			assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

			got, err = store.Get("task-1")
			require.NoError(t, err)
			assert.Len(t, got.Logs, 2)
			assert.Equal(t, []string{ArtifactPostman, ArtifactPytest}, got.ArtifactKinds())
			assert.Equal(t, "Login", gjson.GetBytes(got.APIPreview, "0.name").String())

			_, err = store.Get("missing")
			assert.ErrorIs(t, err, ErrTaskNotFound)
			_, err = store.Update("missing", func(*Task) error { return nil })
			assert.ErrorIs(t, err, ErrTaskNotFound)
		})
	}
}

func TestTaskStoreUpdateErrorKeepsTask(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Create(NewTask("t", "a.xlsx")))

			boom := errors.New("boom")
			_, err := store.Update("t", func(t *Task) error {
				t.Status = StatusFailed
				return boom
			})
			assert.ErrorIs(t, err, boom)

			got, err := store.Get("t")
			require.NoError(t, err)
			assert.Equal(t, StatusPending, got.Status)
		})
	}
}

func TestTaskStoreReturnsCopies(t *testing.T) {
	store := NewMemoryTaskStore()
	require.NoError(t, store.Create(NewTask("t", "a.xlsx")))

	got, err := store.Get("t")
	require.NoError(t, err)
	got.Logs = append(got.Logs, "mutated")
	got.Artifacts["postman"] = "x"

	again, err := store.Get("t")
	require.NoError(t, err)
	assert.Empty(t, again.Logs)
	assert.Empty(t, again.Artifacts)
}

func TestTaskStoreConcurrentUpdates(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Create(NewTask("t", "a.xlsx")))

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := store.Update("t", func(t *Task) error {
						t.Log("line")
						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			got, err := store.Get("t")
			require.NoError(t, err)
			assert.Len(t, got.Logs, 20)
		})
	}
}

func TestPersistentStoresSurviveReopen(t *testing.T) {
	for _, kind := range []string{"file", "sqlite"} {
		t.Run(kind, func(t *testing.T) {
			dir := t.TempDir()

			store, err := OpenTaskStore(kind, "", dir)
			require.NoError(t, err)
			first := NewTask("b-first", "one.xlsx")
			second := NewTask("a-second", "two.xlsx")
			second.CreatedAt = first.CreatedAt.Add(1)
			require.NoError(t, store.Create(first))
			require.NoError(t, store.Create(second))
			_, err = store.Update("b-first", func(t *Task) error {
				t.Status = StatusFailed
				t.Log("ERROR: boom")
				return nil
			})
			require.NoError(t, err)
			require.NoError(t, store.Close())

			reopened, err := OpenTaskStore(kind, "", dir)
			require.NoError(t, err)
			defer func() { _ = reopened.Close() }()

			tasks, err := reopened.List()
			require.NoError(t, err)
			require.Len(t, tasks, 2)
			assert.Equal(t, "b-first", tasks[0].ID)
			assert.Equal(t, StatusFailed, tasks[0].Status)
			assert.Equal(t, []string{"ERROR: boom"}, tasks[0].Logs)
			assert.Equal(t, "a-second", tasks[1].ID)
		})
	}
}

func TestFileStoreFormat(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenFileTaskStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Create(NewTask("abc", "apis.xlsx")))

	data, err := os.ReadFile(filepath.Join(dir, "tasks.json"))
	require.NoError(t, err)
	assert.Equal(t, "pending", gjson.GetBytes(data, "abc.status").String())
	assert.Contains(t, string(data), "\n        \"status\": \"pending\"")
}

func TestFileStoreRollsBackFailedWrites(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenFileTaskStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Create(NewTask("kept", "one.xlsx")))

	// A directory in place of the temp file makes every write fail.
	blocker := filepath.Join(dir, "tasks.json.tmp")
	require.NoError(t, os.Mkdir(blocker, 0755))

	assert.Error(t, store.Create(NewTask("lost", "two.xlsx")))
	_, err = store.Get("lost")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = store.Update("kept", func(t *Task) error {
		t.Status = StatusFailed
		return nil
	})
	assert.Error(t, err)
	kept, err := store.Get("kept")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, kept.Status)

	require.NoError(t, os.Remove(blocker))
	require.NoError(t, store.Create(NewTask("lost", "two.xlsx")))

	tasks, err := store.List()
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "kept", tasks[0].ID)
	assert.Equal(t, "lost", tasks[1].ID)

	data, err := os.ReadFile(filepath.Join(dir, "tasks.json"))
	require.NoError(t, err)
	assert.Equal(t, "pending", gjson.GetBytes(data, "kept.status").String())
	assert.True(t, gjson.GetBytes(data, "lost").Exists())
}

func TestOpenTaskStoreErrors(t *testing.T) {
	_, err := OpenTaskStore("redis", "", t.TempDir())
	assert.Error(t, err)
	_, err = OpenTaskStore("postgres", "", t.TempDir())
	assert.Error(t, err)
}

func TestPostgresRebind(t *testing.T) {
	s := &SQLTaskStore{dialect: "postgres"}
	assert.Equal(t, "UPDATE tasks SET data = $1 WHERE id = $2", s.rebind("UPDATE tasks SET data = ? WHERE id = ?"))

	m := &SQLTaskStore{dialect: "mysql"}
	assert.Equal(t, "SELECT ? ", m.rebind("SELECT ? "))
}

func TestArtifactStore(t *testing.T) {
	root := t.TempDir()
	store, err := NewArtifactStore(root)
	require.NoError(t, err)

	path, err := store.WriteCollection("task-1", []byte(`{"info":{}}`))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Root(), "task-1", CollectionFileName), path)

	f, info, err := store.Open(path)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	_ = f.Close()
	assert.Equal(t, `{"info":{}}`, string(data))
	assert.Equal(t, int64(len(data)), info.Size())

	outside := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0644))
	_, _, err = store.Open(outside)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
	_, _, err = store.Open(filepath.Join(store.Root(), "task-1", "..", "..", "etc"))
	assert.ErrorIs(t, err, ErrArtifactNotFound)
	_, _, err = store.Open(filepath.Join(store.Root(), "task-1", "pytest_tests.zip"))
	assert.ErrorIs(t, err, ErrArtifactNotFound)
	_, _, err = store.Open(filepath.Join(store.Root(), "task-1"))
	assert.ErrorIs(t, err, ErrArtifactNotFound)

	for _, bad := range []string{"", "..", "a/b", `a\b`} {
		_, err := store.TaskDir(bad)
		assert.Error(t, err, bad)
	}
}

func TestDownloadMetadata(t *testing.T) {
	assert.Equal(t, "application/json", ContentType(ArtifactPostman))
	assert.Equal(t, "application/zip", ContentType(ArtifactPytest))
	assert.Equal(t, "pytest_tests.zip", FileName("/data/t/pytest_tests.zip"))
}
