package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // for mysql
	_ "github.com/lib/pq"              // for postgres
	_ "modernc.org/sqlite"             // for sqlite
)

const sqliteFile = "tasks.db"

// SQLTaskStore keeps each task as a JSON document in a single table.
type SQLTaskStore struct {
	db      *sql.DB
	dialect string
}

// OpenSQLTaskStore connects to dialect (sqlite, postgres or mysql) and
// creates the tasks table. An empty sqlite dsn means <dir>/tasks.db.
func OpenSQLTaskStore(dialect, dsn, dir string) (*SQLTaskStore, error) {
	driver := dialect
	switch dialect {
	case "sqlite":
		if dsn == "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create storage directory: %w", err)
			}
			dsn = filepath.Join(dir, sqliteFile)
		}
	case "postgres", "mysql":
		if dsn == "" {
			return nil, fmt.Errorf("%s task store requires a dsn", dialect)
		}
	default:
		return nil, fmt.Errorf("unsupported sql dialect: %s", dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dialect, err)
	}
	if dialect == "sqlite" {
		// sqlite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	s := &SQLTaskStore{db: db, dialect: dialect}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLTaskStore) migrate() error {
	const ddl = `CREATE TABLE IF NOT EXISTS tasks (
	id VARCHAR(64) PRIMARY KEY,
	created_at BIGINT NOT NULL,
	data TEXT NOT NULL
)`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("failed to create tasks table: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders as $n for postgres.
func (s *SQLTaskStore) rebind(query string) string {
	if s.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLTaskStore) Create(task *Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	_, err = s.db.Exec(s.rebind(`INSERT INTO tasks (id, created_at, data) VALUES (?, ?, ?)`),
		task.ID, task.CreatedAt.UnixNano(), string(data))
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func (s *SQLTaskStore) Get(id string) (*Task, error) {
	row := s.db.QueryRow(s.rebind(`SELECT data FROM tasks WHERE id = ?`), id)
	return scanTask(row)
}

func (s *SQLTaskStore) Update(id string, fn func(*Task) error) (*Task, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT data FROM tasks WHERE id = ?`
	if s.dialect != "sqlite" {
		query += ` FOR UPDATE`
	}
	task, err := scanTask(tx.QueryRow(s.rebind(query), id))
	if err != nil {
		return nil, err
	}

	if err := fn(task); err != nil {
		return nil, err
	}
	task.ID = id
	task.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}
	if _, err := tx.Exec(s.rebind(`UPDATE tasks SET data = ? WHERE id = ?`), string(data), id); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit task update: %w", err)
	}
	return task, nil
}

func (s *SQLTaskStore) List() ([]*Task, error) {
	rows, err := s.db.Query(`SELECT data FROM tasks ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tasks := []*Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (s *SQLTaskStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*Task, error) {
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to read task: %w", err)
	}

	var task Task
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	if task.Logs == nil {
		task.Logs = []string{}
	}
	if task.Artifacts == nil {
		task.Artifacts = map[string]string{}
	}
	return &task, nil
}
