// Package sqlite is the reporting-store backend: a pure-Go sqlite driver
// holding a durable, queryable history of tasks and agent runs.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/cuken/overseer/pkg/types"
)

// SQLiteStore implements storage.Store.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (creating if necessary) a SQLiteStore at path.
func New(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set synchronous mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		description TEXT,
		mode TEXT,
		priority INTEGER,
		dependencies TEXT,
		status TEXT,
		result TEXT,
		error TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);

	CREATE TABLE IF NOT EXISTS workers (
		id TEXT PRIMARY KEY,
		task_id TEXT,
		mode TEXT,
		state TEXT,
		started_at DATETIME,
		ended_at DATETIME,
		result TEXT,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_workers_state ON workers(state);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func jsonString(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func fromJSON(data string, v interface{}) error {
	if data == "" {
		return nil
	}
	return json.Unmarshal([]byte(data), v)
}

func (s *SQLiteStore) CreateTask(ctx context.Context, t *types.Task) error {
	query := `
	INSERT INTO tasks (id, description, mode, priority, dependencies, status, result, error, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.Description, t.Mode, t.Priority, jsonString(t.Dependencies),
		t.Status, t.Result, t.Error, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*types.Task, error) {
	row := s.db.QueryRowContext(ctx, "SELECT * FROM tasks WHERE id = ?", id)
	return s.scanTask(row)
}

func (s *SQLiteStore) UpdateTask(ctx context.Context, t *types.Task) error {
	query := `
	UPDATE tasks SET description=?, mode=?, priority=?, dependencies=?, status=?, result=?, error=?, created_at=?, updated_at=?
	WHERE id=?`
	_, err := s.db.ExecContext(ctx, query,
		t.Description, t.Mode, t.Priority, jsonString(t.Dependencies),
		t.Status, t.Result, t.Error, t.CreatedAt, t.UpdatedAt, t.ID,
	)
	return err
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	return err
}

func (s *SQLiteStore) ListTasks(ctx context.Context, state types.TaskState) ([]*types.Task, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM tasks WHERE status = ?", state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.scanTasks(rows)
}

func (s *SQLiteStore) ListAllTasks(ctx context.Context) ([]*types.Task, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM tasks")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.scanTasks(rows)
}

// scannable abstracts over *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...interface{}) error
}

func (s *SQLiteStore) scanTask(row scannable) (*types.Task, error) {
	var t types.Task
	var deps string
	err := row.Scan(&t.ID, &t.Description, &t.Mode, &t.Priority, &deps, &t.Status, &t.Result, &t.Error, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := fromJSON(deps, &t.Dependencies); err != nil {
		return nil, fmt.Errorf("parse dependencies: %w", err)
	}
	return &t, nil
}

func (s *SQLiteStore) scanTasks(rows *sql.Rows) ([]*types.Task, error) {
	var tasks []*types.Task
	for rows.Next() {
		t, err := s.scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateWorkerStatus upserts an agent's point-in-time snapshot.
func (s *SQLiteStore) UpdateWorkerStatus(ctx context.Context, ws *types.WorkerStatus) error {
	query := `
	INSERT INTO workers (id, task_id, mode, state, started_at, ended_at, result, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		task_id=excluded.task_id, mode=excluded.mode, state=excluded.state,
		started_at=excluded.started_at, ended_at=excluded.ended_at,
		result=excluded.result, error=excluded.error`
	_, err := s.db.ExecContext(ctx, query, ws.ID, ws.TaskID, ws.Mode, ws.State, ws.StartedAt, ws.EndedAt, ws.Result, ws.Error)
	return err
}

func (s *SQLiteStore) ListWorkers(ctx context.Context) ([]*types.WorkerStatus, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, task_id, mode, state, started_at, ended_at, result, error FROM workers")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.WorkerStatus
	for rows.Next() {
		var w types.WorkerStatus
		if err := rows.Scan(&w.ID, &w.TaskID, &w.Mode, &w.State, &w.StartedAt, &w.EndedAt, &w.Result, &w.Error); err != nil {
			return nil, err
		}
		out = append(out, &w)
	}
	return out, rows.Err()
}

// PruneStaleWorkers removes worker records whose start time is older
// than threshold and which never recorded an end time — a crashed agent
// that never reached a terminal state.
func (s *SQLiteStore) PruneStaleWorkers(ctx context.Context, threshold time.Duration) error {
	cutoff := time.Now().Add(-threshold)
	_, err := s.db.ExecContext(ctx, "DELETE FROM workers WHERE ended_at IS NULL AND started_at < ?", cutoff)
	return err
}
