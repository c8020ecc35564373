package task

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/cuken/overseer/pkg/types"
)

// SQLiteStore is an alternative crash-recovery Persister for Queue,
// backed by modernc.org/sqlite's pure-Go driver rather than the
// reporting database's cgo-free ncruces driver. It is deliberately a
// separate schema and a separate file from internal/storage/sqlite: one
// backs historical task/agent reporting, this one backs the queue's own
// "what was pending when the process died" snapshot.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a queue snapshot database
// at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open queue snapshot database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS queue_snapshot (
		id TEXT PRIMARY KEY,
		payload TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init queue snapshot schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save upserts the JSON-serialized task under its id.
func (s *SQLiteStore) Save(t *types.Task) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", t.ID, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO queue_snapshot (id, payload) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload=excluded.payload`,
		t.ID, string(payload),
	)
	return err
}

// LoadAll deserializes every snapshot row.
func (s *SQLiteStore) LoadAll() ([]*types.Task, error) {
	rows, err := s.db.Query("SELECT payload FROM queue_snapshot")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*types.Task
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var t types.Task
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			return nil, fmt.Errorf("unmarshal queue snapshot row: %w", err)
		}
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
