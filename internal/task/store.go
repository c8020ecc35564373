package task

import (
	"path/filepath"
	"sync"

	"github.com/cuken/overseer/internal/storage/jsonl"
	"github.com/cuken/overseer/pkg/types"
)

// Persister is the crash-recovery backend a Queue can optionally persist
// to. Store (JSONL) and SQLiteStore (modernc.org/sqlite) both implement
// it; a Queue built with NewQueue(nil) runs purely in memory.
type Persister interface {
	Save(t *types.Task) error
	LoadAll() ([]*types.Task, error)
	Close() error
}

// Store is a crash-recoverable snapshot of every task the queue has ever
// held, written as a single JSONL file. It exists so a restarted
// orchestrator can rebuild pending/completed bookkeeping; it makes no
// promise about resuming an in-flight agent.
type Store struct {
	mu   sync.Mutex
	path string
	all  map[string]*types.Task
}

// NewStore opens (or creates) a Store backed by tasks.jsonl under dir.
func NewStore(dir string) (*Store, error) {
	path := filepath.Join(dir, "tasks.jsonl")
	loaded, err := jsonl.Read(path)
	if err != nil {
		return nil, err
	}

	s := &Store{path: path, all: make(map[string]*types.Task)}
	for _, t := range loaded {
		s.all[t.ID] = t
	}
	return s, nil
}

// Save upserts a task and rewrites the backing file.
func (s *Store) Save(t *types.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all[t.ID] = t
	return s.flush()
}

// LoadAll returns every persisted task.
func (s *Store) LoadAll() ([]*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.Task, 0, len(s.all))
	for _, t := range s.all {
		out = append(out, t)
	}
	return out, nil
}

// flush rewrites the whole file; caller must hold the mutex.
func (s *Store) flush() error {
	tasks := make([]*types.Task, 0, len(s.all))
	for _, t := range s.all {
		tasks = append(tasks, t)
	}
	return jsonl.Write(s.path, tasks)
}

// Close is a no-op retained for symmetry with other stores that hold an
// open file handle or connection.
func (s *Store) Close() error {
	return nil
}
