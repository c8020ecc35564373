package sqlite

import (
	"context"
	"fmt"

	"github.com/cuken/overseer/pkg/types"
)

// Import bulk inserts/updates tasks from a slice into the reporting
// database, overwriting any existing row with the same id.
func (s *SQLiteStore) Import(ctx context.Context, tasks []*types.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
	INSERT INTO tasks (
		id, description, mode, priority, dependencies, status, result, error, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		description=excluded.description,
		mode=excluded.mode,
		priority=excluded.priority,
		dependencies=excluded.dependencies,
		status=excluded.status,
		result=excluded.result,
		error=excluded.error,
		created_at=excluded.created_at,
		updated_at=excluded.updated_at`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, t := range tasks {
		_, err := stmt.ExecContext(ctx,
			t.ID, t.Description, t.Mode, t.Priority, jsonString(t.Dependencies),
			t.Status, t.Result, t.Error, t.CreatedAt, t.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert task %s: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

// Export returns all tasks for serialization.
func (s *SQLiteStore) Export(ctx context.Context) ([]*types.Task, error) {
	return s.ListAllTasks(ctx)
}
