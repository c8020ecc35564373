// Package task implements the task queue: a map of submitted tasks with
// priority-ranked, dependency-gated dispatch.
package task

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/cuken/overseer/pkg/types"
)

// New builds a pending Task with a generated ID.
func New(description string, mode types.Mode, priority types.Priority, deps []string) *types.Task {
	now := time.Now().UTC()
	t := &types.Task{
		Description:  description,
		Mode:         mode,
		Priority:     priority,
		Dependencies: deps,
		Status:       types.TaskPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	t.ID = generateID(t)
	return t
}

// generateID derives a stable id from the task's content and creation
// time, the way the queue's own history would distinguish two tasks
// submitted with identical descriptions.
func generateID(t *types.Task) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d", t.Description, t.Mode, t.CreatedAt.UnixNano())
	return hex.EncodeToString(h.Sum(nil))[:16]
}
