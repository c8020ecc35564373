package task

import (
	"testing"
	"time"

	"github.com/cuken/overseer/pkg/types"
)

func TestQueue_GetNextRespectsPriorityThenCreatedAt(t *testing.T) {
	q := NewQueue(nil)

	low := New("low priority", types.ModeAsk, types.PriorityLow, nil)
	high := New("high priority", types.ModeAsk, types.PriorityHigh, nil)
	q.Add(low)
	time.Sleep(time.Millisecond)
	q.Add(high)

	got := q.GetNext()
	if got == nil || got.ID != high.ID {
		t.Fatalf("expected high priority task first, got %+v", got)
	}
	if got.Status != types.TaskRunning {
		t.Errorf("expected GetNext to transition task to running, got %s", got.Status)
	}

	got = q.GetNext()
	if got == nil || got.ID != low.ID {
		t.Fatalf("expected low priority task second, got %+v", got)
	}
}

func TestQueue_GetNextTiebreaksOnCreatedAt(t *testing.T) {
	q := NewQueue(nil)
	first := New("first", types.ModeAsk, types.PriorityMedium, nil)
	q.Add(first)
	time.Sleep(time.Millisecond)
	second := New("second", types.ModeAsk, types.PriorityMedium, nil)
	q.Add(second)

	got := q.GetNext()
	if got.ID != first.ID {
		t.Errorf("expected earliest created task first, got %s", got.ID)
	}
}

func TestQueue_DependencyGatingBlocksUntilPredecessorCompletes(t *testing.T) {
	q := NewQueue(nil)
	pred := New("predecessor", types.ModeAsk, types.PriorityMedium, nil)
	succ := New("successor", types.ModeAsk, types.PriorityMedium, []string{pred.ID})
	q.Add(pred)
	q.Add(succ)

	got := q.GetNext()
	if got == nil || got.ID != pred.ID {
		t.Fatalf("expected predecessor to be dispatched first, got %+v", got)
	}

	if next := q.GetNext(); next != nil {
		t.Fatalf("expected successor to stay blocked, got %+v", next)
	}

	q.MarkCompleted(pred.ID, "done")

	next := q.GetNext()
	if next == nil || next.ID != succ.ID {
		t.Fatalf("expected successor to become eligible once predecessor completed, got %+v", next)
	}
}

func TestQueue_MissingDependencyNeverBecomesEligible(t *testing.T) {
	q := NewQueue(nil)
	orphan := New("orphan", types.ModeAsk, types.PriorityMedium, []string{"does-not-exist"})
	q.Add(orphan)

	if got := q.GetNext(); got != nil {
		t.Fatalf("expected task with missing dependency to stay ineligible forever, got %+v", got)
	}
}

func TestQueue_DependencyCycleNeverResolves(t *testing.T) {
	q := NewQueue(nil)
	a := New("a", types.ModeAsk, types.PriorityMedium, nil)
	b := New("b", types.ModeAsk, types.PriorityMedium, nil)
	a.Dependencies = []string{b.ID}
	b.Dependencies = []string{a.ID}
	q.Add(a)
	q.Add(b)

	if got := q.GetNext(); got != nil {
		t.Fatalf("expected cyclic dependency to never resolve, got %+v", got)
	}
}

func TestQueue_CleanupOnlyRemovesCompletedByDefault(t *testing.T) {
	q := NewQueue(nil)
	completed := New("completed", types.ModeAsk, types.PriorityMedium, nil)
	failed := New("failed", types.ModeAsk, types.PriorityMedium, nil)
	q.Add(completed)
	q.Add(failed)
	q.GetNext()
	q.GetNext()
	q.MarkCompleted(completed.ID, "ok")
	q.MarkFailed(failed.ID, "boom")

	old := time.Now().Add(-48 * time.Hour)
	q.tasks[completed.ID].CreatedAt = old
	q.tasks[failed.ID].CreatedAt = old

	removed := q.Cleanup(24 * time.Hour)
	if removed != 1 {
		t.Fatalf("expected only the completed task to be removed, removed %d", removed)
	}
	if _, ok := q.GetByID(failed.ID); !ok {
		t.Errorf("expected failed task to survive cleanup by default")
	}
}

func TestQueue_ReAddByIDReplacesPendingEntry(t *testing.T) {
	q := NewQueue(nil)
	original := New("first draft", types.ModeAsk, types.PriorityLow, nil)
	q.Add(original)

	revised := New("second draft", types.ModeAsk, types.PriorityHigh, nil)
	revised.ID = original.ID
	q.Add(revised)

	if q.Size() != 1 {
		t.Fatalf("expected re-add by id to replace rather than double-queue, size %d", q.Size())
	}

	got := q.GetNext()
	if got == nil || got.Description != "second draft" {
		t.Fatalf("expected the re-added task to win, got %+v", got)
	}
	if next := q.GetNext(); next != nil {
		t.Fatalf("expected no leftover duplicate entry, got %+v", next)
	}
}

func TestQueue_SizeReflectsOnlyPending(t *testing.T) {
	q := NewQueue(nil)
	q.Add(New("a", types.ModeAsk, types.PriorityMedium, nil))
	q.Add(New("b", types.ModeAsk, types.PriorityMedium, nil))
	if q.Size() != 2 {
		t.Fatalf("expected size 2, got %d", q.Size())
	}
	q.GetNext()
	if q.Size() != 1 {
		t.Fatalf("expected size 1 after dispatch, got %d", q.Size())
	}
}
