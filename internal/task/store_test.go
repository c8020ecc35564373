package task

import (
	"testing"

	"github.com/cuken/overseer/pkg/types"
)

func TestStore_SaveAndReload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	task := New("persisted task", types.ModeAsk, types.PriorityMedium, nil)
	if err := store.Save(task); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened, err := NewStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	loaded, err := reopened.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != task.ID {
		t.Fatalf("expected the saved task to survive a reopen, got %+v", loaded)
	}
}

func TestQueue_LoadPersistedResetsRunningToPending(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	t1 := New("in flight at crash time", types.ModeAsk, types.PriorityMedium, nil)
	t1.Status = types.TaskRunning
	if err := store.Save(t1); err != nil {
		t.Fatalf("Save: %v", err)
	}

	q := NewQueue(store)
	if err := q.LoadPersisted(); err != nil {
		t.Fatalf("LoadPersisted: %v", err)
	}

	reloaded, ok := q.GetByID(t1.ID)
	if !ok {
		t.Fatalf("expected task to be present after reload")
	}
	if reloaded.Status != types.TaskPending {
		t.Errorf("expected running task to reset to pending on reload, got %s", reloaded.Status)
	}
	if q.Size() != 1 {
		t.Errorf("expected reset task to be re-indexed as pending, size=%d", q.Size())
	}
}
