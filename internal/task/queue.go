package task

import (
	"container/heap"
	"sync"
	"time"

	"github.com/cuken/overseer/pkg/types"
)

// Queue holds every task the orchestrator knows about, keyed by id, plus
// a priority-ordered index over the pending ones.
type Queue struct {
	mu          sync.Mutex
	tasks       map[string]*types.Task
	pending     priorityQueue
	pendingByID map[string]*queueItem
	persist     Persister

	// CleanupIncludeFailed controls whether Cleanup also removes failed
	// tasks. The spec's default is to leave failed tasks in place so an
	// operator can inspect them; set true to include them.
	CleanupIncludeFailed bool
}

// NewQueue creates an empty queue, optionally backed by a Store for
// crash-recoverable persistence.
func NewQueue(persist Persister) *Queue {
	q := &Queue{
		tasks:       make(map[string]*types.Task),
		pending:     make(priorityQueue, 0),
		pendingByID: make(map[string]*queueItem),
		persist:     persist,
	}
	heap.Init(&q.pending)
	return q
}

// LoadPersisted rehydrates tasks from the backing Store, re-indexing any
// still-pending tasks for dispatch. Tasks left "running" from a prior
// process are reset to pending: this module makes no promise of resuming
// an in-flight agent, only of not losing the task record.
func (q *Queue) LoadPersisted() error {
	if q.persist == nil {
		return nil
	}
	saved, err := q.persist.LoadAll()
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range saved {
		if t.Status == types.TaskRunning {
			t.Status = types.TaskPending
		}
		q.tasks[t.ID] = t
		if t.Status == types.TaskPending {
			item := &queueItem{task: t}
			heap.Push(&q.pending, item)
			q.pendingByID[t.ID] = item
		}
	}
	return nil
}

// Add registers a task and makes it eligible for dispatch. Re-adding an
// id already pending replaces that entry outright: last write wins, and
// the task is never double-queued for dispatch.
func (q *Queue) Add(t *types.Task) {
	q.mu.Lock()
	if existing, ok := q.pendingByID[t.ID]; ok {
		heap.Remove(&q.pending, existing.index)
		delete(q.pendingByID, t.ID)
	}
	q.tasks[t.ID] = t
	item := &queueItem{task: t}
	heap.Push(&q.pending, item)
	q.pendingByID[t.ID] = item
	q.mu.Unlock()

	q.persistTask(t)
}

// Size reports how many tasks are currently pending dispatch.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

// GetNext returns the highest-priority, earliest-created pending task
// whose dependencies are all completed, atomically transitioning it to
// running before returning it. Returns nil if nothing is eligible right
// now — including the case of a dependency cycle or a missing dependency
// id, which this method tolerates forever rather than erroring.
func (q *Queue) GetNext() *types.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	best := -1
	for i := 0; i < q.pending.Len(); i++ {
		if !q.dependenciesSatisfied(q.pending[i].task) {
			continue
		}
		if best == -1 || q.pending.Less(i, best) {
			best = i
		}
	}
	if best == -1 {
		return nil
	}

	item := q.pending[best]
	heap.Remove(&q.pending, best)
	delete(q.pendingByID, item.task.ID)
	item.task.Status = types.TaskRunning
	item.task.UpdatedAt = time.Now().UTC()
	t := item.task
	q.mu.Unlock()
	q.persistTask(t)
	q.mu.Lock()
	return t
}

// dependenciesSatisfied reports whether every declared dependency id
// resolves to a completed task. A missing id or one that never
// completes makes the task permanently ineligible, without raising an
// error.
func (q *Queue) dependenciesSatisfied(t *types.Task) bool {
	for _, depID := range t.Dependencies {
		dep, ok := q.tasks[depID]
		if !ok || dep.Status != types.TaskCompleted {
			return false
		}
	}
	return true
}

// GetByID returns the task with the given id, if any.
func (q *Queue) GetByID(id string) (*types.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	return t, ok
}

// GetAllTasks returns every task the queue knows about, in no particular
// order.
func (q *Queue) GetAllTasks() []*types.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*types.Task, 0, len(q.tasks))
	for _, t := range q.tasks {
		out = append(out, t)
	}
	return out
}

// MarkCompleted transitions a running task to completed and records its
// result.
func (q *Queue) MarkCompleted(id, result string) {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if ok {
		t.Status = types.TaskCompleted
		t.Result = result
		t.UpdatedAt = time.Now().UTC()
	}
	q.mu.Unlock()
	if ok {
		q.persistTask(t)
	}
}

// MarkFailed transitions a running task to failed and records the error.
func (q *Queue) MarkFailed(id, errMsg string) {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if ok {
		t.Status = types.TaskFailed
		t.Error = errMsg
		t.UpdatedAt = time.Now().UTC()
	}
	q.mu.Unlock()
	if ok {
		q.persistTask(t)
	}
}

// Cleanup removes completed tasks (and failed ones too, if
// CleanupIncludeFailed is set) older than maxAge. It returns the number
// of tasks removed.
func (q *Queue) Cleanup(maxAge time.Duration) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, t := range q.tasks {
		if t.Status != types.TaskCompleted && !(q.CleanupIncludeFailed && t.Status == types.TaskFailed) {
			continue
		}
		if t.CreatedAt.Before(cutoff) {
			delete(q.tasks, id)
			removed++
		}
	}
	return removed
}

func (q *Queue) persistTask(t *types.Task) {
	if q.persist == nil {
		return
	}
	_ = q.persist.Save(t)
}

// queueItem wraps a task for the pending heap.
type queueItem struct {
	task  *types.Task
	index int
}

// priorityQueue orders by descending priority, then ascending createdAt.
type priorityQueue []*queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].task.Priority != pq[j].task.Priority {
		return pq[i].task.Priority > pq[j].task.Priority
	}
	return pq[i].task.CreatedAt.Before(pq[j].task.CreatedAt)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x interface{}) {
	item := x.(*queueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}
