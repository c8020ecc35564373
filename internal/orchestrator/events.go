package orchestrator

import (
	"sync"

	"github.com/cuken/overseer/pkg/types"
)

// StartedEvent fires when the orchestrator begins running.
type StartedEvent struct{}

// StoppedEvent fires once Stop has finished draining.
type StoppedEvent struct{}

// TaskAddedEvent fires when a new task is accepted into the queue.
type TaskAddedEvent struct{ Task *types.Task }

// AgentSpawnedEvent fires when an agent begins running a task.
type AgentSpawnedEvent struct{ Agent *types.Agent }

// AgentCompletedEvent fires when an agent's LLM call succeeds.
type AgentCompletedEvent struct {
	Agent  *types.Agent
	Output string
}

// AgentFailedEvent fires when an agent's LLM call fails.
type AgentFailedEvent struct {
	Agent *types.Agent
	Err   error
}

// TaskCompletedEvent fires only when a task's underlying agent succeeds;
// a failed agent emits AgentFailedEvent alone.
type TaskCompletedEvent struct{ Task *types.Task }

// EventBus is a typed pub/sub over the closed set of orchestrator
// lifecycle events. Each Emit call delivers synchronously to every
// subscriber registered for that event at call time.
type EventBus struct {
	mu sync.RWMutex

	onStarted       []func(StartedEvent)
	onStopped       []func(StoppedEvent)
	onTaskAdded     []func(TaskAddedEvent)
	onAgentSpawned  []func(AgentSpawnedEvent)
	onAgentCompleted []func(AgentCompletedEvent)
	onAgentFailed   []func(AgentFailedEvent)
	onTaskCompleted []func(TaskCompletedEvent)
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus { return &EventBus{} }

func (b *EventBus) OnStarted(fn func(StartedEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStarted = append(b.onStarted, fn)
}

func (b *EventBus) OnStopped(fn func(StoppedEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStopped = append(b.onStopped, fn)
}

func (b *EventBus) OnTaskAdded(fn func(TaskAddedEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTaskAdded = append(b.onTaskAdded, fn)
}

func (b *EventBus) OnAgentSpawned(fn func(AgentSpawnedEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onAgentSpawned = append(b.onAgentSpawned, fn)
}

func (b *EventBus) OnAgentCompleted(fn func(AgentCompletedEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onAgentCompleted = append(b.onAgentCompleted, fn)
}

func (b *EventBus) OnAgentFailed(fn func(AgentFailedEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onAgentFailed = append(b.onAgentFailed, fn)
}

func (b *EventBus) OnTaskCompleted(fn func(TaskCompletedEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTaskCompleted = append(b.onTaskCompleted, fn)
}

func (b *EventBus) emitStarted(e StartedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.onStarted {
		fn(e)
	}
}

func (b *EventBus) emitStopped(e StoppedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.onStopped {
		fn(e)
	}
}

func (b *EventBus) emitTaskAdded(e TaskAddedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.onTaskAdded {
		fn(e)
	}
}

func (b *EventBus) emitAgentSpawned(e AgentSpawnedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.onAgentSpawned {
		fn(e)
	}
}

func (b *EventBus) emitAgentCompleted(e AgentCompletedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.onAgentCompleted {
		fn(e)
	}
}

func (b *EventBus) emitAgentFailed(e AgentFailedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.onAgentFailed {
		fn(e)
	}
}

func (b *EventBus) emitTaskCompleted(e TaskCompletedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.onTaskCompleted {
		fn(e)
	}
}
