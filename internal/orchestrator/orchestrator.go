// Package orchestrator implements the single-threaded, event-driven
// scheduler: task submission, agent spawning bounded by a concurrency
// ceiling, and the typed event bus other components observe.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cuken/overseer/internal/agent"
	"github.com/cuken/overseer/internal/logger"
	"github.com/cuken/overseer/internal/memory"
	"github.com/cuken/overseer/internal/task"
	"github.com/cuken/overseer/internal/validate"
	"github.com/cuken/overseer/pkg/types"
)

// runState is the orchestrator's own lifecycle, distinct from any single
// task or agent's state.
type runState string

const (
	stateStopped  runState = "stopped"
	stateRunning  runState = "running"
	stateStopping runState = "stopping"
)

// ErrAlreadyRunning is returned by Start when the orchestrator is already
// in the running state.
var ErrAlreadyRunning = errors.New("orchestrator is already running")

// Status is the snapshot returned by GetStatus.
type Status struct {
	State        string
	PendingTasks int
	ActiveAgents int
	MaxAgents    int
}

// Orchestrator owns the task queue, memory store, and LLM adapter, and
// drives the scheduler tick that turns pending tasks into running
// agents.
type Orchestrator struct {
	queue   *task.Queue
	mem     *memory.Store
	llm     agent.Executor
	tools   agent.ToolExecutor
	prompts *agent.PromptBuilder
	bus     *EventBus
	log     *logger.Logger

	maxAgents      int
	stopDeadline   time.Duration
	agentGrace     time.Duration

	mu     sync.Mutex
	state  runState
	active map[string]*types.Agent

	tick    chan struct{}
	results chan agent.Result
	ctx     context.Context
	cancel  context.CancelFunc
	eg      *errgroup.Group
	done    chan struct{}
}

// Config bundles everything the orchestrator needs to run.
type Config struct {
	Queue        *task.Queue
	Memory       *memory.Store
	LLM          agent.Executor
	Tools        agent.ToolExecutor
	Prompts      *agent.PromptBuilder
	MaxAgents    int
	StopDeadline time.Duration
	AgentGrace   time.Duration
}

// New builds an Orchestrator in the stopped state.
func New(cfg Config) *Orchestrator {
	if cfg.MaxAgents <= 0 {
		cfg.MaxAgents = 10
	}
	if cfg.StopDeadline <= 0 {
		cfg.StopDeadline = 2 * time.Minute
	}
	if cfg.AgentGrace <= 0 {
		cfg.AgentGrace = 5 * time.Minute
	}
	if cfg.Prompts == nil {
		cfg.Prompts = agent.NewPromptBuilder()
	}

	return &Orchestrator{
		queue:        cfg.Queue,
		mem:          cfg.Memory,
		llm:          cfg.LLM,
		tools:        cfg.Tools,
		prompts:      cfg.Prompts,
		bus:          NewEventBus(),
		log:          logger.New("Orchestrator", ""),
		maxAgents:    cfg.MaxAgents,
		stopDeadline: cfg.StopDeadline,
		agentGrace:   cfg.AgentGrace,
		state:        stateStopped,
		active:       make(map[string]*types.Agent),
		tick:         make(chan struct{}, 1),
		results:      make(chan agent.Result, 16),
	}
}

// Events returns the bus other components subscribe to.
func (o *Orchestrator) Events() *EventBus { return o.bus }

// Start begins the scheduler loop. It fails if already running.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.state == stateRunning {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	o.state = stateRunning
	o.ctx, o.cancel = context.WithCancel(ctx)
	o.eg, _ = errgroup.WithContext(context.Background())
	o.done = make(chan struct{})
	o.mu.Unlock()

	go o.loop()
	o.bus.emitStarted(StartedEvent{})
	o.wake()
	return nil
}

// Stop drains in-flight agents (bounded by the configured stop deadline),
// flushes memory, and halts the scheduler loop. Calling Stop while
// already stopped is a no-op.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if o.state != stateRunning {
		o.mu.Unlock()
		return nil
	}
	o.state = stateStopping
	cancel := o.cancel
	eg := o.eg
	done := o.done
	o.mu.Unlock()

	cancel()

	deadline := o.stopDeadline
	if dl, ok := ctx.Deadline(); ok {
		if remaining := time.Until(dl); remaining < deadline {
			deadline = remaining
		}
	}

	waitDone := make(chan error, 1)
	go func() { waitDone <- eg.Wait() }()

	select {
	case <-waitDone:
	case <-time.After(deadline):
		o.log.Warn("stop deadline exceeded with agents still in flight")
	}

	close(done)

	if o.mem != nil {
		if err := o.mem.Stop(); err != nil {
			o.log.Warn("final memory flush failed: %v", err)
		}
	}

	o.mu.Lock()
	o.state = stateStopped
	o.mu.Unlock()

	o.bus.emitStopped(StoppedEvent{})
	return nil
}

// AddTask validates and enqueues a new task, then wakes the scheduler.
// Refuses if the orchestrator is not running.
func (o *Orchestrator) AddTask(description string, mode types.Mode, priority types.Priority, deps []string, files []types.AttachedFile) (*types.Task, error) {
	o.mu.Lock()
	running := o.state == stateRunning
	o.mu.Unlock()
	if !running {
		return nil, &validate.ValidationError{Reason: "orchestrator is not running"}
	}

	if err := validate.Submission(description, mode); err != nil {
		return nil, err
	}

	t := task.New(description, mode, priority, deps)
	t.Files = files
	o.queue.Add(t)

	o.bus.emitTaskAdded(TaskAddedEvent{Task: t})
	o.wake()
	return t, nil
}

// GetStatus returns a point-in-time snapshot of the orchestrator.
func (o *Orchestrator) GetStatus() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{
		State:        string(o.state),
		PendingTasks: o.queue.Size(),
		ActiveAgents: len(o.active),
		MaxAgents:    o.maxAgents,
	}
}

// wake schedules a scheduler tick without blocking; redundant wakes while
// one is already pending collapse into one tick.
func (o *Orchestrator) wake() {
	select {
	case o.tick <- struct{}{}:
	default:
	}
}

// loop is the single-threaded scheduler: it only does work in response
// to a tick, never on a polling timer.
func (o *Orchestrator) loop() {
	graceTicker := time.NewTicker(o.agentGrace / 2)
	defer graceTicker.Stop()

	for {
		select {
		case <-o.ctx.Done():
			return
		case <-o.tick:
			o.dispatchReady()
		case result := <-o.results:
			o.handleResult(result)
			o.wake()
		case <-graceTicker.C:
			o.pruneExpired()
		}
	}
}

// dispatchReady spawns agents for every eligible pending task while
// under the concurrency ceiling.
func (o *Orchestrator) dispatchReady() {
	for {
		o.mu.Lock()
		if len(o.active) >= o.maxAgents {
			o.mu.Unlock()
			return
		}
		o.mu.Unlock()

		t := o.queue.GetNext()
		if t == nil {
			return
		}
		o.spawn(t)
	}
}

// spawn starts one agent's one-shot execution in its own goroutine,
// tracked by the drain errgroup.
func (o *Orchestrator) spawn(t *types.Task) {
	record := &types.Agent{
		ID:        fmt.Sprintf("agent-%s", t.ID),
		TaskID:    t.ID,
		Mode:      t.Mode,
		Status:    types.AgentRunning,
		StartedAt: time.Now().UTC(),
	}

	o.mu.Lock()
	o.active[record.ID] = record
	o.mu.Unlock()

	o.bus.emitAgentSpawned(AgentSpawnedEvent{Agent: record})

	a := agent.New(record, t, o.llm, o.mem, o.prompts, o.tools)

	o.eg.Go(func() error {
		result := a.Run(o.ctx)
		select {
		case o.results <- result:
		case <-o.ctx.Done():
		}
		return nil
	})
}

// handleResult applies one agent's terminal outcome to its record and
// the originating task, then emits the matching events.
func (o *Orchestrator) handleResult(result agent.Result) {
	now := time.Now().UTC()

	o.mu.Lock()
	record, ok := o.active[result.AgentID]
	o.mu.Unlock()
	if !ok {
		return
	}

	if result.Err != nil {
		record.Status = types.AgentFailed
		record.Error = result.Err.Error()
		o.queue.MarkFailed(result.TaskID, result.Err.Error())
	} else {
		record.Status = types.AgentCompleted
		record.Result = result.Output
		o.queue.MarkCompleted(result.TaskID, result.Output)
	}
	record.CompletedAt = &now

	if result.Err != nil {
		o.bus.emitAgentFailed(AgentFailedEvent{Agent: record, Err: result.Err})
		return
	}

	o.bus.emitAgentCompleted(AgentCompletedEvent{Agent: record, Output: result.Output})
	if t, ok := o.queue.GetByID(result.TaskID); ok {
		o.bus.emitTaskCompleted(TaskCompletedEvent{Task: t})
	}
}

// pruneExpired removes terminal agent records older than the grace
// window. This is the only periodic sweep in the orchestrator; it never
// drives task dispatch.
func (o *Orchestrator) pruneExpired() {
	cutoff := time.Now().Add(-o.agentGrace)
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, rec := range o.active {
		if rec.Status.IsTerminal() && rec.CompletedAt != nil && rec.CompletedAt.Before(cutoff) {
			delete(o.active, id)
		}
	}
}
