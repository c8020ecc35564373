package orchestrator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuken/overseer/internal/agent"
	"github.com/cuken/overseer/internal/memory"
	"github.com/cuken/overseer/internal/task"
	"github.com/cuken/overseer/pkg/types"
)

type fakeLLM struct {
	output string
}

func (f *fakeLLM) Execute(ctx context.Context, prompt string, mode types.Mode) (string, error) {
	return f.output, nil
}

func (f *fakeLLM) ExecuteMultimodal(ctx context.Context, prompt string, files []types.AttachedFile, mode types.Mode) (string, error) {
	return f.output, nil
}

var _ agent.Executor = (*fakeLLM)(nil)

type failingLLM struct {
	err error
}

func (f *failingLLM) Execute(ctx context.Context, prompt string, mode types.Mode) (string, error) {
	return "", f.err
}

func (f *failingLLM) ExecuteMultimodal(ctx context.Context, prompt string, files []types.AttachedFile, mode types.Mode) (string, error) {
	return "", f.err
}

var _ agent.Executor = (*failingLLM)(nil)

func newTestOrchestrator(t *testing.T, maxAgents int) *Orchestrator {
	t.Helper()
	mem := memory.New(filepath.Join(t.TempDir(), "memory.json"), time.Hour, 1000, 0)
	q := task.NewQueue(nil)
	return New(Config{
		Queue:        q,
		Memory:       mem,
		LLM:          &fakeLLM{output: "done"},
		MaxAgents:    maxAgents,
		StopDeadline: 2 * time.Second,
		AgentGrace:   time.Minute,
	})
}

func TestOrchestrator_AddTaskDispatchesAndCompletes(t *testing.T) {
	o := newTestOrchestrator(t, 2)

	var completed []string
	done := make(chan struct{}, 1)
	o.Events().OnTaskCompleted(func(e TaskCompletedEvent) {
		completed = append(completed, e.Task.ID)
		done <- struct{}{}
	})

	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	added, err := o.AddTask("say hi", types.ModeAsk, types.PriorityMedium, nil, nil)
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for task completion")
	}

	if len(completed) != 1 || completed[0] != added.ID {
		t.Fatalf("expected task %s to complete, got %v", added.ID, completed)
	}

	if err := o.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestOrchestrator_FailedAgentEmitsNoTaskCompletedEvent(t *testing.T) {
	mem := memory.New(filepath.Join(t.TempDir(), "memory.json"), time.Hour, 1000, 0)
	q := task.NewQueue(nil)
	o := New(Config{
		Queue:        q,
		Memory:       mem,
		LLM:          &failingLLM{err: context.DeadlineExceeded},
		MaxAgents:    2,
		StopDeadline: 2 * time.Second,
		AgentGrace:   time.Minute,
	})

	var taskCompleted bool
	agentFailed := make(chan struct{}, 1)
	o.Events().OnTaskCompleted(func(e TaskCompletedEvent) {
		taskCompleted = true
	})
	o.Events().OnAgentFailed(func(e AgentFailedEvent) {
		agentFailed <- struct{}{}
	})

	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := o.AddTask("say hi", types.ModeAsk, types.PriorityMedium, nil, nil); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	select {
	case <-agentFailed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for agent failure")
	}

	if taskCompleted {
		t.Errorf("expected no TaskCompletedEvent on agent failure")
	}

	if err := o.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestOrchestrator_RejectsInvalidSubmission(t *testing.T) {
	o := newTestOrchestrator(t, 2)
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer o.Stop(context.Background())

	if _, err := o.AddTask("", types.ModeAsk, types.PriorityMedium, nil, nil); err == nil {
		t.Errorf("expected validation error for empty description")
	}
	if _, err := o.AddTask("hello", types.Mode("bogus"), types.PriorityMedium, nil, nil); err == nil {
		t.Errorf("expected validation error for unknown mode")
	}
}

func TestOrchestrator_StartFailsWhenAlreadyRunning(t *testing.T) {
	o := newTestOrchestrator(t, 2)
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer o.Stop(context.Background())

	if err := o.Start(context.Background()); err != ErrAlreadyRunning {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestOrchestrator_AddTaskRejectedWhileNotRunning(t *testing.T) {
	o := newTestOrchestrator(t, 2)

	if _, err := o.AddTask("say hi", types.ModeAsk, types.PriorityMedium, nil, nil); err == nil {
		t.Fatalf("expected AddTask to be refused before Start")
	}

	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := o.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if _, err := o.AddTask("say hi", types.ModeAsk, types.PriorityMedium, nil, nil); err == nil {
		t.Fatalf("expected AddTask to be refused after Stop")
	}
}

func TestOrchestrator_StopIsIdempotent(t *testing.T) {
	o := newTestOrchestrator(t, 2)
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := o.Stop(context.Background()); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := o.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop should be a no-op, got: %v", err)
	}
}

func TestOrchestrator_GetStatusReportsPendingAndActive(t *testing.T) {
	o := newTestOrchestrator(t, 1)
	status := o.GetStatus()
	if status.State != "stopped" {
		t.Errorf("expected stopped before Start, got %s", status.State)
	}
	if status.MaxAgents != 1 {
		t.Errorf("expected max agents 1, got %d", status.MaxAgents)
	}
	if status.PendingTasks != 0 {
		t.Errorf("expected 0 pending tasks before any submission, got %d", status.PendingTasks)
	}
	if status.ActiveAgents != 0 {
		t.Errorf("expected 0 active agents before Start, got %d", status.ActiveAgents)
	}
}
