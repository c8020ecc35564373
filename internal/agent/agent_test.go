package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cuken/overseer/internal/memory"
	"github.com/cuken/overseer/pkg/types"
)

type fakeExecutor struct {
	output string
	err    error
	calls  int
}

func (f *fakeExecutor) Execute(ctx context.Context, prompt string, mode types.Mode) (string, error) {
	f.calls++
	return f.output, f.err
}

func (f *fakeExecutor) ExecuteMultimodal(ctx context.Context, prompt string, files []types.AttachedFile, mode types.Mode) (string, error) {
	f.calls++
	return f.output, f.err
}

type fakeTools struct {
	result types.ToolResult
}

func (f *fakeTools) Execute(ctx context.Context, call types.ToolCall) types.ToolResult {
	return f.result
}

func (f *fakeTools) AvailableTools() []ToolInfo {
	return []ToolInfo{{Name: "echo", Description: "echoes input"}}
}

func newTestMem(t *testing.T) *memory.Store {
	t.Helper()
	m := memory.New(t.TempDir()+"/memory.json", time.Hour, 1000, 0)
	return m
}

func TestAgent_RunReturnsOutputAndWritesMemory(t *testing.T) {
	task := &types.Task{ID: "t1", Mode: types.ModeAsk, Description: "hi"}
	record := &types.Agent{ID: "a1", TaskID: task.ID, Mode: task.Mode}
	exec := &fakeExecutor{output: "hello there"}
	mem := newTestMem(t)

	a := New(record, task, exec, mem, NewPromptBuilder(), nil)
	result := a.Run(context.Background())

	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.Output != "hello there" {
		t.Errorf("expected output passthrough, got %q", result.Output)
	}
	if len(mem.Search("hello")) != 1 {
		t.Errorf("expected result to be written to memory")
	}
}

func TestAgent_RunSurfacesLLMFailure(t *testing.T) {
	task := &types.Task{ID: "t1", Mode: types.ModeAsk, Description: "hi"}
	record := &types.Agent{ID: "a1", TaskID: task.ID, Mode: task.Mode}
	exec := &fakeExecutor{err: errors.New("boom")}
	mem := newTestMem(t)

	a := New(record, task, exec, mem, NewPromptBuilder(), nil)
	result := a.Run(context.Background())

	if result.Err == nil {
		t.Fatalf("expected error to propagate")
	}
}

func TestParseToolCalls_SingleObject(t *testing.T) {
	content := `<tool_calls>{"name": "list_directory", "arguments": {"path": "/foo"}}</tool_calls>`
	calls := parseToolCalls(content)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Name != "list_directory" {
		t.Errorf("unexpected name %q", calls[0].Name)
	}
	if calls[0].ID == "" {
		t.Errorf("expected auto-generated id")
	}
}

func TestParseToolCalls_Array(t *testing.T) {
	content := `<tool_calls>[{"name": "a"}, {"name": "b"}]</tool_calls>`
	calls := parseToolCalls(content)
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
}

func TestParseToolCalls_NoTagReturnsNil(t *testing.T) {
	if calls := parseToolCalls("just text"); calls != nil {
		t.Errorf("expected nil, got %v", calls)
	}
}

func TestAgent_MCPModeRunsToolRound(t *testing.T) {
	task := &types.Task{ID: "t1", Mode: types.ModeMCP, Description: "do it"}
	record := &types.Agent{ID: "a1", TaskID: task.ID, Mode: task.Mode}
	exec := &fakeExecutor{output: `<tool_calls>{"name": "echo"}</tool_calls>`}
	mem := newTestMem(t)
	tools := &fakeTools{result: types.ToolResult{CallID: "call-1", Success: true, Output: "ok"}}

	a := New(record, task, exec, mem, NewPromptBuilder(), tools)
	result := a.Run(context.Background())

	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if exec.calls != 2 {
		t.Errorf("expected one initial call and one follow-up call, got %d", exec.calls)
	}
}
