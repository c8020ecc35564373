package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cuken/overseer/internal/logger"
	"github.com/cuken/overseer/internal/memory"
	"github.com/cuken/overseer/pkg/types"
)

// ToolExecutor runs one MCP tool call and reports its result, and lists
// the tools currently available. Agents that are not in mcp mode, or
// that were built with a nil ToolExecutor, never call either method.
type ToolExecutor interface {
	Execute(ctx context.Context, call types.ToolCall) types.ToolResult
	AvailableTools() []ToolInfo
}

// Executor is a narrow interface over the LLM adapter, satisfied by
// *llmadapter.Adapter, kept here so agent doesn't need to import the
// adapter package's full surface (and so tests can fake it).
type Executor interface {
	Execute(ctx context.Context, prompt string, mode types.Mode) (string, error)
	ExecuteMultimodal(ctx context.Context, prompt string, files []types.AttachedFile, mode types.Mode) (string, error)
}

// Result is what Run reports back to its caller. Agents never call back
// into orchestrator state directly — they only return this.
type Result struct {
	AgentID string
	TaskID  string
	Output  string
	Err     error
}

// Agent is the ephemeral value that executes exactly one task.
type Agent struct {
	record  *types.Agent
	task    *types.Task
	llm     Executor
	mem     *memory.Store
	prompts *PromptBuilder
	tools   ToolExecutor
	log     *logger.Logger
}

// New builds an Agent bound to one task. tools may be nil.
func New(record *types.Agent, task *types.Task, llm Executor, mem *memory.Store, prompts *PromptBuilder, tools ToolExecutor) *Agent {
	return &Agent{
		record:  record,
		task:    task,
		llm:     llm,
		mem:     mem,
		prompts: prompts,
		tools:   tools,
		log:     logger.New("Agent-"+record.ID, ""),
	}
}

// Run executes the bound task exactly once: assemble prompt, call the
// LLM, optionally run one round of MCP tool calls, write the result to
// memory, and return.
func (a *Agent) Run(ctx context.Context) Result {
	data := PromptData{
		Task:    a.task,
		Context: a.mem.GetContext(a.task.Mode),
	}
	if a.tools != nil && a.task.Mode == types.ModeMCP {
		data.Tools = a.tools.AvailableTools()
	}
	prompt, err := a.prompts.Build(data)
	if err != nil {
		return a.fail(err)
	}

	output, err := a.call(ctx, prompt)
	if err != nil {
		return a.fail(err)
	}

	if a.tools != nil && a.task.Mode == types.ModeMCP {
		if calls := parseToolCalls(output); len(calls) > 0 {
			output, err = a.runToolRound(ctx, prompt, output, calls)
			if err != nil {
				return a.fail(err)
			}
		}
	}

	a.remember("result", output, "completed")
	return Result{AgentID: a.record.ID, TaskID: a.task.ID, Output: output}
}

func (a *Agent) call(ctx context.Context, prompt string) (string, error) {
	if len(a.task.Files) > 0 {
		return a.llm.ExecuteMultimodal(ctx, prompt, a.task.Files, a.task.Mode)
	}
	return a.llm.Execute(ctx, prompt, a.task.Mode)
}

func (a *Agent) runToolRound(ctx context.Context, prompt, firstResponse string, calls []types.ToolCall) (string, error) {
	var results []types.ToolResult
	for _, call := range calls {
		results = append(results, a.tools.Execute(ctx, call))
	}

	var sb strings.Builder
	sb.WriteString(prompt)
	sb.WriteString("\n\n## Tool results\n")
	for _, r := range results {
		if r.Success {
			fmt.Fprintf(&sb, "- %s: %s\n", r.CallID, r.Output)
		} else {
			fmt.Fprintf(&sb, "- %s: error: %s\n", r.CallID, r.Error)
		}
	}
	sb.WriteString("\nProduce your final answer now.\n")

	return a.llm.Execute(ctx, sb.String(), a.task.Mode)
}

func (a *Agent) remember(entryType, text, status string) {
	a.mem.Store(a.record.ID, types.MemoryEntry{
		Mode:    a.task.Mode,
		Type:    entryType,
		Content: types.Content{Text: &text},
		Tags:    []string{string(a.task.Mode), status},
	})
}

func (a *Agent) fail(err error) Result {
	a.remember("error", err.Error(), "failed")
	return Result{AgentID: a.record.ID, TaskID: a.task.ID, Err: err}
}

var toolCallsPattern = regexp.MustCompile(`(?s)<tool_calls>\s*(.*?)\s*</tool_calls>`)

// parseToolCalls extracts zero or more tool calls from a model response,
// accepting either a single JSON object or a JSON array inside the
// <tool_calls> tag. Malformed content yields no calls rather than an
// error: a one-shot agent has no retry loop to recover into.
func parseToolCalls(content string) []types.ToolCall {
	match := toolCallsPattern.FindStringSubmatch(content)
	if match == nil {
		return nil
	}
	body := strings.TrimSpace(match[1])

	var calls []types.ToolCall
	if strings.HasPrefix(body, "[") {
		if err := json.Unmarshal([]byte(body), &calls); err != nil {
			return nil
		}
	} else {
		var single types.ToolCall
		if err := json.Unmarshal([]byte(body), &single); err != nil {
			return nil
		}
		calls = []types.ToolCall{single}
	}

	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = fmt.Sprintf("call-%d-%d", time.Now().UnixNano(), i)
		}
	}
	return calls
}
