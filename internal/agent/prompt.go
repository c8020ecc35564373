// Package agent implements the ephemeral, one-shot execution of a single
// task: build a prompt, call the LLM adapter, write the result to memory.
package agent

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/cuken/overseer/pkg/types"
)

// PromptBuilder assembles the system-plus-context-plus-task prompt handed
// to the LLM adapter. It owns assembly mechanics only — mode-specific
// voice and phrasing are templated per mode elsewhere by whoever
// registers templates, not hardcoded here.
type PromptBuilder struct {
	templates map[types.Mode]*template.Template
	fallback  *template.Template
}

// PromptData is everything a task prompt template needs.
type PromptData struct {
	Task    *types.Task
	Context []types.ContextItem
	Tools   []ToolInfo
}

// ToolInfo describes one MCP tool available to the agent, for inclusion
// in the prompt when MCP tool execution is wired in.
type ToolInfo struct {
	Name        string
	Description string
	Parameters  string
}

// NewPromptBuilder creates a builder with one default template shared by
// every mode, plus room to register mode-specific overrides.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{
		templates: make(map[types.Mode]*template.Template),
		fallback:  template.Must(template.New("default").Parse(defaultPromptTemplate)),
	}
}

// RegisterTemplate overrides the prompt template used for a specific
// mode.
func (pb *PromptBuilder) RegisterTemplate(mode types.Mode, body string) error {
	tmpl, err := template.New(string(mode)).Parse(body)
	if err != nil {
		return fmt.Errorf("parse template for mode %s: %w", mode, err)
	}
	pb.templates[mode] = tmpl
	return nil
}

// Build renders the prompt for data.Task's mode.
func (pb *PromptBuilder) Build(data PromptData) (string, error) {
	tmpl, ok := pb.templates[data.Task.Mode]
	if !ok {
		tmpl = pb.fallback
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

const defaultPromptTemplate = `You are operating in "{{.Task.Mode}}" mode.

## Relevant prior context
{{range .Context}}
- [{{.Type}}] {{.Summary}}
{{end}}
{{if .Tools}}
## Available tools
{{range .Tools}}
- {{.Name}}: {{.Description}}
{{end}}
{{end}}
## Task
{{.Task.Description}}
`
