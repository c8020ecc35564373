// Package llmadapter is the narrow façade the rest of the module uses to
// talk to the hosted LLM backend. It is the only package that imports the
// vendor SDK directly. Execute, ExecuteMultimodal and StreamExecute route
// through the rate limiter first; CheckHealth calls the backend directly.
package llmadapter

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/cuken/overseer/internal/logger"
	"github.com/cuken/overseer/internal/ratelimit"
	"github.com/cuken/overseer/pkg/types"
)

// LLMExecutionError wraps a failed Execute/ExecuteMultimodal call.
type LLMExecutionError struct {
	Mode types.Mode
	Err  error
}

func (e *LLMExecutionError) Error() string {
	return fmt.Sprintf("llm execution failed for mode %s: %s", e.Mode, logger.Redact(e.Err.Error()))
}

func (e *LLMExecutionError) Unwrap() error { return e.Err }

// LLMStreamError wraps a failure delivered on a StreamExecute error
// channel.
type LLMStreamError struct {
	Mode types.Mode
	Err  error
}

func (e *LLMStreamError) Error() string {
	return fmt.Sprintf("llm stream failed for mode %s: %s", e.Mode, logger.Redact(e.Err.Error()))
}

func (e *LLMStreamError) Unwrap() error { return e.Err }

// StreamChunk is one incremental piece of a streamed response.
type StreamChunk struct {
	Text string
	Done bool
}

// Adapter is the façade used by the rest of the module.
type Adapter struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	limiter   *ratelimit.CompositeLimiter
}

// Config configures a direct (non-Bedrock) Adapter.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
	RateLimit types.RateLimitConfig
}

// New builds an Adapter that talks to the Anthropic API directly.
func New(cfg Config) (*Adapter, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no Anthropic API key configured")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return newAdapter(client, cfg.Model, cfg.MaxTokens, cfg.RateLimit), nil
}

func newAdapter(client anthropic.Client, model string, maxTokens int, rl types.RateLimitConfig) *Adapter {
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_5)
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	defaults := types.DefaultConfig().RateLimit
	perMinute := ratelimit.NewLimiter("per-minute", orDefault(rl.PerMinute, defaults.PerMinute), minuteWindow)
	perDay := ratelimit.NewLimiter("per-day", orDefault(rl.PerDay, defaults.PerDay), dayWindow)
	limiter := ratelimit.NewCompositeLimiter(
		orDefault(rl.MaxRetries, defaults.MaxRetries),
		msOrDefault(rl.RetryDelayMs, defaults.RetryDelayMs),
		perMinute, perDay,
	)

	return &Adapter{
		client:    client,
		model:     anthropic.Model(model),
		maxTokens: int64(maxTokens),
		limiter:   limiter,
	}
}

// Execute runs a single-turn prompt under mode's fixed temperature and
// returns the model's text response.
func (a *Adapter) Execute(ctx context.Context, prompt string, mode types.Mode) (string, error) {
	result, err := a.limiter.Execute(ctx, func() (string, error) {
		return a.call(ctx, prompt, mode, nil)
	})
	if err != nil {
		return "", &LLMExecutionError{Mode: mode, Err: err}
	}
	return result, nil
}

// ExecuteMultimodal is Execute plus file attachments, each turned into an
// image or document content block.
func (a *Adapter) ExecuteMultimodal(ctx context.Context, prompt string, files []types.AttachedFile, mode types.Mode) (string, error) {
	const maxFileBytes = 10 * 1024 * 1024
	for _, f := range files {
		if len(f.Data) > maxFileBytes {
			return "", &LLMExecutionError{Mode: mode, Err: fmt.Errorf("attachment %q exceeds 10MiB limit", f.Name)}
		}
	}

	result, err := a.limiter.Execute(ctx, func() (string, error) {
		return a.call(ctx, prompt, mode, files)
	})
	if err != nil {
		return "", &LLMExecutionError{Mode: mode, Err: err}
	}
	return result, nil
}

func (a *Adapter) call(ctx context.Context, prompt string, mode types.Mode, files []types.AttachedFile) (string, error) {
	blocks := []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(prompt)}
	for _, f := range files {
		if strings.HasPrefix(f.MimeType, "image/") {
			blocks = append(blocks, anthropic.NewImageBlockBase64(f.MimeType, encodeBase64(f.Data)))
		} else {
			blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{
				Data: encodeBase64(f.Data),
			}))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: anthropic.Float(mode.Temperature()),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String(), nil
}

// CheckHealth runs a minimal round trip and reports success as a bool; it
// never returns an error to the caller.
func (a *Adapter) CheckHealth(ctx context.Context) bool {
	_, err := a.call(ctx, "ping", types.ModeAsk, nil)
	return err == nil
}

// RateLimitStatus reports occupancy for every composed window.
func (a *Adapter) RateLimitStatus() []ratelimit.WindowStatus {
	return a.limiter.Status()
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
