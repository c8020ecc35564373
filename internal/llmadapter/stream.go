package llmadapter

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/cuken/overseer/pkg/types"
)

// StreamExecute runs a single-turn prompt and delivers the response
// incrementally. The returned channels are single-consumer and not
// restartable: once the first is closed the stream is over, and any
// terminal error is sent on the second channel before that close.
func (a *Adapter) StreamExecute(ctx context.Context, prompt string, mode types.Mode) (<-chan StreamChunk, <-chan error) {
	chunks := make(chan StreamChunk)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		if err := a.limiter.CheckAndRegister(ctx); err != nil {
			errs <- &LLMStreamError{Mode: mode, Err: err}
			return
		}

		params := anthropic.MessageNewParams{
			Model:       a.model,
			MaxTokens:   a.maxTokens,
			Temperature: anthropic.Float(mode.Temperature()),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		}

		stream := a.client.Messages.NewStreaming(ctx, params)
		for stream.Next() {
			event := stream.Current()
			delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			text, ok := delta.Delta.AsAny().(anthropic.TextDelta)
			if !ok {
				continue
			}
			select {
			case chunks <- StreamChunk{Text: text.Text}:
			case <-ctx.Done():
				errs <- &LLMStreamError{Mode: mode, Err: ctx.Err()}
				return
			}
		}
		if err := stream.Err(); err != nil {
			errs <- &LLMStreamError{Mode: mode, Err: err}
			return
		}
		chunks <- StreamChunk{Done: true}
	}()

	return chunks, errs
}
