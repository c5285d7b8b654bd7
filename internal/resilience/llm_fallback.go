package resilience

import (
	"context"
	"errors"

	"github.com/MrWong99/harmonizer/pkg/provider/llm"
	"github.com/MrWong99/harmonizer/pkg/types"
)

var errEmptyCompletion = errors.New("empty completion")

// LLMFallback implements [llm.Provider] with automatic failover across multiple
// LLM backends. Each backend has its own circuit breaker; when the primary fails
// or its breaker is open, the next fallback is tried.
type LLMFallback struct {
	group *FallbackGroup[llm.Provider]
}

// Compile-time interface assertion.
var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] with primary as the preferred backend.
func NewLLMFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *LLMFallback {
	return &LLMFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional LLM provider as a fallback.
func (f *LLMFallback) AddFallback(name string, provider llm.Provider) {
	f.group.AddFallback(name, provider)
}

// Names returns the backend names in failover order.
func (f *LLMFallback) Names() []string { return f.group.Names() }

// States returns the breaker state of each backend.
func (f *LLMFallback) States() map[string]State { return f.group.States() }

// Complete sends the request to the first healthy provider and returns its
// response. A response without any text counts as a failure so the next
// backend gets a chance.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return ExecuteWithResult(ctx, f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		resp, err := p.Complete(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp == nil || resp.Content == "" {
			return nil, errEmptyCompletion
		}
		return resp, nil
	})
}

// StreamCompletion opens a stream on the first healthy provider. A backend
// that reports its failure as the first chunk (FinishReason
// [llm.FinishReasonError]) or closes the stream without any chunk counts as
// failed, so the next backend is tried. Errors after the first chunk reach
// the caller unchanged.
func (f *LLMFallback) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.Chunk, error) {
	return ExecuteWithResult(ctx, f.group, func(p llm.Provider) (<-chan llm.Chunk, error) {
		ch, err := p.StreamCompletion(ctx, req)
		if err != nil {
			return nil, err
		}
		var first llm.Chunk
		var ok bool
		select {
		case first, ok = <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if !ok {
			return nil, errEmptyCompletion
		}
		if first.FinishReason == llm.FinishReasonError {
			return nil, &streamError{msg: first.Text}
		}
		return prepend(ctx, first, ch), nil
	})
}

// streamError is a failure a backend delivered through its chunk channel.
type streamError struct{ msg string }

func (e *streamError) Error() string { return "stream: " + e.msg }

// prepend re-emits first followed by the rest of rest.
func prepend(ctx context.Context, first llm.Chunk, rest <-chan llm.Chunk) <-chan llm.Chunk {
	out := make(chan llm.Chunk, cap(rest)+1)
	go func() {
		defer close(out)
		out <- first
		for c := range rest {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Capabilities returns the capabilities of the primary. It does not take part
// in failover because capabilities are static metadata.
func (f *LLMFallback) Capabilities() types.ModelCapabilities {
	return f.group.Primary().Capabilities()
}
