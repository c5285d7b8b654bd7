package resilience

import (
	"context"

	"github.com/MrWong99/harmonizer/pkg/provider/stt"
	"github.com/MrWong99/harmonizer/pkg/types"
)

// STTFallback implements [stt.Provider] with automatic failover across multiple
// STT backends. Each backend has its own circuit breaker.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

// Compile-time interface assertion.
var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional STT provider as a fallback.
func (f *STTFallback) AddFallback(name string, provider stt.Provider) {
	f.group.AddFallback(name, provider)
}

// Names returns the backend names in failover order.
func (f *STTFallback) Names() []string { return f.group.Names() }

// States returns the breaker state of each backend.
func (f *STTFallback) States() map[string]State { return f.group.States() }

// Transcribe sends the sample to the first healthy backend. The same request,
// audio bytes included, is replayed against each fallback.
func (f *STTFallback) Transcribe(ctx context.Context, req stt.Request) (*types.Transcript, error) {
	return ExecuteWithResult(ctx, f.group, func(p stt.Provider) (*types.Transcript, error) {
		return p.Transcribe(ctx, req)
	})
}
