// Package mock provides a test double for the stt.Provider interface.
//
// Use Provider to feed a controlled Transcript to the pipeline and to verify
// which audio bytes and language hint were submitted.
//
// Example:
//
//	p := &mock.Provider{Result: &types.Transcript{Text: "hello world"}}
//	tr, _ := p.Transcribe(ctx, stt.Request{Audio: data, Language: "en"})
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/harmonizer/pkg/provider/stt"
	"github.com/MrWong99/harmonizer/pkg/types"
)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Req is the Request passed to Transcribe. Audio is a private copy.
	Req stt.Request
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Result is returned by Transcribe. If nil, an empty Transcript is returned.
	Result *types.Transcript

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// TranscribeCalls records every call to Transcribe in order.
	TranscribeCalls []TranscribeCall
}

// Transcribe records the call and returns Result, Err.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (*types.Transcript, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := req
	cp.Audio = append([]byte(nil), req.Audio...)
	p.TranscribeCalls = append(p.TranscribeCalls, TranscribeCall{Ctx: ctx, Req: cp})
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Result == nil {
		return &types.Transcript{}, nil
	}
	out := *p.Result
	return &out, nil
}

// CallCount returns the number of Transcribe calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.TranscribeCalls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = nil
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
