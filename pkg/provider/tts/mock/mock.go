// Package mock provides a test double for the tts.Provider interface.
//
// Example:
//
//	p := &mock.Provider{
//	    Audio:            []byte("ID3..."),
//	    ListVoicesResult: []types.VoiceProfile{{ID: "v1", Name: "Alice"}},
//	}
//	rc, _ := p.Synthesize(ctx, "hello", voice)
package mock

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/MrWong99/harmonizer/pkg/provider/tts"
	"github.com/MrWong99/harmonizer/pkg/types"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	Ctx   context.Context
	Text  string
	Voice types.VoiceProfile
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// Audio is the content of the stream returned by Synthesize.
	Audio []byte

	// SynthesizeErr, if non-nil, is returned from Synthesize.
	SynthesizeErr error

	// ReadErr, if non-nil, is returned by the stream after Audio is consumed,
	// simulating a mid-stream failure.
	ReadErr error

	// ListVoicesResult is returned by ListVoices.
	ListVoicesResult []types.VoiceProfile

	// ListVoicesErr, if non-nil, is returned from ListVoices.
	ListVoicesErr error

	SynthesizeCalls []SynthesizeCall
	ListVoicesCalls int
}

// Synthesize records the call and returns a reader over Audio.
func (p *Provider) Synthesize(ctx context.Context, text string, voice types.VoiceProfile) (io.ReadCloser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Ctx: ctx, Text: text, Voice: voice})
	if p.SynthesizeErr != nil {
		return nil, p.SynthesizeErr
	}
	var r io.Reader = bytes.NewReader(bytes.Clone(p.Audio))
	if p.ReadErr != nil {
		r = io.MultiReader(r, errReader{p.ReadErr})
	}
	return io.NopCloser(r), nil
}

// ListVoices records the call and returns ListVoicesResult, ListVoicesErr.
func (p *Provider) ListVoices(_ context.Context) ([]types.VoiceProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ListVoicesCalls++
	return p.ListVoicesResult, p.ListVoicesErr
}

// CallCount returns the number of Synthesize calls.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.SynthesizeCalls)
}

// Reset clears all recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = nil
	p.ListVoicesCalls = 0
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

var _ tts.Provider = (*Provider)(nil)
