package resilience

import (
	"bufio"
	"context"
	"errors"
	"io"

	"github.com/MrWong99/harmonizer/pkg/provider/tts"
	"github.com/MrWong99/harmonizer/pkg/types"
)

// TTSFallback implements [tts.Provider] with automatic failover across multiple
// TTS backends. Each backend has its own circuit breaker.
//
// Voice IDs are provider specific; a fallback receives the same
// [types.VoiceProfile] and is expected to map or ignore unknown IDs.
type TTSFallback struct {
	group *FallbackGroup[tts.Provider]
}

// Compile-time interface assertion.
var _ tts.Provider = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred backend.
func NewTTSFallback(primary tts.Provider, primaryName string, cfg FallbackConfig) *TTSFallback {
	return &TTSFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional TTS provider as a fallback.
func (f *TTSFallback) AddFallback(name string, provider tts.Provider) {
	f.group.AddFallback(name, provider)
}

// Names returns the backend names in failover order.
func (f *TTSFallback) Names() []string { return f.group.Names() }

// States returns the breaker state of each backend.
func (f *TTSFallback) States() map[string]State { return f.group.States() }

// Synthesize starts synthesis on the first healthy provider. A backend counts
// as successful once it has produced its first audio bytes, so failures that
// only surface on the first read (a rejected key reported after a websocket
// handshake, an empty stream) fail over too. Read errors after that are the
// caller's responsibility.
func (f *TTSFallback) Synthesize(ctx context.Context, text string, voice types.VoiceProfile) (io.ReadCloser, error) {
	return ExecuteWithResult(ctx, f.group, func(p tts.Provider) (io.ReadCloser, error) {
		rc, err := p.Synthesize(ctx, text, voice)
		if err != nil {
			return nil, err
		}
		br := bufio.NewReader(rc)
		if _, err := br.Peek(1); err != nil {
			_ = rc.Close()
			if errors.Is(err, io.EOF) {
				return nil, errEmptyAudio
			}
			return nil, err
		}
		return peekedStream{Reader: br, Closer: rc}, nil
	})
}

var errEmptyAudio = errors.New("empty audio stream")

// peekedStream reads through the buffered reader and closes the original
// stream.
type peekedStream struct {
	io.Reader
	io.Closer
}

// ListVoices returns the voices of the first healthy provider.
func (f *TTSFallback) ListVoices(ctx context.Context) ([]types.VoiceProfile, error) {
	return ExecuteWithResult(ctx, f.group, func(p tts.Provider) ([]types.VoiceProfile, error) {
		return p.ListVoices(ctx)
	})
}
