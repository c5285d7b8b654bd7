// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., ElevenLabs or the
// OpenAI speech endpoint) and presents a uniform interface: one piece of text
// and a voice in, an encoded audio stream out. The stream is returned as soon
// as the backend starts producing audio so callers can copy it to disk while
// synthesis is still running.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"io"

	"github.com/MrWong99/harmonizer/pkg/types"
)

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize converts text to speech using voice and returns the encoded
	// audio (e.g., MP3) as a stream. The caller must Close the returned reader.
	//
	// Returns a non-nil error only if synthesis cannot be started. Failures
	// after that point surface as a non-EOF error from Read.
	Synthesize(ctx context.Context, text string, voice types.VoiceProfile) (io.ReadCloser, error)

	// ListVoices returns all voice profiles available from this provider.
	ListVoices(ctx context.Context) ([]types.VoiceProfile, error)
}
