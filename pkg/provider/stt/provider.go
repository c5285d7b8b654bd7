// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider wraps a transcription service (e.g., Deepgram, the OpenAI
// transcription API, or a local whisper.cpp server) and exposes a uniform batch
// interface: one recorded sample in, one Transcript out. Streaming recognition
// is deliberately not part of this interface.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"

	"github.com/MrWong99/harmonizer/pkg/types"
)

// Request describes a single recorded sample to transcribe.
type Request struct {
	// Audio is the encoded audio file content (e.g., MP3 or WAV bytes). It is
	// forwarded to the provider verbatim; no decoding happens client-side.
	Audio []byte

	// Filename is the base name of the source file. Providers that upload
	// multipart forms use it as the form file name.
	Filename string

	// ContentType is the MIME type of Audio (e.g., "audio/mpeg"). An empty
	// string lets the provider fall back to "application/octet-stream".
	ContentType string

	// Language is the ISO-639-1 language hint for recognition (e.g., "en",
	// "es"). An empty string uses the provider default.
	Language string
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe sends req to the backend and blocks until the transcript is
	// available or ctx is cancelled.
	//
	// Returns an error if the request cannot be sent, the backend rejects it
	// (e.g., authentication failure), or the response cannot be parsed. An
	// empty transcript with a nil error means the backend heard no speech.
	Transcribe(ctx context.Context, req Request) (*types.Transcript, error)
}
