// Package openai provides an STT provider backed by the OpenAI audio
// transcription API (whisper-1, gpt-4o-transcribe, ...).
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/harmonizer/pkg/provider/stt"
	"github.com/MrWong99/harmonizer/pkg/types"
)

const (
	defaultModel    = "whisper-1"
	defaultFilename = "audio.mp3"
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Provider implements stt.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	model   string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. Any server that
// implements POST /audio/transcriptions works (e.g., a local faster-whisper
// server).
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithModel sets the transcription model. Defaults to "whisper-1".
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI STT Provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}

	cfg := &config{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{client: oai.NewClient(reqOpts...), model: cfg.model}, nil
}

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (*types.Transcript, error) {
	if len(req.Audio) == 0 {
		return nil, errors.New("openai: audio must not be empty")
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, p.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("openai: transcription: %w", err)
	}

	return &types.Transcript{
		Text:     strings.TrimSpace(resp.Text),
		Language: req.Language,
	}, nil
}

// buildParams converts an stt.Request into OpenAI SDK params.
func (p *Provider) buildParams(req stt.Request) oai.AudioTranscriptionNewParams {
	filename := req.Filename
	if filename == "" {
		filename = defaultFilename
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(req.Audio), filename, contentType),
		Model: oai.AudioModel(p.model),
	}
	if req.Language != "" {
		params.Language = oai.String(req.Language)
	}
	return params
}
