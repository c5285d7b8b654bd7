// Package openai provides a TTS provider backed by the OpenAI speech API
// (tts-1, tts-1-hd, gpt-4o-mini-tts). Output is always MP3.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/harmonizer/pkg/provider/tts"
	"github.com/MrWong99/harmonizer/pkg/types"
)

const (
	defaultModel = "tts-1"
	defaultVoice = "alloy"
)

// builtinVoices is the fixed voice set of the speech endpoint.
var builtinVoices = []string{
	"alloy", "ash", "ballad", "coral", "echo", "fable",
	"onyx", "nova", "sage", "shimmer", "verse",
}

// Compile-time assertion that Provider implements tts.Provider.
var _ tts.Provider = (*Provider)(nil)

// Provider implements tts.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
}

type config struct {
	baseURL string
	model   string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithModel sets the speech model. Defaults to "tts-1".
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithTimeout sets a per-request HTTP timeout. The timeout also bounds
// reading the returned stream.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI TTS Provider.
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

// Synthesize implements tts.Provider. An empty voice ID selects "alloy".
func (p *Provider) Synthesize(ctx context.Context, text string, voice types.VoiceProfile) (io.ReadCloser, error) {
	if text == "" {
		return nil, errors.New("openai: text must not be empty")
	}
	voiceID := voice.ID
	if voiceID == "" {
		voiceID = defaultVoice
	}

	resp, err := p.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Input:          text,
		Model:          oai.SpeechModel(p.model),
		Voice:          oai.AudioSpeechNewParamsVoice(voiceID),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: speech: %w", err)
	}
	return resp.Body, nil
}

// ListVoices implements tts.Provider. The speech endpoint has no catalogue
// call, so the built-in voice names are returned.
func (p *Provider) ListVoices(_ context.Context) ([]types.VoiceProfile, error) {
	voices := make([]types.VoiceProfile, 0, len(builtinVoices))
	for _, v := range builtinVoices {
		voices = append(voices, types.VoiceProfile{
			ID:       v,
			Name:     v,
			Provider: "openai",
			Metadata: map[string]string{"model": p.model},
		})
	}
	return voices, nil
}
