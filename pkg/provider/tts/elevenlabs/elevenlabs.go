// Package elevenlabs provides an ElevenLabs-backed TTS provider using the
// ElevenLabs stream-input WebSocket API. It implements the tts.Provider
// interface.
//
// Each Synthesize call opens one WebSocket, sends the begin-of-stream message
// (credentials and voice settings), the whole text and the empty end-of-stream
// message, then decodes the base64 audio frames onto the returned stream
// until the server marks the output final.
package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"

	"github.com/MrWong99/harmonizer/pkg/provider/tts"
	"github.com/MrWong99/harmonizer/pkg/types"
)

const (
	defaultBaseURL   = "https://api.elevenlabs.io"
	defaultModel     = "eleven_multilingual_v2"
	defaultOutputFmt = "mp3_44100_128"

	// Audio frames are base64 MP3 and routinely exceed the 32 KiB default.
	readLimit = 4 << 20
)

// Compile-time assertion that Provider implements tts.Provider.
var _ tts.Provider = (*Provider)(nil)

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_multilingual_v2").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithOutputFormat sets the audio output format (e.g., "mp3_44100_128",
// "mp3_22050_32").
func WithOutputFormat(format string) Option {
	return func(p *Provider) {
		p.outputFormat = format
	}
}

// WithBaseURL overrides the API base URL. The WebSocket URL is derived from
// it by switching the scheme to ws/wss.
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(u, "/")
	}
}

// WithVoiceSettings overrides the stability and similarity boost sent with
// the begin-of-stream message. Defaults are 0.5 and 0.75.
func WithVoiceSettings(stability, similarityBoost float64) Option {
	return func(p *Provider) {
		p.settings = voiceSettings{Stability: stability, SimilarityBoost: similarityBoost}
	}
}

// WithHTTPClient sets the client used for REST calls and the WebSocket
// handshake.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements tts.Provider backed by the ElevenLabs streaming API.
type Provider struct {
	apiKey       string
	model        string
	outputFormat string
	baseURL      string
	settings     voiceSettings
	httpClient   *http.Client
}

// New creates a new ElevenLabs Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:       apiKey,
		model:        defaultModel,
		outputFormat: defaultOutputFmt,
		baseURL:      defaultBaseURL,
		settings:     voiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
		httpClient:   &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ---- WebSocket message types ----

// textMessage is the JSON payload sent for text and end-of-stream frames.
type textMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

// voiceSettings mirrors the ElevenLabs voice_settings object.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// boiMessage is the begin-of-stream frame.
type boiMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	XiAPIKey      string         `json:"xi_api_key"`
}

// audioResponse is a frame received from ElevenLabs over the WebSocket.
type audioResponse struct {
	Audio   string `json:"audio"` // base64-encoded, format per output_format
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Synthesize implements tts.Provider. The returned stream carries the encoded
// audio in the configured output format.
func (p *Provider) Synthesize(ctx context.Context, text string, voice types.VoiceProfile) (io.ReadCloser, error) {
	if voice.ID == "" {
		return nil, errors.New("elevenlabs: voice.ID must not be empty")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("elevenlabs: text must not be empty")
	}

	wsURL, err := p.streamURL(voice.ID)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPClient: p.httpClient})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: dial: %w", err)
	}
	conn.SetReadLimit(readLimit)

	if err := p.sendText(ctx, conn, text); err != nil {
		conn.Close(websocket.StatusInternalError, "send failed")
		return nil, err
	}

	pr, pw := io.Pipe()
	go receive(ctx, conn, pw)
	return pr, nil
}

// sendText writes the begin-of-stream, text and end-of-stream frames.
func (p *Provider) sendText(ctx context.Context, conn *websocket.Conn, text string) error {
	settings := p.settings
	frames := []any{
		// ElevenLabs requires a single space as the first text value.
		boiMessage{Text: " ", VoiceSettings: &settings, XiAPIKey: p.apiKey},
		textMessage{Text: withTrailingSpace(text)},
		textMessage{Text: ""},
	}
	for i, f := range frames {
		data, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("elevenlabs: encode frame %d: %w", i, err)
		}
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			return fmt.Errorf("elevenlabs: send frame %d: %w", i, err)
		}
	}
	return nil
}

// receive decodes audio frames from conn into pw until the final frame, a
// normal close, or an error. Errors are delivered to the reader side.
func receive(ctx context.Context, conn *websocket.Conn, pw *io.PipeWriter) {
	defer conn.Close(websocket.StatusNormalClosure, "done")

	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				pw.Close()
				return
			}
			pw.CloseWithError(fmt.Errorf("elevenlabs: read: %w", err))
			return
		}

		audio, final, err := parseAudioResponse(msg)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if len(audio) > 0 {
			if _, err := pw.Write(audio); err != nil {
				// Reader closed early.
				return
			}
		}
		if final {
			pw.Close()
			return
		}
	}
}

// parseAudioResponse decodes one server frame. Frames without audio yield
// nil bytes; error frames yield an error.
func parseAudioResponse(msg []byte) (audio []byte, final bool, err error) {
	var resp audioResponse
	if err := json.Unmarshal(msg, &resp); err != nil {
		return nil, false, fmt.Errorf("elevenlabs: decode frame: %w", err)
	}
	if resp.Error != "" {
		return nil, false, fmt.Errorf("elevenlabs: server error: %s: %s", resp.Error, resp.Message)
	}
	if resp.Audio != "" {
		audio, err = base64.StdEncoding.DecodeString(resp.Audio)
		if err != nil {
			return nil, false, fmt.Errorf("elevenlabs: decode audio: %w", err)
		}
	}
	return audio, resp.IsFinal, nil
}

// streamURL builds the stream-input WebSocket URL for voiceID.
func (p *Provider) streamURL(voiceID string) (string, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return "", fmt.Errorf("elevenlabs: parse base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/text-to-speech/" + url.PathEscape(voiceID) + "/stream-input"

	q := url.Values{}
	q.Set("model_id", p.model)
	if p.outputFormat != "" {
		q.Set("output_format", p.outputFormat)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func withTrailingSpace(s string) string {
	if strings.HasSuffix(s, " ") {
		return s
	}
	return s + " "
}

// ---- ListVoices ----

// voicesResponse is the top-level response from GET /v1/voices.
type voicesResponse struct {
	Voices []elevenLabsVoice `json:"voices"`
}

// elevenLabsVoice is a single voice entry from the ElevenLabs API.
type elevenLabsVoice struct {
	VoiceID  string            `json:"voice_id"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Labels   map[string]string `json:"labels"`
}

// ListVoices returns all voices available for the configured API key.
func (p *Provider) ListVoices(ctx context.Context) ([]types.VoiceProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs: list voices: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices read: %w", err)
	}
	profiles, err := parseVoicesResponse(data)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices decode: %w", err)
	}
	return profiles, nil
}

// parseVoicesResponse parses a /v1/voices body into VoiceProfile values.
func parseVoicesResponse(data []byte) ([]types.VoiceProfile, error) {
	var vr voicesResponse
	if err := json.Unmarshal(data, &vr); err != nil {
		return nil, err
	}
	profiles := make([]types.VoiceProfile, 0, len(vr.Voices))
	for _, v := range vr.Voices {
		meta := make(map[string]string, len(v.Labels)+1)
		for k, val := range v.Labels {
			meta[k] = val
		}
		if v.Category != "" {
			meta["category"] = v.Category
		}
		profiles = append(profiles, types.VoiceProfile{
			ID:       v.VoiceID,
			Name:     v.Name,
			Provider: "elevenlabs",
			Metadata: meta,
		})
	}
	return profiles, nil
}
