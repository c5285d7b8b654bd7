// Package deepgram provides a Deepgram-backed STT provider using the Deepgram
// pre-recorded audio REST API. It implements the stt.Provider interface.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MrWong99/harmonizer/pkg/provider/stt"
	"github.com/MrWong99/harmonizer/pkg/types"
)

const (
	defaultBaseURL  = "https://api.deepgram.com"
	listenPath      = "/v1/listen"
	defaultModel    = "nova-3"
	defaultLanguage = "en"
	defaultTimeout  = 60 * time.Second

	// maxErrorBody caps how much of a failed response body is quoted in errors.
	maxErrorBody = 512
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the language code used when a request carries no hint
// (e.g., "en", "de").
func WithLanguage(language string) Option {
	return func(p *Provider) {
		p.language = language
	}
}

// WithBaseURL overrides the Deepgram API origin. Used by tests and
// self-hosted deployments.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements stt.Provider backed by the Deepgram pre-recorded API.
type Provider struct {
	apiKey     string
	model      string
	language   string
	baseURL    string
	httpClient *http.Client
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		language:   defaultLanguage,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe uploads req.Audio to Deepgram and returns the transcript of the
// first channel's best alternative.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (*types.Transcript, error) {
	if len(req.Audio) == 0 {
		return nil, errors.New("deepgram: audio must not be empty")
	}

	endpoint, err := p.buildURL(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build URL: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(req.Audio))
	if err != nil {
		return nil, fmt.Errorf("deepgram: create request: %w", err)
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	httpReq.Header.Set("Authorization", "Token "+p.apiKey)
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("deepgram: http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("deepgram: read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("deepgram: unexpected status %d: %s", resp.StatusCode, truncate(data, maxErrorBody))
	}

	t, err := parseListenResponse(data)
	if err != nil {
		return nil, fmt.Errorf("deepgram: %w", err)
	}
	if t.Language == "" {
		t.Language = p.languageFor(req)
	}
	return t, nil
}

// buildURL constructs the pre-recorded listen endpoint URL for req.
func (p *Provider) buildURL(req stt.Request) (string, error) {
	u, err := url.Parse(p.baseURL + listenPath)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("model", p.model)
	q.Set("language", p.languageFor(req))
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// languageFor returns the request language hint or the provider default.
func (p *Provider) languageFor(req stt.Request) string {
	if req.Language != "" {
		return req.Language
	}
	return p.language
}

// ---- response parsing ----

// listenResponse is the subset of the Deepgram pre-recorded response we use.
type listenResponse struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			DetectedLanguage string `json:"detected_language"`
			Alternatives     []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
				Words      []struct {
					Word       string  `json:"word"`
					Start      float64 `json:"start"`
					End        float64 `json:"end"`
					Confidence float64 `json:"confidence"`
				} `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// parseListenResponse converts a raw Deepgram JSON body into a Transcript.
// A response without channels or alternatives is an error; an alternative with
// an empty transcript is not.
func parseListenResponse(data []byte) (*types.Transcript, error) {
	var resp listenResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse JSON response: %w", err)
	}
	if len(resp.Results.Channels) == 0 {
		return nil, errors.New("response contains no channels")
	}
	ch := resp.Results.Channels[0]
	if len(ch.Alternatives) == 0 {
		return nil, errors.New("response contains no alternatives")
	}

	alt := ch.Alternatives[0]
	words := make([]types.WordDetail, 0, len(alt.Words))
	for _, w := range alt.Words {
		words = append(words, types.WordDetail{
			Word:       w.Word,
			Start:      seconds(w.Start),
			End:        seconds(w.End),
			Confidence: w.Confidence,
		})
	}

	return &types.Transcript{
		Text:       alt.Transcript,
		Confidence: alt.Confidence,
		Language:   ch.DetectedLanguage,
		Duration:   seconds(resp.Metadata.Duration),
		Words:      words,
	}, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
