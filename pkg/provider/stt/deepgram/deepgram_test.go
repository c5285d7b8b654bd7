package deepgram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/MrWong99/harmonizer/pkg/provider/stt"
)

// ---- URL / query-param tests ----

func TestBuildURL_Defaults(t *testing.T) {
	p, err := New("test-key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := p.buildURL(stt.Request{})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse URL: %v", err)
	}
	q := u.Query()

	assertEqual(t, "host", "api.deepgram.com", u.Host)
	assertEqual(t, "path", "/v1/listen", u.Path)
	assertEqual(t, "model", "nova-3", q.Get("model"))
	assertEqual(t, "language", "en", q.Get("language"))
	assertEqual(t, "punctuate", "true", q.Get("punctuate"))
	assertEqual(t, "smart_format", "true", q.Get("smart_format"))
}

func TestBuildURL_CustomModel(t *testing.T) {
	p, err := New("key", WithModel("base"), WithLanguage("de"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := p.buildURL(stt.Request{})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, _ := url.Parse(rawURL)
	q := u.Query()

	assertEqual(t, "model", "base", q.Get("model"))
	assertEqual(t, "language", "de", q.Get("language"))
}

func TestBuildURL_LanguageOverriddenByRequest(t *testing.T) {
	// The request hint takes precedence over the provider-level default.
	p, err := New("key", WithLanguage("en"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := p.buildURL(stt.Request{Language: "ja"})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, _ := url.Parse(rawURL)
	assertEqual(t, "language", "ja", u.Query().Get("language"))
}

// ---- JSON parsing tests ----

func TestParseListenResponse_Success(t *testing.T) {
	raw := []byte(`{
		"metadata": {"duration": 2.5},
		"results": {
			"channels": [{
				"alternatives": [{
					"transcript": "Hello world",
					"confidence": 0.95,
					"words": [
						{"word": "Hello", "start": 0.1, "end": 0.5, "confidence": 0.97},
						{"word": "world", "start": 0.6, "end": 1.0, "confidence": 0.93}
					]
				}]
			}]
		}
	}`)

	tr, err := parseListenResponse(raw)
	if err != nil {
		t.Fatalf("parseListenResponse: %v", err)
	}

	assertEqual(t, "text", "Hello world", tr.Text)
	if tr.Confidence != 0.95 {
		t.Errorf("expected confidence 0.95, got %f", tr.Confidence)
	}
	if tr.Duration != 2500*time.Millisecond {
		t.Errorf("expected duration 2.5s, got %v", tr.Duration)
	}
	if len(tr.Words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(tr.Words))
	}
	assertEqual(t, "word[0]", "Hello", tr.Words[0].Word)
	if tr.Words[0].Start != time.Duration(0.1*float64(time.Second)) {
		t.Errorf("unexpected start: %v", tr.Words[0].Start)
	}
}

func TestParseListenResponse_DetectedLanguage(t *testing.T) {
	raw := []byte(`{"results":{"channels":[{"detected_language":"es","alternatives":[{"transcript":"hola"}]}]}}`)
	tr, err := parseListenResponse(raw)
	if err != nil {
		t.Fatalf("parseListenResponse: %v", err)
	}
	assertEqual(t, "language", "es", tr.Language)
}

func TestParseListenResponse_EmptyTranscript(t *testing.T) {
	raw := []byte(`{"results":{"channels":[{"alternatives":[{"transcript":"","confidence":0}]}]}}`)
	tr, err := parseListenResponse(raw)
	if err != nil {
		t.Fatalf("expected no error for silent audio, got %v", err)
	}
	assertEqual(t, "text", "", tr.Text)
}

func TestParseListenResponse_NoChannels(t *testing.T) {
	_, err := parseListenResponse([]byte(`{"results":{"channels":[]}}`))
	if err == nil {
		t.Error("expected error when channels is empty")
	}
}

func TestParseListenResponse_EmptyAlternatives(t *testing.T) {
	_, err := parseListenResponse([]byte(`{"results":{"channels":[{"alternatives":[]}]}}`))
	if err == nil {
		t.Error("expected error when alternatives is empty")
	}
}

func TestParseListenResponse_InvalidJSON(t *testing.T) {
	_, err := parseListenResponse([]byte(`{invalid`))
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
}

// ---- HTTP round-trip tests ----

func TestTranscribe_SendsAudioAndHeaders(t *testing.T) {
	var (
		gotAuth, gotType, gotLang string
		gotBody                   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/listen" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotLang = r.URL.Query().Get("language")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"results":{"channels":[{"alternatives":[{"transcript":"bonjour","confidence":0.9}]}]}}`)
	}))
	defer srv.Close()

	p, err := New("secret", WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tr, err := p.Transcribe(context.Background(), stt.Request{
		Audio:       []byte("ID3fake-mp3"),
		ContentType: "audio/mpeg",
		Language:    "fr",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	assertEqual(t, "text", "bonjour", tr.Text)
	assertEqual(t, "language", "fr", tr.Language)
	assertEqual(t, "auth", "Token secret", gotAuth)
	assertEqual(t, "content-type", "audio/mpeg", gotType)
	assertEqual(t, "query language", "fr", gotLang)
	assertEqual(t, "body", "ID3fake-mp3", string(gotBody))
}

func TestTranscribe_DefaultContentType(t *testing.T) {
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		_, _ = io.WriteString(w, `{"results":{"channels":[{"alternatives":[{"transcript":"x"}]}]}}`)
	}))
	defer srv.Close()

	p, _ := New("key", WithBaseURL(srv.URL))
	if _, err := p.Transcribe(context.Background(), stt.Request{Audio: []byte{1, 2, 3}}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	assertEqual(t, "content-type", "application/octet-stream", gotType)
}

func TestTranscribe_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"err_code":"INVALID_AUTH"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, _ := New("bad", WithBaseURL(srv.URL))
	_, err := p.Transcribe(context.Background(), stt.Request{Audio: []byte{1}})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "INVALID_AUTH") {
		t.Errorf("error should carry status and body, got: %v", err)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "  bad request \n", 20, "bad request"},
		{"ascii", "abcdef", 3, "abc…"},
		{"cuts inside rune", "añb", 2, "a…"},
		{"rune boundary", "añb", 3, "añ…"},
		{"multibyte only", "ééé", 3, "é…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate([]byte(tt.in), tt.n)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) = %q is not valid UTF-8", tt.in, tt.n, got)
			}
		})
	}
}

func TestTranscribe_EmptyAudio(t *testing.T) {
	p, _ := New("key")
	if _, err := p.Transcribe(context.Background(), stt.Request{}); err == nil {
		t.Error("expected error for empty audio")
	}
}

// ---- Constructor tests ----

func TestNew_EmptyAPIKey(t *testing.T) {
	_, err := New("")
	if err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestNew_Defaults(t *testing.T) {
	p, err := New("key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	assertEqual(t, "model", defaultModel, p.model)
	assertEqual(t, "language", defaultLanguage, p.language)
	assertEqual(t, "baseURL", defaultBaseURL, p.baseURL)
}

// ---- helpers ----

func assertEqual(t *testing.T, label, want, got string) {
	t.Helper()
	if want != got {
		t.Errorf("%s: want %q, got %q", label, want, got)
	}
}
