package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrWong99/harmonizer/pkg/types"
)

func TestSynthesize_RoundTrip(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			http.NotFound(w, r)
			return
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = io.WriteString(w, "ID3-fake-mp3")
	}))
	defer srv.Close()

	p, err := New("sk-test", WithBaseURL(srv.URL), WithModel("tts-1-hd"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rc, err := p.Synthesize(context.Background(), "Bonjour", types.VoiceProfile{ID: "nova"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	defer rc.Close()

	audio, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(audio) != "ID3-fake-mp3" {
		t.Errorf("audio = %q", audio)
	}
	if body["input"] != "Bonjour" || body["voice"] != "nova" || body["model"] != "tts-1-hd" {
		t.Errorf("unexpected request body %v", body)
	}
	if body["response_format"] != "mp3" {
		t.Errorf("response_format = %v", body["response_format"])
	}
}

func TestSynthesize_DefaultVoice(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		_, _ = io.WriteString(w, "x")
	}))
	defer srv.Close()

	p, _ := New("sk-test", WithBaseURL(srv.URL))
	rc, err := p.Synthesize(context.Background(), "hi", types.VoiceProfile{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	rc.Close()
	if body["voice"] != defaultVoice {
		t.Errorf("voice = %v, want %s", body["voice"], defaultVoice)
	}
}

func TestSynthesize_EmptyText(t *testing.T) {
	p, _ := New("sk-test")
	if _, err := p.Synthesize(context.Background(), "", types.VoiceProfile{ID: "alloy"}); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestListVoices(t *testing.T) {
	p, _ := New("sk-test")
	voices, err := p.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != len(builtinVoices) {
		t.Fatalf("expected %d voices, got %d", len(builtinVoices), len(voices))
	}
	if voices[0].ID != "alloy" || voices[0].Provider != "openai" {
		t.Errorf("unexpected first voice %+v", voices[0])
	}
}

func TestNew_EmptyAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty API key")
	}
}
