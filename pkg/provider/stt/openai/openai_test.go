package openai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrWong99/harmonizer/pkg/provider/stt"
)

func TestNew_EmptyAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestNew_DefaultModel(t *testing.T) {
	p, err := New("key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.model != defaultModel {
		t.Errorf("expected model %q, got %q", defaultModel, p.model)
	}
}

func TestBuildParams_Language(t *testing.T) {
	p, _ := New("key", WithModel("gpt-4o-transcribe"))

	params := p.buildParams(stt.Request{Audio: []byte{1}, Language: "hi"})
	if string(params.Model) != "gpt-4o-transcribe" {
		t.Errorf("model = %q", params.Model)
	}
	if !params.Language.Valid() || params.Language.Value != "hi" {
		t.Errorf("language not set: %+v", params.Language)
	}

	params = p.buildParams(stt.Request{Audio: []byte{1}})
	if params.Language.Valid() {
		t.Error("language should be omitted when no hint is given")
	}
}

func TestTranscribe_RoundTrip(t *testing.T) {
	var (
		gotPath, gotAuth, gotLang, gotModel string
		gotAudio                            []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotLang = r.FormValue("language")
		gotModel = r.FormValue("model")
		if fh := r.MultipartForm.File["file"]; len(fh) > 0 {
			f, _ := fh[0].Open()
			gotAudio, _ = io.ReadAll(f)
			f.Close()
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":" Hola, ¿cómo estás? "}`)
	}))
	defer srv.Close()

	p, err := New("sk-test", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tr, err := p.Transcribe(context.Background(), stt.Request{
		Audio:       []byte("mp3-bytes"),
		Filename:    "sample.mp3",
		ContentType: "audio/mpeg",
		Language:    "es",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if tr.Text != "Hola, ¿cómo estás?" {
		t.Errorf("Text = %q", tr.Text)
	}
	if gotPath != "/audio/transcriptions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotLang != "es" || gotModel != "whisper-1" {
		t.Errorf("language=%q model=%q", gotLang, gotModel)
	}
	if string(gotAudio) != "mp3-bytes" {
		t.Errorf("audio = %q", gotAudio)
	}
}

func TestTranscribe_EmptyAudio(t *testing.T) {
	p, _ := New("key")
	if _, err := p.Transcribe(context.Background(), stt.Request{}); err == nil {
		t.Error("expected error for empty audio")
	}
}
