package asr

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lunavoice/luna/pkg/core"
)

func TestWhisperTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "audio.webm" {
			t.Errorf("filename = %q", header.Filename)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"hola luna"}`))
	}))
	defer srv.Close()

	p := NewWhisper(srv.URL+"/v1", "test-key", "")
	got, err := p.Transcribe(context.Background(), []byte("fake-audio"), "webm")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "hola luna" {
		t.Errorf("Transcribe = %q", got)
	}
}

func TestWhisperTranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewWhisper(srv.URL+"/v1", "test-key", "")
	_, err := p.Transcribe(context.Background(), []byte("fake-audio"), "wav")
	var coreErr *core.Error
	if !errors.As(err, &coreErr) || coreErr.Type != core.ErrASR {
		t.Fatalf("want asr_error, got %v", err)
	}
}

func TestWhisperTranscribeEmptyAudio(t *testing.T) {
	p := NewWhisper("http://localhost:0/v1", "test-key", "")
	_, err := p.Transcribe(context.Background(), nil, "wav")
	var coreErr *core.Error
	if !errors.As(err, &coreErr) || coreErr.Type != core.ErrASR {
		t.Fatalf("want asr_error, got %v", err)
	}
}

func TestPlaceholderTranscribe(t *testing.T) {
	var p Provider = Placeholder{}
	got, err := p.Transcribe(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != PlaceholderTranscript {
		t.Errorf("Transcribe = %q", got)
	}
}
