// Package asr provides the speech-to-text collaborator.
package asr

import (
	"context"
)

// Provider is the interface for speech recognition services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Transcribe converts spoken audio to text. format is the audio
	// container hint (wav, webm, ...).
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
}

// PlaceholderTranscript is returned by the placeholder provider when no real
// recognizer is configured. The engine treats it as a successful call.
const PlaceholderTranscript = "This is a mock transcription (ASR backend not configured)."

// Placeholder is a stand-in recognizer for environments without an ASR
// backend.
type Placeholder struct{}

func (Placeholder) Name() string { return "placeholder" }

func (Placeholder) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	return PlaceholderTranscript, nil
}
