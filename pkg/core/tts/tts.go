// Package tts provides the text-to-speech collaborator.
package tts

import (
	"context"
)

// Provider is the interface for speech synthesis services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Synthesize converts text to spoken audio (wav bytes). language is
	// the tutor language name (English, Spanish, ...); speed is the
	// playback rate multiplier configured for the session.
	Synthesize(ctx context.Context, text, language string, speed float64) ([]byte, error)
}

// languageCodes maps supported tutor languages to ISO 639-1 codes.
var languageCodes = map[string]string{
	"English":    "en",
	"Spanish":    "es",
	"French":     "fr",
	"Italian":    "it",
	"Portuguese": "pt",
}

// LanguageCode returns the ISO code for a supported language, defaulting to
// English for unknown values.
func LanguageCode(language string) string {
	if code, ok := languageCodes[language]; ok {
		return code
	}
	return "en"
}

// Silent is a stand-in synthesizer for environments without a TTS backend.
// It returns an empty payload, which callers surface as audio-unavailable.
type Silent struct{}

func (Silent) Name() string { return "silent" }

func (Silent) Synthesize(ctx context.Context, text, language string, speed float64) ([]byte, error) {
	return nil, nil
}
