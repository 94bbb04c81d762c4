// Package types defines the domain model shared across the tutor backend.
package types

import (
	"time"

	"github.com/lunavoice/luna/pkg/core"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser   Role = "user"
	RoleSystem Role = "system"
)

// SessionState is the lifecycle state of a practice session.
//
// Transitions are one-directional: active -> ending -> ended. A session in
// any state may additionally be purged (removed from the store) by the
// cleanup sweeper; purged sessions have no state because they no longer
// exist.
type SessionState string

const (
	StateActive SessionState = "active"
	StateEnding SessionState = "ending"
	StateEnded  SessionState = "ended"
)

// SupportedLanguages is the closed set of languages the tutor can run in.
var SupportedLanguages = []string{"English", "Spanish", "French", "Italian", "Portuguese"}

// ProficiencyLevels is the closed set of CEFR tiers.
var ProficiencyLevels = []string{"A1", "A2", "B1", "B2", "C1", "C2"}

const (
	// DefaultStopPhrase ends the session when spoken mid-utterance.
	DefaultStopPhrase = "stop session"

	// DefaultSpeechRate is the default TTS speed multiplier.
	DefaultSpeechRate = 1.0

	// MaxTurnPairs caps a session at this many user+reply exchanges.
	MaxTurnPairs = 15
)

// SessionSettings configures a practice session.
type SessionSettings struct {
	PrimaryLanguage string  `json:"primary_language"`
	TargetLanguage  string  `json:"target_language"`
	Proficiency     string  `json:"proficiency_level"`
	StopPhrase      string  `json:"stop_phrase"`
	SpeechRate      float64 `json:"speech_rate"`
}

// Normalize fills unset optional fields with defaults.
func (s *SessionSettings) Normalize() {
	if s.StopPhrase == "" {
		s.StopPhrase = DefaultStopPhrase
	}
	if s.SpeechRate == 0 {
		s.SpeechRate = DefaultSpeechRate
	}
}

// Validate checks the settings against the closed value sets.
func (s SessionSettings) Validate() error {
	if !contains(SupportedLanguages, s.PrimaryLanguage) {
		return core.NewInvalidRequestErrorWithParam("unsupported primary language", "primary_language")
	}
	if !contains(SupportedLanguages, s.TargetLanguage) {
		return core.NewInvalidRequestErrorWithParam("unsupported target language", "target_language")
	}
	if !contains(ProficiencyLevels, s.Proficiency) {
		return core.NewInvalidRequestErrorWithParam("proficiency level must be one of A1-C2", "proficiency_level")
	}
	if s.SpeechRate < 0.5 || s.SpeechRate > 1.5 {
		return core.NewInvalidRequestErrorWithParam("speech rate must be between 0.5 and 1.5", "speech_rate")
	}
	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Turn is one utterance by one party within a session.
type Turn struct {
	Role     Role   `json:"role"`
	Text     string `json:"text"`
	AudioRef string `json:"audio_ref,omitempty"`
	Index    int    `json:"index"`
}

// Session is the authoritative in-memory record of a live conversation.
// All mutation goes through the store; callers outside the engine only ever
// see clones.
type Session struct {
	ID           string          `json:"session_id"`
	Settings     SessionSettings `json:"settings"`
	State        SessionState    `json:"state"`
	Turns        []Turn          `json:"turns"`
	TurnPairs    int             `json:"turn_pairs"`
	CreatedAt    time.Time       `json:"created_at"`
	LastActivity time.Time       `json:"last_activity"`
}

// Clone returns a deep copy safe to hand outside the store.
func (s *Session) Clone() *Session {
	out := *s
	out.Turns = make([]Turn, len(s.Turns))
	copy(out.Turns, s.Turns)
	return &out
}

// TurnResult is the outcome of one pipeline run.
type TurnResult struct {
	UserText         string `json:"user_text"`
	ReplyText        string `json:"reply_text"`
	ReplyAudioRef    string `json:"reply_audio_ref,omitempty"`
	IsSessionEnding  bool   `json:"is_session_ending"`
	AudioUnavailable bool   `json:"audio_unavailable,omitempty"`
}

// Feedback is one grammar/vocabulary correction from the final analysis.
type Feedback struct {
	Original    string `json:"original_sentence"`
	Corrected   string `json:"corrected_sentence"`
	Explanation string `json:"explanation"`
}

// SessionRecord is the immutable snapshot handed to the history collaborator
// when a session reaches the ended state. The engine constructs it; it does
// not own its storage format.
type SessionRecord struct {
	SessionID       string     `json:"session_id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         time.Time  `json:"ended_at"`
	PrimaryLanguage string     `json:"primary_language"`
	TargetLanguage  string     `json:"target_language"`
	Proficiency     string     `json:"proficiency_level"`
	TurnPairs       int        `json:"turn_count"`
	Turns           []Turn     `json:"turns"`
	Summary         string     `json:"summary"`
	Feedback        []Feedback `json:"feedback"`
}
