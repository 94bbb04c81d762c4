package core

import (
	"fmt"
)

// Error is the canonical error for the tutor backend.
type Error struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Param     string    `json:"param,omitempty"`
	Code      string    `json:"code,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrInvalidRequest   ErrorType = "invalid_request_error"
	ErrNotFound         ErrorType = "not_found_error"
	ErrSessionNotFound  ErrorType = "session_not_found"
	ErrSessionNotActive ErrorType = "session_not_active"
	ErrASR              ErrorType = "asr_error"
	ErrLLM              ErrorType = "llm_error"
	ErrTTS              ErrorType = "tts_error"
	ErrAudioStorage     ErrorType = "audio_storage_error"
	ErrAPI              ErrorType = "api_error"
)

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: message,
	}
}

// NewInvalidRequestErrorWithParam creates an invalid request error with a parameter.
func NewInvalidRequestErrorWithParam(message, param string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: message,
		Param:   param,
	}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *Error {
	return &Error{
		Type:    ErrNotFound,
		Message: message,
	}
}

// NewSessionNotFoundError creates an error for an unknown session id.
func NewSessionNotFoundError(sessionID string) *Error {
	return &Error{
		Type:    ErrSessionNotFound,
		Message: fmt.Sprintf("session %s not found", sessionID),
		Param:   "session_id",
	}
}

// NewSessionNotActiveError reports an operation attempted against a session
// in the wrong lifecycle state. This is a client contract violation, not a
// transient failure.
func NewSessionNotActiveError(message string) *Error {
	return &Error{
		Type:    ErrSessionNotActive,
		Message: message,
	}
}

// NewASRError wraps a speech recognition failure.
func NewASRError(underlying error) *Error {
	return &Error{
		Type:    ErrASR,
		Message: fmt.Sprintf("transcription failed: %v", underlying),
		Cause:   underlying,
	}
}

// NewLLMError wraps a language model failure.
func NewLLMError(message string, underlying error) *Error {
	return &Error{
		Type:    ErrLLM,
		Message: fmt.Sprintf("%s: %v", message, underlying),
		Cause:   underlying,
	}
}

// NewTTSError wraps a speech synthesis failure.
func NewTTSError(underlying error) *Error {
	return &Error{
		Type:    ErrTTS,
		Message: fmt.Sprintf("synthesis failed: %v", underlying),
		Cause:   underlying,
	}
}

// NewAudioStorageError wraps an artifact persistence failure.
func NewAudioStorageError(underlying error) *Error {
	return &Error{
		Type:    ErrAudioStorage,
		Message: fmt.Sprintf("audio storage failed: %v", underlying),
		Cause:   underlying,
	}
}

// NewAPIError creates a generic internal error.
func NewAPIError(message string) *Error {
	return &Error{
		Type:    ErrAPI,
		Message: message,
	}
}

// IsRetryable reports whether the caller may safely retry the same request.
// Collaborator faults are transient; state-contract violations are not.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrASR, ErrLLM, ErrTTS, ErrAudioStorage, ErrAPI:
		return true
	default:
		return false
	}
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	return e.Cause
}
