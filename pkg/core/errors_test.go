package core

import (
	"errors"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := &Error{
		Type:    ErrInvalidRequest,
		Message: "bad input",
	}
	if got, want := err.Error(), "invalid_request_error: bad input"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err = &Error{
		Type:    ErrSessionNotActive,
		Message: "cannot process turn",
		Code:    "wrong_state",
	}
	if got, want := err.Error(), "session_not_active: cannot process turn (code: wrong_state)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNewSessionNotFoundError(t *testing.T) {
	err := NewSessionNotFoundError("abc-123")
	if err.Type != ErrSessionNotFound {
		t.Errorf("Type = %v, want %v", err.Type, ErrSessionNotFound)
	}
	if err.Param != "session_id" {
		t.Errorf("Param = %q, want session_id", err.Param)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    bool
	}{
		{ErrASR, true},
		{ErrLLM, true},
		{ErrTTS, true},
		{ErrAudioStorage, true},
		{ErrAPI, true},
		{ErrSessionNotFound, false},
		{ErrSessionNotActive, false},
		{ErrInvalidRequest, false},
		{ErrNotFound, false},
	}
	for _, tt := range tests {
		err := &Error{Type: tt.errType}
		if got := err.IsRetryable(); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.errType, got, tt.want)
		}
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewASRError(cause)
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is should find the underlying cause")
	}
}
