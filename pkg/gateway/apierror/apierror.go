// Package apierror maps internal errors to the wire-level error envelope and
// HTTP status codes.
package apierror

import (
	"context"
	"errors"
	"net/http"

	"github.com/lunavoice/luna/pkg/core"
)

type Envelope struct {
	Error *core.Error `json:"error"`
}

// FromError converts any error into the canonical form plus an HTTP status.
// Unknown errors are reported as internal without leaking their details.
func FromError(err error, requestID string) (*core.Error, int) {
	if err == nil {
		return nil, http.StatusOK
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &core.Error{
			Type:      core.ErrAPI,
			Message:   "request timeout",
			RequestID: requestID,
		}, http.StatusGatewayTimeout
	}
	if errors.Is(err, context.Canceled) {
		return &core.Error{
			Type:      core.ErrAPI,
			Message:   "request cancelled",
			Code:      "cancelled",
			RequestID: requestID,
		}, http.StatusRequestTimeout
	}

	var coreErr *core.Error
	if errors.As(err, &coreErr) && coreErr != nil {
		out := *coreErr
		out.RequestID = requestID
		return &out, statusFromType(coreErr.Type)
	}

	return &core.Error{
		Type:      core.ErrAPI,
		Message:   "internal error",
		RequestID: requestID,
	}, http.StatusInternalServerError
}

func statusFromType(t core.ErrorType) int {
	switch t {
	case core.ErrInvalidRequest:
		return http.StatusBadRequest
	case core.ErrNotFound, core.ErrSessionNotFound:
		return http.StatusNotFound
	case core.ErrSessionNotActive:
		return http.StatusConflict
	case core.ErrASR, core.ErrLLM, core.ErrTTS, core.ErrAudioStorage:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
