package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/lunavoice/luna/pkg/core"
	"github.com/lunavoice/luna/pkg/core/types"
	"github.com/lunavoice/luna/pkg/engine"
	"github.com/lunavoice/luna/pkg/history"
)

// allowedAudioFormats is the upload extension allow-list for turn audio.
var allowedAudioFormats = map[string]struct{}{
	"wav":  {},
	"mp3":  {},
	"m4a":  {},
	"ogg":  {},
	"webm": {},
	"aac":  {},
	"flac": {},
}

// Sessions serves the session lifecycle endpoints.
type Sessions struct {
	Engine         *engine.Engine
	History        *history.Store
	Logger         *slog.Logger
	MaxUploadBytes int64
}

// Start handles POST /sessions/start.
func (h *Sessions) Start(w http.ResponseWriter, r *http.Request) {
	var settings types.SessionSettings
	if err := decodeJSONBody(r, &settings); err != nil {
		writeError(w, r, err)
		return
	}

	sess, err := h.Engine.Start(r.Context(), settings)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// The validated settings become the user's defaults for next time.
	if h.History != nil {
		if err := h.History.SaveSettings(r.Context(), sess.Settings); err != nil && h.Logger != nil {
			h.Logger.Warn("persist settings failed", "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, sess)
}

// Turn handles POST /sessions/{session_id}/turn with a multipart audio file.
func (h *Sessions) Turn(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, core.NewInvalidRequestErrorWithParam("audio upload too large", "audio"))
			return
		}
		writeError(w, r, core.NewInvalidRequestError("request body must be multipart/form-data"))
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, r, core.NewInvalidRequestErrorWithParam("audio file is required", "audio"))
		return
	}
	defer file.Close()

	format, ok := audioFormat(header.Filename)
	if !ok {
		writeError(w, r, core.NewInvalidRequestErrorWithParam(
			"unsupported audio format; expected one of wav, mp3, m4a, ogg, webm, aac, flac", "audio"))
		return
	}

	audio, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, core.NewInvalidRequestErrorWithParam("failed to read audio upload", "audio"))
		return
	}

	// A started pipeline must outlive the request: a client disconnect means
	// the result goes undelivered, not that the turn is rolled back.
	result, err := h.Engine.ProcessTurn(context.WithoutCancel(r.Context()), sessionID, audio, format)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Stop handles POST /sessions/{session_id}/stop.
func (h *Sessions) Stop(w http.ResponseWriter, r *http.Request) {
	result, err := h.Engine.Stop(context.WithoutCancel(r.Context()), mux.Vars(r)["session_id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// End handles POST /sessions/{session_id}/end.
func (h *Sessions) End(w http.ResponseWriter, r *http.Request) {
	record, err := h.Engine.Finalize(context.WithoutCancel(r.Context()), mux.Vars(r)["session_id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// Get handles GET /sessions/{session_id}.
func (h *Sessions) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Engine.Session(mux.Vars(r)["session_id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// audioFormat extracts and validates the extension of an uploaded file name.
func audioFormat(filename string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filepath.Base(filename)), "."))
	_, ok := allowedAudioFormats[ext]
	return ext, ok
}
