package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lunavoice/luna/pkg/history"
)

// History serves the persisted session record endpoints.
type History struct {
	Store  *history.Store
	Logger *slog.Logger
}

// List handles GET /history.
func (h *History) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Store.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// Get handles GET /history/{session_id}.
func (h *History) Get(w http.ResponseWriter, r *http.Request) {
	record, err := h.Store.Get(r.Context(), mux.Vars(r)["session_id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// Delete handles DELETE /history/{session_id}.
func (h *History) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Delete(r.Context(), mux.Vars(r)["session_id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAll handles DELETE /history.
func (h *History) DeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.Store.DeleteAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
