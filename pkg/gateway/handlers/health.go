package handlers

import (
	"net/http"

	"github.com/lunavoice/luna/pkg/engine"
)

// Health reports liveness and the current session count.
type Health struct {
	Engine *engine.Engine
}

func (h Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"active_sessions": h.Engine.ActiveSessions(),
	})
}
