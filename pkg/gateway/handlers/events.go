package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/lunavoice/luna/pkg/engine"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 20 * time.Second
)

// Events streams a session's lifecycle events over a WebSocket.
type Events struct {
	Engine *engine.Engine
	Logger *slog.Logger

	upgrader websocket.Upgrader
}

// NewEvents builds the handler. Cross-origin upgrades are allowed; browser
// origin policy is handled by the CORS layer for the REST surface, and the
// event stream carries no sensitive state beyond the session's own progress.
func NewEvents(eng *engine.Engine, logger *slog.Logger) *Events {
	return &Events{
		Engine: eng,
		Logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP handles GET /sessions/{session_id}/events.
func (h *Events) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]
	if _, err := h.Engine.Session(sessionID); err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()

	events, cancel := h.Engine.Events().Subscribe(sessionID)
	defer cancel()

	// Read pump: we never expect client messages, but reading is what
	// notices a closed connection.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				// Session purged; tell the client before closing.
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session purged"))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
