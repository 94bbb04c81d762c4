package handlers

import (
	"log/slog"
	"net/http"

	"github.com/lunavoice/luna/pkg/core/types"
	"github.com/lunavoice/luna/pkg/history"
)

// Settings serves the user's saved session defaults.
type Settings struct {
	Store  *history.Store
	Logger *slog.Logger
}

// defaultSettings are returned before the user has saved anything.
func defaultSettings() types.SessionSettings {
	s := types.SessionSettings{
		PrimaryLanguage: "English",
		TargetLanguage:  "Spanish",
		Proficiency:     "B1",
	}
	s.Normalize()
	return s
}

// Get handles GET /settings.
func (h *Settings) Get(w http.ResponseWriter, r *http.Request) {
	saved, err := h.Store.LoadSettings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if saved == nil {
		writeJSON(w, http.StatusOK, defaultSettings())
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// Save handles POST /settings.
func (h *Settings) Save(w http.ResponseWriter, r *http.Request) {
	var settings types.SessionSettings
	if err := decodeJSONBody(r, &settings); err != nil {
		writeError(w, r, err)
		return
	}
	settings.Normalize()
	if err := settings.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Store.SaveSettings(r.Context(), settings); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
