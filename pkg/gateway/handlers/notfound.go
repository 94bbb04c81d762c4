package handlers

import (
	"net/http"

	"github.com/lunavoice/luna/pkg/core"
	"github.com/lunavoice/luna/pkg/gateway/apierror"
	"github.com/lunavoice/luna/pkg/gateway/mw"
)

// NotFound writes the canonical error envelope for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, core.NewNotFoundError("unknown route: "+r.URL.Path))
}

// MethodNotAllowed writes the canonical error envelope for bad methods.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	coreErr := core.NewInvalidRequestError("method " + r.Method + " not allowed for " + r.URL.Path)
	coreErr.RequestID = reqID
	writeJSON(w, http.StatusMethodNotAllowed, apierror.Envelope{Error: coreErr})
}
