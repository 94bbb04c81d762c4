// Package handlers implements the gateway's HTTP endpoints.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/lunavoice/luna/pkg/core"
	"github.com/lunavoice/luna/pkg/gateway/apierror"
	"github.com/lunavoice/luna/pkg/gateway/mw"
)

// maxJSONBodyBytes bounds JSON request bodies; audio uploads have their own
// limit.
const maxJSONBodyBytes = 1 << 20

func decodeJSONBody(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes)).Decode(v); err != nil {
		return core.NewInvalidRequestError("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	coreErr, status := apierror.FromError(err, reqID)
	writeJSON(w, status, apierror.Envelope{Error: coreErr})
}
