package httpserver

import (
	"net/http"

	"github.com/iedon/peerapi/peering"
)

// ListRoutersHandler serves the public router catalog. No authentication;
// the frontend shows this before the user logs in.
func (h *Handlers) ListRoutersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		SendResponse(w, peering.CodeMethodNotAllowed, nil)
		return
	}

	routers, err := h.svc.ListRouters(r.Context())
	if err != nil {
		SendError(w, err)
		return
	}
	SendResponse(w, peering.CodeOK, map[string]any{"routers": routers})
}
