package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/iedon/peerapi/config"
	"github.com/iedon/peerapi/logger"
	"github.com/iedon/peerapi/peering"
)

// Handlers holds dependencies for HTTP handlers
type Handlers struct {
	cfg    *config.Config
	logger *logger.Logger
	svc    *peering.Service
}

// NewHandlers creates a new Handlers instance
func NewHandlers(cfg *config.Config, log *logger.Logger, svc *peering.Service) *Handlers {
	return &Handlers{
		cfg:    cfg,
		logger: log,
		svc:    svc,
	}
}

// sessionRequestBody is the frontend session operation envelope. The
// action selects the operation; the remaining fields are read as each
// action needs them.
type sessionRequestBody struct {
	Action string `json:"action"`
	peering.SessionRequest
}

// SessionHandler dispatches every frontend session operation
func (h *Handlers) SessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		SendResponse(w, peering.CodeMethodNotAllowed, nil)
		return
	}

	asn, ok := CallerASN(r)
	if !ok {
		SendResponse(w, peering.CodeUnauthorized, nil)
		return
	}
	caller := h.svc.ResolveCaller(asn)

	var body sessionRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		SendResponse(w, peering.CodeBadRequest, nil)
		return
	}

	ctx := r.Context()

	if body.Action == "enum" {
		sessions, err := h.svc.Enumerate(ctx, caller)
		if err != nil {
			SendError(w, err)
			return
		}
		SendResponse(w, peering.CodeOK, map[string]any{"sessions": sessions})
		return
	}

	// get/query resolve the session by UUID alone
	switch body.Action {
	case "get":
		session, err := h.svc.Get(ctx, caller, body.Session)
		if err != nil {
			SendError(w, err)
			return
		}
		SendResponse(w, peering.CodeOK, map[string]any{"session": session})
		return

	case "query":
		data, err := h.svc.QueryLiveStatus(ctx, caller, body.Session)
		if err != nil {
			SendError(w, err)
			return
		}
		SendResponse(w, peering.CodeOK, data)
		return
	}

	if body.Router == "" {
		SendResponse(w, peering.CodeBadRequest, nil)
		return
	}

	switch body.Action {
	case "add":
		if err := h.svc.Set(ctx, caller, &body.SessionRequest, false); err != nil {
			SendError(w, err)
			return
		}
		SendResponse(w, peering.CodeOK, nil)

	case "modify":
		if err := h.svc.Set(ctx, caller, &body.SessionRequest, true); err != nil {
			SendError(w, err)
			return
		}
		SendResponse(w, peering.CodeOK, nil)

	case peering.ActionDelete, peering.ActionEnable, peering.ActionDisable,
		peering.ActionApprove, peering.ActionTeardown:
		if err := h.svc.Transition(ctx, caller, body.Router, body.Session, body.Action); err != nil {
			SendError(w, err)
			return
		}
		SendResponse(w, peering.CodeOK, nil)

	case "info":
		reply, err := h.svc.NodeInfo(ctx, caller, body.Router, body.Data)
		if err != nil {
			SendError(w, err)
			return
		}
		SendResponse(w, peering.CodeOK, reply)

	default:
		SendResponse(w, peering.CodeBadRequest, nil)
	}
}
