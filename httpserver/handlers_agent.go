package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/iedon/peerapi/agentapi"
	"github.com/iedon/peerapi/peering"
)

// AgentHandler serves /agent/{router}/{action} for the per-router agents.
// Agents authenticate with a bcrypt bearer token derived from the shared
// agent API key and their router UUID; the frontend JWT never reaches
// these endpoints.
func (h *Handlers) AgentHandler(w http.ResponseWriter, r *http.Request) {
	routerUUID := r.PathValue("router")
	action := r.PathValue("action")

	if !h.verifyAgent(r, routerUUID) {
		SendResponse(w, peering.CodeUnauthorized, nil)
		return
	}

	exists, err := h.svc.RouterExists(r.Context(), routerUUID)
	if err != nil {
		SendError(w, err)
		return
	}
	if !exists {
		SendResponse(w, peering.CodeNotFound, nil)
		return
	}

	switch action {
	case "sessions":
		h.agentSessions(w, r, routerUUID)
	case "heartbeat":
		h.agentHeartbeat(w, r, routerUUID)
	case "report":
		h.agentReport(w, r, routerUUID)
	case "modify":
		h.agentModify(w, r, routerUUID)
	default:
		SendResponse(w, peering.CodeNotFound, nil)
	}
}

func (h *Handlers) verifyAgent(r *http.Request, routerUUID string) bool {
	if routerUUID == "" {
		return false
	}
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, bearerScheme) {
		return false
	}
	token := header[len(bearerScheme):]
	return agentapi.VerifyToken(h.cfg.Auth.AgentAPIKey, routerUUID, token)
}

// agentSessions returns the desired session set the agent must converge to
func (h *Handlers) agentSessions(w http.ResponseWriter, r *http.Request, routerUUID string) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		SendResponse(w, peering.CodeMethodNotAllowed, nil)
		return
	}

	sessions, err := h.svc.SessionsForRouter(r.Context(), routerUUID)
	if err != nil {
		SendError(w, err)
		return
	}
	SendResponse(w, peering.CodeOK, map[string]any{"bgpSessions": sessions})
}

func (h *Handlers) agentHeartbeat(w http.ResponseWriter, r *http.Request, routerUUID string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		SendResponse(w, peering.CodeMethodNotAllowed, nil)
		return
	}

	var hb peering.Heartbeat
	if err := json.NewDecoder(r.Body).Decode(&hb); err != nil {
		SendResponse(w, peering.CodeBadRequest, nil)
		return
	}

	if err := h.svc.StoreHeartbeat(r.Context(), routerUUID, &hb); err != nil {
		SendError(w, err)
		return
	}
	SendResponse(w, peering.CodeOK, nil)
}

func (h *Handlers) agentReport(w http.ResponseWriter, r *http.Request, routerUUID string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		SendResponse(w, peering.CodeMethodNotAllowed, nil)
		return
	}

	var body struct {
		Metrics []peering.SessionMetric `json:"metrics"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Metrics == nil {
		SendResponse(w, peering.CodeBadRequest, nil)
		return
	}

	if err := h.svc.IngestReport(r.Context(), routerUUID, body.Metrics); err != nil {
		SendError(w, err)
		return
	}
	SendResponse(w, peering.CodeOK, nil)
}

func (h *Handlers) agentModify(w http.ResponseWriter, r *http.Request, routerUUID string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		SendResponse(w, peering.CodeMethodNotAllowed, nil)
		return
	}

	var body struct {
		Session string `json:"session"`
		Status  *int   `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status == nil {
		SendResponse(w, peering.CodeBadRequest, nil)
		return
	}

	if err := h.svc.ApplyAgentModify(r.Context(), routerUUID, body.Session, *body.Status); err != nil {
		SendError(w, err)
		return
	}
	SendResponse(w, peering.CodeOK, nil)
}
