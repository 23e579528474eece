package peering

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iedon/peerapi/db"
	"github.com/iedon/peerapi/logger"
)

// AgentNotifier pushes state changes to a remote per-router agent
type AgentNotifier interface {
	RequestSync(ctx context.Context, callbackURL, agentSecret, routerUUID string) error
	NodeInfo(ctx context.Context, callbackURL, agentSecret, routerUUID string, asn uint, data json.RawMessage) (json.RawMessage, error)
}

// SnapshotCache stores ephemeral health/metric snapshots keyed by session
// and router
type SnapshotCache interface {
	GetJSON(ctx context.Context, key string, v any) (bool, error)
	SetJSON(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, keys ...string) error
	MergeJSON(ctx context.Context, key string, entries map[string]json.RawMessage) error
}

// Cache key builders
func sessionKey(uuid string) string {
	return "session:" + uuid
}

func routerKey(uuid string) string {
	return "router:" + uuid
}

func enumKey(asn uint) string {
	return "enum:" + strconv.FormatUint(uint64(asn), 10)
}

// Service is the peering session orchestration facade
type Service struct {
	store    *db.Database
	cache    SnapshotCache
	agent    AgentNotifier
	log      *logger.Logger
	fetchLog *logger.Logger
}

// NewService creates the orchestration facade
func NewService(store *db.Database, snapshotCache SnapshotCache, agent AgentNotifier, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		cache:    snapshotCache,
		agent:    agent,
		log:      log.Named("app"),
		fetchLog: log.Named("fetch"),
	}
}

// ResolveCaller builds the request principal for an authenticated ASN. The
// admin ASN is re-read from settings on every call since it can change at
// runtime.
func (s *Service) ResolveCaller(asn uint) Caller {
	adminASN, err := s.store.AdminASN()
	if err != nil {
		s.log.Error("Failed to resolve admin ASN: %v", err)
		return Caller{ASN: asn}
	}
	return Caller{ASN: asn, Admin: adminASN != 0 && adminASN == asn}
}

// Enumerate returns the caller's sessions, or every session for admins,
// with live BGP status merged in from the agent-reported summaries.
func (s *Service) Enumerate(ctx context.Context, caller Caller) ([]*Session, *Error) {
	query := s.store.DB().WithContext(ctx).Model(&db.BgpSession{})
	if !caller.Admin {
		query = query.Where("asn = ?", caller.ASN)
	}

	var rows []db.BgpSession
	if err := query.Find(&rows).Error; err != nil {
		s.log.Error("Failed to enumerate sessions: %v", err)
		return nil, errServerError
	}

	sessions := make([]*Session, 0, len(rows))
	summaries := make(map[uint]map[string][]BGPStatus)
	for i := range rows {
		session := sessionFromModel(&rows[i])

		summary, ok := summaries[session.ASN]
		if !ok {
			summary = make(map[string][]BGPStatus)
			if _, err := s.cache.GetJSON(ctx, enumKey(session.ASN), &summary); err != nil {
				summary = nil
			}
			summaries[session.ASN] = summary
		}
		if status, ok := summary[session.UUID]; ok {
			session.BGPStatus = status
		}

		sessions = append(sessions, session)
	}
	return sessions, nil
}

// Get returns one session, hidden from callers who do not own it
func (s *Service) Get(ctx context.Context, caller Caller, sessionUUID string) (*Session, *Error) {
	if sessionUUID == "" {
		return nil, errBadRequest
	}

	row, err := s.loadSession(s.store.DB().WithContext(ctx), sessionUUID)
	if err != nil {
		return nil, err
	}
	if !caller.Admin && row.ASN != caller.ASN {
		return nil, errNotFound
	}
	return sessionFromModel(row), nil
}

// Set creates a new session or modifies an existing one. Validation, the
// capacity check, interface allocation and the row write all happen inside
// one store transaction; the agent push happens strictly after commit and
// is never awaited.
func (s *Service) Set(ctx context.Context, caller Caller, req *SessionRequest, modify bool) *Error {
	if err := validateRequest(req, caller, modify); err != nil {
		return err
	}

	peerASN := caller.ASN
	if caller.Admin && req.ASN != nil {
		peerASN = *req.ASN
	}

	var router db.Router
	txErr := s.store.Transaction(func(tx *gorm.DB) error {
		if err := s.loadOpenRouter(tx.WithContext(ctx), req.Router, &router); err != nil {
			return err
		}

		if err := validateAgainstRouter(req, &router); err != nil {
			return err
		}

		status := StatusPendingApproval
		if router.AutoPeering {
			status = StatusQueuedForSetup
		}

		if modify {
			return s.applyModify(tx.WithContext(ctx), caller, req, status)
		}
		return s.applyAdd(tx.WithContext(ctx), req, &router, peerASN, status)
	})
	if txErr != nil {
		return s.asCode(txErr)
	}

	if router.AutoPeering {
		s.notifyAgentSync(router.CallbackURL, router.AgentSecret, router.UUID)
	}
	return nil
}

func (s *Service) applyAdd(tx *gorm.DB, req *SessionRequest, router *db.Router, peerASN uint, status int) error {
	// Capacity is enforced for new sessions only, inside the same
	// transaction as the insert
	var count int64
	if err := tx.Model(&db.BgpSession{}).
		Where("router = ?", router.UUID).
		Count(&count).Error; err != nil {
		return err
	}
	if int64(router.SessionCapacity)-count <= 0 {
		return errRouterNotAvailable
	}

	ifname, allocErr := allocateInterface(tx, router.UUID, peerASN)
	if allocErr != nil {
		return allocErr
	}

	row := db.BgpSession{
		Router:        router.UUID,
		ASN:           peerASN,
		Status:        status,
		IPv4:          req.IPv4,
		IPv6:          req.IPv6,
		IPv6LinkLocal: req.IPv6LinkLocal,
		Type:          req.Type,
		Extensions:    encodeExtensions(req.Extensions),
		Interface:     ifname,
		Endpoint:      req.Endpoint,
		Credential:    req.Credential,
		Data:          string(req.Data),
		MTU:           req.MTU,
		Policy:        req.Policy,
	}
	return tx.Create(&row).Error
}

func (s *Service) applyModify(tx *gorm.DB, caller Caller, req *SessionRequest, status int) error {
	row, err := s.loadSession(tx, req.Session)
	if err != nil {
		return errRouterNotAvailable
	}

	if !caller.Admin && row.ASN != caller.ASN {
		return errNotFound
	}
	if !caller.Admin && !CanModify(row.Status) {
		return errBadRequest
	}
	if row.Router != req.Router {
		return errNotFound
	}

	// router, asn and interface are immutable once assigned
	result := tx.Model(&db.BgpSession{}).Where("uuid = ?", row.UUID).Updates(map[string]any{
		"status":          status,
		"ipv4":            req.IPv4,
		"ipv6":            req.IPv6,
		"ipv6_link_local": req.IPv6LinkLocal,
		"type":            req.Type,
		"extensions":      encodeExtensions(req.Extensions),
		"endpoint":        req.Endpoint,
		"credential":      req.Credential,
		"data":            string(req.Data),
		"mtu":             req.MTU,
		"policy":          req.Policy,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return errRouterOperationFailed
	}
	return nil
}

// Transition applies an owner/admin initiated action to a session
func (s *Service) Transition(ctx context.Context, caller Caller, routerUUID, sessionUUID, action string) *Error {
	if sessionUUID == "" || routerUUID == "" {
		return errBadRequest
	}

	target, ok := transitionTarget(action)
	if !ok {
		return errBadRequest
	}

	var router db.Router
	txErr := s.store.Transaction(func(tx *gorm.DB) error {
		row, err := s.loadSession(tx.WithContext(ctx), sessionUUID)
		if err != nil {
			return err
		}

		if !caller.Admin && row.ASN != caller.ASN {
			return errBadRequest
		}
		if row.Router != routerUUID {
			return errNotFound
		}

		// Mid-flight sessions are locked against owner action; delete and
		// admin always pass
		if !CanModify(row.Status) && action != ActionDelete && !caller.Admin {
			return errBadRequest
		}

		// Approval is an admin act on a pending session
		if action == ActionApprove {
			if !caller.Admin {
				return errBadRequest
			}
			if row.Status != StatusPendingApproval {
				return errBadRequest
			}
		}

		if err := s.loadOpenRouterForCallback(tx.WithContext(ctx), routerUUID, &router); err != nil {
			return err
		}

		// An admin-issued delete against a session the agent never
		// provisioned removes the row outright, there is nothing to tear
		// down remotely
		if action == ActionDelete && caller.Admin &&
			(row.Status == StatusPendingApproval || row.Status == StatusQueuedForSetup) {
			if err := s.hardDelete(tx.WithContext(ctx), ctx, row.UUID); err != nil {
				return err
			}
			return nil
		}

		result := tx.WithContext(ctx).Model(&db.BgpSession{}).
			Where("uuid = ?", row.UUID).
			Update("status", target)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return errRouterOperationFailed
		}
		return nil
	})
	if txErr != nil {
		return s.asCode(txErr)
	}

	s.notifyAgentSync(router.CallbackURL, router.AgentSecret, router.UUID)
	return nil
}

// QueryLiveStatus returns the cached health/metric snapshot for a session,
// with the session's opaque data blob attached
func (s *Service) QueryLiveStatus(ctx context.Context, caller Caller, sessionUUID string) (map[string]any, *Error) {
	if sessionUUID == "" {
		return nil, errBadRequest
	}

	row, err := s.loadSession(s.store.DB().WithContext(ctx), sessionUUID)
	if err != nil {
		return nil, err
	}
	if !caller.Admin && row.ASN != caller.ASN {
		return nil, errNotFound
	}

	data := make(map[string]any)
	if _, cacheErr := s.cache.GetJSON(ctx, sessionKey(sessionUUID), &data); cacheErr != nil {
		data = make(map[string]any)
	}

	if row.Data != "" {
		data["data"] = json.RawMessage(row.Data)
	} else {
		data["data"] = ""
	}
	return data, nil
}

// NodeInfo forwards an opaque payload to the router's agent and returns
// its opaque reply
func (s *Service) NodeInfo(ctx context.Context, caller Caller, routerUUID string, data json.RawMessage) (json.RawMessage, *Error) {
	if routerUUID == "" {
		return nil, errBadRequest
	}

	var router db.Router
	if err := s.loadOpenRouterForCallback(s.store.DB().WithContext(ctx), routerUUID, &router); err != nil {
		return nil, s.asCode(err)
	}

	reply, err := s.agent.NodeInfo(ctx, router.CallbackURL, router.AgentSecret, router.UUID, caller.ASN, data)
	if err != nil {
		s.fetchLog.Error("Calling router's callback failed: %v", err)
		return nil, errRouterOperationFailed
	}
	return reply, nil
}

// ListRouters returns the public router catalog with live session counts
// and heartbeat snapshots
func (s *Service) ListRouters(ctx context.Context) ([]*RouterSummary, *Error) {
	var routers []db.Router
	if err := s.store.DB().WithContext(ctx).Where("public = ?", true).Find(&routers).Error; err != nil {
		s.log.Error("Failed to list routers: %v", err)
		return nil, errServerError
	}

	summaries := make([]*RouterSummary, 0, len(routers))
	for i := range routers {
		r := &routers[i]

		var count int64
		if err := s.store.DB().WithContext(ctx).Model(&db.BgpSession{}).
			Where("router = ?", r.UUID).
			Count(&count).Error; err != nil {
			s.log.Error("Failed to count sessions for router %s: %v", r.UUID, err)
			return nil, errServerError
		}

		linkTypes, _ := r.DecodedLinkTypes()
		extensions, _ := r.DecodedExtensions()

		summary := &RouterSummary{
			UUID:            r.UUID,
			Name:            r.Name,
			Description:     r.Description,
			Location:        r.Location,
			OpenPeering:     r.OpenPeering,
			AutoPeering:     r.AutoPeering,
			SessionCapacity: r.SessionCapacity,
			SessionCount:    count,
			IPv4:            r.IPv4,
			IPv6:            r.IPv6,
			IPv6LinkLocal:   r.IPv6LinkLocal,
			LinkTypes:       linkTypes,
			Extensions:      extensions,
		}

		var metric json.RawMessage
		if ok, _ := s.cache.GetJSON(ctx, routerKey(r.UUID), &metric); ok {
			summary.Metric = metric
		}

		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// RouterExists reports whether a router row exists at all, public or not.
// Agents authenticate against non-public routers too.
func (s *Service) RouterExists(ctx context.Context, routerUUID string) (bool, *Error) {
	var count int64
	if err := s.store.DB().WithContext(ctx).Model(&db.Router{}).
		Where("uuid = ?", routerUUID).
		Count(&count).Error; err != nil {
		s.log.Error("Failed to check router %s: %v", routerUUID, err)
		return false, errServerError
	}
	return count > 0, nil
}

// SessionsForRouter returns the full session list the agent of routerUUID
// must converge to
func (s *Service) SessionsForRouter(ctx context.Context, routerUUID string) ([]*Session, *Error) {
	var rows []db.BgpSession
	if err := s.store.DB().WithContext(ctx).
		Where("router = ?", routerUUID).
		Find(&rows).Error; err != nil {
		s.log.Error("Failed to fetch sessions for router %s: %v", routerUUID, err)
		return nil, errServerError
	}

	sessions := make([]*Session, 0, len(rows))
	for i := range rows {
		sessions = append(sessions, sessionFromModel(&rows[i]))
	}
	return sessions, nil
}

// StoreHeartbeat persists the agent's liveness snapshot in the cache
func (s *Service) StoreHeartbeat(ctx context.Context, routerUUID string, hb *Heartbeat) *Error {
	if err := s.cache.SetJSON(ctx, routerKey(routerUUID), hb); err != nil {
		return errServerError
	}
	return nil
}

// ApplyAgentModify applies a status reported by the authenticated agent.
// DELETED removes the row and its cached snapshot instead of writing a
// status.
func (s *Service) ApplyAgentModify(ctx context.Context, routerUUID, sessionUUID string, status int) *Error {
	if sessionUUID == "" || !validPersistedStatus(status) {
		return errBadRequest
	}

	var router db.Router
	txErr := s.store.Transaction(func(tx *gorm.DB) error {
		row, err := s.loadSession(tx.WithContext(ctx), sessionUUID)
		if err != nil {
			return err
		}
		if row.Router != routerUUID {
			return errNotFound
		}

		if err := s.loadOpenRouterForCallback(tx.WithContext(ctx), row.Router, &router); err != nil {
			return errRouterOperationFailed
		}

		if status == StatusDeleted {
			return s.hardDelete(tx.WithContext(ctx), ctx, row.UUID)
		}

		result := tx.WithContext(ctx).Model(&db.BgpSession{}).
			Where("uuid = ?", row.UUID).
			Update("status", status)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return errRouterOperationFailed
		}
		return nil
	})
	if txErr != nil {
		return s.asCode(txErr)
	}

	s.notifyAgentSync(router.CallbackURL, router.AgentSecret, router.UUID)
	return nil
}

// IngestReport stores per-session metric snapshots and refreshes the
// per-ASN BGP status summaries used by Enumerate
func (s *Service) IngestReport(ctx context.Context, routerUUID string, metrics []SessionMetric) *Error {
	enumEntries := make(map[uint]map[string]json.RawMessage)

	for i := range metrics {
		metric := &metrics[i]
		if metric.UUID == "" {
			continue
		}

		if err := s.cache.SetJSON(ctx, sessionKey(metric.UUID), metric); err != nil {
			s.log.Error("Failed to save session data for %s: %v", metric.UUID, err)
			continue
		}

		status := metric.BGP
		if status == nil {
			status = []BGPStatus{}
		}
		encoded, err := json.Marshal(status)
		if err != nil {
			continue
		}
		if _, ok := enumEntries[metric.ASN]; !ok {
			enumEntries[metric.ASN] = make(map[string]json.RawMessage)
		}
		enumEntries[metric.ASN][metric.UUID] = encoded
	}

	for asn, entries := range enumEntries {
		if err := s.cache.MergeJSON(ctx, enumKey(asn), entries); err != nil {
			s.log.Error("Error updating enum data for ASN %d: %v", asn, err)
		}
	}
	return nil
}

// --- internals ---

// loadSession fetches one session row by uuid
func (s *Service) loadSession(tx *gorm.DB, sessionUUID string) (*db.BgpSession, *Error) {
	var row db.BgpSession
	err := tx.Where("uuid = ?", sessionUUID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound
		}
		s.log.Error("Failed to load session %s: %v", sessionUUID, err)
		return nil, errServerError
	}
	return &row, nil
}

// loadOpenRouter fetches a router accepting new peerings, taking a row
// lock so two concurrent adds cannot both observe the last free capacity
// slot. SQLite (used in tests) rejects FOR UPDATE and serializes writers
// anyway.
func (s *Service) loadOpenRouter(tx *gorm.DB, routerUUID string, router *db.Router) error {
	query := tx.Where("uuid = ? AND public = ? AND open_peering = ?", routerUUID, true, true)
	if tx.Dialector.Name() == "mysql" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.First(router).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errRouterNotAvailable
		}
		return err
	}
	if router.CallbackURL == "" || router.AgentSecret == "" {
		return errRouterNotAvailable
	}
	return nil
}

// loadOpenRouterForCallback fetches a public router's callback coordinates
func (s *Service) loadOpenRouterForCallback(tx *gorm.DB, routerUUID string, router *db.Router) error {
	err := tx.Where("uuid = ? AND public = ?", routerUUID, true).First(router).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errRouterNotAvailable
		}
		return err
	}
	if router.CallbackURL == "" || router.AgentSecret == "" {
		return errRouterNotAvailable
	}
	return nil
}

// hardDelete removes a session row and its cached health snapshot
func (s *Service) hardDelete(tx *gorm.DB, ctx context.Context, sessionUUID string) error {
	result := tx.Where("uuid = ?", sessionUUID).Delete(&db.BgpSession{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return errRouterOperationFailed
	}
	if err := s.cache.Delete(ctx, sessionKey(sessionUUID)); err != nil {
		s.log.Error("Failed to delete cached snapshot for %s: %v", sessionUUID, err)
	}
	return nil
}

// notifyAgentSync fires the post-commit push to the agent. It never blocks
// the response path and its failure is observable only in the fetch log;
// the committed database state is authoritative either way.
func (s *Service) notifyAgentSync(callbackURL, agentSecret, routerUUID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.agent.RequestSync(ctx, callbackURL, agentSecret, routerUUID); err != nil {
			s.fetchLog.Error("Failed to request agent to sync: %v", err)
		}
	}()
}

// asCode maps a transaction error to a stable result code. Unexpected
// store errors are logged and surfaced as a generic operation failure.
func (s *Service) asCode(err error) *Error {
	var coded *Error
	if errors.As(err, &coded) {
		return coded
	}
	s.log.Error("Transaction failed: %v", err)
	return errRouterOperationFailed
}
