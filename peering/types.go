package peering

import (
	"encoding/json"

	"github.com/iedon/peerapi/db"
)

// Session status values. DELETED is only ever seen on the agent callback
// wire; it is never persisted.
const (
	StatusDeleted         = 0
	StatusDisabled        = 1
	StatusEnabled         = 2
	StatusPendingApproval = 3
	StatusQueuedForSetup  = 4
	StatusQueuedForDelete = 5
	StatusProblem         = 6
	StatusTeardown        = 7
)

// Routing policy codes carried on a session
const (
	PolicyFull       = 0
	PolicyTransit    = 1
	PolicyPeer       = 2
	PolicyDownstream = 3
	PolicyUpstream   = 4 // admin/internal only
)

// ASN bounds (32-bit AS number space)
const (
	ASNMin = 0
	ASNMax = 4294967295
)

// Caller identifies an authenticated request principal
type Caller struct {
	ASN   uint
	Admin bool
}

// Session is the in-memory view of a bgp_sessions row, with the JSON
// columns decoded at the storage boundary
type Session struct {
	UUID          string          `json:"uuid"`
	Router        string          `json:"router"`
	ASN           uint            `json:"asn"`
	Status        int             `json:"status"`
	IPv4          string          `json:"ipv4"`
	IPv6          string          `json:"ipv6"`
	IPv6LinkLocal string          `json:"ipv6LinkLocal"`
	Type          string          `json:"type"`
	Extensions    []string        `json:"extensions"`
	Interface     string          `json:"interface"`
	Endpoint      string          `json:"endpoint"`
	Credential    string          `json:"credential"`
	Data          json.RawMessage `json:"data"`
	MTU           int             `json:"mtu"`
	Policy        int             `json:"policy"`
	BGPStatus     []BGPStatus     `json:"bgpStatus,omitempty"`
}

// BGPStatus is the live protocol summary an agent reported for one session
type BGPStatus struct {
	Name  string `json:"name"`
	State string `json:"state"`
	Info  string `json:"info"`
	Type  string `json:"type"`
}

// RouterSummary is the public view of a router for the list endpoint
type RouterSummary struct {
	UUID            string          `json:"uuid"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Location        string          `json:"location"`
	OpenPeering     bool            `json:"openPeering"`
	AutoPeering     bool            `json:"autoPeering"`
	SessionCapacity uint            `json:"sessionCapacity"`
	SessionCount    int64           `json:"sessionCount"`
	IPv4            string          `json:"ipv4"`
	IPv6            string          `json:"ipv6"`
	IPv6LinkLocal   string          `json:"ipv6LinkLocal"`
	LinkTypes       []string        `json:"linkTypes"`
	Extensions      []string        `json:"extensions"`
	Metric          json.RawMessage `json:"metric,omitempty"`
}

// Heartbeat is the liveness snapshot an agent pushes periodically
type Heartbeat struct {
	Version   string  `json:"version"`
	Kernel    string  `json:"kernel"`
	LoadAvg   string  `json:"loadAvg"`
	Uptime    float64 `json:"uptime"`
	RS        string  `json:"rs"`
	Tx        uint64  `json:"tx"`
	Rx        uint64  `json:"rx"`
	TCP       int     `json:"tcp"`
	UDP       int     `json:"udp"`
	Timestamp int64   `json:"timestamp"`
}

// SessionMetric is one session's health/metric snapshot from an agent
// report. The core stores it verbatim; only uuid/asn/bgp are interpreted
// for the enum summary.
type SessionMetric struct {
	UUID      string          `json:"uuid"`
	ASN       uint            `json:"asn"`
	Timestamp int64           `json:"timestamp"`
	BGP       []BGPStatus     `json:"bgp"`
	Interface json.RawMessage `json:"interface"`
	RTT       json.RawMessage `json:"rtt"`
}

// sessionFromModel maps a store row into the typed DTO
func sessionFromModel(m *db.BgpSession) *Session {
	extensions, err := m.DecodedExtensions()
	if err != nil {
		extensions = nil
	}
	var data json.RawMessage
	if m.Data != "" {
		data = json.RawMessage(m.Data)
	}
	return &Session{
		UUID:          m.UUID,
		Router:        m.Router,
		ASN:           m.ASN,
		Status:        m.Status,
		IPv4:          m.IPv4,
		IPv6:          m.IPv6,
		IPv6LinkLocal: m.IPv6LinkLocal,
		Type:          m.Type,
		Extensions:    extensions,
		Interface:     m.Interface,
		Endpoint:      m.Endpoint,
		Credential:    m.Credential,
		Data:          data,
		MTU:           m.MTU,
		Policy:        m.Policy,
	}
}

func encodeExtensions(extensions []string) string {
	if extensions == nil {
		extensions = []string{}
	}
	encoded, err := json.Marshal(extensions)
	if err != nil {
		return "[]"
	}
	return string(encoded)
}
