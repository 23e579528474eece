package peering

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iedon/peerapi/db"
)

func wireguardRequest() *SessionRequest {
	return &SessionRequest{
		Router:     "router-1",
		IPv6:       "fd42:4242:2189::1",
		Type:       "wireguard",
		Extensions: []string{"mp-bgp"},
		MTU:        1420,
		Policy:     PolicyPeer,
		Endpoint:   "peer.example.com:51820",
		Credential: "lV3r6oYkXDqScnX1Uy+1f0SCBOuOSdVRa62vgAxU4Wk=",
		Data:       json.RawMessage(`{"asn":65001}`),
	}
}

func TestValidateRequest(t *testing.T) {
	caller := Caller{ASN: 65001}

	tests := []struct {
		name   string
		mutate func(*SessionRequest)
		caller Caller
		modify bool
		ok     bool
	}{
		{name: "valid wireguard", mutate: func(r *SessionRequest) {}, caller: caller, ok: true},
		{name: "missing router", mutate: func(r *SessionRequest) { r.Router = "" }, caller: caller},
		{name: "missing type", mutate: func(r *SessionRequest) { r.Type = "" }, caller: caller},
		{name: "missing data", mutate: func(r *SessionRequest) { r.Data = nil }, caller: caller},
		{name: "no address family", mutate: func(r *SessionRequest) {
			r.IPv4, r.IPv6, r.IPv6LinkLocal = "", "", ""
		}, caller: caller},
		{name: "bad ipv4 literal", mutate: func(r *SessionRequest) { r.IPv4 = "300.1.2.3" }, caller: caller},
		{name: "ipv6 in ipv4 field", mutate: func(r *SessionRequest) { r.IPv4 = "fd42::1" }, caller: caller},
		{name: "bad ipv6 literal", mutate: func(r *SessionRequest) { r.IPv6 = "fd42::zz" }, caller: caller},
		{name: "link local accepts zone", mutate: func(r *SessionRequest) {
			r.IPv6LinkLocal = "fe80::1"
		}, caller: caller, ok: true},
		{name: "mtu below minimum", mutate: func(r *SessionRequest) { r.MTU = 1279 }, caller: caller},
		{name: "mtu above maximum", mutate: func(r *SessionRequest) { r.MTU = 10000 }, caller: caller},
		{name: "policy out of range", mutate: func(r *SessionRequest) { r.Policy = 5 }, caller: caller},
		{name: "upstream requires admin", mutate: func(r *SessionRequest) { r.Policy = PolicyUpstream }, caller: caller},
		{name: "upstream as admin", mutate: func(r *SessionRequest) {
			r.Policy = PolicyUpstream
			asn := uint(65002)
			r.ASN = &asn
		}, caller: Caller{ASN: 64512, Admin: true}, ok: true},
		{name: "admin without target asn", mutate: func(r *SessionRequest) {}, caller: Caller{ASN: 64512, Admin: true}},
		{name: "admin target asn out of range", mutate: func(r *SessionRequest) {
			asn := uint(uint64(ASNMax) + 1)
			r.ASN = &asn
		}, caller: Caller{ASN: 64512, Admin: true}},
		{name: "credential required for wireguard", mutate: func(r *SessionRequest) { r.Credential = "" }, caller: caller},
		{name: "gre needs no credential", mutate: func(r *SessionRequest) {
			r.Type = "gre"
			r.Credential = ""
			r.Endpoint = "192.0.2.10"
		}, caller: caller, ok: true},
		{name: "modify without session uuid", mutate: func(r *SessionRequest) {}, caller: caller, modify: true},
		{name: "modify with session uuid", mutate: func(r *SessionRequest) {
			r.Session = "aa5a271e-6b55-4555-a4e1-a4bd29b7d81f"
		}, caller: caller, modify: true, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := wireguardRequest()
			tt.mutate(req)
			err := validateRequest(req, tt.caller, tt.modify)
			if tt.ok {
				assert.Nil(t, err)
			} else {
				require.NotNil(t, err)
				assert.Equal(t, CodeBadRequest, err.Code)
			}
		})
	}
}

func TestValidateRequestNormalizesEndpoint(t *testing.T) {
	req := wireguardRequest()
	req.Endpoint = "peer.example.com:51820"
	require.Nil(t, validateRequest(req, Caller{ASN: 65001}, false))
	assert.Equal(t, "peer.example.com:51820", req.Endpoint)
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		linkType string
		endpoint string
		want     string
		ok       bool
	}{
		{"gre", "192.0.2.10", "192.0.2.10", true},
		{"gre", "2001:db8::1", "", false},
		{"gre", "peer.example.com", "", false},
		{"ip6gre", "2001:db8::1", "2001:db8::1", true},
		{"ip6gre", "192.0.2.10", "", false},
		{"direct", "192.0.2.10", "192.0.2.10", true},
		{"direct", "2001:db8::1", "2001:db8::1", true},
		{"direct", "not-an-address", "", false},
		{"wireguard", "peer.example.com:51820", "peer.example.com:51820", true},
		{"wireguard", "peer.example.com", "", false},
		{"wireguard", "peer.example.com:", "", false},
		{"wireguard", "[2001:db8::1]:51820", "[2001:db8::1]:51820", true},
	}
	for _, tt := range tests {
		got, ok := normalizeEndpoint(tt.linkType, tt.endpoint)
		assert.Equal(t, tt.ok, ok, "%s %s", tt.linkType, tt.endpoint)
		if tt.ok {
			assert.Equal(t, tt.want, got)
		}
	}
}

func TestValidateAgainstRouter(t *testing.T) {
	router := &db.Router{
		LinkTypes:       `["wireguard","gre"]`,
		Extensions:      `["mp-bgp","extended-nexthop"]`,
		AllowedPolicies: `[0,1,2,3]`,
	}

	req := wireguardRequest()
	assert.Nil(t, validateAgainstRouter(req, router))

	t.Run("link type not offered", func(t *testing.T) {
		r := wireguardRequest()
		r.Type = "openvpn"
		err := validateAgainstRouter(r, router)
		require.NotNil(t, err)
		assert.Equal(t, CodeBadRequest, err.Code)
	})

	t.Run("extension not offered", func(t *testing.T) {
		r := wireguardRequest()
		r.Extensions = []string{"mp-bgp", "bfd"}
		require.NotNil(t, validateAgainstRouter(r, router))
	})

	t.Run("policy not allowed", func(t *testing.T) {
		r := wireguardRequest()
		r.Policy = PolicyUpstream
		require.NotNil(t, validateAgainstRouter(r, router))
	})

	t.Run("corrupt link types column", func(t *testing.T) {
		broken := &db.Router{LinkTypes: `{not json`, AllowedPolicies: `[0]`}
		require.NotNil(t, validateAgainstRouter(wireguardRequest(), broken))
	})
}
