package peering

import (
	"encoding/json"
	"net/netip"
	"net/url"
	"slices"
	"strings"

	"github.com/iedon/peerapi/db"
)

// MTU bounds accepted for any tunnel type
const (
	MTUMin = 1280
	MTUMax = 9999
)

// Link types that carry no credential and use a raw address endpoint
func isPlainLinkType(linkType string) bool {
	return linkType == "gre" || linkType == "ip6gre" || linkType == "direct"
}

// SessionRequest carries the caller-supplied parameters of an add or
// modify operation
type SessionRequest struct {
	Router        string          `json:"router"`
	Session       string          `json:"session"` // required for modify
	ASN           *uint           `json:"asn"`     // admin-only target ASN
	IPv4          string          `json:"ipv4"`
	IPv6          string          `json:"ipv6"`
	IPv6LinkLocal string          `json:"ipv6LinkLocal"`
	Type          string          `json:"type"`
	Extensions    []string        `json:"extensions"`
	MTU           int             `json:"mtu"`
	Policy        int             `json:"policy"`
	Endpoint      string          `json:"endpoint"`
	Credential    string          `json:"credential"`
	Data          json.RawMessage `json:"data"`
}

// validIPv4 accepts strict dotted-quad literals only
func validIPv4(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is4()
}

// validIPv6 accepts IPv6 literals, optionally zoned (fe80::1%eth0)
func validIPv6(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && !addr.Is4()
}

// validateRequest checks everything that does not need router state, and
// normalizes the endpoint in place. Runs before any write.
func validateRequest(req *SessionRequest, caller Caller, modify bool) *Error {
	if req.Router == "" {
		return errBadRequest
	}
	if modify && req.Session == "" {
		return errBadRequest
	}
	if req.Type == "" || len(req.Data) == 0 {
		return errBadRequest
	}

	// At least one address family is required
	if req.IPv4 == "" && req.IPv6 == "" && req.IPv6LinkLocal == "" {
		return errBadRequest
	}
	if req.IPv4 != "" && !validIPv4(req.IPv4) {
		return errBadRequest
	}
	if req.IPv6 != "" && !validIPv6(req.IPv6) {
		return errBadRequest
	}
	if req.IPv6LinkLocal != "" && !validIPv6(req.IPv6LinkLocal) {
		return errBadRequest
	}

	// Admin callers create sessions on behalf of a target ASN
	if caller.Admin && (req.ASN == nil || *req.ASN > ASNMax) {
		return errBadRequest
	}

	if req.Policy < PolicyFull || req.Policy > PolicyUpstream {
		return errBadRequest
	}
	// UPSTREAM is gated to admin callers regardless of router configuration
	if req.Policy == PolicyUpstream && !caller.Admin {
		return errBadRequest
	}

	if req.MTU < MTUMin || req.MTU > MTUMax {
		return errBadRequest
	}

	// Tunnel types other than gre/ip6gre/direct authenticate with a
	// credential (wireguard public key, openvpn/ipsec secret)
	if req.Credential == "" && !isPlainLinkType(req.Type) {
		return errBadRequest
	}

	if req.Endpoint != "" {
		normalized, ok := normalizeEndpoint(req.Type, req.Endpoint)
		if !ok {
			return errBadRequest
		}
		req.Endpoint = normalized
	}

	return nil
}

// normalizeEndpoint validates the endpoint against the tunnel type: gre
// wants an IPv4 literal, ip6gre an IPv6 literal, direct either, everything
// else a host:port parsed as a URL authority.
func normalizeEndpoint(linkType, endpoint string) (string, bool) {
	switch linkType {
	case "gre":
		return endpoint, validIPv4(endpoint)
	case "ip6gre":
		return endpoint, validIPv6(endpoint)
	case "direct":
		return endpoint, validIPv4(endpoint) || validIPv6(endpoint)
	default:
		if !strings.Contains(endpoint, ":") {
			return "", false
		}
		u, err := url.Parse("https://" + endpoint)
		if err != nil || u.Host == "" || u.Port() == "" {
			return "", false
		}
		return u.Host, true
	}
}

// validateAgainstRouter checks the request against the router's advertised
// link types, extensions and policies. A corrupt JSON column rejects the
// request the same way an unadvertised value does.
func validateAgainstRouter(req *SessionRequest, router *db.Router) *Error {
	linkTypes, err := router.DecodedLinkTypes()
	if err != nil || !slices.Contains(linkTypes, req.Type) {
		return errBadRequest
	}

	if len(req.Extensions) > 0 {
		routerExtensions, err := router.DecodedExtensions()
		if err != nil {
			return errBadRequest
		}
		for _, e := range req.Extensions {
			if !slices.Contains(routerExtensions, e) {
				return errBadRequest
			}
		}
	}

	policies, err := router.DecodedPolicies()
	if err != nil || !slices.Contains(policies, req.Policy) {
		return errBadRequest
	}

	return nil
}
