package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Router represents one participating point of presence. Rows are created
// and updated by administrative action only; the session engine reads them
// during validation.
type Router struct {
	UUID            string `gorm:"column:uuid;primaryKey;size:36"`
	Name            string `gorm:"column:name;uniqueIndex:routers_uniq;size:191;not null"`
	Description     string `gorm:"column:description;type:text"`
	AgentSecret     string `gorm:"column:agent_secret;size:191;not null;default:''"`
	Location        string `gorm:"column:location;size:191"`
	// No column defaults on the gate fields: GORM omits zero-valued fields
	// carrying a default tag from the INSERT, which would turn an explicit
	// false (or capacity 0) back into the default.
	Public          bool   `gorm:"column:public;not null"`
	OpenPeering     bool   `gorm:"column:open_peering;not null"`
	AutoPeering     bool   `gorm:"column:auto_peering;not null"`
	SessionCapacity uint   `gorm:"column:session_capacity;not null"`
	CallbackURL     string `gorm:"column:callback_url;size:191;not null"`
	IPv4            string `gorm:"column:ipv4;size:191"`
	IPv6            string `gorm:"column:ipv6;size:191"`
	IPv6LinkLocal   string `gorm:"column:ipv6_link_local;size:191"`
	LinkTypes       string `gorm:"column:link_types;size:191;not null;default:'[\"wireguard\"]'"` // e.g.: ["direct", "wireguard", "openvpn", "gre", "ip6gre"]
	Extensions      string `gorm:"column:extensions;size:191"`                                    // e.g.: ["mp-bgp", "extended-nexthop"]
	AllowedPolicies string `gorm:"column:allowed_policies;size:191;not null;default:'[0,1,2,3]'"` // routing policy codes, e.g.: [0, 1, 2, 3, 4]
}

// TableName sets the table name for GORM
func (Router) TableName() string { return "routers" }

// BeforeCreate assigns a UUID if the row does not carry one
func (r *Router) BeforeCreate(*gorm.DB) error {
	if r.UUID == "" {
		r.UUID = uuid.NewString()
	}
	return nil
}

// DecodedLinkTypes decodes the JSON link_types column into a slice
func (r *Router) DecodedLinkTypes() ([]string, error) {
	return decodeStringSet(r.LinkTypes)
}

// DecodedExtensions decodes the JSON extensions column into a slice
func (r *Router) DecodedExtensions() ([]string, error) {
	return decodeStringSet(r.Extensions)
}

// DecodedPolicies decodes the JSON allowed_policies column into a slice
func (r *Router) DecodedPolicies() ([]int, error) {
	if r.AllowedPolicies == "" {
		return nil, nil
	}
	var policies []int
	if err := json.Unmarshal([]byte(r.AllowedPolicies), &policies); err != nil {
		return nil, err
	}
	return policies, nil
}

// BgpSession represents one peering relationship between an ASN and a
// router. (router, asn, interface) is unique; a session is never
// reparented.
type BgpSession struct {
	UUID          string    `gorm:"column:uuid;primaryKey;size:36"`
	Router        string    `gorm:"column:router;size:36;not null;uniqueIndex:bgp_sessions_uniq;index:idx_bgp_sessions_router"`
	ASN           uint      `gorm:"column:asn;not null;uniqueIndex:bgp_sessions_uniq;index:idx_bgp_sessions_asn"`
	Status        int       `gorm:"column:status;not null"`
	IPv4          string    `gorm:"column:ipv4;size:191"`
	IPv6          string    `gorm:"column:ipv6;size:191"`
	IPv6LinkLocal string    `gorm:"column:ipv6_link_local;size:191"`
	Type          string    `gorm:"column:type;size:191;not null;default:'wireguard'"` // e.g.: direct, wireguard, openvpn, ipsec, gre
	Extensions    string    `gorm:"column:extensions;size:191"`                        // e.g.: ["mp-bgp","extended-nexthop"]
	Interface     string    `gorm:"column:interface;size:191;not null;uniqueIndex:bgp_sessions_uniq"`
	Endpoint      string    `gorm:"column:endpoint;size:191"`
	Credential    string    `gorm:"column:credential;type:text"`
	Data          string    `gorm:"column:data;type:text"`
	MTU           int       `gorm:"column:mtu;not null;default:1280"`
	Policy        int       `gorm:"column:policy;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

// TableName sets the table name for GORM
func (BgpSession) TableName() string { return "bgp_sessions" }

// BeforeCreate assigns a UUID if the row does not carry one
func (s *BgpSession) BeforeCreate(*gorm.DB) error {
	if s.UUID == "" {
		s.UUID = uuid.NewString()
	}
	return nil
}

// DecodedExtensions decodes the JSON extensions column into a slice
func (s *BgpSession) DecodedExtensions() ([]string, error) {
	return decodeStringSet(s.Extensions)
}

// Setting is a single key/value system setting, e.g. NET_ASN holding the
// network administrator's ASN.
type Setting struct {
	Key   string `gorm:"column:key;primaryKey;size:191"`
	Value string `gorm:"column:value;type:text"`
}

// TableName sets the table name for GORM
func (Setting) TableName() string { return "settings" }

func decodeStringSet(column string) ([]string, error) {
	if column == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(column), &values); err != nil {
		return nil, err
	}
	return values, nil
}
