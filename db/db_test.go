package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/iedon/peerapi/logger"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	log, err := logger.New(&logger.Config{
		File:  filepath.Join(t.TempDir(), "test.log"),
		Level: logger.ERROR,
	})
	require.NoError(t, err)

	store, err := OpenWithDialector(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), log)
	require.NoError(t, err)
	require.NoError(t, store.Migrate())
	return store
}

func TestAdminASN(t *testing.T) {
	store := newTestDatabase(t)

	// No setting at all: no admin
	asn, err := store.AdminASN()
	require.NoError(t, err)
	assert.Equal(t, uint(0), asn)

	require.NoError(t, store.DB().Create(&Setting{Key: SettingNetASN, Value: "64512"}).Error)
	asn, err = store.AdminASN()
	require.NoError(t, err)
	assert.Equal(t, uint(64512), asn)

	// A garbage value demotes to no admin instead of failing requests
	require.NoError(t, store.DB().Model(&Setting{}).Where("`key` = ?", SettingNetASN).Update("value", "not-a-number").Error)
	asn, err = store.AdminASN()
	require.NoError(t, err)
	assert.Equal(t, uint(0), asn)
}

func TestBeforeCreateAssignsUUIDs(t *testing.T) {
	store := newTestDatabase(t)

	router := &Router{Name: "JP-TYO", CallbackURL: "http://agent.example.com"}
	require.NoError(t, store.DB().Create(router).Error)
	assert.NotEmpty(t, router.UUID)

	session := &BgpSession{Router: router.UUID, ASN: 65001, Type: "wireguard", Interface: "dn1e5l0", MTU: 1420}
	require.NoError(t, store.DB().Create(session).Error)
	assert.NotEmpty(t, session.UUID)
}

func TestRouterPersistsZeroValuedGates(t *testing.T) {
	store := newTestDatabase(t)

	router := &Router{
		Name:            "KR-SEL",
		CallbackURL:     "http://agent.example.com",
		Public:          false,
		OpenPeering:     false,
		AutoPeering:     false,
		SessionCapacity: 0,
	}
	require.NoError(t, store.DB().Create(router).Error)

	var got Router
	require.NoError(t, store.DB().First(&got, "uuid = ?", router.UUID).Error)
	assert.False(t, got.Public)
	assert.False(t, got.OpenPeering)
	assert.False(t, got.AutoPeering)
	assert.Equal(t, uint(0), got.SessionCapacity)
}

func TestSessionUniquePerRouterASNInterface(t *testing.T) {
	store := newTestDatabase(t)

	first := &BgpSession{Router: "router-1", ASN: 65001, Type: "wireguard", Interface: "dn1e5l0", MTU: 1420}
	require.NoError(t, store.DB().Create(first).Error)

	duplicate := &BgpSession{Router: "router-1", ASN: 65001, Type: "wireguard", Interface: "dn1e5l0", MTU: 1420}
	assert.Error(t, store.DB().Create(duplicate).Error)

	// Same interface on another router is fine
	other := &BgpSession{Router: "router-2", ASN: 65001, Type: "wireguard", Interface: "dn1e5l0", MTU: 1420}
	assert.NoError(t, store.DB().Create(other).Error)
}

func TestDecodedColumns(t *testing.T) {
	router := &Router{
		LinkTypes:       `["wireguard","gre"]`,
		Extensions:      `["mp-bgp"]`,
		AllowedPolicies: `[0,1,2]`,
	}

	linkTypes, err := router.DecodedLinkTypes()
	require.NoError(t, err)
	assert.Equal(t, []string{"wireguard", "gre"}, linkTypes)

	extensions, err := router.DecodedExtensions()
	require.NoError(t, err)
	assert.Equal(t, []string{"mp-bgp"}, extensions)

	policies, err := router.DecodedPolicies()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, policies)

	empty := &Router{}
	linkTypes, err = empty.DecodedLinkTypes()
	require.NoError(t, err)
	assert.Nil(t, linkTypes)

	broken := &Router{LinkTypes: `{not json`}
	_, err = broken.DecodedLinkTypes()
	assert.Error(t, err)
}
