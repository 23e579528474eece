package peering

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/iedon/peerapi/db"
	"github.com/iedon/peerapi/logger"
)

func TestInterfaceName(t *testing.T) {
	tests := []struct {
		asn      uint
		n        int64
		expected string
	}{
		{4242420696, 0, "dn1y5tsrc0"},
		{4242420696, 1, "dn1y5tsrc1"},
		{4242420696, 255, "dn1y5tsrcff"},
		{65001, 0, "dn1e5l0"},
		{1, 2, "dn12"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, interfaceName(tt.asn, tt.n))
	}
}

func newTestStore(t *testing.T) *db.Database {
	t.Helper()
	log, err := logger.New(&logger.Config{
		File:  filepath.Join(t.TempDir(), "test.log"),
		Level: logger.ERROR,
	})
	require.NoError(t, err)

	// A file-backed database: every pooled connection to :memory: would
	// otherwise see its own empty store
	store, err := db.OpenWithDialector(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), log)
	require.NoError(t, err)
	require.NoError(t, store.Migrate())
	return store
}

func TestAllocateInterfaceFirstSession(t *testing.T) {
	store := newTestStore(t)

	name, allocErr := allocateInterface(store.DB(), "router-1", 4242420696)
	require.Nil(t, allocErr)
	assert.Equal(t, "dn1y5tsrc0", name)
}

func TestAllocateInterfaceProbesOnCollision(t *testing.T) {
	store := newTestStore(t)

	// One session exists but occupies the count-derived slot, so the
	// allocator probes the neighbors
	require.NoError(t, store.DB().Create(&db.BgpSession{
		Router:    "router-1",
		ASN:       65001,
		Status:    StatusEnabled,
		IPv6:      "fd42::1",
		Type:      "wireguard",
		Interface: "dn1e5l1",
	}).Error)

	name, allocErr := allocateInterface(store.DB(), "router-1", 65001)
	require.Nil(t, allocErr)
	assert.Equal(t, "dn1e5l0", name)
}

func TestAllocateInterfaceExhausted(t *testing.T) {
	store := newTestStore(t)

	// Four sessions whose interfaces occupy slots 3, 4 and 5: the
	// count-derived candidate and both probe neighbors all collide
	for _, iface := range []string{"dn1e5l3", "dn1e5l4", "dn1e5l5", "dn1e5lff"} {
		require.NoError(t, store.DB().Create(&db.BgpSession{
			Router:    "router-1",
			ASN:       65001,
			Status:    StatusEnabled,
			IPv6:      "fd42::1",
			Type:      "wireguard",
			Interface: iface,
		}).Error)
	}

	_, allocErr := allocateInterface(store.DB(), "router-1", 65001)
	require.NotNil(t, allocErr)
	assert.Equal(t, CodeRouterNotAvailable, allocErr.Code)
}

func TestAllocateInterfaceOtherPeersDoNotCollide(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.DB().Create(&db.BgpSession{
		Router:    "router-1",
		ASN:       4242420696,
		Status:    StatusEnabled,
		IPv6:      "fd42::1",
		Type:      "wireguard",
		Interface: "dn1y5tsrc0",
	}).Error)

	name, allocErr := allocateInterface(store.DB(), "router-1", 65001)
	require.Nil(t, allocErr)
	assert.Equal(t, "dn1e5l0", name)
}
