package peering

import (
	"strconv"

	"gorm.io/gorm"

	"github.com/iedon/peerapi/db"
)

// maxSessionsPerPeer bounds how many sessions one ASN may hold on one
// router, which also bounds the interface name suffix to two hex digits
const maxSessionsPerPeer = 0xFF

// interfaceName builds the deterministic tunnel interface identifier:
// "dn" + base36(asn) + base16(n)
func interfaceName(asn uint, n int64) string {
	return "dn" + strconv.FormatUint(uint64(asn), 36) + strconv.FormatInt(n, 16)
}

// allocateInterface assigns a router-unique interface name for a new
// session of peerASN, inside the governing transaction. The candidate is
// derived from the current session count; on collision the n-1 and n+1
// slots are probed before giving up. This is a heuristic collision probe,
// not a guaranteed-unique generator.
func allocateInterface(tx *gorm.DB, routerUUID string, peerASN uint) (string, *Error) {
	var count int64
	if err := tx.Model(&db.BgpSession{}).
		Where("router = ? AND asn = ?", routerUUID, peerASN).
		Count(&count).Error; err != nil {
		return "", errServerError
	}

	if count > maxSessionsPerPeer {
		return "", errBadRequest
	}

	taken := func(name string) (bool, error) {
		var n int64
		err := tx.Model(&db.BgpSession{}).
			Where("router = ? AND asn = ? AND interface = ?", routerUUID, peerASN, name).
			Count(&n).Error
		return n != 0, err
	}

	name := interfaceName(peerASN, count)
	inUse, err := taken(name)
	if err != nil {
		return "", errServerError
	}
	if !inUse {
		return name, nil
	}

	for _, n := range []int64{count - 1, count + 1} {
		name = interfaceName(peerASN, n)
		inUse, err = taken(name)
		if err != nil {
			return "", errServerError
		}
		if !inUse {
			return name, nil
		}
	}

	// Naming space exhausted for this peer
	return "", errRouterNotAvailable
}
