package agentapi

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// GenerateToken generates a bcrypt bearer token for outbound agent calls.
// The hash covers agentSecret+routerUUID with a fresh random salt per call;
// the agent verifies it with a bcrypt compare against its local secret.
func GenerateToken(agentSecret, routerUUID string) (string, error) {
	if agentSecret == "" || routerUUID == "" {
		return "", errors.New("missing agent secret or router UUID")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(agentSecret+routerUUID), 10)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// VerifyToken verifies an inbound agent bearer token against the server's
// agent API key and the router UUID the agent claims to act for. bcrypt's
// compare is constant time over the derived hash.
func VerifyToken(agentAPIKey, routerUUID, token string) bool {
	if token == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(token), []byte(agentAPIKey+routerUUID))
	return err == nil
}
