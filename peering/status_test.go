package peering

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanModify(t *testing.T) {
	assert.True(t, CanModify(StatusEnabled))
	assert.True(t, CanModify(StatusDisabled))
	assert.True(t, CanModify(StatusProblem))

	// Everything mid-flight with the agent is locked
	assert.False(t, CanModify(StatusDeleted))
	assert.False(t, CanModify(StatusPendingApproval))
	assert.False(t, CanModify(StatusQueuedForSetup))
	assert.False(t, CanModify(StatusQueuedForDelete))
	assert.False(t, CanModify(StatusTeardown))
}

func TestTransitionTarget(t *testing.T) {
	tests := []struct {
		action string
		status int
		ok     bool
	}{
		{ActionEnable, StatusEnabled, true},
		{ActionDisable, StatusDisabled, true},
		{ActionApprove, StatusQueuedForSetup, true},
		{ActionTeardown, StatusTeardown, true},
		{ActionDelete, StatusQueuedForDelete, true},
		{"add", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		status, ok := transitionTarget(tt.action)
		assert.Equal(t, tt.ok, ok, tt.action)
		if ok {
			assert.Equal(t, tt.status, status, tt.action)
		}
	}
}

func TestValidPersistedStatus(t *testing.T) {
	for status := StatusDeleted; status <= StatusTeardown; status++ {
		assert.True(t, validPersistedStatus(status))
	}
	assert.False(t, validPersistedStatus(-1))
	assert.False(t, validPersistedStatus(8))
}
