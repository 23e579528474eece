package peering

// CanModify reports whether a session owner may act on a session in the
// given status. Sessions that are mid-flight with the agent (queued,
// pending approval, tearing down) are locked against owner action so a
// second mutation cannot race the in-flight operation. delete and admin
// callers bypass this gate at the call sites.
func CanModify(status int) bool {
	switch status {
	case StatusDeleted, StatusPendingApproval, StatusQueuedForSetup,
		StatusQueuedForDelete, StatusTeardown:
		return false
	default:
		return true
	}
}

// Transition actions accepted by the facade
const (
	ActionEnable   = "enable"
	ActionDisable  = "disable"
	ActionApprove  = "approve"
	ActionTeardown = "teardown"
	ActionDelete   = "delete"
)

// transitionTarget maps a transition action to the status it queues. delete
// is a soft intent; the row is only removed once the agent confirms with
// the DELETED callback.
func transitionTarget(action string) (int, bool) {
	switch action {
	case ActionEnable:
		return StatusEnabled, true
	case ActionDisable:
		return StatusDisabled, true
	case ActionApprove:
		return StatusQueuedForSetup, true
	case ActionTeardown:
		return StatusTeardown, true
	case ActionDelete:
		return StatusQueuedForDelete, true
	default:
		return 0, false
	}
}

// validPersistedStatus reports whether the value is a status an agent may
// write through the modify callback. DELETED is accepted on the wire but
// handled as row removal, never stored.
func validPersistedStatus(status int) bool {
	return status >= StatusDeleted && status <= StatusTeardown
}
