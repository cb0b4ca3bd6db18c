package workflows

// StateMachine enforces certificate status transitions. Issued certificates
// only ever move forward: a revoked certificate stays revoked, and expiry is
// never undone by the system (re-issuing is a new certificate).
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewCertificateStateMachine returns the transition table for certificate
// lifecycle statuses.
func NewCertificateStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			"valid":   {"revoked", "expired"},
			"expired": {"revoked"},
			"revoked": {},
		},
	}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}
