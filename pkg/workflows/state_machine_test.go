package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCertificateTransitions(t *testing.T) {
	sm := NewCertificateStateMachine()

	assert.True(t, sm.CanTransition("valid", "revoked"))
	assert.True(t, sm.CanTransition("valid", "expired"))
	assert.True(t, sm.CanTransition("expired", "revoked"))

	// Revocation is terminal and nothing moves backwards.
	assert.False(t, sm.CanTransition("revoked", "valid"))
	assert.False(t, sm.CanTransition("revoked", "expired"))
	assert.False(t, sm.CanTransition("expired", "valid"))
	assert.False(t, sm.CanTransition("valid", "valid"))
}

func TestUnknownStatus(t *testing.T) {
	sm := NewCertificateStateMachine()

	assert.False(t, sm.CanTransition("draft", "valid"))
	assert.Empty(t, sm.GetAllowedTransitions("draft"))
}
