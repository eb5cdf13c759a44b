package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInvitePolicyDefaults(t *testing.T) {
	policy := DefaultInvitePolicy()

	assert.Equal(t, 15*time.Minute, policy.PendingFreshness())
	assert.Equal(t, 30, policy.EventGraceDays)
	assert.Equal(t, 90, policy.FallbackDays)
	assert.NoError(t, validateInvitePolicy(policy))
}

func TestInvitePolicyHolderZeroValueFallsBackToDefaults(t *testing.T) {
	var holder InvitePolicyHolder
	assert.Equal(t, DefaultInvitePolicy(), holder.Get())

	var nilHolder *InvitePolicyHolder
	assert.Equal(t, DefaultInvitePolicy(), nilHolder.Get())
}

func TestInvitePolicyLocation(t *testing.T) {
	policy := InvitePolicy{DefaultTimezone: "Not/AZone"}
	assert.Equal(t, time.UTC, policy.Location())

	policy.DefaultTimezone = "UTC"
	assert.Equal(t, "UTC", policy.Location().String())
}

func TestValidateInvitePolicyRejectsBadValues(t *testing.T) {
	policy := DefaultInvitePolicy()
	policy.FallbackDays = 0
	assert.Error(t, validateInvitePolicy(policy))

	policy = DefaultInvitePolicy()
	policy.PendingFreshnessMinutes = -1
	assert.Error(t, validateInvitePolicy(policy))

	policy = DefaultInvitePolicy()
	policy.DefaultTimezone = "Mars/Olympus"
	assert.Error(t, validateInvitePolicy(policy))
}
