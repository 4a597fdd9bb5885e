package authflow_test

import (
	"testing"
	"time"

	"github.com/authflowhq/authflow"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ada@x.com", authflow.NormalizeEmail("  Ada@X.Com "))
	assert.Equal(t, "", authflow.NormalizeEmail("   "))
}

func TestVerificationFieldsMoveAsPair(t *testing.T) {
	now := time.Now()
	u := &authflow.User{}

	assert.False(t, u.HasPendingVerification(now))

	u.SetPendingVerification("digest", now.Add(time.Hour))
	assert.True(t, u.HasPendingVerification(now))
	assert.NotNil(t, u.VerificationExpiresAt)

	u.ClearVerification()
	assert.False(t, u.HasPendingVerification(now))
	assert.Empty(t, u.VerificationOTPHash)
	assert.Nil(t, u.VerificationExpiresAt)
}

func TestExpiredSecretCountsAsAbsent(t *testing.T) {
	now := time.Now()
	u := &authflow.User{}

	u.SetPendingVerification("digest", now.Add(-time.Minute))
	assert.False(t, u.HasPendingVerification(now))

	u.SetPendingReset("digest", now.Add(-time.Minute))
	assert.False(t, u.HasPendingReset(now))

	u.SetPendingReset("digest", now.Add(time.Minute))
	assert.True(t, u.HasPendingReset(now))
}
