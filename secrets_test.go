package authflow_test

import (
	"regexp"
	"testing"

	"github.com/authflowhq/authflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTP(t *testing.T) {
	var codec authflow.SecretCodec

	otp, err := codec.GenerateOTP(6)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), otp)

	// Zero falls back to the default length.
	otp, err = codec.GenerateOTP(0)
	require.NoError(t, err)
	assert.Len(t, otp, authflow.DefaultOTPLength)

	otp, err = codec.GenerateOTP(8)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{8}$`), otp)
}

func TestGenerateResetToken(t *testing.T) {
	var codec authflow.SecretCodec

	token, err := codec.GenerateResetToken()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), token)

	other, err := codec.GenerateResetToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestHashIsDeterministicAndOpaque(t *testing.T) {
	var codec authflow.SecretCodec

	h := codec.Hash("123456")
	assert.Equal(t, h, codec.Hash("123456"))
	assert.NotEqual(t, h, codec.Hash("123457"))
	assert.Len(t, h, 64)
	assert.NotContains(t, h, "123456")
}
