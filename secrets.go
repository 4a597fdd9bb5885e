package authflow

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

const (
	// DefaultOTPLength is the number of digits in a verification code.
	DefaultOTPLength = 6
	// resetTokenBytes is the entropy of an opaque reset token.
	resetTokenBytes = 32
)

// SecretCodec generates the random secrets mailed to users and computes the
// one-way digests that are persisted in their place. The zero value is ready
// to use.
type SecretCodec struct{}

// GenerateOTP returns a cryptographically random digit string. A length of
// zero or less falls back to DefaultOTPLength.
func (SecretCodec) GenerateOTP(length int) (string, error) {
	if length <= 0 {
		length = DefaultOTPLength
	}

	ten := big.NewInt(10)
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		digits[i] = '0' + byte(n.Int64())
	}

	return string(digits), nil
}

// GenerateResetToken returns a hex-encoded 32-byte random token for reset
// links.
func (SecretCodec) GenerateResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Hash returns the hex SHA-256 digest of a secret. Only this digest is ever
// persisted; the plaintext leaves the module exclusively through the Mailer.
func (SecretCodec) Hash(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
