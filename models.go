package authflow

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account record. Secrets never appear here in plaintext: the
// verification OTP and reset token columns hold SHA-256 digests, the
// password column a bcrypt hash. Each secret digest travels with its expiry
// as a pair; they are set and cleared together.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name         string    `bun:"name,notnull" json:"name,omitempty"`
	Email        string    `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	IsVerified   bool      `bun:"is_verified" json:"is_verified"`

	VerificationOTPHash   string     `bun:"verification_otp_hash,nullzero" json:"-"`
	VerificationExpiresAt *time.Time `bun:"verification_expires_at,nullzero" json:"-"`

	ResetTokenHash string     `bun:"reset_token_hash,nullzero" json:"-"`
	ResetExpiresAt *time.Time `bun:"reset_expires_at,nullzero" json:"-"`

	LastLoginAt *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt   *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt   *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt   *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// NormalizeEmail lowercases and trims an email so lookups and the unique
// constraint behave case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SetPendingVerification stores the OTP digest and deadline as a pair,
// superseding any outstanding OTP.
func (u *User) SetPendingVerification(otpHash string, expiresAt time.Time) *User {
	u.VerificationOTPHash = otpHash
	u.VerificationExpiresAt = &expiresAt
	return u
}

// ClearVerification drops both verification fields together.
func (u *User) ClearVerification() *User {
	u.VerificationOTPHash = ""
	u.VerificationExpiresAt = nil
	return u
}

// SetPendingReset stores the reset token digest and deadline as a pair,
// superseding any outstanding reset request.
func (u *User) SetPendingReset(tokenHash string, expiresAt time.Time) *User {
	u.ResetTokenHash = tokenHash
	u.ResetExpiresAt = &expiresAt
	return u
}

// ClearReset drops both reset fields together.
func (u *User) ClearReset() *User {
	u.ResetTokenHash = ""
	u.ResetExpiresAt = nil
	return u
}

// HasPendingVerification reports whether a live OTP is outstanding. Expired
// entries count as absent; clearing them is lazy.
func (u *User) HasPendingVerification(now time.Time) bool {
	return u.VerificationOTPHash != "" &&
		u.VerificationExpiresAt != nil &&
		u.VerificationExpiresAt.After(now)
}

// HasPendingReset reports whether a live reset token is outstanding.
func (u *User) HasPendingReset(now time.Time) bool {
	return u.ResetTokenHash != "" &&
		u.ResetExpiresAt != nil &&
		u.ResetExpiresAt.After(now)
}
