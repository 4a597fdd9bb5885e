package authflow

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// SignupInput is the payload for Manager.Signup.
type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (p SignupInput) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required),
	)
}

// Signup creates an unverified account and issues its verification OTP. An
// existing account with the same email is rejected regardless of its
// verification state. The plaintext OTP goes out through the Mailer and is
// never returned or persisted.
func (m *Manager) Signup(ctx context.Context, input SignupInput) (*User, error) {
	if err := input.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid signup payload").
			WithCode(goerrors.CodeBadRequest)
	}

	email := NormalizeEmail(input.Email)

	otp, err := m.codec.GenerateOTP(DefaultOTPLength)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification code")
	}

	passwordHash, err := HashPassword(input.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided").
			WithCode(goerrors.CodeBadRequest)
	}

	user := &User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: passwordHash,
	}
	user.SetPendingVerification(m.codec.Hash(otp), m.clock().Add(m.otpTTL))

	if m.deterministicIDs {
		if id, err := hashid.NewUUID(email); err == nil {
			user.ID = id
		}
	}

	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := m.repo.Users().FindByEmailTx(ctx, tx, email); err == nil {
			return ErrDuplicateEmail
		} else if !repository.IsRecordNotFound(err) {
			return wrapStorageError(err, "failed to check for existing account")
		}

		if _, err := m.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			return wrapStorageError(err, "could not create account")
		}

		return nil
	})

	if err != nil {
		return nil, resolveManagerError(err, "signup failed")
	}

	m.notify("verification code", func() error {
		return m.mailer.SendVerificationCode(ctx, email, otp)
	})

	return user, nil
}

// VerifyEmail consumes a pending OTP. Wrong code, expired code, and
// already-verified account all collapse into ErrTokenInvalidOrExpired; the
// conditional claim guarantees at most one concurrent attempt succeeds.
func (m *Manager) VerifyEmail(ctx context.Context, email, otp string) (*User, error) {
	if err := (validation.Errors{
		"email": validation.Validate(email, validation.Required),
		"otp":   validation.Validate(otp, validation.Required),
	}).Filter(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "email and otp are required").
			WithCode(goerrors.CodeBadRequest)
	}

	user, err := m.repo.Users().ClaimVerification(ctx, email, m.codec.Hash(otp), m.clock())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrTokenInvalidOrExpired
		}
		return nil, wrapStorageError(err, "failed to verify email")
	}

	m.notify("welcome", func() error {
		return m.mailer.SendWelcome(ctx, user.Email, user.Name)
	})

	return user, nil
}
