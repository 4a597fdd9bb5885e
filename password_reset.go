package authflow

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// RequestPasswordReset issues a reset token for the account behind email.
// The caller always gets the same outcome: unknown emails are a silent
// no-op, with no notification, so the endpoint cannot be used to probe for
// accounts. A repeated request overwrites the previous token and expiry.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) error {
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "a valid email is required").
			WithCode(goerrors.CodeBadRequest)
	}

	user, err := m.repo.Users().FindByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil
		}
		return wrapStorageError(err, "failed to look up account")
	}

	token, err := m.codec.GenerateResetToken()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate reset token")
	}

	if _, err := m.repo.Users().StorePendingReset(ctx, user.ID, m.codec.Hash(token), m.clock().Add(m.resetTTL)); err != nil {
		return wrapStorageError(err, "failed to store reset token")
	}

	m.notify("password reset link", func() error {
		return m.mailer.SendPasswordResetLink(ctx, user.Email, m.ResetLink(token))
	})

	return nil
}

// ResetPassword consumes a reset token and installs the new password.
// Replaying a consumed token, or presenting an expired or unknown one, all
// fail with the same ErrTokenInvalidOrExpired.
func (m *Manager) ResetPassword(ctx context.Context, token, newPassword string) (*User, error) {
	if token == "" {
		return nil, ErrTokenInvalidOrExpired
	}

	if err := validation.Validate(newPassword, validation.Required); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "password is required").
			WithCode(goerrors.CodeBadRequest)
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided").
			WithCode(goerrors.CodeBadRequest)
	}

	user, err := m.repo.Users().ClaimReset(ctx, m.codec.Hash(token), passwordHash, m.clock())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrTokenInvalidOrExpired
		}
		return nil, wrapStorageError(err, "failed to reset password")
	}

	m.notify("password reset confirmation", func() error {
		return m.mailer.SendPasswordResetConfirmation(ctx, user.Email)
	})

	return user, nil
}

// ResetLink builds the link mailed to the user, embedding the plaintext
// token.
func (m *Manager) ResetLink(token string) string {
	base := strings.TrimSuffix(m.resetBaseURL, "/")
	return base + "/auth/reset-password/" + token
}
