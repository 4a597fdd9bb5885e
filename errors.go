package authflow

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeDuplicateEmail marks signup attempts against a taken email.
	TextCodeDuplicateEmail = "DUPLICATE_EMAIL"
	// TextCodeInvalidCredentials marks failed logins, identical for unknown
	// emails and wrong passwords.
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	// TextCodeTokenInvalidOrExpired covers wrong, expired, and already
	// consumed secrets. One code for all cases so responses leak nothing.
	TextCodeTokenInvalidOrExpired = "INVALID_OR_EXPIRED_TOKEN"
	// TextCodeNotAuthenticated marks missing or rejected session tokens.
	TextCodeNotAuthenticated = "NOT_AUTHENTICATED"
)

// ErrDuplicateEmail is returned when signup hits an existing account,
// verified or not.
var ErrDuplicateEmail = goerrors.New("an account with this email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(goerrors.CodeConflict)

// ErrInvalidCredentials is the single login failure. The message must stay
// identical whether the account is missing or the password is wrong.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenInvalidOrExpired is returned for any OTP or reset token that does
// not match a live pending secret.
var ErrTokenInvalidOrExpired = goerrors.New("invalid or expired token", goerrors.CategoryValidation).
	WithTextCode(TextCodeTokenInvalidOrExpired).
	WithCode(goerrors.CodeBadRequest)

// ErrNotAuthenticated is the uniform session validation failure.
var ErrNotAuthenticated = goerrors.New("not authorized", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotAuthenticated).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty secrets and passwords before hashing.
var ErrNoEmptyString = errors.New("value must not be an empty string")

// ErrMismatchedHashAndPassword is the normalized bcrypt mismatch error.
var ErrMismatchedHashAndPassword = errors.New("mismatched hash and password")

// ErrUnableToMapClaims means a parsed token carried claims we cannot read.
var ErrUnableToMapClaims = errors.New("unable to map claims")

// HTTPStatusFromError resolves the HTTP status for a manager or token
// failure. Unrecognized errors map to 500.
func HTTPStatusFromError(err error) int {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Code > 0 {
		return richErr.Code
	}
	return goerrors.CodeInternal
}

// wrapStorageError normalizes repository failures so boundary layers see a
// single internal category instead of driver specifics.
func wrapStorageError(err error, msg string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
