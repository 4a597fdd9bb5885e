package authflow

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultSessionTTLHours is the session lifetime when the config does not
// set one.
const DefaultSessionTTLHours = 7 * 24

// SessionClaims are the claims carried by a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID string `json:"uid,omitempty"`
}

// TokenService mints and validates the signed session tokens bound to an
// account id. Any tampering, signature, or expiry failure surfaces as the
// same ErrNotAuthenticated.
type TokenService interface {
	Issue(accountID uuid.UUID) (string, error)
	Validate(token string) (*SessionObject, error)
}

// TokenServiceImpl implements TokenService on HS256 JWTs.
type TokenServiceImpl struct {
	signingKey []byte
	tokenTTL   time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	clock      func() time.Time
}

// NewTokenService creates a TokenService. ttlHours of zero or less falls
// back to DefaultSessionTTLHours.
func NewTokenService(signingKey []byte, ttlHours int, issuer string, audience []string, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}

	if ttlHours <= 0 {
		ttlHours = DefaultSessionTTLHours
	}

	var aud jwt.ClaimStrings
	if len(audience) > 0 {
		aud = make(jwt.ClaimStrings, len(audience))
		copy(aud, audience)
	}

	return &TokenServiceImpl{
		signingKey: signingKey,
		tokenTTL:   time.Duration(ttlHours) * time.Hour,
		issuer:     issuer,
		audience:   aud,
		logger:     logger,
		clock:      time.Now,
	}
}

// WithClock overrides the time source, used by expiry tests.
func (ts *TokenServiceImpl) WithClock(clock func() time.Time) *TokenServiceImpl {
	if clock != nil {
		ts.clock = clock
	}
	return ts
}

// TTL returns the configured session lifetime.
func (ts *TokenServiceImpl) TTL() time.Duration {
	return ts.tokenTTL
}

// Issue signs a session token binding the account id and an expiry.
func (ts *TokenServiceImpl) Issue(accountID uuid.UUID) (string, error) {
	now := ts.clock()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   accountID.String(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.tokenTTL)),
		},
		UID: accountID.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session token")
	}

	return signed, nil
}

// Validate verifies signature and expiry and returns the bound session. The
// reason for a rejection is logged, never returned.
func (ts *TokenServiceImpl) Validate(raw string) (*SessionObject, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		ts.logger.Debug("session token rejected: %s", err)
		return nil, ErrNotAuthenticated
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		ts.logger.Debug("session token carried unreadable claims")
		return nil, ErrNotAuthenticated
	}

	session, err := sessionFromClaims(claims)
	if err != nil {
		ts.logger.Debug("session claims mapping failed: %s", err)
		return nil, ErrNotAuthenticated
	}

	return session, nil
}
