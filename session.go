package authflow

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionObject is the decoded, validated view of a session token.
type SessionObject struct {
	UserID    string     `json:"user_id,omitempty"`
	Issuer    string     `json:"issuer,omitempty"`
	Audience  []string   `json:"audience,omitempty"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetAudience() []string {
	return s.Audience
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf("user=%s aud=%v iss=%s iat=%s", s.UserID, s.Audience, s.Issuer, issuedAt)
}

func sessionFromClaims(claims *SessionClaims) (*SessionObject, error) {
	if claims == nil || claims.Subject == "" {
		return nil, ErrUnableToMapClaims
	}

	session := &SessionObject{
		UserID: claims.Subject,
		Issuer: claims.Issuer,
	}

	if claims.UID != "" {
		session.UserID = claims.UID
	}

	for _, aud := range claims.Audience {
		session.Audience = append(session.Audience, aud)
	}

	if claims.IssuedAt != nil {
		issuedAt := claims.IssuedAt.Time
		session.IssuedAt = &issuedAt
	}

	if claims.ExpiresAt != nil {
		expiresAt := claims.ExpiresAt.Time
		session.ExpiresAt = &expiresAt
	}

	return session, nil
}
