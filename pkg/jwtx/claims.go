package jwtx

import (
	"time"

	"github.com/aussiebroadwan/gradebook/pkg/idx"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is the lifetime used when Issue is called with a
// non-positive ttl.
const DefaultAccessTokenTTL = 60 * time.Minute

// Claims are the session token claims. The JSON names are part of the
// token format consumed by existing clients.
type Claims struct {
	jwt.RegisteredClaims

	// Role of the account: admin, profesor or estudiante.
	Role string `json:"rol"`

	// UserID is the numeric account id.
	UserID int64 `json:"user_id"`

	// Name is the display name for the account.
	Name string `json:"nombre,omitempty"`
}

// NewSessionClaims builds the identity part of a session token. Expiry,
// issue time, issuer and jti are filled in by Codec.Issue.
func NewSessionClaims(email, role string, userID int64, name string) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: email},
		Role:             role,
		UserID:           userID,
		Name:             name,
	}
}

// Email returns the subject, which is always the account email.
func (c *Claims) Email() string {
	return c.Subject
}

// NewJTI returns a unique identifier for the "jti" claim.
func NewJTI() string {
	return idx.MustNew().String()
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateIdentity ensures the claims identify an account.
func (c *Claims) ValidateIdentity() error {
	if c.Subject == "" || c.Role == "" || c.UserID <= 0 {
		return ErrInvalidClaim
	}
	if c.ExpiresAt == nil || c.ID == "" {
		return ErrInvalidClaim
	}
	return nil
}

// Remaining reports how long the token stays valid after now.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	if d := c.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
