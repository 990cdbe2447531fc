package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HS256 secret NewCodec accepts.
const MinSecretLength = 32

var (
	// ErrInvalidToken matches every error returned by Codec.Decode.
	ErrInvalidToken = errors.New("jwtx: invalid token")

	ErrMalformed    = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrInvalidSig   = fmt.Errorf("%w: bad signature", ErrInvalidToken)
	ErrExpired      = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrIssuer       = fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
	ErrInvalidClaim = fmt.Errorf("%w: invalid claims", ErrInvalidToken)

	ErrWeakSecret = errors.New("jwtx: secret shorter than 32 bytes")
)

// Codec issues and decodes HS256 session tokens with one symmetric secret.
// It is safe for concurrent use.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithIssuer sets the "iss" claim on issued tokens and requires it on decode.
func WithIssuer(issuer string) CodecOption {
	return func(c *Codec) { c.issuer = issuer }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

// NewCodec creates a codec. The secret is copied.
func NewCodec(secret []byte, opts ...CodecOption) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}

	c := &Codec{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Now returns the codec's notion of the current time.
func (c *Codec) Now() time.Time {
	return c.now()
}

// Issue signs claims with an expiry of now+ttl, a fresh jti and the issue
// time. A non-positive ttl means DefaultAccessTokenTTL.
func (c *Codec) Issue(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}

	now := c.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.NotBefore = nil
	claims.ID = NewJTI()
	if c.issuer != "" {
		claims.Issuer = c.issuer
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry of token and returns its claims.
// Every error matches ErrInvalidToken; claims are never returned alongside
// an error.
func (c *Codec) Decode(token string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
	)

	var claims Claims
	parsed, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, classify(err)
	}
	if !parsed.Valid {
		return Claims{}, ErrInvalidClaim
	}

	if err := claims.ValidateIssuer(c.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateIdentity(); err != nil {
		return Claims{}, err
	}

	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrInvalidSig, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	default:
		return fmt.Errorf("%w: %w", ErrInvalidClaim, err)
	}
}
