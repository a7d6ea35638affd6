// Package token signs and verifies the stateless session tokens carried as
// bearer credentials.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-hr/internal/rbac"
	"github.com/odyssey-erp/odyssey-hr/internal/shared"
)

// DefaultIssuer is stamped into the iss claim when none is configured.
const DefaultIssuer = "odyssey-hr"

// Claims is the only accepted token payload.
type Claims struct {
	jwt.RegisteredClaims

	Role string `json:"role"`
}

// Codec issues and verifies HS256 tokens with a server-held secret.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// Option configures the Codec.
type Option func(*Codec)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// WithIssuer overrides the iss claim.
func WithIssuer(issuer string) Option {
	return func(c *Codec) { c.issuer = issuer }
}

// NewCodec constructs a Codec. The secret must not be empty.
func NewCodec(secret string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token: secret required")
	}
	c := &Codec{secret: []byte(secret), issuer: DefaultIssuer, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Issue signs a token for the principal valid for ttl.
func (c *Codec) Issue(p rbac.Principal, ttl time.Duration) (string, time.Time, error) {
	if p.ID == "" {
		return "", time.Time{}, errors.New("token: principal id required")
	}
	if !p.Role.Tokenable() {
		return "", time.Time{}, fmt.Errorf("token: unknown role %q", p.Role)
	}
	if ttl <= 0 {
		return "", time.Time{}, errors.New("token: ttl must be positive")
	}
	now := c.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		Role: string(p.Role),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token: sign: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature and expiry and returns the embedded principal.
// Every failure wraps shared.ErrInvalidToken.
func (c *Codec) Verify(raw string) (rbac.Principal, error) {
	if raw == "" {
		return rbac.Principal{}, shared.ErrInvalidToken
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(c.issuer),
		jwt.WithTimeFunc(c.now),
		jwt.WithStrictDecoding(),
	)
	var claims Claims
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}); err != nil {
		return rbac.Principal{}, fmt.Errorf("%w: %w", shared.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return rbac.Principal{}, fmt.Errorf("%w: missing subject", shared.ErrInvalidToken)
	}
	role := rbac.Role(claims.Role)
	if !role.Tokenable() {
		return rbac.Principal{}, fmt.Errorf("%w: unknown role %q", shared.ErrInvalidToken, claims.Role)
	}
	return rbac.Principal{ID: claims.Subject, Role: role}, nil
}
