// Package auth mints and verifies RS256 access tokens and carries the
// verified caller identity through request contexts.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tasktracker/internal/common"
	"github.com/dmitrijs2005/tasktracker/internal/server/keys"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the signed payload of an access token.
// ExpiresAt is always IssuedAt plus the configured token lifetime.
type Claims struct {
	Subject   uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NewClaims builds claims for subject valid from issuedAt for lifetime.
// Times are truncated to whole seconds, the precision tokens carry.
func NewClaims(subject uuid.UUID, issuedAt time.Time, lifetime time.Duration) Claims {
	iat := issuedAt.UTC().Truncate(time.Second)
	return Claims{
		Subject:   subject,
		IssuedAt:  iat,
		ExpiresAt: iat.Add(lifetime),
	}
}

// TokenCodec encodes and decodes access tokens with a fixed key pair.
// It holds only immutable state and is safe for concurrent use.
type TokenCodec struct {
	keys *keys.KeyMaterial
	skew time.Duration
	now  func() time.Time
}

type Option func(*TokenCodec)

// WithClockSkew tolerates issued-at timestamps up to d in the future.
// Expiry is never given extra leeway.
func WithClockSkew(d time.Duration) Option {
	return func(c *TokenCodec) { c.skew = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *TokenCodec) { c.now = now }
}

func NewTokenCodec(km *keys.KeyMaterial, opts ...Option) *TokenCodec {
	c := &TokenCodec{keys: km, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lifetime is the validity window of newly issued tokens.
func (c *TokenCodec) Lifetime() time.Duration {
	return c.keys.Lifetime()
}

// Encode signs claims with RS256.
func (c *TokenCodec) Encode(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   claims.Subject.String(),
		IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
	})

	signed, err := token.SignedString(c.keys.SigningKey())
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies tokenString and returns its claims. Failures match one of
// common.ErrTokenExpired, common.ErrTokenImmature, common.ErrMalformedToken,
// common.ErrInvalidSignature or common.ErrUnsupportedAlgorithm.
func (c *TokenCodec) Decode(tokenString string) (Claims, error) {
	rc := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(tokenString, rc, c.keyFunc,
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return Claims{}, translate(err)
	}

	if rc.IssuedAt == nil {
		return Claims{}, fmt.Errorf("%w: missing iat", common.ErrMalformedToken)
	}
	if rc.IssuedAt.After(c.now().Add(c.skew)) {
		return Claims{}, common.ErrTokenImmature
	}

	subject, err := uuid.Parse(rc.Subject)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: subject is not a public identifier", common.ErrMalformedToken)
	}

	return Claims{
		Subject:   subject,
		IssuedAt:  rc.IssuedAt.UTC(),
		ExpiresAt: rc.ExpiresAt.UTC(),
	}, nil
}

func (c *TokenCodec) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != jwt.SigningMethodRS256.Alg() {
		return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedAlgorithm, t.Method.Alg())
	}
	return c.keys.VerificationKey(), nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, common.ErrUnsupportedAlgorithm):
		return common.ErrUnsupportedAlgorithm
	case errors.Is(err, jwt.ErrTokenMalformed):
		return common.ErrMalformedToken
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return common.ErrUnsupportedAlgorithm
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return common.ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return common.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return common.ErrTokenImmature
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: %v", common.ErrMalformedToken, err)
	default:
		return fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
}
