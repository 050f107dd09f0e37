package auth

import (
	"context"

	"github.com/google/uuid"
)

// Identity is the verified caller of a single request.
type Identity struct {
	CallerID uuid.UUID
}

type identityKey struct{}

type claimsKey struct{}

// WithIdentity attaches the verified identity and the raw claims it came from.
func WithIdentity(ctx context.Context, id Identity, claims Claims) context.Context {
	ctx = context.WithValue(ctx, identityKey{}, id)
	return context.WithValue(ctx, claimsKey{}, claims)
}

// IdentityFromContext reports false on routes not behind the authentication
// middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(Claims)
	return c, ok
}
