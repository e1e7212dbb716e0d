package auth

import (
	"context"
	"errors"
)

// ErrInvalidToken is returned when a bearer token cannot be resolved to an
// identity.
var ErrInvalidToken = errors.New("invalid or expired token")

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity attaches the authenticated identity to the context.
func WithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// FromContext retrieves the authenticated identity, if present.
func FromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityKey).(Identity)
	return ident, ok
}
