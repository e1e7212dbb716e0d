package auth

import (
	"context"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/models"
)

// Identity is the authenticated caller, as supplied by the credential
// service. Token issuance and validation mechanics live outside this repo;
// this subsystem only consumes the resolved {id, role} pair.
type Identity struct {
	ID       int64       `json:"id"`
	Role     models.Role `json:"role"`
	Verified bool        `json:"verified"`
}

// TokenValidator resolves a bearer token to an identity. Implemented by the
// external credential service client; a static implementation ships for dev
// and tests.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*Identity, error)
}

// StaticValidator maps fixed tokens to identities. Dev/test only.
type StaticValidator struct {
	Tokens map[string]Identity
}

// Validate implements TokenValidator.
func (v *StaticValidator) Validate(_ context.Context, token string) (*Identity, error) {
	ident, ok := v.Tokens[token]
	if !ok {
		return nil, ErrInvalidToken
	}
	return &ident, nil
}
