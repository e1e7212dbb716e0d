package scope

import (
	"context"
	"fmt"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/apperr"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/auth"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/models"
)

// UserFinder confirms the identity corresponds to a live user record.
type UserFinder interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// AssignmentLister supplies the plant ids assigned to a user.
type AssignmentLister interface {
	PlantIDsForUser(ctx context.Context, userID int64) ([]int64, error)
}

// Resolver computes a Descriptor from an authenticated identity.
type Resolver struct {
	users       UserFinder
	assignments AssignmentLister
}

// NewResolver creates a Resolver over the given stores.
func NewResolver(users UserFinder, assignments AssignmentLister) *Resolver {
	return &Resolver{users: users, assignments: assignments}
}

// Resolve computes the caller's scope. It fails with a NotFoundError when the
// identity has no live user record, and has no side effects. The result is
// valid for a single request only.
func (r *Resolver) Resolve(ctx context.Context, ident auth.Identity) (Descriptor, error) {
	user, err := r.users.GetUser(ctx, ident.ID)
	if err != nil {
		return Descriptor{}, err
	}

	// The stored role is authoritative over the token's claim.
	switch user.Role {
	case models.RoleSuperAdmin:
		return Unrestricted(), nil
	case models.RoleAdmin, models.RoleTechnician, models.RoleClient:
		ids, err := r.assignments.PlantIDsForUser(ctx, ident.ID)
		if err != nil {
			return Descriptor{}, fmt.Errorf("failed to list assigned plants: %w", err)
		}
		return RestrictedTo(ids), nil
	default:
		return Descriptor{}, apperr.Forbidden("unknown role")
	}
}
