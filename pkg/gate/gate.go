// Package gate is the request-level authorization policy. It is a pure
// mapping (role, action, ownership) -> decision: no I/O, no state. Scope
// filtering is enforced separately by the query layer; the gate decides
// whether the action itself is permitted.
package gate

import (
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/auth"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/models"
)

// Action is an operation on an incidence or maintenance record, or an
// assignment mutation.
type Action string

const (
	ActionCreate       Action = "create"
	ActionRead         Action = "read"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionChangeStatus Action = "change-status"
	ActionAssign       Action = "assign"
)

// Decision is the outcome of an authorization check. Reason is set on denial
// and is safe to surface to the caller.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Authorize decides whether the identity may perform the action.
// resourceOwnerID is the reporting user of the target record, when the call
// site has one; ownership only matters for clients.
func Authorize(ident auth.Identity, action Action, resourceOwnerID *int64) Decision {
	switch ident.Role {
	case models.RoleSuperAdmin:
		return allow()

	case models.RoleAdmin:
		// Admins may do everything; visibility is narrowed by scope
		// filtering, not by this gate.
		return allow()

	case models.RoleTechnician:
		switch action {
		case ActionCreate, ActionRead, ActionUpdate, ActionChangeStatus:
			// Ownership does not apply: any technician may act on any
			// in-scope record.
			return allow()
		case ActionDelete:
			return deny("technicians cannot delete records")
		case ActionAssign:
			return deny("technicians cannot manage plant assignments")
		default:
			return deny("action not permitted")
		}

	case models.RoleClient:
		switch action {
		case ActionRead, ActionCreate:
			if resourceOwnerID != nil && *resourceOwnerID != ident.ID {
				return deny("clients may only access their own records")
			}
			return allow()
		case ActionChangeStatus:
			return deny("clients cannot change record status")
		case ActionUpdate:
			return deny("clients cannot update records")
		case ActionDelete:
			return deny("clients cannot delete records")
		case ActionAssign:
			return deny("clients cannot manage plant assignments")
		default:
			return deny("action not permitted")
		}

	default:
		return deny("unknown role")
	}
}
