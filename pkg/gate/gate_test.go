package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/auth"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/models"
)

func ident(id int64, role models.Role) auth.Identity {
	return auth.Identity{ID: id, Role: role, Verified: true}
}

func TestAuthorizeSuperAdmin(t *testing.T) {
	actions := []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionChangeStatus, ActionAssign}
	for _, action := range actions {
		d := Authorize(ident(1, models.RoleSuperAdmin), action, nil)
		assert.True(t, d.Allowed, "superadmin should be allowed %s", action)
	}
}

func TestAuthorizeAdmin(t *testing.T) {
	actions := []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionChangeStatus, ActionAssign}
	for _, action := range actions {
		d := Authorize(ident(2, models.RoleAdmin), action, nil)
		assert.True(t, d.Allowed, "admin should be allowed %s", action)
	}
}

func TestAuthorizeTechnician(t *testing.T) {
	tech := ident(3, models.RoleTechnician)

	t.Run("operational actions allowed", func(t *testing.T) {
		for _, action := range []Action{ActionCreate, ActionRead, ActionUpdate, ActionChangeStatus} {
			d := Authorize(tech, action, nil)
			assert.True(t, d.Allowed, "technician should be allowed %s", action)
		}
	})

	t.Run("delete denied", func(t *testing.T) {
		d := Authorize(tech, ActionDelete, nil)
		assert.False(t, d.Allowed)
		assert.NotEmpty(t, d.Reason)
	})

	t.Run("assign denied", func(t *testing.T) {
		d := Authorize(tech, ActionAssign, nil)
		assert.False(t, d.Allowed)
	})

	t.Run("ownership ignored", func(t *testing.T) {
		other := int64(99)
		d := Authorize(tech, ActionUpdate, &other)
		assert.True(t, d.Allowed)
	})
}

func TestAuthorizeClient(t *testing.T) {
	client := ident(7, models.RoleClient)

	t.Run("read own record allowed", func(t *testing.T) {
		owner := int64(7)
		d := Authorize(client, ActionRead, &owner)
		assert.True(t, d.Allowed)
	})

	t.Run("read other's record denied", func(t *testing.T) {
		owner := int64(8)
		d := Authorize(client, ActionRead, &owner)
		assert.False(t, d.Allowed)
	})

	t.Run("create allowed", func(t *testing.T) {
		owner := int64(7)
		d := Authorize(client, ActionCreate, &owner)
		assert.True(t, d.Allowed)
	})

	t.Run("change status always denied", func(t *testing.T) {
		// Even on a record the client reported themselves.
		owner := int64(7)
		d := Authorize(client, ActionChangeStatus, &owner)
		assert.False(t, d.Allowed)
		assert.NotEmpty(t, d.Reason)
	})

	t.Run("update delete assign denied", func(t *testing.T) {
		owner := int64(7)
		for _, action := range []Action{ActionUpdate, ActionDelete, ActionAssign} {
			d := Authorize(client, action, &owner)
			assert.False(t, d.Allowed, "client should be denied %s", action)
		}
	})
}

func TestAuthorizeUnknownRole(t *testing.T) {
	d := Authorize(ident(1, models.Role("operator")), ActionRead, nil)
	assert.False(t, d.Allowed)
}
