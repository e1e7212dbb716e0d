package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/auth"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/models"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/scope"
)

type fakeUsers map[int64]*models.User

func (f fakeUsers) GetUser(_ context.Context, id int64) (*models.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, assert.AnError
	}
	return u, nil
}

type fakeAssignments map[int64][]int64

func (f fakeAssignments) PlantIDsForUser(_ context.Context, userID int64) ([]int64, error) {
	return f[userID], nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestMiddleware() *AuthMiddleware {
	validator := &auth.StaticValidator{Tokens: map[string]auth.Identity{
		"tech-token":  {ID: 3, Role: models.RoleTechnician, Verified: true},
		"admin-token": {ID: 1, Role: models.RoleAdmin, Verified: true},
	}}
	resolver := scope.NewResolver(
		fakeUsers{
			1: {ID: 1, Role: models.RoleAdmin},
			3: {ID: 3, Role: models.RoleTechnician},
		},
		fakeAssignments{3: {10, 11}, 1: {10}},
	)
	return NewAuthMiddleware(validator, resolver, testLogger())
}

func TestAuthMiddleware(t *testing.T) {
	mw := newTestMiddleware()

	var gotIdent *auth.Identity
	var gotScope scope.Descriptor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ident, ok := auth.FromContext(r.Context()); ok {
			gotIdent = &ident
		}
		gotScope, _ = scope.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := mw.Handler(next)

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/plants", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/v1/plants", nil)
		r.Header.Set("Authorization", "Basic abc123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/v1/plants", nil)
		r.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, false, body["success"])
	})

	t.Run("valid token attaches identity and scope", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/v1/plants", nil)
		r.Header.Set("Authorization", "Bearer tech-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, gotIdent)
		assert.EqualValues(t, 3, gotIdent.ID)
		assert.True(t, gotScope.Allows(10))
		assert.True(t, gotScope.Allows(11))
		assert.False(t, gotScope.Allows(12))
	})
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	guard := RequireRole(models.RoleAdmin, models.RoleSuperAdmin)(next)

	t.Run("no identity", func(t *testing.T) {
		rec := httptest.NewRecorder()
		guard.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong role", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/x", nil)
		ctx := auth.WithIdentity(r.Context(), auth.Identity{ID: 3, Role: models.RoleTechnician})
		rec := httptest.NewRecorder()
		guard.ServeHTTP(rec, r.WithContext(ctx))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("allowed role", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/x", nil)
		ctx := auth.WithIdentity(r.Context(), auth.Identity{ID: 1, Role: models.RoleAdmin})
		rec := httptest.NewRecorder()
		guard.ServeHTTP(rec, r.WithContext(ctx))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
