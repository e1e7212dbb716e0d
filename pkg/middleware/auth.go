package middleware

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/auth"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/httputil"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/models"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/scope"
)

// AuthMiddleware validates bearer tokens and attaches the caller's
// identity and plant scope to the request context. The scope is resolved
// fresh on every request so assignment changes take effect immediately.
type AuthMiddleware struct {
	validator auth.TokenValidator
	resolver  *scope.Resolver
	log       *logrus.Logger
}

func NewAuthMiddleware(validator auth.TokenValidator, resolver *scope.Resolver, log *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{validator: validator, resolver: resolver, log: log}
}

// Handler wraps an HTTP handler with authentication and scope resolution.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		ident, err := m.validator.Validate(r.Context(), parts[1])
		if err != nil {
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		sc, err := m.resolver.Resolve(r.Context(), *ident)
		if err != nil {
			m.log.WithError(err).WithField("user_id", ident.ID).Error("failed to resolve access scope")
			httputil.WriteError(w, err)
			return
		}

		ctx := auth.WithIdentity(r.Context(), *ident)
		ctx = scope.WithDescriptor(ctx, sc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects requests whose identity is not one of the allowed
// roles. Must run after the auth middleware.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, ok := auth.FromContext(r.Context())
			if !ok {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}
			if !allowed[ident.Role] {
				httputil.WriteForbidden(w, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
