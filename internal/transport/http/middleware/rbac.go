package middleware

import (
	"net/http"

	"github.com/baechuer/marketplace-auth/internal/domain"
)

// RoleGuards declares which roles may reach a route, keyed by route name.
var RoleGuards = map[string][]domain.Role{
	"dashboard.buyer":  {domain.RoleBuyer},
	"dashboard.seller": {domain.RoleSeller},
}

// Authorize admits the request only when the authenticated user's role is one of roles.
// Assumes Authenticate() has already injected the user into context.
func Authorize(writeErr WriteErrFunc, roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFromContext(r.Context())
			if !ok {
				// Middleware ordering issue (Authenticate not applied)
				writeErr(w, r, domain.ErrUnauthenticated())
				return
			}

			if !domain.RoleIn(role, roles...) {
				writeErr(w, r, domain.ErrInsufficientRole(role))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Guard is Authorize with the roles looked up in RoleGuards. Unknown keys deny everyone.
func Guard(key string, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return Authorize(writeErr, RoleGuards[key]...)
}
