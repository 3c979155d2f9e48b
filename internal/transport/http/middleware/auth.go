package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/baechuer/marketplace-auth/internal/domain"
	"github.com/baechuer/marketplace-auth/internal/infrastructure/security"
)

// Authenticator resolves an access token to the current user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (domain.PublicUser, error)
}

type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

// Authenticate reads the access token from the "token" cookie, falling back to
// Authorization: Bearer, resolves it to a user and injects the user into the request context.
func Authenticate(authn Authenticator, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := accessToken(r)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			u, err := authn.Authenticate(r.Context(), raw)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

func accessToken(r *http.Request) (string, error) {
	if c := security.ReadAccessCookie(r); c != "" {
		return c, nil
	}

	h := r.Header.Get("Authorization")
	if h == "" {
		return "", domain.ErrTokenMissing()
	}

	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", domain.ErrTokenInvalid()
	}

	raw := strings.TrimSpace(parts[1])
	if raw == "" {
		return "", domain.ErrTokenInvalid()
	}
	return raw, nil
}
