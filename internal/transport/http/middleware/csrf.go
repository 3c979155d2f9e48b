package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/baechuer/marketplace-auth/internal/domain"
	"github.com/baechuer/marketplace-auth/internal/infrastructure/security"
)

// CSRFProtection validates Origin/Referer on state-changing requests that carry an auth cookie.
// Requests without cookies (CLI, mobile, bearer-only) cannot be forged by a browser and pass through.
//
// Apply to endpoints that accept cookies:
// 1. refresh-token (refreshToken cookie)
// 2. logout (token cookie)
//
// An empty allowedOrigins disables the check.
func CSRFProtection(allowedOrigins []string, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	// Build a set of allowed hosts for fast lookup
	allowedHosts := make(map[string]struct{})
	for _, origin := range allowedOrigins {
		if u, err := url.Parse(strings.TrimSpace(origin)); err == nil && u.Host != "" {
			allowedHosts[strings.ToLower(u.Host)] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		if len(allowedHosts) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Only validate for state-changing methods
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if !hasAuthCookie(r) {
				next.ServeHTTP(w, r)
				return
			}

			// Get Origin header first (preferred)
			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = r.Header.Get("Referer")
			}
			if origin == "" {
				writeErr(w, r, domain.ErrForbidden())
				return
			}

			u, err := url.Parse(origin)
			if err != nil {
				writeErr(w, r, domain.ErrForbidden())
				return
			}

			if _, ok := allowedHosts[strings.ToLower(u.Host)]; !ok {
				writeErr(w, r, domain.ErrForbidden())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func hasAuthCookie(r *http.Request) bool {
	for _, name := range []string{security.RefreshCookieName, security.AccessCookieName} {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return true
		}
	}
	return false
}
