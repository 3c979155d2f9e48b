package middleware

import (
	"net/http"
	"time"

	"github.com/baechuer/marketplace-auth/internal/logger"
)

// AccessLog writes one line per request. Must run after RequestID.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		lg := logger.WithCtx(r.Context())
		ev := lg.Info()
		if rec.status >= 500 {
			ev = lg.Error()
		}
		// URL.Path may carry a one-time token; the route pattern does not.
		ev.Str("method", r.Method).
			Str("route", routePattern(r)).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("http_request")
	})
}
