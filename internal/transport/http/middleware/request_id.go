package middleware

import (
	"net/http"

	"github.com/google/uuid"

	appCtx "github.com/baechuer/marketplace-auth/internal/pkg/context"
)

const (
	HeaderXRequestID   = "X-Request-Id"
	maxInboundIDLength = 128
)

// RequestID adopts a caller-supplied X-Request-Id when it is short and made of safe
// characters (it ends up in logs and error bodies); otherwise a uuid is minted.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderXRequestID)
		if !validInboundID(reqID) {
			reqID = uuid.NewString()
		}

		w.Header().Set(HeaderXRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(appCtx.WithRequestID(r.Context(), reqID)))
	})
}

func validInboundID(id string) bool {
	if id == "" || len(id) > maxInboundIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':':
		default:
			return false
		}
	}
	return true
}
