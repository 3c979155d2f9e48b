package middleware

import (
	"context"

	"github.com/baechuer/marketplace-auth/internal/domain"
	appCtx "github.com/baechuer/marketplace-auth/internal/pkg/context"
)

type ctxKey string

const ctxUser ctxKey = "user"

// WithUser stores the authenticated user for handlers and guards and tags the
// request's log context with its id.
func WithUser(ctx context.Context, u domain.PublicUser) context.Context {
	ctx = appCtx.WithUserID(ctx, u.ID)
	return context.WithValue(ctx, ctxUser, u)
}

func UserFromContext(ctx context.Context) (domain.PublicUser, bool) {
	u, ok := ctx.Value(ctxUser).(domain.PublicUser)
	return u, ok && u.ID != ""
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	u, ok := UserFromContext(ctx)
	return u.ID, ok
}

func RoleFromContext(ctx context.Context) (string, bool) {
	u, ok := UserFromContext(ctx)
	return u.Role, ok && u.Role != ""
}
