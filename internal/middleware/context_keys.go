package middleware

import (
	"context"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
)

// ContextKey is a private key type so values set here never collide with
// other packages.
type ContextKey string

const (
	UserIDCtxKey   = ContextKey("user_id")
	UserRoleCtxKey = ContextKey("user_role")
)

func WithUser(ctx context.Context, userID string, role entity.Role) context.Context {
	ctx = context.WithValue(ctx, UserIDCtxKey, userID)
	return context.WithValue(ctx, UserRoleCtxKey, role)
}

// UserIDFromContext returns the authenticated user ID, or "" and false on
// anonymous requests.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDCtxKey).(string)
	return id, ok && id != ""
}

func RoleFromContext(ctx context.Context) entity.Role {
	role, _ := ctx.Value(UserRoleCtxKey).(entity.Role)
	return role
}
