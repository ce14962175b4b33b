package common

import "context"

type ctxKey string

const (
	userIDKey ctxKey = "auth/user-id"
	roleKey   ctxKey = "auth/role"
)

// RoleAdmin marks back-office users allowed to manage discounts and orders.
const RoleAdmin = "admin"

// WithUser stores the authenticated user identifier and role on the context.
func WithUser(ctx context.Context, id, role string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, id)
	if role != "" {
		ctx = context.WithValue(ctx, roleKey, role)
	}
	return ctx
}

// UserID extracts the authenticated user identifier from the context.
// A missing identifier means the request is a guest request.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// IsAdmin reports whether the context belongs to a back-office user.
func IsAdmin(ctx context.Context) bool {
	role, ok := ctx.Value(roleKey).(string)
	return ok && role == RoleAdmin
}
