package auth

import "context"

type ctxKey string

const identityKey ctxKey = "authIdentity"

// Identity is the resolved caller attached to the request context by the
// authentication guard.
type Identity struct {
	UserID   string
	TenantID string
	RoleID   string
	Email    string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}
