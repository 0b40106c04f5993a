package auth

import (
	"context"
)

type ctxKey string

const (
	identityKey ctxKey = "identity"
)

// Identity is the caller resolved from a verified access token and the user row.
type Identity struct {
	UserID uint
	RoleID uint
	Email  string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(identityKey).(Identity)
	return v, ok
}

func UserID(ctx context.Context) uint {
	id, _ := FromContext(ctx)
	return id.UserID
}
