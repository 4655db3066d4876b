// Package auth resolves credentials to the caller's identity and carries that
// identity through request contexts.
package auth

import (
	"context"

	"task-assigner/internal/models"
)

// Identity is the authenticated caller. Role is always read from the store,
// never from the credential.
type Identity struct {
	UserID uint
	Role   models.UserRole
}

func (i Identity) Is(role models.UserRole) bool {
	return i.Role == role
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != 0
}
