package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/lshigami/quizhub/internal/model"
)

// Identity is the already-authenticated caller of one request. It is built
// fresh by the auth middleware and dropped when the response is written.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

func (i Identity) IsAdmin() bool { return i.Role == model.RoleAdmin }

// Owns reports whether the identity owns a row keyed by ownerID.
func (i Identity) Owns(ownerID uuid.UUID) bool { return i.UserID == ownerID }

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
