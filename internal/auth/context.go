package auth

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/coursehub/coursehub/internal/user"
)

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	ID       bson.ObjectID
	Name     string
	Email    string
	Role     user.Role
	Verified bool
}

type contextKey struct{}

// SetIdentity returns a context carrying the identity.
func SetIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFromContext retrieves the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
