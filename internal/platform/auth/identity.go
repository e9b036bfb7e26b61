package auth

import "context"

// Role constants used throughout the API when checking authorisation boundaries.
const (
	RoleAdmin    = 1
	RoleCustomer = 2
)

// Identity captures the authenticated principal details extracted from a bearer token.
type Identity struct {
	UserID   string
	Username string
	Role     int
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

type contextKey string

const identityContextKey contextKey = "github.com/ventia/api/internal/platform/auth/identity"

// WithIdentity stores the identity within the context for downstream handlers.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the identity previously stored in context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
