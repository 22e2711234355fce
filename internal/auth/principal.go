package auth

import (
	"context"

	"github.com/gasmarket/marketplace-api/internal/models"
)

// Principal is the resolved identity of the caller: the upstream user ID
// plus the marketplace profile attached to it.
type Principal struct {
	UserID   string
	Username string
	Role     models.Role
}

// IsAdmin reports whether the caller holds the admin role
func (p *Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// IsSeller reports whether the caller holds the seller role
func (p *Principal) IsSeller() bool {
	return p.Role == models.RoleSeller
}

// IsBuyer reports whether the caller holds the buyer role
func (p *Principal) IsBuyer() bool {
	return p.Role == models.RoleBuyer
}

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal returns a context carrying the resolved principal
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext extracts the principal resolved by the middleware. The
// second return is false on routes that skipped authentication.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok
}
