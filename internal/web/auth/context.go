package auth

import (
	"context"

	webcontext "github.com/inkwell-dev/inkwell/internal/web/context"
)

// Principal is the authenticated user attached to a request
type Principal = webcontext.User

// CurrentPrincipal returns the authenticated principal, if any
func CurrentPrincipal(ctx context.Context) (*Principal, bool) {
	return webcontext.GetCurrentUser(ctx)
}

// WithPrincipal returns a copy of ctx carrying p
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return webcontext.SetCurrentUser(ctx, p)
}

// CurrentUserID returns the authenticated user's ID, or 0 for anonymous requests
func CurrentUserID(ctx context.Context) int64 {
	if p, ok := CurrentPrincipal(ctx); ok {
		return p.ID
	}
	return 0
}
