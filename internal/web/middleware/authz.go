package middleware

import (
	"net/http"

	"github.com/inkwell-dev/inkwell/internal/web/auth"
	"github.com/inkwell-dev/inkwell/internal/web/response"
)

// RequirePermission allows the request when the principal's groups grant
// perm on obj. Anonymous requests get 401, others without the grant 403.
func RequirePermission(enforcer *auth.Enforcer, obj string, perm auth.Permission) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.CurrentPrincipal(r.Context())
			if !ok {
				response.Error(w, r, response.ErrNotAuthenticated)
				return
			}

			allowed, err := enforcer.HasPerm(r.Context(), p, obj, perm)
			if err != nil {
				response.InternalError(w, r, err)
				return
			}
			if !allowed {
				response.Error(w, r, response.ErrPermissionDenied)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole allows principals holding any of roles. Superusers hold every
// role.
func RequireRole(roles ...string) Middleware {
	return requirePrincipal(func(p *auth.Principal) bool {
		return auth.HasRole(p, roles...)
	})
}

// RequireStaff allows staff and superusers
func RequireStaff() Middleware {
	return requirePrincipal(auth.IsStaff)
}

// RequireSuperuser allows superusers only
func RequireSuperuser() Middleware {
	return requirePrincipal(func(p *auth.Principal) bool { return p.IsSuperuser })
}

func requirePrincipal(allow func(*auth.Principal) bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.CurrentPrincipal(r.Context())
			if !ok {
				response.Error(w, r, response.ErrNotAuthenticated)
				return
			}
			if !allow(p) {
				response.Error(w, r, response.ErrPermissionDenied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
