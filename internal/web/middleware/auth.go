package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/inkwell-dev/inkwell/internal/logging"
	"github.com/inkwell-dev/inkwell/internal/metrics"
	"github.com/inkwell-dev/inkwell/internal/web/auth"
	"github.com/inkwell-dev/inkwell/internal/web/response"
)

// BearerToken returns the credential from an "Authorization: Bearer <t>" or
// "Authorization: Token <t>" header.
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok {
		return "", false
	}
	if !strings.EqualFold(scheme, "Bearer") && !strings.EqualFold(scheme, "Token") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Authenticate resolves the Authorization header with the claims of the
// token alone. revoker may be nil.
func Authenticate(svc *auth.AuthService, revoker *auth.Revoker) Middleware {
	return AuthenticateWith(auth.NewResolver(svc, auth.WithRevoker(revoker)))
}

// AuthenticateWith resolves the Authorization header into a principal.
// Requests without the header continue anonymously; a bad, revoked or
// orphaned token gets 401.
func AuthenticateWith(res *auth.Resolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := BearerToken(r)
			if !ok {
				metrics.AuthEvents.WithLabelValues("token", "malformed").Inc()
				response.Detail(w, http.StatusUnauthorized, "Invalid token header.")
				return
			}

			p, err := res.Resolve(r.Context(), token)
			if err != nil {
				metrics.AuthEvents.WithLabelValues("token", tokenFailure(err)).Inc()
				response.Error(w, r, err)
				return
			}

			ctx := auth.WithPrincipal(r.Context(), p)
			ctx = logging.WithContext(ctx, logging.FromContext(ctx).With(zap.Int64("user_id", p.ID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFailure(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		return "invalid"
	case errors.Is(err, auth.ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, auth.ErrAccountInactive):
		return "inactive"
	case errors.Is(err, auth.ErrRevocationUnavailable):
		return "unverified"
	}
	return "error"
}

// RequireAuth rejects anonymous requests with 401
func RequireAuth() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.CurrentPrincipal(r.Context()); !ok {
				response.Error(w, r, response.ErrNotAuthenticated)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ReadOnlyOrAuthenticated lets anyone use safe methods and requires
// authentication for the rest
func ReadOnlyOrAuthenticated() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsSafeMethod(r.Method) {
				if _, ok := auth.CurrentPrincipal(r.Context()); !ok {
					response.Error(w, r, response.ErrNotAuthenticated)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IsSafeMethod reports whether method is GET, HEAD or OPTIONS
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
