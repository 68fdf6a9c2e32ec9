// Package api assembles the HTTP surface: global middleware, every feature's
// routes under the API prefix, and the operational endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/inkwell-dev/inkwell/internal/accounts"
	"github.com/inkwell-dev/inkwell/internal/blog"
	"github.com/inkwell-dev/inkwell/internal/catalog"
	"github.com/inkwell-dev/inkwell/internal/library"
	"github.com/inkwell-dev/inkwell/internal/logging"
	"github.com/inkwell-dev/inkwell/internal/metrics"
	"github.com/inkwell-dev/inkwell/internal/social"
	"github.com/inkwell-dev/inkwell/internal/web/auth"
	"github.com/inkwell-dev/inkwell/internal/web/middleware"
	"github.com/inkwell-dev/inkwell/internal/web/profiling"
	"github.com/inkwell-dev/inkwell/internal/web/ratelimit"
	"github.com/inkwell-dev/inkwell/internal/web/response"
	"github.com/inkwell-dev/inkwell/internal/web/router"
	"github.com/inkwell-dev/inkwell/internal/web/websocket"
)

// DefaultPrefix is where the feature routes are mounted
const DefaultPrefix = "/api"

// Pinger reports whether the database is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Config shapes the HTTP surface
type Config struct {
	Prefix         string
	AllowedOrigins []string
	// Production turns on HSTS
	Production bool
	// Profiling mounts pprof and runtime stats under /debug for superusers
	Profiling bool
	// RequestTimeout bounds every call under Prefix; zero disables it
	RequestTimeout time.Duration
	// RevocationFailOpen accepts tokens when the revocation list is unreachable
	RevocationFailOpen bool
	// TrustedProxies may report the client address; nil trusts nobody
	TrustedProxies *middleware.TrustedProxies
}

// Deps are the collaborators of the HTTP API
type Deps struct {
	Config   Config
	Services *Services
	Security Security
	// DB backs /healthz; nil reports healthy
	DB     Pinger
	Hub    *websocket.Hub
	Logger *zap.Logger
	// AuthLimiter guards register and login; nil disables limiting
	AuthLimiter ratelimit.RateLimiter
}

// New builds the router. Middleware runs in this order: client address,
// request id, access log, panic recovery, metrics, security headers, CORS,
// request audit, authentication, CSP reporting.
func New(d Deps) *router.Router {
	logger := logging.OrNop(d.Logger)
	prefix := d.Config.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	security := middleware.DefaultSecurityConfig()
	security.NoStorePrefixes = []string{prefix + "/admin/", prefix + "/library/", "/debug/"}
	if d.Config.Production {
		security.HSTSMaxAge = 31536000
	}

	opts := []auth.ResolverOption{
		auth.WithRevoker(d.Security.Revoker),
		auth.WithRevocationFailOpen(d.Config.RevocationFailOpen),
		auth.WithResolverLogger(logger),
	}
	if d.Services != nil && d.Services.Accounts != nil {
		opts = append(opts, auth.WithAccounts(d.Services.Accounts))
	}
	resolver := auth.NewResolver(d.Security.Tokens, opts...)

	r := router.New()
	r.Use(
		middleware.ClientAddress(d.Config.TrustedProxies),
		middleware.RequestID(),
		middleware.Logging(logger),
		middleware.Recovery(),
		middleware.Metrics(),
		middleware.SecurityHeaders(security),
		middleware.CORS(d.Config.AllowedOrigins...),
		middleware.RequestAudit(logger),
		middleware.AuthenticateWith(resolver),
		middleware.CSPReporting(),
	)

	r.Get("/healthz", health(d.DB))
	r.Handle("/metrics", metrics.Handler())
	r.Post(middleware.CSPReportURI, cspReport)
	if d.Hub != nil {
		r.Handle("/ws/notifications", websocket.NewHandler(d.Hub, resolver, d.Config.AllowedOrigins))
	}

	if d.Config.Profiling {
		r.Group(func(g chi.Router) {
			g.Use(middleware.RequireSuperuser())
			profiling.Routes(g, profiling.DefaultConfig())
		})
	}

	var limit middleware.Middleware
	if d.AuthLimiter != nil {
		limit = middleware.RateLimit("auth", d.AuthLimiter)
	}

	svc := d.Services
	r.Route(prefix, func(api chi.Router) {
		if d.Config.RequestTimeout > 0 {
			api.Use(middleware.Timeout(d.Config.RequestTimeout))
		}
		accounts.NewHandler(svc.Accounts, limit).Routes(api)
		catalog.NewHandler(svc.Catalog).Routes(api)
		library.NewHandler(svc.Library, d.Security.Enforcer).Routes(api)
		blog.NewHandler(svc.Blog).Routes(api)
		social.NewHandler(svc.Social).Routes(api)
	})

	return r
}

func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				logging.FromContext(r.Context()).Error("health check failed", zap.Error(err))
				response.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		response.OK(w, map[string]string{"status": "ok"})
	}
}
