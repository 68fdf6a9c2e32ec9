package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inkwell-dev/inkwell/internal/api"
	"github.com/inkwell-dev/inkwell/internal/web/middleware"
	"github.com/inkwell-dev/inkwell/internal/web/ratelimit"
	"github.com/inkwell-dev/inkwell/internal/web/server"
	"github.com/inkwell-dev/inkwell/internal/web/websocket"
)

func newServeCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API until SIGINT or SIGTERM.

The server drains in-flight requests, closes websocket clients and then
releases the cache and database connections.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runServe(cmd.Context())
		},
	}
}

func (e *env) runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := e.open(ctx)
	if err != nil {
		return err
	}
	cfg, logger := a.cfg, a.logger

	hub := websocket.NewHub(logger)
	go hub.Run()
	a.wire(hub)

	if err := a.services.Accounts.LoadMemberships(ctx); err != nil {
		_ = hub.Shutdown(ctx)
		a.Close()
		return err
	}
	a.services.Accounts.SyncMemberships(cfg.Auth.MembershipRefresh)

	limiter, err := e.authLimiter(a)
	if err != nil {
		_ = hub.Shutdown(ctx)
		a.Close()
		return err
	}

	proxies, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		_ = hub.Shutdown(ctx)
		a.Close()
		return err
	}

	handler := api.New(api.Deps{
		Config: api.Config{
			Prefix:             cfg.Server.APIPrefix,
			AllowedOrigins:     cfg.CORS.AllowedOrigins,
			Production:         cfg.IsProduction(),
			Profiling:          cfg.Server.Profiling,
			RequestTimeout:     cfg.Server.RequestTimeout,
			RevocationFailOpen: cfg.Auth.RevocationFailOpen,
			TrustedProxies:     proxies,
		},
		Services:    a.services,
		Security:    a.security,
		DB:          a.db,
		Hub:         hub,
		Logger:      logger,
		AuthLimiter: limiter,
	})

	srvCfg := server.DefaultConfig(handler)
	srvCfg.Address = cfg.Server.Address()
	srvCfg.ReadTimeout = cfg.Server.ReadTimeout
	srvCfg.WriteTimeout = cfg.Server.WriteTimeout
	srvCfg.IdleTimeout = cfg.Server.IdleTimeout
	srv, err := server.New(srvCfg)
	if err != nil {
		_ = hub.Shutdown(ctx)
		a.Close()
		return err
	}

	shutdown := server.NewGracefulShutdown(srv, cfg.Server.ShutdownTimeout, logger)
	shutdown.RegisterHook("websocket", hub.Shutdown)
	if closer, ok := limiter.(interface{ Close() error }); ok {
		shutdown.RegisterHook("ratelimit", func(context.Context) error { return closer.Close() })
	}
	shutdown.RegisterHook("connections", func(context.Context) error { return a.Close() })

	logger.Info("inkwell starting",
		zap.String("env", cfg.Env),
		zap.String("addr", cfg.Server.Address()),
		zap.String("prefix", cfg.Server.APIPrefix),
		zap.Bool("redis", cfg.Redis.Enabled),
	)
	return shutdown.Run(ctx)
}

// authLimiter shares counters through Redis when it is enabled
func (e *env) authLimiter(a *app) (ratelimit.RateLimiter, error) {
	rl := a.cfg.RateLimit
	if a.redis != nil {
		return ratelimit.NewRedisRateLimiter(ratelimit.RedisRateLimiterConfig{
			Client: a.redis,
			Limit:  rl.AuthLimit,
			Window: rl.AuthWindow,
			Prefix: a.cfg.Redis.KeyPrefix + "ratelimit:",
		})
	}
	return ratelimit.NewTokenBucket(rl.AuthLimit, rl.AuthWindow)
}
