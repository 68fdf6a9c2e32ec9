package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inkwell-dev/inkwell/internal/api"
	"github.com/inkwell-dev/inkwell/internal/cli/config"
	"github.com/inkwell-dev/inkwell/internal/cli/ui"
	"github.com/inkwell-dev/inkwell/internal/db"
	"github.com/inkwell-dev/inkwell/internal/logging"
	"github.com/inkwell-dev/inkwell/internal/social"
	"github.com/inkwell-dev/inkwell/internal/web/auth"
	"github.com/inkwell-dev/inkwell/internal/web/cache"
	"github.com/inkwell-dev/inkwell/internal/web/query"
)

// env holds the global flags and the seams tests replace
type env struct {
	configPath string
	noColor    bool

	openDB func(ctx context.Context, cfg *config.Config) (*sql.DB, error)
	// askOpts are passed to every survey prompt
	askOpts []survey.AskOpt
}

func newEnv() *env {
	return &env{openDB: openDatabase}
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	url, err := cfg.RequireDatabase()
	if err != nil {
		return nil, err
	}
	return db.Open(ctx, db.Config{
		Driver:          cfg.Database.Driver,
		URL:             url,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
}

func (e *env) printer(cmd *cobra.Command) *ui.Printer {
	return ui.NewPrinter(cmd.OutOrStdout(), e.noColor)
}

func (e *env) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log configuration: %w", err)
	}
	query.SetListSizes(cfg.Pagination.PageSize, cfg.Pagination.MaxPageSize)
	return cfg, logger, nil
}

// app is everything a command needs to call the feature services
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *sql.DB
	redis    *redis.Client
	cache    cache.Cache
	security api.Security
	services *api.Services

	closers []func() error
}

// open loads the configuration, connects to the database and Redis, and
// wires the services. The caller must Close the app.
func (e *env) open(ctx context.Context) (*app, error) {
	cfg, logger, err := e.load()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	a.db, err = e.openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.db.Close)

	if cfg.Redis.Enabled {
		a.redis, err = cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, a.redis.Close)
		a.cache = cache.WithMetrics("redis", cache.NewRedisCache(a.redis, cache.Config{
			DefaultTTL: cache.DefaultConfig().DefaultTTL,
			Prefix:     cfg.Redis.KeyPrefix,
		}))
	} else {
		mem := cache.NewMemoryCache()
		a.closers = append(a.closers, mem.Close)
		a.cache = cache.WithMetrics("memory", mem)
	}

	enforcer, err := auth.NewEnforcer()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.security = api.Security{
		Tokens:   auth.NewAuthService(cfg.Secret(), cfg.Auth.TokenTTL),
		Revoker:  auth.NewRevoker(a.cache),
		Enforcer: enforcer,
	}
	return a, nil
}

// wire builds the services; pusher may be nil
func (a *app) wire(pusher social.Pusher) {
	a.services = api.NewServices(a.db, a.cache, a.security, pusher, a.logger)
}

// Close releases connections in reverse order of opening
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	_ = a.logger.Sync()
	return errors.Join(errs...)
}

// ask runs a survey prompt with the env's stdio options
func (e *env) ask(p survey.Prompt, dst any, opts ...survey.AskOpt) error {
	return survey.AskOne(p, dst, append(opts, e.askOpts...)...)
}
