package api

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/inkwell-dev/inkwell/internal/accounts"
	"github.com/inkwell-dev/inkwell/internal/blog"
	"github.com/inkwell-dev/inkwell/internal/catalog"
	"github.com/inkwell-dev/inkwell/internal/library"
	"github.com/inkwell-dev/inkwell/internal/social"
	"github.com/inkwell-dev/inkwell/internal/web/auth"
	"github.com/inkwell-dev/inkwell/internal/web/cache"
)

// Services groups the feature services served by the API
type Services struct {
	Accounts *accounts.Service
	Catalog  *catalog.Service
	Library  *library.Service
	Blog     *blog.Service
	Social   *social.Service
}

// Security holds the token and permission collaborators shared by the
// services and the middleware
type Security struct {
	Tokens   *auth.AuthService
	Revoker  *auth.Revoker
	Enforcer *auth.Enforcer
}

// NewServices wires every feature service over one connection pool. The
// cache backs catalog statistics; pusher may be nil.
func NewServices(conn *sql.DB, c cache.Cache, sec Security, pusher social.Pusher, logger *zap.Logger) *Services {
	accountsSvc := accounts.NewService(accounts.NewPostgresStore(conn), sec.Tokens, sec.Revoker, sec.Enforcer, logger)
	catalogSvc := catalog.NewService(catalog.NewPostgresStore(conn), c, logger)

	posts := blog.NewPostgresStore(conn)
	socialSvc := social.NewService(social.NewPostgresStore(conn), posts, pusher, logger)
	blogSvc := blog.NewService(posts, socialSvc, logger)

	return &Services{
		Accounts: accountsSvc,
		Catalog:  catalogSvc,
		Library:  library.NewService(library.NewPostgresStore(conn), catalogSvc, accountsSvc, logger),
		Blog:     blogSvc,
		Social:   socialSvc,
	}
}
