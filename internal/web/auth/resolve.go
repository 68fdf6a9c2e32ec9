package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/inkwell-dev/inkwell/internal/logging"
)

// Resolution errors
var (
	ErrTokenRevoked          = errors.New("token revoked")
	ErrAccountInactive       = errors.New("account inactive or deleted")
	ErrRevocationUnavailable = errors.New("revocation list unavailable")
)

// AccountSource loads the stored state of a user. Implementations return
// ErrAccountInactive for deactivated or deleted accounts.
type AccountSource interface {
	LookupPrincipal(ctx context.Context, userID int64) (*Principal, error)
}

// Resolver turns bearer tokens into principals. Signed claims only identify
// the user and the token; role, groups and flags come from the AccountSource
// when one is set, so a demotion applies to tokens already issued.
type Resolver struct {
	tokens   *AuthService
	revoker  *Revoker
	accounts AccountSource
	failOpen bool
	logger   *zap.Logger
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithRevoker checks every token against r
func WithRevoker(r *Revoker) ResolverOption {
	return func(res *Resolver) { res.revoker = r }
}

// WithAccounts refreshes principals from src
func WithAccounts(src AccountSource) ResolverOption {
	return func(res *Resolver) { res.accounts = src }
}

// WithRevocationFailOpen accepts tokens when the revocation list cannot be
// read. The default rejects them.
func WithRevocationFailOpen(open bool) ResolverOption {
	return func(res *Resolver) { res.failOpen = open }
}

// WithResolverLogger sets the logger for revocation failures
func WithResolverLogger(l *zap.Logger) ResolverOption {
	return func(res *Resolver) { res.logger = l }
}

// NewResolver creates a Resolver for tokens signed by tokens
func NewResolver(tokens *AuthService, opts ...ResolverOption) *Resolver {
	r := &Resolver{tokens: tokens}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger).Named("auth")
	return r
}

// Resolve validates token and returns the principal it stands for
func (r *Resolver) Resolve(ctx context.Context, token string) (*Principal, error) {
	claims, err := r.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	if r.revoker != nil {
		revoked, err := r.revoker.IsRevoked(ctx, claims.ID)
		switch {
		case err != nil && r.failOpen:
			r.logger.Warn("revocation check failed, accepting token",
				zap.String("token_id", claims.ID), zap.Int64("user_id", claims.UserID), zap.Error(err))
		case err != nil:
			r.logger.Warn("revocation check failed, rejecting token",
				zap.String("token_id", claims.ID), zap.Int64("user_id", claims.UserID), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
		case revoked:
			return nil, ErrTokenRevoked
		}
	}

	p := claims.Principal()
	if r.accounts == nil {
		return p, nil
	}
	current, err := r.accounts.LookupPrincipal(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	current.TokenID = p.TokenID
	current.ExpiresAt = p.ExpiresAt
	return current, nil
}
