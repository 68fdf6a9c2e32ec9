package auth

import (
	"context"
	"time"

	"github.com/inkwell-dev/inkwell/internal/web/cache"
)

// Revoker keeps a denylist of token IDs until the tokens would have expired
type Revoker struct {
	cache cache.Cache
	now   func() time.Time
}

// NewRevoker creates a Revoker backed by c
func NewRevoker(c cache.Cache) *Revoker {
	return &Revoker{cache: c, now: time.Now}
}

func revokedKey(tokenID string) string {
	return "revoked:" + tokenID
}

// Revoke denies tokenID until expiresAt. Tokens that have already expired are
// ignored.
func (r *Revoker) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	return r.cache.Set(ctx, revokedKey(tokenID), []byte{1}, ttl)
}

// IsRevoked reports whether tokenID has been revoked
func (r *Revoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	return r.cache.Exists(ctx, revokedKey(tokenID))
}
