package auth

import (
	"context"
	"errors"
	"time"

	"apicourse/internal/cache"
)

// CacheRevoker stores revoked token ids in a cache until their expiry.
type CacheRevoker struct {
	c   cache.Cache
	now func() time.Time
}

var _ Revoker = (*CacheRevoker)(nil)

func NewCacheRevoker(c cache.Cache) *CacheRevoker {
	return &CacheRevoker{c: c, now: time.Now}
}

func revokedKey(jti string) string { return "revoked:" + jti }

func (r *CacheRevoker) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.c.Set(ctx, revokedKey(jti), []byte("1"), ttl)
}

func (r *CacheRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, err := r.c.Get(ctx, revokedKey(jti))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, cache.ErrMiss):
		return false, nil
	default:
		return false, err
	}
}
