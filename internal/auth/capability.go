package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crowdprice/crowdprice/internal/store"
)

const adminKeyPrefix = "crowdprice:admin:"

// AdminChecker answers "is this user an admin" for capability checks on
// privileged operations. The answer comes from the datastore and is
// cached in Redis for a short TTL; when Redis is not configured every
// check hits the datastore.
type AdminChecker struct {
	store store.Store
	cache *redis.Client
	ttl   time.Duration
	log   *slog.Logger
}

// AdminCheckerOption configures the AdminChecker.
type AdminCheckerOption func(*AdminChecker)

// WithAdminCache enables Redis caching of admin lookups.
func WithAdminCache(c *redis.Client) AdminCheckerOption {
	return func(a *AdminChecker) {
		a.cache = c
	}
}

// WithAdminCacheTTL overrides the cache entry lifetime.
func WithAdminCacheTTL(ttl time.Duration) AdminCheckerOption {
	return func(a *AdminChecker) {
		a.ttl = ttl
	}
}

// WithAdminLogger sets a custom logger.
func WithAdminLogger(l *slog.Logger) AdminCheckerOption {
	return func(a *AdminChecker) {
		a.log = l
	}
}

// NewAdminChecker creates an AdminChecker backed by the datastore.
func NewAdminChecker(s store.Store, opts ...AdminCheckerOption) *AdminChecker {
	a := &AdminChecker{
		store: s,
		ttl:   5 * time.Minute,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IsAdmin reports whether the user holds the admin capability. Unknown
// users are simply not admins. Cache failures degrade to a datastore
// lookup, never to a denied request.
func (a *AdminChecker) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if a.cache != nil {
		val, err := a.cache.Get(ctx, adminKeyPrefix+userID).Result()
		switch {
		case err == nil:
			return val == "1", nil
		case !errors.Is(err, redis.Nil):
			a.log.Warn("admin cache read failed", "user_id", userID, "error", err)
		}
	}

	u, err := a.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if a.cache != nil {
		val := "0"
		if u.IsAdmin {
			val = "1"
		}
		if err := a.cache.Set(ctx, adminKeyPrefix+userID, val, a.ttl).Err(); err != nil {
			a.log.Warn("admin cache write failed", "user_id", userID, "error", err)
		}
	}

	return u.IsAdmin, nil
}

// Invalidate drops the cached answer for a user, forcing the next check
// back to the datastore.
func (a *AdminChecker) Invalidate(ctx context.Context, userID string) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Del(ctx, adminKeyPrefix+userID).Err(); err != nil {
		a.log.Warn("admin cache invalidation failed", "user_id", userID, "error", err)
	}
}
