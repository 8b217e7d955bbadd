package identity

import (
	"context"
	"time"

	"github.com/lyzr/cdn/common/cache"
	"github.com/lyzr/cdn/common/clients"
	"github.com/lyzr/cdn/common/models"
)

// CachingResolver memoizes successful resolutions for ttl.
// Failures always go back to the underlying resolver.
type CachingResolver struct {
	next   Resolver
	cache  cache.Cache
	ttl    time.Duration
	logger clients.Logger
}

// NewCachingResolver wraps next with a TTL cache
func NewCachingResolver(next Resolver, c cache.Cache, ttl time.Duration, logger clients.Logger) *CachingResolver {
	return &CachingResolver{
		next:   next,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *CachingResolver) ResolveOrigin(ctx context.Context, actor models.ActorID) (string, error) {
	key := cacheKey(actor)

	if cached, found, err := r.cache.Get(ctx, key); err != nil {
		r.logger.Warn("identity cache read failed", "did", actor.String(), "error", err)
	} else if found {
		return string(cached), nil
	}

	endpoint, err := r.next.ResolveOrigin(ctx, actor)
	if err != nil {
		return "", err
	}

	if err := r.cache.Set(ctx, key, []byte(endpoint), r.ttl); err != nil {
		r.logger.Warn("identity cache write failed", "did", actor.String(), "error", err)
	}

	return endpoint, nil
}

func cacheKey(actor models.ActorID) string {
	return "identity:" + actor.String()
}
