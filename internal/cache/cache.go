package cache

import (
	"context"
	"errors"
	"time"

	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/constants"
	"github.com/openkcm/compliance-hub/internal/model"
)

// KeyPrefix prefixes the cache key of every tenant.
const KeyPrefix = constants.TenantInfoCachePrefix

// DefaultTTL applies when the configuration leaves the TTL unset.
const DefaultTTL = 30 * time.Minute

var ErrUnknownCacheType = errors.New("unknown tenant cache type")

// TenantInfoCache holds TenantInfo projections keyed by slug.
// Backend failures are logged and surface as misses.
type TenantInfoCache interface {
	Get(ctx context.Context, slug string) (*model.TenantInfo, bool)
	Set(ctx context.Context, info *model.TenantInfo)
	Invalidate(ctx context.Context, slug string)
}

// Key returns the cache key of slug.
func Key(slug string) string {
	return KeyPrefix + slug
}

// New builds the cache selected by cfg.
func New(ctx context.Context, cfg config.Cache) (TenantInfoCache, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	switch cfg.Type {
	case config.CacheLocal, "":
		return NewLocal(ttl), nil
	case config.CacheRedis:
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}

		return NewRedis(client, ttl), nil
	default:
		return nil, ErrUnknownCacheType
	}
}
