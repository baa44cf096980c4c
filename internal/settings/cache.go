package settings

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kudibooks/kudibooks/internal/platform/cache"
)

const cacheNamespace = "settings"

// Cache keeps the raw settings map in Redis.
type Cache struct {
	store *cache.Versioned
}

// NewCache builds the settings cache. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{store: cache.NewVersioned(client, cacheNamespace, ttl)}
}

// Get returns the cached map, calling load on a miss.
func (c *Cache) Get(ctx context.Context, load func(context.Context) (map[string]string, error)) (map[string]string, error) {
	key, err := c.store.BuildKey(ctx, "all")
	if err != nil {
		return nil, err
	}
	var out map[string]string
	err = c.store.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	return out, err
}

// Invalidate drops every cached copy, in this and other processes.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.store.Bump(ctx)
}
