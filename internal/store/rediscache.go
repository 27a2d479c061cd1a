package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDedupCache implements internal/dedup.Cache as a fast-path existence
// cache in front of the Lead Store's authoritative FindRecentByContact
// query (SPEC_FULL.md §8): a hot portal retrying the same submission
// shouldn't force a Postgres round trip on every retry.
type RedisDedupCache struct {
	client *redis.Client
}

// NewRedisDedupCache wraps an already-connected client.
func NewRedisDedupCache(client *redis.Client) *RedisDedupCache {
	return &RedisDedupCache{client: client}
}

func dedupCacheKey(key string) string {
	return "leadbroker:dedup:" + key
}

// Seen implements internal/dedup.Cache.
func (c *RedisDedupCache) Seen(ctx context.Context, key string) (string, bool) {
	id, err := c.client.Get(ctx, dedupCacheKey(key)).Result()
	if err != nil {
		return "", false
	}
	return id, true
}

// Remember implements internal/dedup.Cache. Failures are swallowed — the
// cache is an optimization, not a correctness dependency; the
// authoritative store lookup still runs on a cache miss.
func (c *RedisDedupCache) Remember(ctx context.Context, key, existingID string, window time.Duration) {
	c.client.Set(ctx, dedupCacheKey(key), existingID, window)
}
