package infra

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Cache is a thin JSON cache over Redis. Used read-through for the
// cross-branch availability lookups; writers delete keys after commit.
// Every method is best-effort: Redis being down degrades to a miss.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache wraps rdb with a default TTL. The TTL bounds staleness for
// writers that bypass explicit invalidation (workers, the reconcile job).
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// GetJSON loads key into dest. Returns false on miss or any Redis error.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Warn().Str("key", key).Err(err).Msg("corrupt cache entry dropped")
		c.rdb.Del(ctx, key)
		return false
	}
	return true
}

// SetJSON stores v under key with the cache TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Warn().Str("key", key).Err(err).Msg("cache set failed")
	}
}

// Delete removes keys after a committed write.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if c == nil || c.rdb == nil || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Strs("keys", keys).Err(err).Msg("cache delete failed")
	}
}
