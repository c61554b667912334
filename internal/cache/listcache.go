package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ListCache is the short-TTL cache of eligible candidate-id lists, keyed by
// (viewer, filter signature). It answers "who is eligible", never "how
// compatible": scores are recomputed on every request regardless of hits.
//
// Fail-open: any Redis error is logged and treated as a miss (on read) or
// skipped (on write); it never fails the request.
type ListCache struct {
	cache *RedisCache
	log   *slog.Logger
	ttl   time.Duration
}

func NewListCache(cache *RedisCache, log *slog.Logger, ttl time.Duration) *ListCache {
	return &ListCache{cache: cache, log: log, ttl: ttl}
}

func (c *ListCache) key(viewerID uint64, sig string) string {
	return fmt.Sprintf("matches:list:%d:%s", viewerID, sig)
}

// Get returns the cached candidate-id list for the viewer and filter
// signature, or (nil, false) on miss or on any cache error.
func (c *ListCache) Get(ctx context.Context, viewerID uint64, sig string) ([]uint64, bool) {
	raw, err := c.cache.Get(ctx, c.key(viewerID, sig))
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.log.Warn("list cache read failed, treating as miss", "viewer", viewerID, "err", err)
		return nil, false
	}

	var ids []uint64
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		c.log.Warn("list cache entry corrupt, treating as miss", "viewer", viewerID, "err", err)
		return nil, false
	}
	return ids, true
}

// Put stores the candidate-id list under the viewer/signature key with the
// configured TTL. Errors are logged and swallowed.
func (c *ListCache) Put(ctx context.Context, viewerID uint64, sig string, ids []uint64) {
	raw, err := json.Marshal(ids)
	if err != nil {
		c.log.Warn("list cache encode failed", "viewer", viewerID, "err", err)
		return
	}
	if err := c.cache.Set(ctx, c.key(viewerID, sig), string(raw), c.ttl); err != nil {
		c.log.Warn("list cache write failed", "viewer", viewerID, "err", err)
	}
}
