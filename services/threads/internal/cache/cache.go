// Package cache holds backends for the per-post top-level reply count.
//
// Primary backend: Redis (env REDIS_URL), shared by every instance.
// Fallback: an in-process expiring LRU, private to one instance.
package cache

import (
	"context"
	"strconv"
	"time"
)

const (
	DefaultTTL  = 30 * time.Second
	DefaultSize = 4096
)

const keyPrefix = "threads:top_count:"

func countKey(postID int64) string {
	return keyPrefix + strconv.FormatInt(postID, 10)
}

// CountCache matches thread.CountCache.
type CountCache interface {
	GetCount(ctx context.Context, postID int64) (int, bool, error)
	SetCount(ctx context.Context, postID int64, n int) error
	Invalidate(ctx context.Context, postID int64) error
}

// New returns the Redis backend when redisURL is set and the local LRU
// otherwise.
func New(redisURL string, ttl time.Duration, size int) (CountCache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if redisURL != "" {
		c, err := NewRedisCountCache(redisURL, ttl)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return NewLocalCountCache(size, ttl), nil
}
