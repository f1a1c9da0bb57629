package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCountCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisCountCache(url string, ttl time.Duration) (*RedisCountCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisCountCache{Client: redis.NewClient(opt), TTL: ttl}, nil
}

func (c *RedisCountCache) GetCount(ctx context.Context, postID int64) (int, bool, error) {
	n, err := c.Client.Get(ctx, countKey(postID)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return n, true, nil
}

func (c *RedisCountCache) SetCount(ctx context.Context, postID int64, n int) error {
	return c.Client.Set(ctx, countKey(postID), n, c.TTL).Err()
}

func (c *RedisCountCache) Invalidate(ctx context.Context, postID int64) error {
	return c.Client.Del(ctx, countKey(postID)).Err()
}

// Ping reports whether Redis is reachable.
func (c *RedisCountCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCountCache) Close() error {
	return c.Client.Close()
}
