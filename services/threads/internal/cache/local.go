package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LocalCountCache is an in-process cache. Invalidations made by other
// instances are not seen until the entry expires.
type LocalCountCache struct {
	lru *expirable.LRU[int64, int]
}

func NewLocalCountCache(size int, ttl time.Duration) *LocalCountCache {
	if size <= 0 {
		size = DefaultSize
	}
	return &LocalCountCache{lru: expirable.NewLRU[int64, int](size, nil, ttl)}
}

func (c *LocalCountCache) GetCount(_ context.Context, postID int64) (int, bool, error) {
	n, ok := c.lru.Get(postID)
	return n, ok, nil
}

func (c *LocalCountCache) SetCount(_ context.Context, postID int64, n int) error {
	c.lru.Add(postID, n)
	return nil
}

func (c *LocalCountCache) Invalidate(_ context.Context, postID int64) error {
	c.lru.Remove(postID)
	return nil
}

func (c *LocalCountCache) Len() int {
	return c.lru.Len()
}
