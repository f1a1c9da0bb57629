package cache

import (
	"context"
	"testing"
	"time"
)

func TestLocalCountCache_SetGetInvalidate(t *testing.T) {
	c := NewLocalCountCache(8, time.Minute)
	ctx := context.Background()

	if _, ok, _ := c.GetCount(ctx, 1); ok {
		t.Fatal("empty cache should miss")
	}
	_ = c.SetCount(ctx, 1, 12)
	n, ok, err := c.GetCount(ctx, 1)
	if err != nil || !ok || n != 12 {
		t.Fatalf("expected hit 12, got n=%d ok=%v err=%v", n, ok, err)
	}
	_ = c.Invalidate(ctx, 1)
	if _, ok, _ := c.GetCount(ctx, 1); ok {
		t.Fatal("invalidated entry should miss")
	}
}

func TestLocalCountCache_Expires(t *testing.T) {
	c := NewLocalCountCache(8, 20*time.Millisecond)
	ctx := context.Background()
	_ = c.SetCount(ctx, 5, 3)

	time.Sleep(60 * time.Millisecond)
	if _, ok, _ := c.GetCount(ctx, 5); ok {
		t.Fatal("entry should have expired")
	}
}

func TestLocalCountCache_EvictsOverCapacity(t *testing.T) {
	c := NewLocalCountCache(2, time.Minute)
	ctx := context.Background()
	for id := int64(1); id <= 3; id++ {
		_ = c.SetCount(ctx, id, int(id))
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	if _, ok, _ := c.GetCount(ctx, 1); ok {
		t.Fatal("oldest entry should be evicted")
	}
}

func TestCountKey(t *testing.T) {
	if got := countKey(42); got != "threads:top_count:42" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestNew_FallsBackToLocal(t *testing.T) {
	c, err := New("", 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.(*LocalCountCache); !ok {
		t.Fatalf("expected LocalCountCache without REDIS_URL, got %T", c)
	}
}

func TestNew_SelectsRedis(t *testing.T) {
	c, err := New("redis://localhost:6379/0", time.Second, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rc, ok := c.(*RedisCountCache)
	if !ok {
		t.Fatalf("expected RedisCountCache, got %T", c)
	}
	_ = rc.Close()
}

func TestNew_RejectsBadRedisURL(t *testing.T) {
	if _, err := New("http://not-redis", time.Second, 0); err == nil {
		t.Fatal("expected error for invalid redis url")
	}
}
