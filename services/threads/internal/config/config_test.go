package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "threads")
	for _, k := range []string{"GRPC_ADDR", "DATABASE_URL", "COUNT_CACHE_TTL", "REPLIES_DEFAULT_LIMIT", "REPLIES_MAX_LIMIT", "DB_MAX_CONNS"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GRPCAddr != ":9090" {
		t.Fatalf("expected default grpc addr, got %q", cfg.GRPCAddr)
	}
	if cfg.CountCacheTTL != 30*time.Second || cfg.CountCacheSize != 4096 {
		t.Fatalf("unexpected cache defaults: %v / %d", cfg.CountCacheTTL, cfg.CountCacheSize)
	}
	if cfg.DefaultLimit != 50 || cfg.MaxLimit != 100 || cfg.DBMaxConns != 10 {
		t.Fatalf("unexpected limits: %+v", cfg)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("expected platform defaults to apply, got %q", cfg.HTTP.Addr)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVICE_NAME", "threads")
	t.Setenv("COUNT_CACHE_TTL", "2m")
	t.Setenv("REPLIES_MAX_LIMIT", "25")
	t.Setenv("REPLIES_DEFAULT_LIMIT", "not-a-number")
	t.Setenv("REDIS_URL", " redis://cache:6379/1 ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CountCacheTTL != 2*time.Minute {
		t.Fatalf("expected 2m ttl, got %v", cfg.CountCacheTTL)
	}
	if cfg.MaxLimit != 25 {
		t.Fatalf("expected max limit 25, got %d", cfg.MaxLimit)
	}
	if cfg.DefaultLimit != 50 {
		t.Fatalf("invalid value should fall back to default, got %d", cfg.DefaultLimit)
	}
	if cfg.RedisURL != "redis://cache:6379/1" {
		t.Fatalf("expected trimmed redis url, got %q", cfg.RedisURL)
	}
}

func TestLoad_RequiresServiceName(t *testing.T) {
	t.Setenv("SERVICE_NAME", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without SERVICE_NAME")
	}
}
