package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresServiceName(t *testing.T) {
	t.Setenv("SERVICE_NAME", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without SERVICE_NAME")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "threads")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("APP_ENV", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("expected :8080, got %q", cfg.HTTP.Addr)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected info, got %q", cfg.LogLevel)
	}
	if cfg.IsProduction() {
		t.Fatal("default env must not be production")
	}
}

func TestAppConfig_IsProduction(t *testing.T) {
	t.Setenv("SERVICE_NAME", "threads")
	t.Setenv("APP_ENV", "Production")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.IsProduction() {
		t.Fatal("expected production")
	}
}

func TestLoad_WriteTimeout(t *testing.T) {
	t.Setenv("SERVICE_NAME", "threads")
	t.Setenv("HTTP_WRITE_TIMEOUT", "45s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.WriteTimeout != 45*time.Second {
		t.Fatalf("expected 45s, got %v", cfg.HTTP.WriteTimeout)
	}

	t.Setenv("HTTP_WRITE_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed HTTP_WRITE_TIMEOUT")
	}
}
