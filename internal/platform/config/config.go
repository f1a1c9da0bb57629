// Package config loads the settings every service shares from the
// environment. Service-specific settings live next to each service.
package config

import (
	"errors"
	"os"
	"strings"
	"time"
)

type HTTPConfig struct {
	Addr string
	// WriteTimeout is read from HTTP_WRITE_TIMEOUT; zero keeps the server
	// default.
	WriteTimeout time.Duration
}

type AppConfig struct {
	ServiceName string
	Env         string
	LogLevel    string
	HTTP        HTTPConfig
}

// IsProduction reports whether APP_ENV=production (case-insensitive).
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func Load() (AppConfig, error) {
	cfg := AppConfig{
		ServiceName: env("SERVICE_NAME", ""),
		Env:         env("APP_ENV", "development"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTP: HTTPConfig{
			Addr: env("HTTP_ADDR", ":8080"),
		},
	}
	if cfg.ServiceName == "" {
		return AppConfig{}, errors.New("SERVICE_NAME is required")
	}
	if v := env("HTTP_WRITE_TIMEOUT", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return AppConfig{}, errors.New("HTTP_WRITE_TIMEOUT must be a positive duration")
		}
		cfg.HTTP.WriteTimeout = d
	}
	return cfg, nil
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
