package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	platformconfig "github.com/example/community-platform/internal/platform/config"
)

type Config struct {
	platformconfig.AppConfig

	DatabaseURL string
	DBMaxConns  int32
	GRPCAddr    string
	JWTSecret   string
	JWTIssuer   string
	NATSURL     string
	RedisURL    string

	CountCacheTTL  time.Duration
	CountCacheSize int

	DefaultLimit int
	MaxLimit     int
}

func Load() (Config, error) {
	app, err := platformconfig.Load()
	if err != nil {
		return Config{}, err
	}
	grpcAddr := strings.TrimSpace(os.Getenv("GRPC_ADDR"))
	if grpcAddr == "" {
		grpcAddr = ":9090"
	}

	return Config{
		AppConfig:      app,
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:     int32(envInt("DB_MAX_CONNS", 10)),
		GRPCAddr:       grpcAddr,
		JWTSecret:      strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:      strings.TrimSpace(os.Getenv("JWT_ISSUER")),
		NATSURL:        strings.TrimSpace(os.Getenv("NATS_URL")),
		RedisURL:       strings.TrimSpace(os.Getenv("REDIS_URL")),
		CountCacheTTL:  envDuration("COUNT_CACHE_TTL", 30*time.Second),
		CountCacheSize: envInt("COUNT_CACHE_SIZE", 4096),
		DefaultLimit:   envInt("REPLIES_DEFAULT_LIMIT", 50),
		MaxLimit:       envInt("REPLIES_MAX_LIMIT", 100),
	}, nil
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
