package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr        string
	DatabaseURL string
	AdminToken  string
	SeedBooths  bool
	Redis       RedisConfig
	ScanLimit   ScanLimitConfig
}

// RedisConfig configures the optional Redis client used for scan rate
// limiting. An empty URL means Redis is not configured and the in-memory
// limiter is used instead.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ScanLimitConfig bounds how often a single client may hit the scan endpoint.
type ScanLimitConfig struct {
	Requests int
	Window   time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("STAMPRALLY_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	dbURL := os.Getenv("DATABASE_URL")

	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		// Development default - must be overridden in production.
		adminToken = "dev-admin-token"
	}

	return Server{
		Addr:        addr,
		DatabaseURL: dbURL,
		AdminToken:  adminToken,
		SeedBooths:  os.Getenv("SEED_BOOTHS") == "true",
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		ScanLimit: ScanLimitConfig{
			Requests: envInt("SCAN_LIMIT_REQUESTS", 30),
			Window:   time.Duration(envInt("SCAN_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		},
	}
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
