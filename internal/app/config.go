package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the catalog API server configuration, loadable from
// environment variables (BOOKNEST_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (BOOKNEST_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	MediaBaseURL string `default:"" usage:"Base URL for relative cover image paths (e.g. https://cdn.booknest.uz/media)" flag:"media-base-url"`
	RateLimit    RateLimitConfig
	Cache        CacheConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// CacheConfig controls the Redis response cache. An empty RedisURL disables it.
type CacheConfig struct {
	RedisURL string        `default:"" usage:"Redis URL for the response cache (e.g. redis://localhost:6379/0)" flag:"redis-url"`
	TTL      time.Duration `default:"30s" usage:"Lifetime of cached responses" flag:"cache-ttl"`
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	RPS   float64 `default:"20" usage:"Sustained requests per second per client"`
	Burst int     `default:"40" usage:"Requests a client may burst above the sustained rate"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "BOOKNEST",
		Files:     []string{"config.yaml", "/etc/booknest/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("database URL is required: set BOOKNEST_DATABASE_URL or DATABASE_URL")
	case c.RateLimit.RPS <= 0:
		return errors.Errorf("rate limit rps must be positive, got %v", c.RateLimit.RPS)
	case c.RateLimit.Burst < 1:
		return errors.Errorf("rate limit burst must be at least 1, got %d", c.RateLimit.Burst)
	case c.Cache.RedisURL != "" && c.Cache.TTL <= 0:
		return errors.Errorf("cache ttl must be positive, got %s", c.Cache.TTL)
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's BOOKNEST_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
