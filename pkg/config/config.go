// pkg/config/config.go
package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPAddr string

	// Remote commerce API addressing
	ShopifyAccessToken string
	ShopDomain         string
	APIVersion         string
	RequestTimeout     time.Duration
	MaxAttempts        int

	// OIDC / JWT for callers of the tool surface
	Issuer    string
	Audience  string
	JWKSURL   string
	ClockSkew time.Duration

	// Redis & Postgres (both optional)
	RedisURL    string
	DatabaseURL string

	// Tool guard and limits
	PolicyFile         string
	RateLimitPerMinute int

	ProblemBaseURL string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:                env("SHOPTOOLS_ENV", "dev"),
		HTTPAddr:           env("SHOPTOOLS_HTTP_ADDR", ":8080"),
		ShopifyAccessToken: env("SHOPIFY_ACCESS_TOKEN", ""),
		ShopDomain:         env("MYSHOPIFY_DOMAIN", ""),
		APIVersion:         env("SHOPIFY_API_VERSION", "2024-04"),
		RequestTimeout:     envDur("SHOPIFY_TIMEOUT_SEC", 30) * time.Second,
		MaxAttempts:        envInt("SHOPIFY_MAX_ATTEMPTS", 4),
		Issuer:             env("OIDC_ISSUER", ""),
		Audience:           env("OIDC_AUDIENCE", "shoptools"),
		JWKSURL:            env("JWKS_URL", ""),
		ClockSkew:          envDur("JWT_CLOCK_SKEW_SEC", 60) * time.Second,
		RedisURL:           env("REDIS_URL", ""),
		DatabaseURL:        env("DATABASE_URL", ""),
		PolicyFile:         env("TOOL_POLICY_FILE", ""),
		RateLimitPerMinute: envInt("TOOL_RATE_LIMIT_RPM", 60),
		ProblemBaseURL:     env("PROBLEM_BASE_URL", ""),
	}
	if cfg.ProblemBaseURL == "" {
		if pub := env("BASE_PUBLIC_URL", ""); pub != "" {
			cfg.ProblemBaseURL = strings.TrimRight(pub, "/") + "/problems"
		}
	}
	if cfg.RedisURL == "" {
		log.Println("[WARN] REDIS_URL not set, tool rate limits are per process")
	}
	return cfg
}

// Validate reports missing addressing parameters for the remote API.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ShopifyAccessToken) == "" {
		errs = append(errs, errors.New("SHOPIFY_ACCESS_TOKEN is required"))
	}
	if strings.TrimSpace(c.ShopDomain) == "" {
		errs = append(errs, errors.New("MYSHOPIFY_DOMAIN is required"))
	}
	if c.MaxAttempts < 1 || c.MaxAttempts > 10 {
		errs = append(errs, errors.New("SHOPIFY_MAX_ATTEMPTS must be between 1 and 10"))
	}
	return errors.Join(errs...)
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
func envDur(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		i, _ := strconv.Atoi(v)
		return time.Duration(i)
	}
	return time.Duration(def)
}
