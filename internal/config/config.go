package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string
	Environment     string
	RootDomain      string
	GraphQLAPIURL   string
	UpstreamTimeout time.Duration
	RedisAddr       string
	RedisPassword   string
	CacheTTL        time.Duration
	ProbeInterval   time.Duration
	ProbeTimeout    time.Duration
}

func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":3000"),
		Environment:     getenv("ENVIRONMENT", "development"),
		RootDomain:      getenv("ROOT_DOMAIN", "squl.co.ke"),
		GraphQLAPIURL:   getenv("GRAPHQL_API_URL", "https://skool.zelisline.com/graphql"),
		UpstreamTimeout: getenvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		RedisAddr:       getenv("REDIS_ADDR", ""),
		RedisPassword:   getenv("REDIS_PASSWORD", ""),
		CacheTTL:        getenvDuration("CACHE_TTL", 30*time.Second),
		ProbeInterval:   getenvDuration("PROBE_INTERVAL", time.Minute),
		ProbeTimeout:    getenvDuration("PROBE_TIMEOUT", 10*time.Second),
	}
}

func (c Config) Production() bool {
	return c.Environment == "production"
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
