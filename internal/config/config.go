package config

import (
	"os"
	"strconv"
	"time"

	"github.com/dunamismax/pixelthin/internal/domain"
	"github.com/dunamismax/pixelthin/internal/fetch"
)

type Config struct {
	Server    ServerConfig
	Fetch     FetchConfig
	Encoding  EncodingConfig
	RateLimit RateLimitConfig
	Trace     TraceConfig
}

type ServerConfig struct {
	Addr string
}

type FetchConfig struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

type EncodingConfig struct {
	Format   string
	JXLSpeed int
}

// RateLimitConfig is optional: an empty RedisAddr leaves the gateway with no
// admission control, trusting the listener and OS to bound concurrency.
type RateLimitConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Capacity      int
	Window        time.Duration
}

func (r RateLimitConfig) Enabled() bool {
	return r.RedisAddr != ""
}

type TraceConfig struct {
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
}

func Load() Config {
	return Config{
		Server: ServerConfig{
			Addr: env("PIXELTHIN_ADDR", ":8080"),
		},
		Fetch: FetchConfig{
			Timeout:   envDuration("FETCH_TIMEOUT", fetch.DefaultTimeout),
			MaxBytes:  envInt64("FETCH_MAX_BYTES", fetch.DefaultMaxBytes),
			UserAgent: env("FETCH_USER_AGENT", "pixelthin/1.0"),
		},
		Encoding: EncodingConfig{
			Format:   env("PIXELTHIN_FORMAT", string(domain.FormatWebP)),
			JXLSpeed: envInt("PIXELTHIN_JXL_SPEED", domain.DefaultJXLSpeed),
		},
		RateLimit: RateLimitConfig{
			RedisAddr:     env("REDIS_ADDR", ""),
			RedisPassword: env("REDIS_PASSWORD", ""),
			RedisDB:       envInt("REDIS_DB", 0),
			Capacity:      envInt("RATE_LIMIT_CAPACITY", 60),
			Window:        envDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Trace: TraceConfig{
			Exporter:     env("TRACE_EXPORTER", "none"),
			OTLPEndpoint: env("TRACE_OTLP_ENDPOINT", ""),
			OTLPInsecure: envBool("TRACE_OTLP_INSECURE", false),
		},
	}
}

func env(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt64(key string, fallback int64) int64 {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
