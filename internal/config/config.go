package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dunamismax/imagehelper/internal/normalizer"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	API       APIConfig
	Storage   StorageConfig
	Encode    EncodeConfig
	Tracing   TracingConfig
	RateLimit RateLimitConfig
}

type APIConfig struct {
	Addr           string
	MaxUploadBytes int64
}

type StorageConfig struct {
	PublicRoot string
	DefaultDir string
	Allowed    []string
}

type EncodeConfig struct {
	TargetMinBytes int
	TargetMaxBytes int
	StartQuality   int
	MaxAttempts    int
	MaxDimension   int
	MaxPixels      int
}

func (e EncodeConfig) Constraint() normalizer.EncodeConstraint {
	c := normalizer.DefaultConstraint()
	c.TargetMin = e.TargetMinBytes
	c.TargetMax = e.TargetMaxBytes
	c.StartQuality = e.StartQuality
	c.MaxAttempts = e.MaxAttempts
	return c
}

func (e EncodeConfig) Limits() normalizer.Limits {
	return normalizer.Limits{MaxDimension: e.MaxDimension, MaxPixels: int64(e.MaxPixels)}
}

type TracingConfig struct {
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
}

type RateLimitConfig struct {
	Enabled       bool
	Capacity      int
	Window        time.Duration
	UserIDHeader  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func (r RateLimitConfig) RedisOptions() *redis.Options {
	return &redis.Options{
		Addr:     r.RedisAddr,
		Password: r.RedisPassword,
		DB:       r.RedisDB,
	}
}

func Load() Config {
	return Config{
		API: APIConfig{
			Addr:           env("IMAGEHELPER_API_ADDR", ":8080"),
			MaxUploadBytes: int64(envInt("IMAGEHELPER_MAX_UPLOAD_BYTES", 10<<20)),
		},
		Storage: StorageConfig{
			PublicRoot: env("IMAGEHELPER_PUBLIC_ROOT", "./public"),
			DefaultDir: env("IMAGEHELPER_DEFAULT_DIR", "uploads"),
			Allowed:    envList("IMAGEHELPER_ALLOWED_EXTENSIONS", normalizer.DefaultAllowed),
		},
		Encode: EncodeConfig{
			TargetMinBytes: envInt("IMAGEHELPER_TARGET_MIN_BYTES", normalizer.DefaultTargetMin),
			TargetMaxBytes: envInt("IMAGEHELPER_TARGET_MAX_BYTES", normalizer.DefaultTargetMax),
			StartQuality:   envInt("IMAGEHELPER_START_QUALITY", normalizer.DefaultStartQuality),
			MaxAttempts:    envInt("IMAGEHELPER_MAX_ATTEMPTS", normalizer.DefaultMaxAttempts),
			MaxDimension:   envInt("IMAGEHELPER_MAX_DIMENSION", normalizer.DefaultMaxDimension),
			MaxPixels:      envInt("IMAGEHELPER_MAX_PIXELS", normalizer.DefaultMaxPixels),
		},
		Tracing: TracingConfig{
			Exporter:     env("TRACE_EXPORTER", "none"),
			OTLPEndpoint: env("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			OTLPInsecure: envBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		},
		RateLimit: RateLimitConfig{
			Enabled:       envBool("RATE_LIMIT_ENABLED", false),
			Capacity:      envInt("RATE_LIMIT_CAPACITY", 30),
			Window:        envDuration("RATE_LIMIT_WINDOW", time.Minute),
			UserIDHeader:  env("RATE_LIMIT_USER_HEADER", "X-User-ID"),
			RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
			RedisPassword: env("REDIS_PASSWORD", ""),
			RedisDB:       envInt("REDIS_DB", 0),
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

func envList(key string, fallback []string) []string {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
