// Package config reads process settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the service settings.
type Config struct {
	HTTPAddr           string        `validate:"required"`
	GRPCAddr           string        `validate:"omitempty"`
	WeightsPath        string        `validate:"required"`
	DatabaseDSN        string        `validate:"omitempty"`
	RedisAddr          string        `validate:"omitempty,hostname_port"`
	ResultTTL          time.Duration `validate:"gt=0"`
	JWTSecret          string        `validate:"required,min=8"`
	JWTAudience        string
	MaxUploadBytes     int64         `validate:"gt=0"`
	MaxImageEdge       int           `validate:"gte=32,lte=8192"`
	CORSAllowedOrigins []string      `validate:"min=1,dive,required"`
	LogLevel           string        `validate:"oneof=debug info warn error"`
	ShutdownTimeout    time.Duration `validate:"gt=0"`
}

// Load reads the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads settings through lookup and validates them.
func LoadFrom(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, fallback string) string {
		if value, ok := lookup(key); ok && value != "" {
			return value
		}
		return fallback
	}

	cfg := &Config{
		HTTPAddr:           get("HTTP_ADDR", ":8000"),
		GRPCAddr:           get("GRPC_ADDR", ":50051"),
		WeightsPath:        get("WEIGHTS_PATH", "config/weights.yaml"),
		DatabaseDSN:        get("DATABASE_DSN", ""),
		RedisAddr:          get("REDIS_ADDR", ""),
		JWTSecret:          get("JWT_SECRET", "dev-secret"),
		JWTAudience:        get("JWT_AUDIENCE", ""),
		CORSAllowedOrigins: splitList(get("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:           strings.ToLower(get("LOG_LEVEL", "info")),
	}
	// GRPC_ADDR set to an empty value disables the gRPC listener.
	if value, ok := lookup("GRPC_ADDR"); ok && value == "" {
		cfg.GRPCAddr = ""
	}

	var err error
	if cfg.ResultTTL, err = time.ParseDuration(get("RESULT_TTL", "10m")); err != nil {
		return nil, fmt.Errorf("config: RESULT_TTL: %w", err)
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(get("SHUTDOWN_TIMEOUT", "15s")); err != nil {
		return nil, fmt.Errorf("config: SHUTDOWN_TIMEOUT: %w", err)
	}
	if cfg.MaxUploadBytes, err = strconv.ParseInt(get("MAX_UPLOAD_BYTES", "5242880"), 10, 64); err != nil {
		return nil, fmt.Errorf("config: MAX_UPLOAD_BYTES: %w", err)
	}
	if cfg.MaxImageEdge, err = strconv.Atoi(get("MAX_IMAGE_EDGE", "1024")); err != nil {
		return nil, fmt.Errorf("config: MAX_IMAGE_EDGE: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// PersistenceEnabled reports whether a database is configured.
func (c *Config) PersistenceEnabled() bool { return c.DatabaseDSN != "" }

// CacheEnabled reports whether a redis result cache is configured.
func (c *Config) CacheEnabled() bool { return c.RedisAddr != "" }

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
