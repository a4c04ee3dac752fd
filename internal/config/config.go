// Package config loads server configuration from an optional CUE file,
// a .env file and environment variables, in increasing precedence.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/joho/godotenv"
)

//go:embed schema.cue
var schemaSrc string

// Config holds all configuration for the server.
type Config struct {
	Addr         string    `json:"addr"`
	Env          string    `json:"env"`
	DatabaseURL  string    `json:"databaseUrl"`  // PostgreSQL; takes precedence over DatabasePath
	DatabasePath string    `json:"databasePath"` // SQLite file
	RedisURL     string    `json:"redisUrl"`     // empty disables rate limiting
	LogLevel     string    `json:"logLevel"`
	MaxBatchSize int       `json:"maxBatchSize"`
	MaxBodyBytes int64     `json:"maxBodyBytes"`
	RateLimit    RateLimit `json:"rateLimit"`
}

// RateLimit configures the per-client fixed window limiter.
type RateLimit struct {
	Requests      int      `json:"requests"` // 0 disables
	WindowSeconds int      `json:"windowSeconds"`
	Whitelist     []string `json:"whitelist"` // IPs exempt from limiting
}

// Load builds the configuration. path may be empty, in which case only the
// schema defaults and the environment apply.
func Load(path string) (*Config, error) {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeFile unifies the file at path with the embedded schema and decodes
// the concrete result.
func decodeFile(path string) (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}
	v := schema.LookupPath(cue.ParsePath("#Config"))

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		file := ctx.CompileBytes(data, cue.Filename(path))
		if err := file.Err(); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		v = v.Unify(file)
	}

	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	c.Addr = getEnv("RIVER_ADDR", c.Addr)
	c.Env = getEnv("ENV", c.Env)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.DatabasePath = getEnv("DATABASE_PATH", c.DatabasePath)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	if v := os.Getenv("MAX_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_BATCH_SIZE: %w", err)
		}
		c.MaxBatchSize = n
	}

	// Comma-separated IPs
	if whitelist := os.Getenv("RATE_LIMIT_WHITELIST"); whitelist != "" {
		c.RateLimit.Whitelist = nil
		for _, entry := range strings.Split(whitelist, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				c.RateLimit.Whitelist = append(c.RateLimit.Whitelist, entry)
			}
		}
	}
	return nil
}

// MaxBatchSizeLimit mirrors the maxBatchSize bound in schema.cue.
const MaxBatchSizeLimit = 1000

// Validate checks constraints that environment overrides can break. The
// schema bounds are repeated here because overrides are applied after the
// CUE file is decoded.
func (c *Config) Validate() error {
	if c.MaxBatchSize <= 0 || c.MaxBatchSize > MaxBatchSizeLimit {
		return fmt.Errorf("max batch size must be in 1..%d, got %d", MaxBatchSizeLimit, c.MaxBatchSize)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch c.Env {
	case "development", "test":
	case "production":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required in production")
		}
	default:
		return fmt.Errorf("unknown env %q", c.Env)
	}
	if c.DatabaseURL == "" && c.DatabasePath == "" {
		return fmt.Errorf("one of DATABASE_URL or DATABASE_PATH is required")
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
