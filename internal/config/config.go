// Package config loads configuration from an optional YAML file with
// environment overrides. The server encryption key is env-only and
// mandatory: there is deliberately no default key to fall back to.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "5m" or "30s"
// decode cleanly.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	dur, err := time.ParseDuration(n.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", n.Value, err)
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Reaper    ReaperConfig    `yaml:"reaper"`

	// EncryptionKey is the 64 hex char server-side key, sourced from
	// the ENCRYPTION_KEY environment variable only. Never written to a
	// config file.
	EncryptionKey string `yaml:"-"`
}

type ServerConfig struct {
	Port              string   `yaml:"port"`
	BaseURL           string   `yaml:"base_url"`
	ReadTimeout       Duration `yaml:"read_timeout"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`
	WriteTimeout      Duration `yaml:"write_timeout"`
	IdleTimeout       Duration `yaml:"idle_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout"`
	RequireHTTPS      bool     `yaml:"require_https"`
}

type StoreConfig struct {
	Type     string `yaml:"type"` // "memory" or "redis"
	RedisURL string `yaml:"redis_url"`
}

type RateLimitConfig struct {
	Window        Duration `yaml:"window"`
	MaxAttempts   int      `yaml:"max_attempts"`
	EvictInterval Duration `yaml:"evict_interval"`
}

type ReaperConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Interval Duration `yaml:"interval"`
}

// Default returns a Config with sensible defaults. The encryption key
// has no default.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:              "8080",
			BaseURL:           "http://localhost:8080",
			ReadTimeout:       Duration(15 * time.Second),
			ReadHeaderTimeout: Duration(5 * time.Second),
			WriteTimeout:      Duration(60 * time.Second),
			IdleTimeout:       Duration(120 * time.Second),
			ShutdownTimeout:   Duration(5 * time.Second),
			RequireHTTPS:      true,
		},
		Store: StoreConfig{
			Type:     "redis",
			RedisURL: "redis://localhost:6379/0",
		},
		RateLimit: RateLimitConfig{
			Window:        Duration(5 * time.Minute),
			MaxAttempts:   5,
			EvictInterval: Duration(time.Minute),
		},
		Reaper: ReaperConfig{
			Enabled:  true,
			Interval: Duration(time.Minute),
		},
	}
}

// Load reads the optional YAML file at path, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return fmt.Errorf("PORT must be a valid number: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("STORE_TYPE"); v != "" {
		c.Store.Type = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Store.RedisURL = v
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		dur, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SHUTDOWN_TIMEOUT must be a valid duration: %w", err)
		}
		c.Server.ShutdownTimeout = Duration(dur)
	}
	if v := os.Getenv("REAPER_INTERVAL"); v != "" {
		dur, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REAPER_INTERVAL must be a valid duration: %w", err)
		}
		c.Reaper.Interval = Duration(dur)
	}
	if v := os.Getenv("NO_HTTPS"); v == "1" || v == "true" {
		c.Server.RequireHTTPS = false
	}

	c.EncryptionKey = os.Getenv("ENCRYPTION_KEY")
	return nil
}

func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.Store.Type != "memory" && c.Store.Type != "redis" {
		return fmt.Errorf("invalid store type: %s (must be 'memory' or 'redis')", c.Store.Type)
	}
	if c.Store.Type == "redis" && c.Store.RedisURL == "" {
		return fmt.Errorf("redis_url is required when store type is 'redis'")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}
	if c.RateLimit.MaxAttempts < 1 {
		return fmt.Errorf("rate limit max_attempts must be at least 1")
	}
	if c.Reaper.Enabled && c.Reaper.Interval <= 0 {
		return fmt.Errorf("reaper interval must be positive")
	}
	if c.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required (64 hex characters); refusing to start without one")
	}
	if len(c.EncryptionKey) != 64 {
		return fmt.Errorf("ENCRYPTION_KEY must be 64 hex characters, got %d", len(c.EncryptionKey))
	}
	return nil
}

// ListenAddr returns the address string for the HTTP server.
func (c Config) ListenAddr() string {
	return ":" + c.Server.Port
}
