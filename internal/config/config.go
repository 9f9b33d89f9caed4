// Package config loads lazylist settings from defaults, an optional config
// file, LAZYLIST_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. LAZYLIST_PAGE_SIZE.
const EnvPrefix = "LAZYLIST"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the lazylist command settings.
type Config struct {
	BaseURL   string `mapstructure:"base_url"`
	Endpoint  string `mapstructure:"endpoint"`
	Offset    int    `mapstructure:"offset"`
	PageSize  int    `mapstructure:"page_size"`
	UserAgent string `mapstructure:"user_agent"`

	// RedisAddr enables the page cache when set.
	RedisAddr string `mapstructure:"redis_addr"`

	// ListenAddr serves /health, /ready and /metrics when set.
	ListenAddr string `mapstructure:"listen_addr"`

	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`

	RateLimit      float64       `mapstructure:"rate_limit"`
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

var defaults = map[string]any{
	"base_url":        "http://localhost:8080",
	"endpoint":        "/v1/items",
	"offset":          0,
	"page_size":       20,
	"user_agent":      "lazylist/0.1.0",
	"redis_addr":      "",
	"listen_addr":     "",
	"log_level":       "info",
	"log_pretty":      true,
	"rate_limit":      10.0,
	"max_retries":     2,
	"initial_backoff": "1s",
	"timeout":         "30s",
}

// RegisterFlags adds one flag per setting to fs, plus --config.
// Flag names use dashes: page_size becomes --page-size.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a config file (yaml, toml or json)")
	fs.String("base-url", "http://localhost:8080", "page server base URL")
	fs.String("endpoint", "/v1/items", "collection endpoint")
	fs.Int("offset", 0, "offset of the first page")
	fs.Int("page-size", 20, "items per page")
	fs.String("user-agent", "lazylist/0.1.0", "User-Agent header")
	fs.String("redis-addr", "", "Redis address for the page cache (disabled when empty)")
	fs.String("listen-addr", "", "address for /health, /ready and /metrics (disabled when empty)")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.Bool("log-pretty", true, "human-readable log output")
	fs.Float64("rate-limit", 10, "client-side requests per second (0 disables)")
	fs.Int("max-retries", 2, "retries after the first attempt")
	fs.Duration("initial-backoff", time.Second, "first retry backoff")
	fs.Duration("timeout", 30*time.Second, "per-request timeout")
}

// Load resolves the configuration. path may be empty; flags may be nil.
// When flags carries a --config value it takes precedence over path.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key := range defaults {
			if f := flags.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", f.Name, err)
				}
			}
		}
		if f := flags.Lookup("config"); f != nil && f.Changed {
			path = f.Value.String()
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the command cannot run without.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: base_url %q must be an absolute URL", ErrInvalid, c.BaseURL)
	}
	if c.Endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", ErrInvalid)
	}
	if c.Offset < 0 {
		return fmt.Errorf("%w: offset must be >= 0 (got %d)", ErrInvalid, c.Offset)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("%w: page_size must be > 0 (got %d)", ErrInvalid, c.PageSize)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("%w: user_agent is required", ErrInvalid)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate_limit must be >= 0", ErrInvalid)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must be >= 0", ErrInvalid)
	}
	return nil
}
