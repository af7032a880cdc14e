// Package config loads rickmorty configuration from defaults, an optional
// YAML file, RICKMORTY_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/rickmorty-client/pkg/cache"
	"github.com/Sternrassler/rickmorty-client/pkg/client"
	"github.com/Sternrassler/rickmorty-client/pkg/logging"
	"github.com/Sternrassler/rickmorty-client/pkg/pagination"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// RICKMORTY_BASE_URL for base-url.
const EnvPrefix = "RICKMORTY"

// Config is the merged configuration for the CLI and the HTTP server.
type Config struct {
	BaseURL   string        `mapstructure:"base-url"`
	UserAgent string        `mapstructure:"user-agent"`
	Timeout   time.Duration `mapstructure:"timeout"`

	MaxConcurrency int           `mapstructure:"max-concurrency"`
	FanOutTimeout  time.Duration `mapstructure:"fanout-timeout"`

	CacheEnabled  bool          `mapstructure:"cache"`
	RedisAddr     string        `mapstructure:"redis-addr"`
	RedisPassword string        `mapstructure:"redis-password"`
	RedisDB       int           `mapstructure:"redis-db"`
	CacheTTL      time.Duration `mapstructure:"cache-ttl"`

	LogLevel  string `mapstructure:"log-level"`
	LogPretty bool   `mapstructure:"pretty"`

	ListenAddr string `mapstructure:"listen"`

	// ConfigFile is the file that was read, empty if none.
	ConfigFile string `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	clientDefaults := client.DefaultConfig()
	fanOutDefaults := pagination.DefaultConfig()

	v.SetDefault("base-url", clientDefaults.BaseURL)
	v.SetDefault("user-agent", clientDefaults.UserAgent)
	v.SetDefault("timeout", clientDefaults.Timeout)
	v.SetDefault("max-concurrency", fanOutDefaults.MaxConcurrency)
	v.SetDefault("fanout-timeout", fanOutDefaults.Timeout)
	v.SetDefault("cache", false)
	v.SetDefault("redis-addr", "localhost:6379")
	v.SetDefault("redis-password", "")
	v.SetDefault("redis-db", 0)
	v.SetDefault("cache-ttl", cache.DefaultConfig().DefaultTTL)
	v.SetDefault("log-level", string(logging.LevelInfo))
	v.SetDefault("pretty", false)
	v.SetDefault("listen", ":8080")
}

// Load merges all configuration sources. path may be empty, in which case
// only defaults, environment and flags apply. flags may be nil; only flags
// the user actually set override lower layers.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	var cfg Config

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return cfg, fmt.Errorf("bind flags: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if c.BaseURL == "" || err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base-url: %q", c.BaseURL)
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		return fmt.Errorf("user-agent is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout: %s", c.Timeout)
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("invalid max-concurrency: %d", c.MaxConcurrency)
	}
	if c.FanOutTimeout < 0 {
		return fmt.Errorf("invalid fanout-timeout: %s", c.FanOutTimeout)
	}
	if c.CacheEnabled {
		if c.RedisAddr == "" {
			return fmt.Errorf("redis-addr is required when cache is enabled")
		}
		if c.CacheTTL <= 0 {
			return fmt.Errorf("invalid cache-ttl: %s", c.CacheTTL)
		}
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log-level: %w", err)
	}
	return nil
}

// Logging returns the logger configuration.
func (c Config) Logging() logging.Config {
	level, _ := logging.ParseLevel(c.LogLevel)
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Pretty = c.LogPretty
	return cfg
}

// RedisOptions returns connection options for the response cache, or nil
// when caching is disabled.
func (c Config) RedisOptions() *redis.Options {
	if !c.CacheEnabled {
		return nil
	}
	return &redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// Client returns the API client configuration. rdb may be nil.
func (c Config) Client(rdb *redis.Client) client.Config {
	cfg := client.DefaultConfig()
	cfg.BaseURL = c.BaseURL
	cfg.UserAgent = c.UserAgent
	cfg.Timeout = c.Timeout
	cfg.Redis = rdb
	cfg.Cache.DefaultTTL = c.CacheTTL
	return cfg
}

// FanOut returns the resident resolution limits.
func (c Config) FanOut() pagination.Config {
	return pagination.Config{
		MaxConcurrency: c.MaxConcurrency,
		Timeout:        c.FanOutTimeout,
	}
}
