// Package config provides configuration management for the synchronization core.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"marketsync/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	API   APIConfig   `mapstructure:"api"`
	Feed  FeedConfig  `mapstructure:"feed"`
	Store StoreConfig `mapstructure:"store"`
	Tap   TapConfig   `mapstructure:"tap"`
	Log   LogConfig   `mapstructure:"log"`
}

// APIConfig holds REST gateway configuration.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// FeedConfig holds live feed gateway configuration.
type FeedConfig struct {
	URL            string        `mapstructure:"url"`
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
}

// StoreConfig holds state container configuration.
type StoreConfig struct {
	MaxNotifications int    `mapstructure:"max_notifications"`
	DBPath           string `mapstructure:"db_path"`
}

// TapConfig holds observability tap configuration.
type TapConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	MaxDepth int  `mapstructure:"max_depth"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// DefaultConfigDir returns the configuration directory.
func DefaultConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "marketsync")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080/api/v1")
	v.SetDefault("api.timeout", 15*time.Second)

	v.SetDefault("feed.url", "ws://localhost:8080/ws")
	v.SetDefault("feed.max_retries", 8)
	v.SetDefault("feed.initial_backoff", 500*time.Millisecond)
	v.SetDefault("feed.max_backoff", 30*time.Second)
	v.SetDefault("feed.write_timeout", 5*time.Second)
	v.SetDefault("feed.ping_interval", 30*time.Second)

	v.SetDefault("store.max_notifications", 50)
	v.SetDefault("store.db_path", filepath.Join(DefaultConfigDir(), "marketsync.db"))

	v.SetDefault("tap.enabled", false)
	v.SetDefault("tap.max_depth", 3)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("log.file", true)
}

// Load reads configuration from the config file and environment.
// Missing files are fine; defaults apply.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(DefaultConfigDir())
	v.AddConfigPath(".")
	v.SetEnvPrefix("MARKETSYNC")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for basic sanity.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url is required", errors.ErrConfigInvalid)
	}
	if c.Feed.URL == "" {
		return fmt.Errorf("%w: feed.url is required", errors.ErrConfigInvalid)
	}
	if c.Feed.MaxRetries < 0 {
		return fmt.Errorf("%w: feed.max_retries must be non-negative", errors.ErrConfigInvalid)
	}
	if c.Feed.InitialBackoff > c.Feed.MaxBackoff && c.Feed.MaxBackoff > 0 {
		return fmt.Errorf("%w: feed.initial_backoff exceeds feed.max_backoff", errors.ErrConfigInvalid)
	}
	return nil
}
