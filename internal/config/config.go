package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for taskrelay.
type Config struct {
	OpenAI   OpenAIConfig  `mapstructure:"openai"`
	Catalog  CatalogConfig `mapstructure:"catalog"`
	Metrics  MetricsConfig `mapstructure:"metrics"`
	LogLevel string        `mapstructure:"log_level"`
}

// OpenAIConfig holds OpenAI-specific settings.
type OpenAIConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Organization string        `mapstructure:"organization"`
	Timeout      time.Duration `mapstructure:"timeout"`
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
}

// CatalogConfig holds model catalog settings.
type CatalogConfig struct {
	ListTTL     time.Duration `mapstructure:"list_ttl"`
	RawTTL      time.Duration `mapstructure:"raw_ttl"`
	SnapshotDir string        `mapstructure:"snapshot_dir"`
}

// MetricsConfig controls Prometheus counters.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from file, environment, and defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.timeout", 120*time.Second)
	v.SetDefault("openai.rate_limit", 0)
	v.SetDefault("catalog.list_ttl", 2*time.Minute)
	v.SetDefault("catalog.raw_ttl", 6*time.Hour)
	v.SetDefault("catalog.snapshot_dir", defaultSnapshotDir())
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("log_level", "info")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("taskrelay")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/taskrelay")
	}

	// Environment variables
	v.SetEnvPrefix("TASKRELAY")
	v.AutomaticEnv()

	// Bind specific env vars
	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("openai.base_url", "TASKRELAY_OPENAI_BASE_URL")
	_ = v.BindEnv("openai.organization", "TASKRELAY_OPENAI_ORGANIZATION")
	_ = v.BindEnv("openai.timeout", "TASKRELAY_OPENAI_TIMEOUT")
	_ = v.BindEnv("openai.rate_limit", "TASKRELAY_OPENAI_RATE_LIMIT")
	_ = v.BindEnv("catalog.list_ttl", "TASKRELAY_CATALOG_LIST_TTL")
	_ = v.BindEnv("catalog.raw_ttl", "TASKRELAY_CATALOG_RAW_TTL")
	_ = v.BindEnv("catalog.snapshot_dir", "TASKRELAY_CATALOG_SNAPSHOT_DIR")
	_ = v.BindEnv("metrics.enabled", "TASKRELAY_METRICS_ENABLED")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.OpenAI.RateLimit < 0 {
		return nil, fmt.Errorf("openai.rate_limit must not be negative, got %v", cfg.OpenAI.RateLimit)
	}

	// Resolve snapshot dir to absolute
	if !filepath.IsAbs(cfg.Catalog.SnapshotDir) {
		abs, err := filepath.Abs(cfg.Catalog.SnapshotDir)
		if err != nil {
			return nil, fmt.Errorf("resolving snapshot dir: %w", err)
		}
		cfg.Catalog.SnapshotDir = abs
	}

	return &cfg, nil
}

func defaultSnapshotDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/taskrelay-catalog"
	}
	return filepath.Join(home, ".cache", "taskrelay", "catalog")
}
