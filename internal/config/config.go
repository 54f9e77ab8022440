// Package config holds all chatNERD core configuration. Config is loaded
// from a YAML file with environment overrides for deployment secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"chatnerd/internal/tier"
)

// Config holds the orchestration core configuration.
type Config struct {
	// Quota gates sandbox usage.
	Quota QuotaConfig `yaml:"quota"`

	// Sandbox configures session timeouts and the provider endpoint.
	Sandbox SandboxConfig `yaml:"sandbox"`

	// Reader bounds web page fetching.
	Reader ReaderConfig `yaml:"reader"`

	// Redis selects the shared usage store. Empty addr = in-memory.
	Redis RedisConfig `yaml:"redis"`

	// Logging controls the zap root logger.
	Logging LoggingConfig `yaml:"logging"`
}

// QuotaConfig configures the daily sandbox quota.
type QuotaConfig struct {
	DailyLimit int    `yaml:"daily_limit"`
	MinTier    string `yaml:"min_tier"`
}

// SandboxConfig configures sandbox session handling.
type SandboxConfig struct {
	ProviderURL     string        `yaml:"provider_url"`
	APIKey          string        `yaml:"api_key"`
	ExecTimeout     time.Duration `yaml:"exec_timeout"`
	TeardownTimeout time.Duration `yaml:"teardown_timeout"`
}

// ReaderConfig configures the bounded web reader.
type ReaderConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// RedisConfig configures the shared usage counter store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggingConfig configures the root logger.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns production defaults.
func Default() Config {
	return Config{
		Quota: QuotaConfig{
			DailyLimit: 10,
			MinTier:    tier.Plus.String(),
		},
		Sandbox: SandboxConfig{
			ExecTimeout:     2 * time.Minute,
			TeardownTimeout: 10 * time.Second,
		},
		Reader: ReaderConfig{
			Timeout:      10 * time.Second,
			MaxBodyBytes: 2 << 20,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file over the defaults. A missing path returns
// defaults; env overrides always apply last.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("failed to read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnvOverrides lets deployment environments inject secrets without
// writing them into the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CHATNERD_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("CHATNERD_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("CHATNERD_SANDBOX_API_KEY"); v != "" {
		c.Sandbox.APIKey = v
	}
	if v := os.Getenv("CHATNERD_SANDBOX_URL"); v != "" {
		c.Sandbox.ProviderURL = v
	}
}

// Validate checks the config is usable.
func (c *Config) Validate() error {
	if c.Quota.DailyLimit < 1 {
		return fmt.Errorf("quota.daily_limit must be >= 1")
	}
	if _, ok := tier.Parse(c.Quota.MinTier); !ok {
		return fmt.Errorf("quota.min_tier %q is not a known tier", c.Quota.MinTier)
	}
	if c.Sandbox.ExecTimeout <= 0 {
		return fmt.Errorf("sandbox.exec_timeout must be positive")
	}
	if c.Sandbox.TeardownTimeout <= 0 {
		return fmt.Errorf("sandbox.teardown_timeout must be positive")
	}
	if c.Reader.Timeout <= 0 {
		return fmt.Errorf("reader.timeout must be positive")
	}
	return nil
}

// MinTier returns the parsed minimum quota tier.
func (c *Config) MinTier() tier.Tier {
	t, _ := tier.Parse(c.Quota.MinTier)
	return t
}
