package infra

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/domain"
)

// BrokerConfig holds the credentials and endpoints for one broker's
// pooled account.
type BrokerConfig struct {
	BaseURL   string `yaml:"base_url"`
	StreamURL string `yaml:"stream_url"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Alias     string `yaml:"alias"`   // "master"/"admin"/"aggregator" marks the pooled account
	Enabled   bool   `yaml:"enabled"`
	Paper     bool   `yaml:"paper"` // paper-trading endpoint of a live broker
}

// Config holds all application settings. Secrets can be overridden via
// environment variables after the file is loaded.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Brokers struct {
		Alpaca  BrokerConfig `yaml:"alpaca"`
		Zerodha BrokerConfig `yaml:"zerodha"`
	} `yaml:"brokers"`

	Execution struct {
		OrderTimeoutSec int `yaml:"order_timeout_sec"`
		PollIntervalSec int `yaml:"poll_interval_sec"`
		MaxPollAttempts int `yaml:"max_poll_attempts"`
	} `yaml:"execution"`

	ExchangeRate struct {
		URL             string `yaml:"url"`
		PollIntervalSec int    `yaml:"poll_interval_sec"`
	} `yaml:"exchange_rate"`

	Storage struct {
		Path string `yaml:"path"` // empty means the default user data dir
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file, applies env
// overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Execution.OrderTimeoutSec <= 0 {
		return &domain.ConfigError{Field: "execution.order_timeout_sec", Err: errors.New("must be positive")}
	}
	if c.Execution.PollIntervalSec <= 0 {
		return &domain.ConfigError{Field: "execution.poll_interval_sec", Err: errors.New("must be positive")}
	}
	if c.Execution.MaxPollAttempts <= 0 {
		return &domain.ConfigError{Field: "execution.max_poll_attempts", Err: errors.New("must be positive")}
	}

	if c.Brokers.Alpaca.Enabled {
		if c.Brokers.Alpaca.BaseURL == "" {
			return &domain.ConfigError{Field: "brokers.alpaca.base_url", Err: errors.New("required when enabled")}
		}
		if c.Brokers.Alpaca.APIKey == "" || c.Brokers.Alpaca.APISecret == "" {
			return &domain.ConfigError{Field: "brokers.alpaca", Err: errors.New("credentials required when enabled")}
		}
	}
	if c.Brokers.Zerodha.Enabled {
		if c.Brokers.Zerodha.BaseURL == "" {
			return &domain.ConfigError{Field: "brokers.zerodha.base_url", Err: errors.New("required when enabled")}
		}
		if c.Brokers.Zerodha.APIKey == "" || c.Brokers.Zerodha.APISecret == "" {
			return &domain.ConfigError{Field: "brokers.zerodha", Err: errors.New("credentials required when enabled")}
		}
	}

	return nil
}

// overrideWithEnv replaces secrets with environment values when present.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("SARAS_ALPACA_KEY"); key != "" {
		cfg.Brokers.Alpaca.APIKey = key
	}
	if secret := os.Getenv("SARAS_ALPACA_SECRET"); secret != "" {
		cfg.Brokers.Alpaca.APISecret = secret
	}
	if key := os.Getenv("SARAS_ZERODHA_KEY"); key != "" {
		cfg.Brokers.Zerodha.APIKey = key
	}
	if secret := os.Getenv("SARAS_ZERODHA_SECRET"); secret != "" {
		cfg.Brokers.Zerodha.APISecret = secret
	}
}
