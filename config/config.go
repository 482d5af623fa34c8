// Package config holds the terminal configuration: account parameters,
// feed tuning, journal backend, server address, and analyst settings.
// Files may be YAML or JSON.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// APIKeyEnv names the environment variable holding the analyst API key.
// Keys stay out of config files.
const APIKeyEnv = "GEMINI_API_KEY"

type Config struct {
	Account  AccountConfig `json:"account" yaml:"account"`
	Feed     FeedConfig    `json:"feed" yaml:"feed"`
	Journal  JournalConfig `json:"journal" yaml:"journal"`
	Server   ServerConfig  `json:"server" yaml:"server"`
	Analyst  AnalystConfig `json:"analyst" yaml:"analyst"`
	LogLevel string        `json:"log_level" yaml:"log_level"`
}

type AccountConfig struct {
	ID              string  `json:"id" yaml:"id"`
	Currency        string  `json:"currency" yaml:"currency"`
	Balance         float64 `json:"balance" yaml:"balance"`
	Leverage        float64 `json:"leverage" yaml:"leverage"`
	MarginCallLevel float64 `json:"margin_call_level" yaml:"margin_call_level"`
	DepositStep     float64 `json:"deposit_step" yaml:"deposit_step"`
}

type FeedConfig struct {
	StartPrice  float64 `json:"start_price" yaml:"start_price"`
	Volatility  float64 `json:"volatility" yaml:"volatility"`
	Spread      float64 `json:"spread" yaml:"spread"`
	TrendBias   float64 `json:"trend_bias" yaml:"trend_bias"`
	Interval    string  `json:"interval" yaml:"interval"` // e.g. "1s", "250ms"
	HistorySize int     `json:"history_size" yaml:"history_size"`
}

// ParseInterval converts the tick interval string to a duration.
func (fc FeedConfig) ParseInterval() (time.Duration, error) {
	if fc.Interval == "" {
		return time.Second, nil
	}
	return time.ParseDuration(fc.Interval)
}

type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "memory", "csv" or "sqlite"
	ClosesFile string `json:"closes_file,omitempty" yaml:"closes_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

type AnalystConfig struct {
	Model string `json:"model" yaml:"model"`
}

// Load reads configuration from a file (YAML first, JSON fallback). A
// .env file alongside the process, if any, is folded into the environment
// so the analyst key can live there.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// APIKey returns the analyst API key from the environment, if set.
func APIKey() string {
	return os.Getenv(APIKeyEnv)
}

// Save writes the configuration to a file, picking the format from the
// extension.
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if c.Account.Leverage <= 0 {
		return fmt.Errorf("account.leverage must be positive")
	}
	if c.Account.MarginCallLevel <= 0 || c.Account.MarginCallLevel >= 100 {
		return fmt.Errorf("account.margin_call_level must be in (0, 100)")
	}
	if c.Account.DepositStep <= 0 {
		return fmt.Errorf("account.deposit_step must be positive")
	}
	if c.Feed.StartPrice < 0.5 || c.Feed.StartPrice > 1.5 {
		return fmt.Errorf("feed.start_price must be within [0.5, 1.5]")
	}
	if c.Feed.Volatility <= 0 {
		return fmt.Errorf("feed.volatility must be positive")
	}
	if c.Feed.Spread < 0 {
		return fmt.Errorf("feed.spread must not be negative")
	}
	if c.Feed.TrendBias < -1 || c.Feed.TrendBias > 1 {
		return fmt.Errorf("feed.trend_bias must be in [-1, 1]")
	}
	if _, err := c.Feed.ParseInterval(); err != nil {
		return fmt.Errorf("feed.interval: %w", err)
	}
	if c.Feed.HistorySize < 2 {
		return fmt.Errorf("feed.history_size must be at least 2")
	}

	switch c.Journal.Type {
	case "memory":
	case "csv":
		if c.Journal.ClosesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal closes_file and equity_file required for csv type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for sqlite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'memory', 'csv' or 'sqlite'")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// Default returns the reference terminal configuration.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:              "SIM-001",
			Currency:        "USD",
			Balance:         10000,
			Leverage:        100,
			MarginCallLevel: 50,
			DepositStep:     1000,
		},
		Feed: FeedConfig{
			StartPrice:  1.0850,
			Volatility:  0.0002,
			Spread:      0.00015,
			TrendBias:   0,
			Interval:    "1s",
			HistorySize: 60,
		},
		Journal: JournalConfig{
			Type: "memory",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Analyst: AnalystConfig{
			Model: "gemini-2.5-flash",
		},
		LogLevel: "info",
	}
}
