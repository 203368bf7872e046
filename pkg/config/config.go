package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Provider names accepted in the config file.
const (
	ProviderWTD    = "wtd"
	ProviderAlpaca = "alpaca"
)

// Output modes.
const (
	OutputPretty = "pretty"
	OutputNDJSON = "ndjson"
)

// Config is the program configuration. The yaml file holds the knobs worth
// committing; credentials only ever come from the environment (optionally
// via a local .env file).
type Config struct {
	DataDir         string `yaml:"data_dir"`
	Provider        string `yaml:"provider"`
	DateFrom        string `yaml:"date_from"`
	BaseURL         string `yaml:"base_url"`
	Output          string `yaml:"output"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`

	WTDToken     string `yaml:"-"`
	AlpacaKey    string `yaml:"-"`
	AlpacaSecret string `yaml:"-"`
}

// Defaults returns the stock configuration: the data folder one level above
// the working directory, the World Trading Data provider, and a window
// starting 2020-03-12.
func Defaults() Config {
	return Config{
		DataDir:  "../data",
		Provider: ProviderWTD,
		DateFrom: "2020-03-12",
		Output:   OutputPretty,
	}
}

// Load reads the optional yaml file at path, applies defaults, and pulls
// credentials from the environment. A missing .env file is fine, the
// variables may already be exported.
func Load(path string, logger *zap.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file, relying on environment variables")
	}

	cfg := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
			logger.Debug("No config file, using defaults", zap.String("path", path))
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	cfg.WTDToken = os.Getenv("WTD_API_TOKEN")
	cfg.AlpacaKey = os.Getenv("ALPACA_API_KEY")
	cfg.AlpacaSecret = os.Getenv("ALPACA_SECRET_KEY")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Provider {
	case ProviderWTD, ProviderAlpaca:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	switch c.Output {
	case OutputPretty, OutputNDJSON:
	default:
		return fmt.Errorf("unknown output mode %q", c.Output)
	}

	if _, err := time.Parse("2006-01-02", c.DateFrom); err != nil {
		return fmt.Errorf("date_from %q is not a YYYY-MM-DD date: %w", c.DateFrom, err)
	}

	if c.RateLimitPerMin < 0 {
		return fmt.Errorf("rate_limit_per_min must not be negative")
	}

	return nil
}
