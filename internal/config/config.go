// Package config loads the service configuration from built-in defaults, an
// optional YAML file, an optional .env file and the environment, in that
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/0xc0d3d00d/klinechart/internal/domain"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

const (
	ProviderYahoo = "yahoo"
	ProviderFile  = "file"
	ProviderMock  = "mock"
)

type Config struct {
	Addr         string        `yaml:"addr" env:"ADDR"`
	LogLevel     string        `yaml:"log_level" env:"LOG_LEVEL"`
	Provider     string        `yaml:"provider" env:"MARKETDATA_PROVIDER"`
	YahooBaseURL string        `yaml:"yahoo_base_url" env:"YAHOO_BASE_URL"`
	ProxyURL     string        `yaml:"proxy" env:"HTTPS_PROXY"`
	DataDir      string        `yaml:"data_dir" env:"DATA_DIR"`
	LookbackDays int           `yaml:"lookback_days" env:"LOOKBACK_DAYS"`
	Interval     string        `yaml:"interval" env:"INTERVAL"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" env:"FETCH_TIMEOUT"`
	Retry        Retry         `yaml:"retry" envPrefix:"RETRY_"`
	Chart        Chart         `yaml:"chart" envPrefix:"CHART_"`
}

type Retry struct {
	MaxAttempts int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	BaseDelay   time.Duration `yaml:"base_delay" env:"BASE_DELAY"`
	MaxDelay    time.Duration `yaml:"max_delay" env:"MAX_DELAY"`
}

// Chart sizes are in inches.
type Chart struct {
	WidthIn  float64 `yaml:"width_in" env:"WIDTH_IN"`
	HeightIn float64 `yaml:"height_in" env:"HEIGHT_IN"`
	DPI      int     `yaml:"dpi" env:"DPI"`
}

func Default() *Config {
	return &Config{
		Addr:         ":5000",
		LogLevel:     "info",
		Provider:     ProviderYahoo,
		YahooBaseURL: "https://query1.finance.yahoo.com",
		DataDir:      "./data",
		LookbackDays: 90,
		Interval:     "1d",
		FetchTimeout: 30 * time.Second,
		Retry: Retry{
			MaxAttempts: 4,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    8 * time.Second,
		},
		Chart: Chart{
			WidthIn:  12,
			HeightIn: 14,
			DPI:      100,
		},
	}
}

// Load reads the YAML file at path from fsys when it exists, then applies
// .env and environment overrides and validates the result.
func Load(fsys afero.Fs, path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := afero.ReadFile(fsys, path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// Ignore error if .env is missing
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Provider {
	case ProviderYahoo:
		if c.YahooBaseURL == "" {
			errs = append(errs, errors.New("yahoo_base_url is required for the yahoo provider"))
		}
	case ProviderFile:
		if c.DataDir == "" {
			errs = append(errs, errors.New("data_dir is required for the file provider"))
		}
	case ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}
	if c.LookbackDays <= 0 {
		errs = append(errs, errors.New("lookback_days must be positive"))
	}
	if _, err := c.ParsedInterval(); err != nil {
		errs = append(errs, err)
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, errors.New("fetch_timeout must be positive"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts must be at least 1"))
	}
	if c.Retry.BaseDelay <= 0 || c.Retry.MaxDelay < c.Retry.BaseDelay {
		errs = append(errs, errors.New("retry delays must satisfy 0 < base_delay <= max_delay"))
	}
	if c.Chart.WidthIn <= 0 || c.Chart.HeightIn <= 0 || c.Chart.DPI <= 0 {
		errs = append(errs, errors.New("chart width, height and dpi must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

func (c *Config) ParsedInterval() (domain.Interval, error) {
	return domain.ParseInterval(c.Interval)
}
