// Package config loads runtime settings from a YAML file, a .env file and
// TRADEINDEX_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "TRADEINDEX"

var ErrInvalidConfig = errors.New("config: invalid config")

type Config struct {
	Database   DatabaseConfig   `yaml:"database" envconfig:"DATABASE"`
	Feeds      FeedsConfig      `yaml:"feeds" envconfig:"FEEDS"`
	Lookups    LookupsConfig    `yaml:"lookups" envconfig:"LOOKUPS"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	PriceIndex PriceIndexConfig `yaml:"price_index" envconfig:"PRICE_INDEX"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// FeedsConfig points at the feed export files the collector loads.
type FeedsConfig struct {
	Institute string `yaml:"institute"`
	Curated   string `yaml:"curated"`
}

// LookupsConfig names the reference files. Empty paths disable the
// agriculture filter and the movers descriptions.
type LookupsConfig struct {
	Agriculture  string `yaml:"agriculture"`
	Descriptions string `yaml:"descriptions"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	Dir        string `yaml:"dir"`
	MaxSize    int    `yaml:"max_size" split_words:"true"` // MB
	MaxBackups int    `yaml:"max_backups" split_words:"true"`
	MaxAge     int    `yaml:"max_age" split_words:"true"` // days
	Compress   bool   `yaml:"compress"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
}

type PriceIndexConfig struct {
	Window       int     `yaml:"window"`
	MinPeriods   int     `yaml:"min_periods" split_words:"true"`
	BandWidth    float64 `yaml:"band_width" split_words:"true"`
	LagPeriods   int     `yaml:"lag_periods" split_words:"true"`
	MoversLimit  int     `yaml:"movers_limit" split_words:"true"`
	Scope        string  `yaml:"scope"`
	TopCountries int     `yaml:"top_countries" split_words:"true"`
}

func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "data/tradeindex.db"},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			Dir:        "logs",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		PriceIndex: PriceIndexConfig{
			Window:       3,
			MinPeriods:   1,
			BandWidth:    2,
			LagPeriods:   12,
			MoversLimit:  20,
			Scope:        "sequence",
			TopCountries: 20,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (optional), the
// given .env files (or ./.env when none are named) and the environment.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if err := loadDotEnv(envFiles); err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("config: load env file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	var problems []string

	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q", c.Logging.Format))
	}
	switch strings.ToLower(c.Logging.Output) {
	case "stdout", "stderr", "file":
	default:
		problems = append(problems, fmt.Sprintf("logging.output %q", c.Logging.Output))
	}
	if c.Server.Addr == "" {
		problems = append(problems, "server.addr is empty")
	}

	p := c.PriceIndex
	if p.Window <= 0 || p.MinPeriods <= 0 || p.MinPeriods > p.Window {
		problems = append(problems, fmt.Sprintf("price_index window %d / min_periods %d", p.Window, p.MinPeriods))
	}
	if p.BandWidth <= 0 {
		problems = append(problems, "price_index.band_width must be positive")
	}
	if p.LagPeriods <= 0 {
		problems = append(problems, "price_index.lag_periods must be positive")
	}
	if p.MoversLimit <= 0 {
		problems = append(problems, "price_index.movers_limit must be positive")
	}
	if p.TopCountries <= 0 {
		problems = append(problems, "price_index.top_countries must be positive")
	}
	switch p.Scope {
	case "sequence", "commodity":
	default:
		problems = append(problems, fmt.Sprintf("price_index.scope %q", p.Scope))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
