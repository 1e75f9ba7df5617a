package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for coindeck.
type Config struct {
	API      API      `yaml:"api"`
	Storage  Storage  `yaml:"storage"`
	Logging  Logging  `yaml:"logging"`
	Feeds    Feeds    `yaml:"feeds"`
	Carousel Carousel `yaml:"carousel"`
	Insight  Insight  `yaml:"insight"`
}

// API holds the data API endpoint.
type API struct {
	BaseURL string `yaml:"base_url"`
}

// Storage holds paths for data persistence.
type Storage struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// Logging configures the application logger. The TUI writes its log to a
// file so it never fights the terminal for stdout.
type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Feeds controls refresh cadences for the dashboard data feeds. Durations
// are expressed in seconds.
type Feeds struct {
	NewsStaleSecs     int `yaml:"news_stale_secs"`
	NewsRefetchSecs   int `yaml:"news_refetch_secs"`
	PricesStaleSecs   int `yaml:"prices_stale_secs"`
	PricesRefetchSecs int `yaml:"prices_refetch_secs"`
}

// Carousel controls the news card rotation.
type Carousel struct {
	PeriodSecs int `yaml:"period_secs"`
}

// Insight configures the AI insight request.
type Insight struct {
	Model string `yaml:"model"`
}

// NewsStale returns the news freshness window as a duration.
func (f Feeds) NewsStale() time.Duration { return time.Duration(f.NewsStaleSecs) * time.Second }

// NewsRefetch returns the news polling interval as a duration.
func (f Feeds) NewsRefetch() time.Duration { return time.Duration(f.NewsRefetchSecs) * time.Second }

// PricesStale returns the price freshness window as a duration.
func (f Feeds) PricesStale() time.Duration { return time.Duration(f.PricesStaleSecs) * time.Second }

// PricesRefetch returns the price polling interval as a duration.
func (f Feeds) PricesRefetch() time.Duration {
	return time.Duration(f.PricesRefetchSecs) * time.Second
}

// Period returns the carousel rotation period as a duration.
func (c Carousel) Period() time.Duration { return time.Duration(c.PeriodSecs) * time.Second }

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		API:     API{BaseURL: "http://localhost:8000"},
		Storage: Storage{SQLitePath: "coindeck.db"},
		Logging: Logging{Level: "info", File: "coindeck.log"},
		Feeds: Feeds{
			NewsStaleSecs:     120,
			NewsRefetchSecs:   300,
			PricesStaleSecs:   15,
			PricesRefetchSecs: 30,
		},
		Carousel: Carousel{PeriodSecs: 5},
		Insight:  Insight{Model: "openrouter/auto"},
	}
}

// Load reads the YAML configuration file at the given path, parses it over
// the defaults, and then applies environment variable overrides. A missing
// file is not an error; the defaults plus environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("COINDECK_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	// The backend project exports its address under this name too.
	if v := os.Getenv("API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}

	if v := os.Getenv("INSIGHT_MODEL"); v != "" {
		cfg.Insight.Model = v
	}
}
