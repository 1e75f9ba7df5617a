package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFile(t *testing.T) {
	yamlContent := []byte(`
api:
  base_url: "http://api.example.com"
storage:
  sqlite_path: "/tmp/coindeck/coindeck.db"
logging:
  level: "debug"
  file: "/tmp/coindeck/coindeck.log"
feeds:
  news_stale_secs: 60
  news_refetch_secs: 120
  prices_stale_secs: 10
  prices_refetch_secs: 20
carousel:
  period_secs: 3
insight:
  model: "openrouter/auto"
`)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, yamlContent, 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	// Clear any environment overrides that might interfere.
	os.Unsetenv("COINDECK_API_URL")
	os.Unsetenv("API_BASE_URL")
	os.Unsetenv("SQLITE_PATH")
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("LOG_FILE")
	os.Unsetenv("INSIGHT_MODEL")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.API.BaseURL != "http://api.example.com" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "http://api.example.com")
	}
	if cfg.Storage.SQLitePath != "/tmp/coindeck/coindeck.db" {
		t.Errorf("Storage.SQLitePath = %q, want %q", cfg.Storage.SQLitePath, "/tmp/coindeck/coindeck.db")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Feeds.NewsStale() != time.Minute {
		t.Errorf("Feeds.NewsStale() = %v, want %v", cfg.Feeds.NewsStale(), time.Minute)
	}
	if cfg.Feeds.PricesRefetch() != 20*time.Second {
		t.Errorf("Feeds.PricesRefetch() = %v, want %v", cfg.Feeds.PricesRefetch(), 20*time.Second)
	}
	if cfg.Carousel.Period() != 3*time.Second {
		t.Errorf("Carousel.Period() = %v, want %v", cfg.Carousel.Period(), 3*time.Second)
	}
	if cfg.Insight.Model != "openrouter/auto" {
		t.Errorf("Insight.Model = %q, want %q", cfg.Insight.Model, "openrouter/auto")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	os.Unsetenv("COINDECK_API_URL")
	os.Unsetenv("API_BASE_URL")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	want := Default()
	if cfg.API.BaseURL != want.API.BaseURL {
		t.Errorf("API.BaseURL = %q, want default %q", cfg.API.BaseURL, want.API.BaseURL)
	}
	if cfg.Feeds.NewsStaleSecs != 120 || cfg.Feeds.NewsRefetchSecs != 300 {
		t.Errorf("news cadence = %d/%d, want 120/300", cfg.Feeds.NewsStaleSecs, cfg.Feeds.NewsRefetchSecs)
	}
	if cfg.Carousel.PeriodSecs != 5 {
		t.Errorf("Carousel.PeriodSecs = %d, want 5", cfg.Carousel.PeriodSecs)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	yamlContent := []byte(`
api:
  base_url: "http://yaml.example.com"
logging:
  level: "info"
`)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, yamlContent, 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	os.Setenv("COINDECK_API_URL", "http://env.example.com")
	os.Setenv("LOG_LEVEL", "warn")
	os.Unsetenv("API_BASE_URL")
	defer os.Unsetenv("COINDECK_API_URL")
	defer os.Unsetenv("LOG_LEVEL")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.API.BaseURL != "http://env.example.com" {
		t.Errorf("API.BaseURL = %q, want %q (env override)", cfg.API.BaseURL, "http://env.example.com")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q (env override)", cfg.Logging.Level, "warn")
	}
}
