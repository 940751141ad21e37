package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv pins every recognized variable to empty for one test so ambient
// environment cannot leak into assertions. t.Setenv restores the originals.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"WEATHER_API_KEY", "WEATHER_API_URL", "WEATHER_UNITS",
		"WEATHER_API_TIMEOUT", "WEATHER_MAX_RETRIES", "WEATHER_CITIES",
		"AZURE_STORAGE_CONNECTION_STRING", "AZURE_CONTAINER_NAME",
		"WAREHOUSE_CONNECTION_STRING", "MONGO_CONNECTION_STRING",
		"LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weather-pipeline.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config failed validation: %v", err)
	}
	if len(cfg.Cities) != 12 {
		t.Errorf("Expected 12 default cities, got %d", len(cfg.Cities))
	}
	if cfg.API.MaxRetries != 3 {
		t.Errorf("Expected 3 retries, got %d", cfg.API.MaxRetries)
	}
	if cfg.API.Timeout() != 10*time.Second {
		t.Errorf("Expected 10s timeout, got %v", cfg.API.Timeout())
	}
	if cfg.API.InitialBackoff() != time.Second {
		t.Errorf("Expected 1s initial backoff, got %v", cfg.API.InitialBackoff())
	}
	if cfg.Validation.MaxAge() != 24*time.Hour {
		t.Errorf("Expected 24h max age, got %v", cfg.Validation.MaxAge())
	}
	if cfg.Collect.Interval() != 15*time.Minute {
		t.Errorf("Expected 15m collect interval, got %v", cfg.Collect.Interval())
	}
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
cities = ["Oslo"]

[api]
units = "imperial"
timeout_seconds = 3

[validation]
max_age_hours = 6
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Cities) != 1 || cfg.Cities[0] != "Oslo" {
		t.Errorf("Expected cities [Oslo], got %v", cfg.Cities)
	}
	if cfg.API.Units != "imperial" {
		t.Errorf("Expected imperial units, got %s", cfg.API.Units)
	}
	if cfg.API.TimeoutSeconds != 3 {
		t.Errorf("Expected 3s timeout, got %d", cfg.API.TimeoutSeconds)
	}
	if cfg.Validation.MaxAgeHours != 6 {
		t.Errorf("Expected 6h max age, got %d", cfg.Validation.MaxAgeHours)
	}

	// Settings the file does not mention keep their defaults.
	if cfg.API.MaxRetries != 3 {
		t.Errorf("Expected default retries, got %d", cfg.API.MaxRetries)
	}
	if cfg.Output.CSVPath != "data/weather_data.csv" {
		t.Errorf("Expected default CSV path, got %s", cfg.Output.CSVPath)
	}
}

func TestEnvironmentBeatsFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEATHER_UNITS", "standard")
	path := writeConfigFile(t, `
[api]
units = "imperial"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.Units != "standard" {
		t.Errorf("Expected the environment to win, got %s", cfg.API.Units)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEATHER_API_KEY", "secret")
	t.Setenv("WEATHER_CITIES", "Warsaw, London ,")
	t.Setenv("WEATHER_MAX_RETRIES", "5")
	t.Setenv("WEATHER_API_TIMEOUT", "soon") // malformed, must be ignored
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadWithFallback("")
	if err != nil {
		t.Fatalf("LoadWithFallback failed: %v", err)
	}

	if cfg.API.Key != "secret" {
		t.Errorf("Expected the API key from the environment, got %q", cfg.API.Key)
	}
	if len(cfg.Cities) != 2 || cfg.Cities[0] != "Warsaw" || cfg.Cities[1] != "London" {
		t.Errorf("Expected cities [Warsaw London], got %v", cfg.Cities)
	}
	if cfg.API.MaxRetries != 5 {
		t.Errorf("Expected 5 retries, got %d", cfg.API.MaxRetries)
	}
	if cfg.API.TimeoutSeconds != 10 {
		t.Errorf("Expected the malformed timeout to be ignored, got %d", cfg.API.TimeoutSeconds)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected debug log level, got %s", cfg.Logging.Level)
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("Expected a not-found error, got %v", err)
	}

	// An explicit --config path must exist; only the default locations may
	// silently fall back.
	if _, err := LoadWithFallback(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Expected LoadWithFallback to fail for an explicit missing path")
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown units", func(c *Config) { c.API.Units = "kelvin" }},
		{"no cities", func(c *Config) { c.Cities = nil }},
		{"zero retries", func(c *Config) { c.API.MaxRetries = 0 }},
		{"label count mismatch", func(c *Config) { c.Enrichment.CategoryLabels = []string{"cold", "hot"} }},
		{"bounds not ascending", func(c *Config) { c.Enrichment.CategoryBounds = []float64{0, 20, 10, 30} }},
		{"inverted temperature range", func(c *Config) { c.Validation.MinTemperature = 70 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"unknown blob format", func(c *Config) { c.Azure.Format = "avro" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation to fail")
			}
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	cfg := Default()

	err := cfg.RequireAPIKey()
	if err == nil || !strings.Contains(err.Error(), "WEATHER_API_KEY") {
		t.Fatalf("Expected a missing key error, got %v", err)
	}

	cfg.API.Key = "secret"
	if err := cfg.RequireAPIKey(); err != nil {
		t.Errorf("Expected no error with a key set, got %v", err)
	}
}
