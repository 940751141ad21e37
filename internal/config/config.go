// Package config handles the pipeline configuration: compiled-in defaults,
// overlaid by an optional TOML file, overlaid by environment variables.
// Secrets (the API key and connection strings) are read from the environment
// only and never from files.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Config holds every setting of the pipeline. Zero values are never used
// directly; start from Default and overlay file and environment on top.
type Config struct {
	API        APIConfig        `toml:"api"`
	Cities     []string         `toml:"cities" validate:"min=1"`
	Enrichment EnrichmentConfig `toml:"enrichment"`
	Validation ValidationConfig `toml:"validation"`
	Output     OutputConfig     `toml:"output"`
	Azure      AzureConfig      `toml:"azure"`
	Warehouse  WarehouseConfig  `toml:"warehouse"`
	Mongo      MongoConfig      `toml:"mongo"`
	History    HistoryConfig    `toml:"history"`
	Collect    CollectConfig    `toml:"collect"`
	Logging    LoggingConfig    `toml:"logging"`
}

// APIConfig configures the OpenWeatherMap client.
type APIConfig struct {
	Key                   string `toml:"-"` // WEATHER_API_KEY, environment only
	BaseURL               string `toml:"base_url" validate:"required,url"`
	Units                 string `toml:"units" validate:"oneof=standard metric imperial"`
	TimeoutSeconds        int    `toml:"timeout_seconds" validate:"gt=0"` // HTTP timeout per request in seconds
	MaxRetries            int    `toml:"max_retries" validate:"gte=1"`    // total attempt budget per city
	RetryInitialBackoffMs int    `toml:"retry_initial_backoff_ms" validate:"gt=0"`
	RetryMaxBackoffMs     int    `toml:"retry_max_backoff_ms" validate:"gte=0"` // 0 disables the cap
}

func (a APIConfig) Timeout() time.Duration { return time.Duration(a.TimeoutSeconds) * time.Second }

func (a APIConfig) InitialBackoff() time.Duration {
	return time.Duration(a.RetryInitialBackoffMs) * time.Millisecond
}

func (a APIConfig) MaxBackoff() time.Duration {
	return time.Duration(a.RetryMaxBackoffMs) * time.Millisecond
}

// EnrichmentConfig configures the temperature banding. Labels must have
// exactly one more entry than bounds; bounds are upper bounds in Celsius.
type EnrichmentConfig struct {
	CategoryBounds []float64 `toml:"category_bounds"`
	CategoryLabels []string  `toml:"category_labels"`
}

// ValidationConfig configures the quality rules. Temperature bounds are in
// Celsius regardless of the API unit system.
type ValidationConfig struct {
	RequiredColumns []string `toml:"required_columns" validate:"min=1"`
	MinTemperature  float64  `toml:"min_temperature"`
	MaxTemperature  float64  `toml:"max_temperature"`
	MaxAgeHours     int      `toml:"max_age_hours" validate:"gt=0"`
}

func (v ValidationConfig) MaxAge() time.Duration { return time.Duration(v.MaxAgeHours) * time.Hour }

type OutputConfig struct {
	CSVPath    string `toml:"csv_path" validate:"required"`
	WriteEmpty bool   `toml:"write_empty"` // write a header-only CSV when a run produced no rows
}

type AzureConfig struct {
	ConnString string `toml:"-"` // AZURE_STORAGE_CONNECTION_STRING, environment only
	Container  string `toml:"container" validate:"required"`
	Format     string `toml:"format" validate:"oneof=csv parquet"`
	BlobName   string `toml:"blob_name"` // empty means a timestamped name per upload
}

type WarehouseConfig struct {
	ConnString string `toml:"-"` // WAREHOUSE_CONNECTION_STRING, environment only
	Table      string `toml:"table" validate:"required"`
}

type MongoConfig struct {
	ConnString string `toml:"-"` // MONGO_CONNECTION_STRING, environment only
	Database   string `toml:"database" validate:"required"`
	Collection string `toml:"collection" validate:"required"`
}

type HistoryConfig struct {
	Path string `toml:"path" validate:"required"` // SQLite database file
}

type CollectConfig struct {
	Samples         int    `toml:"samples" validate:"gte=1"`
	IntervalMinutes int    `toml:"interval_minutes" validate:"gte=1"`
	SampleDir       string `toml:"sample_dir"` // empty disables per-sample CSV files
}

func (c CollectConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

type LoggingConfig struct {
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" validate:"oneof=console json"`
}

// Default returns the built-in configuration. The pipeline is fully usable
// with nothing but this plus WEATHER_API_KEY in the environment.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:               "https://api.openweathermap.org/data/2.5/weather",
			Units:                 "metric",
			TimeoutSeconds:        10,
			MaxRetries:            3,
			RetryInitialBackoffMs: 1000,
			RetryMaxBackoffMs:     30000,
		},
		Cities: []string{
			"Warsaw", "Krakow", "Gdansk", "Rzeszow",
			"London", "Paris", "Berlin",
			"New York", "Los Angeles", "Chicago",
			"Tokyo", "Sydney",
		},
		Enrichment: EnrichmentConfig{
			CategoryBounds: []float64{0, 10, 20, 30},
			CategoryLabels: []string{"freezing", "cold", "mild", "warm", "hot"},
		},
		Validation: ValidationConfig{
			RequiredColumns: []string{"city", "temperature", "humidity", "timestamp"},
			MinTemperature:  -50,
			MaxTemperature:  60,
			MaxAgeHours:     24,
		},
		Output: OutputConfig{
			CSVPath: "data/weather_data.csv",
		},
		Azure: AzureConfig{
			Container: "weather-data",
			Format:    "csv",
		},
		Warehouse: WarehouseConfig{
			Table: "WEATHER_DATA",
		},
		Mongo: MongoConfig{
			Database:   "weather",
			Collection: "observations",
		},
		History: HistoryConfig{
			Path: "data/history.db",
		},
		Collect: CollectConfig{
			Samples:         10,
			IntervalMinutes: 15,
			SampleDir:       "data/historical",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

var validate = validator.New()

// Load reads the configuration from the given TOML file on top of the
// defaults, then applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithFallback loads the configuration by checking the usual locations in
// order of preference. An explicitly given path must exist; otherwise a
// missing file just means defaults plus environment.
func LoadWithFallback(preferredPath string) (*Config, error) {
	if preferredPath != "" {
		return Load(preferredPath)
	}

	searchPaths := []string{
		"weather-pipeline.toml",
		"configs/weather-pipeline.toml",
	}
	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := Default()
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags plus the cross-field rules the tags cannot
// express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	bounds := c.Enrichment.CategoryBounds
	labels := c.Enrichment.CategoryLabels
	if len(labels) != len(bounds)+1 {
		return fmt.Errorf("enrichment: need exactly one more label than bounds, got %d labels for %d bounds",
			len(labels), len(bounds))
	}
	for i := 1; i < len(bounds); i++ {
		if bounds[i] <= bounds[i-1] {
			return errors.New("enrichment: category_bounds must be strictly ascending")
		}
	}

	if c.Validation.MinTemperature >= c.Validation.MaxTemperature {
		return fmt.Errorf("validation: min_temperature (%.1f) must be below max_temperature (%.1f)",
			c.Validation.MinTemperature, c.Validation.MaxTemperature)
	}
	return nil
}

// RequireAPIKey fails when no API key is configured. Commands that talk to
// the weather API call this up front; offline commands do not need a key.
func (c *Config) RequireAPIKey() error {
	if c.API.Key == "" {
		return errors.New("WEATHER_API_KEY environment variable not set")
	}
	return nil
}
