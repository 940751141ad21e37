package config

import (
	"os"
	"strconv"
	"strings"
)

// applyEnv overlays environment variables on top of cfg. Environment wins
// over file values; unset or malformed variables leave the value alone.
func applyEnv(cfg *Config) {
	cfg.API.Key = getenv("WEATHER_API_KEY", cfg.API.Key)
	cfg.API.BaseURL = getenv("WEATHER_API_URL", cfg.API.BaseURL)
	cfg.API.Units = getenv("WEATHER_UNITS", cfg.API.Units)
	cfg.API.TimeoutSeconds = getenvInt("WEATHER_API_TIMEOUT", cfg.API.TimeoutSeconds)
	cfg.API.MaxRetries = getenvInt("WEATHER_MAX_RETRIES", cfg.API.MaxRetries)

	if v := os.Getenv("WEATHER_CITIES"); v != "" {
		cfg.Cities = splitList(v)
	}

	cfg.Azure.ConnString = getenv("AZURE_STORAGE_CONNECTION_STRING", cfg.Azure.ConnString)
	cfg.Azure.Container = getenv("AZURE_CONTAINER_NAME", cfg.Azure.Container)
	cfg.Warehouse.ConnString = getenv("WAREHOUSE_CONNECTION_STRING", cfg.Warehouse.ConnString)
	cfg.Mongo.ConnString = getenv("MONGO_CONNECTION_STRING", cfg.Mongo.ConnString)

	cfg.Logging.Level = getenv("LOG_LEVEL", cfg.Logging.Level)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// splitList parses a comma-separated list, trimming whitespace and dropping
// empty entries, so WEATHER_CITIES="Warsaw, London" works as expected.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
