package utils

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// timestampFormats are tried in order when parsing timestamps read back from
// CSV files or other text sources.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a timestamp in any of the supported formats.
func ParseTimestamp(s string) (time.Time, error) {
	for _, f := range timestampFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", s)
}

// FormatTimestampCell renders a timestamp for CSV output. The zero time
// becomes an empty cell.
func FormatTimestampCell(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

// ParseTimestampCell parses a CSV cell into a timestamp. Empty cells map to
// the zero time.
func ParseTimestampCell(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return ParseTimestamp(s)
}

// FormatFloatCell renders a float for CSV output. NaN becomes an empty cell.
func FormatFloatCell(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseFloatCell parses a CSV cell into a float. Empty cells map to NaN.
func ParseFloatCell(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// ToCelsius converts a temperature from an OpenWeatherMap unit system to
// Celsius: "metric" already is Celsius, "imperial" is Fahrenheit and
// "standard" is Kelvin.
func ToCelsius(temp float64, units string) float64 {
	switch units {
	case "imperial":
		return (temp - 32) * 5 / 9
	case "standard":
		return temp - 273.15
	default:
		return temp
	}
}

// Round1 rounds to one decimal place.
func Round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// Round2 rounds to two decimal places.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}
