package utils

import (
	"math"
	"testing"
	"time"
)

func TestToCelsius(t *testing.T) {
	cases := []struct {
		temp  float64
		units string
		want  float64
	}{
		{25, "metric", 25},
		{68, "imperial", 20},
		{32, "imperial", 0},
		{293.15, "standard", 20},
		{273.15, "standard", 0},
		{25, "", 25},
	}
	for _, c := range cases {
		got := ToCelsius(c.temp, c.units)
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("ToCelsius(%g, %q) = %g, want %g", c.temp, c.units, got, c.want)
		}
	}
}

func TestRounding(t *testing.T) {
	if got := Round1(3.14159); got != 3.1 {
		t.Errorf("Round1(3.14159) = %g, want 3.1", got)
	}
	if got := Round2(2.71828); got != 2.72 {
		t.Errorf("Round2(2.71828) = %g, want 2.72", got)
	}
	if got := Round1(81.5); got != 81.5 {
		t.Errorf("Round1(81.5) = %g, want 81.5", got)
	}
}

func TestParseTimestampFormats(t *testing.T) {
	cases := []string{
		"2026-08-23T12:30:00Z",
		"2026-08-23T12:30:00.123456789Z",
		"2026-08-23 12:30:00",
		"2026-08-23",
	}
	for _, s := range cases {
		if _, err := ParseTimestamp(s); err != nil {
			t.Errorf("ParseTimestamp(%q) failed: %v", s, err)
		}
	}

	if _, err := ParseTimestamp("not a timestamp"); err == nil {
		t.Error("Expected an error for garbage input")
	}
}

func TestTimestampCellRoundTrip(t *testing.T) {
	ts := time.Date(2026, 8, 23, 12, 30, 0, 0, time.UTC)
	cell := FormatTimestampCell(ts)
	back, err := ParseTimestampCell(cell)
	if err != nil {
		t.Fatalf("Failed to parse %q: %v", cell, err)
	}
	if !back.Equal(ts) {
		t.Errorf("Round trip changed timestamp: %v != %v", back, ts)
	}

	if FormatTimestampCell(time.Time{}) != "" {
		t.Error("Expected the zero time to format as an empty cell")
	}
	zero, err := ParseTimestampCell("")
	if err != nil || !zero.IsZero() {
		t.Errorf("Expected an empty cell to parse as the zero time, got %v, %v", zero, err)
	}
}

func TestFloatCellRoundTrip(t *testing.T) {
	if FormatFloatCell(math.NaN()) != "" {
		t.Error("Expected NaN to format as an empty cell")
	}
	nan, err := ParseFloatCell("")
	if err != nil || !math.IsNaN(nan) {
		t.Errorf("Expected an empty cell to parse as NaN, got %v, %v", nan, err)
	}

	if got := FormatFloatCell(21.5); got != "21.5" {
		t.Errorf("FormatFloatCell(21.5) = %q, want \"21.5\"", got)
	}
	f, err := ParseFloatCell("21.5")
	if err != nil || f != 21.5 {
		t.Errorf("ParseFloatCell(\"21.5\") = %v, %v", f, err)
	}

	if _, err := ParseFloatCell("abc"); err == nil {
		t.Error("Expected an error for a non-numeric cell")
	}
}
