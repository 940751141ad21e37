package models

import (
	"math"
	"testing"
	"time"
)

func TestEmptyRecordIsAllNull(t *testing.T) {
	rec := EmptyRecord()

	columns := append([]string{}, BaseColumns...)
	columns = append(columns, ColumnTempCategory, ColumnComfortIndex)
	for _, col := range columns {
		v, ok := rec.Value(col)
		if !ok {
			t.Fatalf("Value(%q) reported unknown column", col)
		}
		if !IsNull(v) {
			t.Errorf("Expected column %q of an empty record to be null, got %v", col, v)
		}
	}
}

func TestValueUnknownColumn(t *testing.T) {
	rec := EmptyRecord()
	if _, ok := rec.Value("nonexistent"); ok {
		t.Error("Expected Value to report an unknown column")
	}
}

func TestIsNull(t *testing.T) {
	cases := []struct {
		value interface{}
		want  bool
	}{
		{"", true},
		{"Warsaw", false},
		{math.NaN(), true},
		{21.5, false},
		{time.Time{}, true},
		{time.Now(), false},
		{nil, true},
		{42, false},
	}
	for _, c := range cases {
		if got := IsNull(c.value); got != c.want {
			t.Errorf("IsNull(%v) = %v, want %v", c.value, got, c.want)
		}
	}
}

func TestNewWeatherTableUsesBaseColumns(t *testing.T) {
	table := NewWeatherTable(nil)
	if len(table.Columns) != len(BaseColumns) {
		t.Fatalf("Expected %d columns, got %d", len(BaseColumns), len(table.Columns))
	}
	for i, col := range BaseColumns {
		if table.Columns[i] != col {
			t.Errorf("Column %d: expected %q, got %q", i, col, table.Columns[i])
		}
	}

	// The table owns its column slice; growing it must not touch BaseColumns.
	table.AddColumn(ColumnTempCategory)
	if len(BaseColumns) != 12 {
		t.Errorf("BaseColumns changed length to %d", len(BaseColumns))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	rec := EmptyRecord()
	rec.City = "Warsaw"
	table := NewWeatherTable([]WeatherRecord{rec})

	clone := table.Clone()
	clone.Records[0].City = "London"
	clone.AddColumn(ColumnComfortIndex)

	if table.Records[0].City != "Warsaw" {
		t.Errorf("Clone mutation leaked into the original: city is %q", table.Records[0].City)
	}
	if table.HasColumn(ColumnComfortIndex) {
		t.Error("Clone column addition leaked into the original")
	}
}

func TestAddColumnDeduplicates(t *testing.T) {
	table := NewWeatherTable(nil)
	table.AddColumn(ColumnTempCategory)
	table.AddColumn(ColumnTempCategory)

	count := 0
	for _, c := range table.Columns {
		if c == ColumnTempCategory {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected temp_category to appear once, found %d times", count)
	}
}
