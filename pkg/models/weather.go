package models

import (
	"math"
	"time"
)

// BaseColumns is the column set produced by the transform stage, in output order.
var BaseColumns = []string{
	"timestamp",
	"city",
	"country",
	"temperature",
	"feels_like",
	"temp_min",
	"temp_max",
	"pressure",
	"humidity",
	"weather_description",
	"wind_speed",
	"clouds",
}

// Columns appended by the enrichment stage.
const (
	ColumnTempCategory = "temp_category"
	ColumnComfortIndex = "comfort_index"
)

// WeatherObservation mirrors the OpenWeatherMap current-weather JSON payload.
// It is decoded once by the extractor and treated as read-only afterwards.
type WeatherObservation struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Pressure  float64 `json:"pressure"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Clouds struct {
		All float64 `json:"all"`
	} `json:"clouds"`
	Dt int64 `json:"dt"`
}

// WeatherRecord is one flattened row of the output table. Missing numeric
// values are NaN, missing strings are empty, missing timestamps are the zero
// time. ComfortIndex is NaN and TempCategory empty until enrichment runs.
type WeatherRecord struct {
	Timestamp          time.Time
	City               string
	Country            string
	Temperature        float64
	FeelsLike          float64
	TempMin            float64
	TempMax            float64
	Pressure           float64
	Humidity           float64
	WeatherDescription string
	WindSpeed          float64
	Clouds             float64
	TempCategory       string
	ComfortIndex       float64
}

// EmptyRecord returns a record with every column null: NaN floats, empty
// strings, zero timestamp.
func EmptyRecord() WeatherRecord {
	nan := math.NaN()
	return WeatherRecord{
		Temperature:  nan,
		FeelsLike:    nan,
		TempMin:      nan,
		TempMax:      nan,
		Pressure:     nan,
		Humidity:     nan,
		WindSpeed:    nan,
		Clouds:       nan,
		ComfortIndex: nan,
	}
}

// Value returns the native value of the named column. The second return is
// false for column names the record does not know about.
func (r *WeatherRecord) Value(column string) (interface{}, bool) {
	switch column {
	case "timestamp":
		return r.Timestamp, true
	case "city":
		return r.City, true
	case "country":
		return r.Country, true
	case "temperature":
		return r.Temperature, true
	case "feels_like":
		return r.FeelsLike, true
	case "temp_min":
		return r.TempMin, true
	case "temp_max":
		return r.TempMax, true
	case "pressure":
		return r.Pressure, true
	case "humidity":
		return r.Humidity, true
	case "weather_description":
		return r.WeatherDescription, true
	case "wind_speed":
		return r.WindSpeed, true
	case "clouds":
		return r.Clouds, true
	case ColumnTempCategory:
		return r.TempCategory, true
	case ColumnComfortIndex:
		return r.ComfortIndex, true
	default:
		return nil, false
	}
}

// IsNull reports whether a column value counts as missing: empty strings,
// NaN floats and the zero time.
func IsNull(v interface{}) bool {
	switch t := v.(type) {
	case string:
		return t == ""
	case float64:
		return math.IsNaN(t)
	case time.Time:
		return t.IsZero()
	case nil:
		return true
	default:
		return false
	}
}

// WeatherTable is the tabular result of a pipeline run. Columns carries the
// exact, ordered column set so downstream stages (and re-validation of files
// read back from disk) can check column presence without guessing.
type WeatherTable struct {
	Columns []string
	Records []WeatherRecord
}

// NewWeatherTable builds a table over the base column set.
func NewWeatherTable(records []WeatherRecord) WeatherTable {
	cols := make([]string, len(BaseColumns))
	copy(cols, BaseColumns)
	return WeatherTable{Columns: cols, Records: records}
}

// Clone returns a deep copy. Enrichers operate on clones so their inputs
// stay untouched.
func (t WeatherTable) Clone() WeatherTable {
	out := WeatherTable{
		Columns: make([]string, len(t.Columns)),
		Records: make([]WeatherRecord, len(t.Records)),
	}
	copy(out.Columns, t.Columns)
	copy(out.Records, t.Records)
	return out
}

// HasColumn reports whether the named column is part of the table.
func (t WeatherTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn appends a column name if it is not present yet.
func (t *WeatherTable) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// Empty reports whether the table holds no rows.
func (t WeatherTable) Empty() bool {
	return len(t.Records) == 0
}

// CityFailure records one city the extractor gave up on.
type CityFailure struct {
	City   string
	Reason string
}

// Artifact describes one destination a table was written to.
type Artifact struct {
	Kind     string
	Location string
	Rows     int
}

// RunSummary is returned by every pipeline run, also on failure, so the CLI
// can always print the end-of-run report.
type RunSummary struct {
	StartedAt       time.Time
	FinishedAt      time.Time
	CitiesRequested int
	CitiesSucceeded int
	FailedCities    []CityFailure
	Rows            int
	Artifacts       []Artifact
}

func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// CityStats aggregates history rows for one city.
type CityStats struct {
	City         string
	Readings     int
	AvgTemp      float64
	MinTemp      float64
	MaxTemp      float64
	AvgHumidity  float64
	MaxHumidity  float64
	AvgWindSpeed float64
}

// CountryStats aggregates history rows for one country.
type CountryStats struct {
	Country     string
	Cities      int
	Readings    int
	AvgTemp     float64
	AvgHumidity float64
}
