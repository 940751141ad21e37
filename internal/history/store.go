// Package history persists collected weather samples in a local SQLite
// database and answers the aggregate queries behind the stats command.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/januszmateusz/weather-data-pipeline/pkg/logger"
	"github.com/januszmateusz/weather-data-pipeline/pkg/models"
	"github.com/januszmateusz/weather-data-pipeline/pkg/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS weather_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sample_id INTEGER NOT NULL,
	collected_at TEXT NOT NULL,
	timestamp TEXT,
	city TEXT,
	country TEXT,
	temperature REAL,
	feels_like REAL,
	temp_min REAL,
	temp_max REAL,
	pressure REAL,
	humidity REAL,
	weather_description TEXT,
	wind_speed REAL,
	clouds REAL,
	temp_category TEXT,
	comfort_index REAL
);
CREATE INDEX IF NOT EXISTS idx_weather_history_city ON weather_history(city);
CREATE INDEX IF NOT EXISTS idx_weather_history_sample ON weather_history(sample_id);
`

// Store is the SQLite-backed sample archive.
type Store struct {
	db   *sql.DB
	path string
	log  *logger.Logger
}

// New opens (creating if needed) the history database at path.
func New(path string, log *logger.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &Store{db: db, path: path, log: log.Named("history")}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

// AppendTable inserts every record of the table under the given sample id.
// Null cells become SQL NULLs; timestamps are stored as RFC 3339 text.
func (s *Store) AppendTable(ctx context.Context, table models.WeatherTable, sampleID int) error {
	if table.Empty() {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO weather_history (
			sample_id, collected_at, timestamp, city, country, temperature,
			feels_like, temp_min, temp_max, pressure, humidity,
			weather_description, wind_speed, clouds, temp_category, comfort_index
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	collectedAt := time.Now().UTC().Format(time.RFC3339)
	for i := range table.Records {
		rec := &table.Records[i]
		_, err := stmt.ExecContext(ctx,
			sampleID,
			collectedAt,
			nullTime(rec.Timestamp),
			nullString(rec.City),
			nullString(rec.Country),
			nullFloat(rec.Temperature),
			nullFloat(rec.FeelsLike),
			nullFloat(rec.TempMin),
			nullFloat(rec.TempMax),
			nullFloat(rec.Pressure),
			nullFloat(rec.Humidity),
			nullString(rec.WeatherDescription),
			nullFloat(rec.WindSpeed),
			nullFloat(rec.Clouds),
			nullString(rec.TempCategory),
			nullFloat(rec.ComfortIndex),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert record for %q: %w", rec.City, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sample %d: %w", sampleID, err)
	}

	s.log.Debug("Appended sample to history",
		logger.Int("sample_id", sampleID),
		logger.Int("rows", len(table.Records)))
	return nil
}

// CityStats aggregates every stored reading per city, ordered by city name.
func (s *Store) CityStats(ctx context.Context) ([]models.CityStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT city,
		       COUNT(*),
		       AVG(temperature), MIN(temperature), MAX(temperature),
		       AVG(humidity), MAX(humidity),
		       AVG(wind_speed)
		FROM weather_history
		WHERE city IS NOT NULL
		GROUP BY city
		ORDER BY city`)
	if err != nil {
		return nil, fmt.Errorf("city stats query failed: %w", err)
	}
	defer rows.Close()

	var stats []models.CityStats
	for rows.Next() {
		var st models.CityStats
		var avgTemp, minTemp, maxTemp, avgHum, maxHum, avgWind sql.NullFloat64
		if err := rows.Scan(&st.City, &st.Readings, &avgTemp, &minTemp, &maxTemp, &avgHum, &maxHum, &avgWind); err != nil {
			return nil, fmt.Errorf("city stats scan failed: %w", err)
		}
		st.AvgTemp = statValue(avgTemp)
		st.MinTemp = statValue(minTemp)
		st.MaxTemp = statValue(maxTemp)
		st.AvgHumidity = statValue(avgHum)
		st.MaxHumidity = statValue(maxHum)
		st.AvgWindSpeed = statValue(avgWind)
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// CountryStats aggregates stored readings per country code.
func (s *Store) CountryStats(ctx context.Context) ([]models.CountryStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT country,
		       COUNT(DISTINCT city),
		       COUNT(*),
		       AVG(temperature),
		       AVG(humidity)
		FROM weather_history
		WHERE country IS NOT NULL AND country != ''
		GROUP BY country
		ORDER BY country`)
	if err != nil {
		return nil, fmt.Errorf("country stats query failed: %w", err)
	}
	defer rows.Close()

	var stats []models.CountryStats
	for rows.Next() {
		var st models.CountryStats
		var avgTemp, avgHum sql.NullFloat64
		if err := rows.Scan(&st.Country, &st.Cities, &st.Readings, &avgTemp, &avgHum); err != nil {
			return nil, fmt.Errorf("country stats scan failed: %w", err)
		}
		st.AvgTemp = statValue(avgTemp)
		st.AvgHumidity = statValue(avgHum)
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func nullFloat(f float64) interface{} {
	if math.IsNaN(f) {
		return nil
	}
	return f
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func statValue(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return utils.Round2(v.Float64)
}
