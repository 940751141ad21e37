package etl

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/januszmateusz/weather-data-pipeline/pkg/logger"
	"github.com/januszmateusz/weather-data-pipeline/pkg/models"
	"github.com/januszmateusz/weather-data-pipeline/pkg/utils"
)

// CSVLoader writes a table to a local CSV file. The header row is exactly
// table.Columns; timestamps are RFC3339Nano, floats keep their shortest
// representation, null cells are empty.
type CSVLoader struct {
	Path       string
	WriteEmpty bool
	log        *logger.Logger
}

func NewCSVLoader(path string, writeEmpty bool, log *logger.Logger) *CSVLoader {
	return &CSVLoader{Path: path, WriteEmpty: writeEmpty, log: log.Named("csv")}
}

// Load writes the table. An empty table is an error and leaves the target
// file untouched unless WriteEmpty allows a header-only file.
func (l *CSVLoader) Load(_ context.Context, table models.WeatherTable) (*models.Artifact, error) {
	if table.Empty() && !l.WriteEmpty {
		return nil, ErrNoData
	}

	if dir := filepath.Dir(l.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, table); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", l.Path, err)
	}

	l.log.Info("CSV written",
		logger.String("path", l.Path),
		logger.Int("rows", len(table.Records)))
	return &models.Artifact{Kind: "csv", Location: l.Path, Rows: len(table.Records)}, nil
}

// WriteCSV encodes a table to w. Shared by the file loader and the blob
// loader.
func WriteCSV(w io.Writer, table models.WeatherTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Columns); err != nil {
		return err
	}
	for i := range table.Records {
		row := make([]string, len(table.Columns))
		for j, col := range table.Columns {
			row[j] = formatCell(&table.Records[i], col)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(rec *models.WeatherRecord, col string) string {
	v, ok := rec.Value(col)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case time.Time:
		return utils.FormatTimestampCell(t)
	case float64:
		return utils.FormatFloatCell(t)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

// ReadCSV loads a table back from a CSV file, mapping empty cells to nulls.
// Columns the record type does not know about are ignored.
func ReadCSV(path string) (models.WeatherTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.WeatherTable{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	header, err := cr.Read()
	if err == io.EOF {
		return models.WeatherTable{}, fmt.Errorf("file %s is empty", path)
	}
	if err != nil {
		return models.WeatherTable{}, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	var records []models.WeatherRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.WeatherTable{}, fmt.Errorf("failed to read %s line %d: %w", path, line, err)
		}
		rec := models.EmptyRecord()
		for j, col := range header {
			if err := setCell(&rec, col, row[j]); err != nil {
				return models.WeatherTable{}, fmt.Errorf("%s line %d, column %s: %w", path, line, col, err)
			}
		}
		records = append(records, rec)
	}

	return models.WeatherTable{Columns: header, Records: records}, nil
}

func setCell(rec *models.WeatherRecord, col, cell string) error {
	switch col {
	case "timestamp":
		ts, err := utils.ParseTimestampCell(cell)
		if err != nil {
			return err
		}
		rec.Timestamp = ts
	case "city":
		rec.City = cell
	case "country":
		rec.Country = cell
	case "weather_description":
		rec.WeatherDescription = cell
	case models.ColumnTempCategory:
		rec.TempCategory = cell
	case "temperature", "feels_like", "temp_min", "temp_max", "pressure",
		"humidity", "wind_speed", "clouds", models.ColumnComfortIndex:
		f, err := utils.ParseFloatCell(cell)
		if err != nil {
			return err
		}
		switch col {
		case "temperature":
			rec.Temperature = f
		case "feels_like":
			rec.FeelsLike = f
		case "temp_min":
			rec.TempMin = f
		case "temp_max":
			rec.TempMax = f
		case "pressure":
			rec.Pressure = f
		case "humidity":
			rec.Humidity = f
		case "wind_speed":
			rec.WindSpeed = f
		case "clouds":
			rec.Clouds = f
		case models.ColumnComfortIndex:
			rec.ComfortIndex = f
		}
	default:
		// Unknown columns (sample_id from historical exports and the like)
		// are skipped.
	}
	return nil
}
