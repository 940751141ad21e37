package etl

import (
	"errors"
	"fmt"
	"time"

	"github.com/januszmateusz/weather-data-pipeline/pkg/models"
)

// Transformer flattens raw API observations into table rows. The row
// timestamp is the transform time, not the observation time reported by the
// API, so freshness validation measures our own pipeline latency.
type Transformer struct {
	clock func() time.Time
}

func NewTransformer() *Transformer {
	return &Transformer{clock: time.Now}
}

// NewTransformerWithClock fixes the row timestamp source. Used by tests and
// by replays that need deterministic output.
func NewTransformerWithClock(clock func() time.Time) *Transformer {
	return &Transformer{clock: clock}
}

// Transform projects one observation onto the fixed column set. A malformed
// observation (no city name, empty weather conditions) is an error; the
// caller decides whether that aborts the batch.
func (t *Transformer) Transform(obs *models.WeatherObservation) (models.WeatherRecord, error) {
	if obs == nil {
		return models.WeatherRecord{}, errors.New("nil observation")
	}
	if obs.Name == "" {
		return models.WeatherRecord{}, errors.New("observation has no city name")
	}
	if len(obs.Weather) == 0 {
		return models.WeatherRecord{}, fmt.Errorf("city %q: observation has no weather conditions", obs.Name)
	}

	rec := models.EmptyRecord()
	rec.Timestamp = t.clock()
	rec.City = obs.Name
	rec.Country = obs.Sys.Country
	rec.Temperature = obs.Main.Temp
	rec.FeelsLike = obs.Main.FeelsLike
	rec.TempMin = obs.Main.TempMin
	rec.TempMax = obs.Main.TempMax
	rec.Pressure = obs.Main.Pressure
	rec.Humidity = obs.Main.Humidity
	rec.WeatherDescription = obs.Weather[0].Description
	rec.WindSpeed = obs.Wind.Speed
	rec.Clouds = obs.Clouds.All
	return rec, nil
}

// BatchTransform folds a list of observations into one table, preserving
// input order. Any malformed observation aborts the whole batch.
func (t *Transformer) BatchTransform(observations []*models.WeatherObservation) (models.WeatherTable, error) {
	records := make([]models.WeatherRecord, 0, len(observations))
	for i, obs := range observations {
		rec, err := t.Transform(obs)
		if err != nil {
			return models.WeatherTable{}, fmt.Errorf("transform failed for observation %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return models.NewWeatherTable(records), nil
}
