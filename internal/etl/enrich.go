package etl

import (
	"math"

	"github.com/januszmateusz/weather-data-pipeline/pkg/models"
	"github.com/januszmateusz/weather-data-pipeline/pkg/utils"
)

// Enricher derives additional columns from a table. Implementations must be
// pure: the input table is never modified, a new table is returned.
type Enricher func(models.WeatherTable) models.WeatherTable

// Chain composes enrichers left to right. Later enrichers see the columns
// added by earlier ones.
func Chain(enrichers ...Enricher) Enricher {
	return func(table models.WeatherTable) models.WeatherTable {
		out := table
		for _, e := range enrichers {
			out = e(out)
		}
		return out
	}
}

// CategoryBins maps temperature upper bounds to labels. A temperature below
// UpperBounds[i] gets Labels[i]; anything at or above the last bound gets the
// final label. Bounds are in Celsius and must be strictly ascending.
type CategoryBins struct {
	UpperBounds []float64
	Labels      []string
}

// DefaultCategoryBins returns the standard banding:
// <0 freezing, <10 cold, <20 mild, <30 warm, else hot.
func DefaultCategoryBins() CategoryBins {
	return CategoryBins{
		UpperBounds: []float64{0, 10, 20, 30},
		Labels:      []string{"freezing", "cold", "mild", "warm", "hot"},
	}
}

// Categorize returns the label for a Celsius temperature.
func (b CategoryBins) Categorize(tempC float64) string {
	for i, max := range b.UpperBounds {
		if tempC < max {
			return b.Labels[i]
		}
	}
	return b.Labels[len(b.Labels)-1]
}

// TemperatureCategory adds the temp_category column. Temperatures are
// normalized to Celsius from the configured unit system before banding.
// Rows with a null temperature keep a null category.
func TemperatureCategory(bins CategoryBins, units string) Enricher {
	return func(table models.WeatherTable) models.WeatherTable {
		out := table.Clone()
		out.AddColumn(models.ColumnTempCategory)
		for i := range out.Records {
			temp := out.Records[i].Temperature
			if math.IsNaN(temp) {
				continue
			}
			out.Records[i].TempCategory = bins.Categorize(utils.ToCelsius(temp, units))
		}
		return out
	}
}

// ComfortIndex adds the comfort_index column:
// 100 - |tempC-20|*2 - |humidity-50|*0.5, clamped to [0, 100] and rounded to
// one decimal. Rows missing temperature or humidity keep a null index.
func ComfortIndex(units string) Enricher {
	return func(table models.WeatherTable) models.WeatherTable {
		out := table.Clone()
		out.AddColumn(models.ColumnComfortIndex)
		for i := range out.Records {
			rec := &out.Records[i]
			if math.IsNaN(rec.Temperature) || math.IsNaN(rec.Humidity) {
				rec.ComfortIndex = math.NaN()
				continue
			}
			temp := utils.ToCelsius(rec.Temperature, units)
			comfort := 100 - math.Abs(temp-20)*2 - math.Abs(rec.Humidity-50)*0.5
			if comfort < 0 {
				comfort = 0
			}
			if comfort > 100 {
				comfort = 100
			}
			rec.ComfortIndex = utils.Round1(comfort)
		}
		return out
	}
}
