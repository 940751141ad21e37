package etl

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/januszmateusz/weather-data-pipeline/pkg/models"
	"github.com/januszmateusz/weather-data-pipeline/pkg/utils"
)

// Rule identifiers reported in violations.
const (
	RuleRequiredColumns    = "required_columns"
	RuleNoNulls            = "no_nulls"
	RuleTemperatureRange   = "temperature_range"
	RuleHumidityRange      = "humidity_range"
	RuleTimestampFreshness = "timestamp_freshness"
)

// ValidatorConfig holds the tunable bounds of the rule set. Temperature
// bounds are in Celsius; Units names the unit system the table's values are
// in so the range check can normalize first.
type ValidatorConfig struct {
	RequiredColumns []string
	MinTemperature  float64
	MaxTemperature  float64
	Units           string
	MaxAge          time.Duration
}

func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		RequiredColumns: []string{"city", "temperature", "humidity", "timestamp"},
		MinTemperature:  -50,
		MaxTemperature:  60,
		Units:           "metric",
		MaxAge:          24 * time.Hour,
	}
}

// Validator runs every quality rule over a table and collects all violations
// before reporting. Any violation fails the whole table; rows are never
// silently dropped.
type Validator struct {
	cfg   ValidatorConfig
	clock func() time.Time
}

func NewValidator(cfg ValidatorConfig) *Validator {
	return &Validator{cfg: cfg, clock: time.Now}
}

func NewValidatorWithClock(cfg ValidatorConfig, clock func() time.Time) *Validator {
	return &Validator{cfg: cfg, clock: clock}
}

// Validate returns nil when every rule passes, or a *ValidationError listing
// every violation otherwise. The table itself is never modified.
func (v *Validator) Validate(table models.WeatherTable) error {
	var violations []Violation

	violations = append(violations, v.checkRequiredColumns(table)...)
	violations = append(violations, v.checkNoNulls(table)...)
	violations = append(violations, v.checkTemperatureRange(table)...)
	violations = append(violations, v.checkHumidityRange(table)...)
	violations = append(violations, v.checkTimestampFreshness(table)...)

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func (v *Validator) checkRequiredColumns(table models.WeatherTable) []Violation {
	var missing []string
	for _, col := range v.cfg.RequiredColumns {
		if !table.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return []Violation{{
		Rule:    RuleRequiredColumns,
		Message: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")),
	}}
}

func (v *Validator) checkNoNulls(table models.WeatherTable) []Violation {
	var violations []Violation
	for _, col := range v.cfg.RequiredColumns {
		if !table.HasColumn(col) {
			continue
		}
		var rows []int
		for i := range table.Records {
			val, ok := table.Records[i].Value(col)
			if !ok || models.IsNull(val) {
				rows = append(rows, i)
			}
		}
		if len(rows) > 0 {
			violations = append(violations, Violation{
				Rule:    RuleNoNulls,
				Message: fmt.Sprintf("column '%s' has %d null values", col, len(rows)),
				Rows:    rows,
			})
		}
	}
	return violations
}

func (v *Validator) checkTemperatureRange(table models.WeatherTable) []Violation {
	if !table.HasColumn("temperature") {
		return nil
	}
	var rows []int
	var cities []string
	for i := range table.Records {
		temp := table.Records[i].Temperature
		if math.IsNaN(temp) {
			continue
		}
		celsius := utils.ToCelsius(temp, v.cfg.Units)
		if celsius < v.cfg.MinTemperature || celsius > v.cfg.MaxTemperature {
			rows = append(rows, i)
			cities = append(cities, table.Records[i].City)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return []Violation{{
		Rule: RuleTemperatureRange,
		Message: fmt.Sprintf("found %d temperature values outside [%g, %g]: %s",
			len(rows), v.cfg.MinTemperature, v.cfg.MaxTemperature, strings.Join(cities, ", ")),
		Rows: rows,
	}}
}

func (v *Validator) checkHumidityRange(table models.WeatherTable) []Violation {
	if !table.HasColumn("humidity") {
		return nil
	}
	var rows []int
	var cities []string
	for i := range table.Records {
		humidity := table.Records[i].Humidity
		if math.IsNaN(humidity) {
			continue
		}
		if humidity < 0 || humidity > 100 {
			rows = append(rows, i)
			cities = append(cities, table.Records[i].City)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return []Violation{{
		Rule: RuleHumidityRange,
		Message: fmt.Sprintf("found %d humidity values outside [0, 100]: %s",
			len(rows), strings.Join(cities, ", ")),
		Rows: rows,
	}}
}

func (v *Validator) checkTimestampFreshness(table models.WeatherTable) []Violation {
	if !table.HasColumn("timestamp") {
		return nil
	}
	cutoff := v.clock().Add(-v.cfg.MaxAge)
	oldest := time.Time{}
	var rows []int
	for i := range table.Records {
		ts := table.Records[i].Timestamp
		if ts.IsZero() {
			continue
		}
		if oldest.IsZero() || ts.Before(oldest) {
			oldest = ts
		}
		if ts.Before(cutoff) {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	age := v.clock().Sub(oldest)
	return []Violation{{
		Rule:    RuleTimestampFreshness,
		Message: fmt.Sprintf("data is stale: oldest record is %.1f hours old", age.Hours()),
		Rows:    rows,
	}}
}
