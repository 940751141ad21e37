package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/januszmateusz/weather-data-pipeline/pkg/logger"
	"github.com/januszmateusz/weather-data-pipeline/pkg/models"
)

// Pipeline wires the stages together: fetch every configured city in order,
// one at a time, flatten the responses into a table, derive the extra
// columns, validate, and hand the table to each loader in turn.
type Pipeline struct {
	Extractor   Extractor
	Transformer *Transformer
	Enrich      Enricher
	Validator   *Validator
	Loaders     []Loader
	Cities      []string

	log *logger.Logger
}

func NewPipeline(ext Extractor, tr *Transformer, enrich Enricher, val *Validator, loaders []Loader, cities []string, log *logger.Logger) *Pipeline {
	return &Pipeline{
		Extractor:   ext,
		Transformer: tr,
		Enrich:      enrich,
		Validator:   val,
		Loaders:     loaders,
		Cities:      cities,
		log:         log.Named("pipeline"),
	}
}

// Run executes one full cycle. Cities that fail to fetch are recorded in the
// summary and skipped; if none succeed the run fails with ErrNoData. Any
// validation violation fails the run before a single loader sees the table.
func (p *Pipeline) Run(ctx context.Context) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		StartedAt:       time.Now(),
		CitiesRequested: len(p.Cities),
	}
	defer func() { summary.FinishedAt = time.Now() }()

	p.log.Info("Starting pipeline run", logger.Int("cities", len(p.Cities)))

	observations := make([]*models.WeatherObservation, 0, len(p.Cities))
	for _, city := range p.Cities {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		obs, err := p.Extractor.FetchCity(ctx, city)
		if err != nil {
			p.log.Warn("City fetch failed",
				logger.String("city", city),
				logger.Error(err))
			summary.FailedCities = append(summary.FailedCities, models.CityFailure{
				City:   city,
				Reason: err.Error(),
			})
			continue
		}
		observations = append(observations, obs)
	}
	summary.CitiesSucceeded = len(observations)

	if len(observations) == 0 {
		return summary, ErrNoData
	}

	table, err := p.Transformer.BatchTransform(observations)
	if err != nil {
		return summary, fmt.Errorf("transform failed: %w", err)
	}
	p.log.Debug("Transform complete", logger.Int("rows", len(table.Records)))

	if p.Enrich != nil {
		table = p.Enrich(table)
		p.log.Debug("Enrichment complete", logger.Int("columns", len(table.Columns)))
	}

	if p.Validator != nil {
		if err := p.Validator.Validate(table); err != nil {
			return summary, err
		}
		p.log.Debug("Validation passed", logger.Int("rows", len(table.Records)))
	}
	summary.Rows = len(table.Records)

	for _, loader := range p.Loaders {
		artifact, err := loader.Load(ctx, table)
		if err != nil {
			return summary, err
		}
		if artifact != nil {
			summary.Artifacts = append(summary.Artifacts, *artifact)
			p.log.Info("Loader finished",
				logger.String("kind", artifact.Kind),
				logger.String("location", artifact.Location),
				logger.Int("rows", artifact.Rows))
		}
	}

	p.log.Info("Pipeline run finished",
		logger.Int("rows", summary.Rows),
		logger.Int("cities_succeeded", summary.CitiesSucceeded),
		logger.Int("cities_failed", len(summary.FailedCities)),
		logger.Duration("duration", time.Since(summary.StartedAt)))
	return summary, nil
}
