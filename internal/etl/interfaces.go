package etl

import (
	"context"

	"github.com/januszmateusz/weather-data-pipeline/pkg/models"
)

// Extractor fetches the current weather observation for one city.
type Extractor interface {
	FetchCity(ctx context.Context, city string) (*models.WeatherObservation, error)
}

// Loader writes a validated table to one destination and reports the written
// artifact. Loaders do not retry and do not fall back to other destinations.
type Loader interface {
	Load(ctx context.Context, table models.WeatherTable) (*models.Artifact, error)
}
