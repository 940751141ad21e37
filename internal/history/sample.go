package history

import (
	"context"
	"fmt"

	"github.com/januszmateusz/weather-data-pipeline/internal/etl"
	"github.com/januszmateusz/weather-data-pipeline/pkg/models"
)

// SampleLoader adapts the store to the pipeline's loader chain, so one
// collection round archives its table like any other sink.
type SampleLoader struct {
	Store    *Store
	SampleID int
}

func (l *SampleLoader) Load(ctx context.Context, table models.WeatherTable) (*models.Artifact, error) {
	if table.Empty() {
		return nil, etl.ErrNoData
	}
	if err := l.Store.AppendTable(ctx, table, l.SampleID); err != nil {
		return nil, err
	}
	return &models.Artifact{
		Kind:     "history",
		Location: fmt.Sprintf("%s#sample=%d", l.Store.Path(), l.SampleID),
		Rows:     len(table.Records),
	}, nil
}
