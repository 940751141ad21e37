package etl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/parquet-go/parquet-go"

	"github.com/januszmateusz/weather-data-pipeline/pkg/logger"
	"github.com/januszmateusz/weather-data-pipeline/pkg/models"
	"github.com/januszmateusz/weather-data-pipeline/pkg/utils"
)

// BlobFormat selects the upload encoding.
type BlobFormat string

const (
	FormatCSV     BlobFormat = "csv"
	FormatParquet BlobFormat = "parquet"
)

// AzureLoader uploads a table to an Azure Blob Storage container as CSV or
// Parquet. The container is created on first use if it does not exist.
type AzureLoader struct {
	client    *azblob.Client
	container string
	format    BlobFormat
	blobName  string
	clock     func() time.Time
	log       *logger.Logger
}

func NewAzureLoader(ctx context.Context, connString, container string, format BlobFormat, blobName string, log *logger.Logger) (*AzureLoader, error) {
	if connString == "" {
		return nil, errors.New("AZURE_STORAGE_CONNECTION_STRING environment variable not set")
	}
	if container == "" {
		container = "weather-data"
	}
	if format == "" {
		format = FormatCSV
	}

	client, err := azblob.NewClientFromConnectionString(connString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure Blob client: %w", err)
	}

	l := &AzureLoader{
		client:    client,
		container: container,
		format:    format,
		blobName:  blobName,
		clock:     time.Now,
		log:       log.Named("azure"),
	}
	if err := l.ensureContainer(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *AzureLoader) ensureContainer(ctx context.Context) error {
	_, err := l.client.CreateContainer(ctx, l.container, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return nil
		}
		return fmt.Errorf("failed to ensure container %q: %w", l.container, err)
	}
	l.log.Info("Created blob container", logger.String("container", l.container))
	return nil
}

// Load encodes the table and uploads it. The blob name defaults to the
// weather_data_YYYYMMDD_HHMMSS.<ext> convention when none is configured.
func (l *AzureLoader) Load(ctx context.Context, table models.WeatherTable) (*models.Artifact, error) {
	if table.Empty() {
		return nil, ErrNoData
	}

	name := l.blobName
	if name == "" {
		name = AutoBlobName(l.clock(), l.format)
	}

	var body []byte
	var contentType string
	switch l.format {
	case FormatParquet:
		encoded, err := EncodeParquet(table)
		if err != nil {
			return nil, err
		}
		body = encoded
		contentType = "application/octet-stream"
	default:
		var buf bytes.Buffer
		if err := WriteCSV(&buf, table); err != nil {
			return nil, fmt.Errorf("failed to encode CSV: %w", err)
		}
		body = buf.Bytes()
		contentType = "text/csv"
	}

	_, err := l.client.UploadBuffer(ctx, l.container, name, body, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload blob %q: %w", name, err)
	}

	url := fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(l.client.URL(), "/"), l.container, name)
	l.log.Info("Blob uploaded",
		logger.String("container", l.container),
		logger.String("blob", name),
		logger.Int("rows", len(table.Records)),
		logger.Int("bytes", len(body)))
	return &models.Artifact{Kind: "azure-blob", Location: url, Rows: len(table.Records)}, nil
}

// AutoBlobName builds the timestamped default blob name.
func AutoBlobName(now time.Time, format BlobFormat) string {
	return fmt.Sprintf("weather_data_%s.%s", now.Format("20060102_150405"), format)
}

// parquetRow is the flat Parquet schema of one table row. Timestamps are
// kept as RFC3339Nano strings so null handling matches the CSV encoding.
type parquetRow struct {
	Timestamp          string  `parquet:"timestamp"`
	City               string  `parquet:"city"`
	Country            string  `parquet:"country"`
	Temperature        float64 `parquet:"temperature"`
	FeelsLike          float64 `parquet:"feels_like"`
	TempMin            float64 `parquet:"temp_min"`
	TempMax            float64 `parquet:"temp_max"`
	Pressure           float64 `parquet:"pressure"`
	Humidity           float64 `parquet:"humidity"`
	WeatherDescription string  `parquet:"weather_description"`
	WindSpeed          float64 `parquet:"wind_speed"`
	Clouds             float64 `parquet:"clouds"`
	TempCategory       string  `parquet:"temp_category"`
	ComfortIndex       float64 `parquet:"comfort_index"`
}

// EncodeParquet serializes a table into an in-memory Parquet file.
func EncodeParquet(table models.WeatherTable) ([]byte, error) {
	rows := make([]parquetRow, 0, len(table.Records))
	for i := range table.Records {
		rec := &table.Records[i]
		rows = append(rows, parquetRow{
			Timestamp:          utils.FormatTimestampCell(rec.Timestamp),
			City:               rec.City,
			Country:            rec.Country,
			Temperature:        rec.Temperature,
			FeelsLike:          rec.FeelsLike,
			TempMin:            rec.TempMin,
			TempMax:            rec.TempMax,
			Pressure:           rec.Pressure,
			Humidity:           rec.Humidity,
			WeatherDescription: rec.WeatherDescription,
			WindSpeed:          rec.WindSpeed,
			Clouds:             rec.Clouds,
			TempCategory:       rec.TempCategory,
			ComfortIndex:       rec.ComfortIndex,
		})
	}

	var buf bytes.Buffer
	w := parquet.NewGenericWriter[parquetRow](&buf)
	if _, err := w.Write(rows); err != nil {
		return nil, fmt.Errorf("failed to encode parquet: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet: %w", err)
	}
	return buf.Bytes(), nil
}
