package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/januszmateusz/weather-data-pipeline/internal/etl"
	"github.com/januszmateusz/weather-data-pipeline/pkg/database"
	"github.com/januszmateusz/weather-data-pipeline/pkg/logger"
	"github.com/januszmateusz/weather-data-pipeline/pkg/models"
)

// The sink tests run against live services and are skipped unless the
// matching connection string is present in the environment.

func sinkTable() models.WeatherTable {
	rec := models.EmptyRecord()
	rec.Timestamp = time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	rec.City = "Warsaw"
	rec.Country = "PL"
	rec.Temperature = 21.5
	rec.Humidity = 60
	rec.WeatherDescription = "clear sky"

	table := models.NewWeatherTable([]models.WeatherRecord{rec})
	table.AddColumn(models.ColumnTempCategory)
	table.AddColumn(models.ColumnComfortIndex)
	return table
}

func TestWarehouseLoad(t *testing.T) {
	connString := os.Getenv("WAREHOUSE_CONNECTION_STRING")
	if connString == "" {
		t.Skip("WAREHOUSE_CONNECTION_STRING not set, skipping")
	}
	ctx := context.Background()

	// 1. Load into a throwaway table
	loader := etl.NewWarehouseLoader(connString, "WEATHER_DATA_TEST", logger.NewNop())
	artifact, err := loader.Load(ctx, sinkTable())
	if err != nil {
		t.Fatalf("Warehouse load failed: %v", err)
	}
	if artifact.Rows != 1 {
		t.Errorf("Expected 1 row loaded, got %d", artifact.Rows)
	}

	// 2. Count the rows back and clean up
	db, err := database.ConnectWarehouse(connString)
	if err != nil {
		t.Fatalf("Failed to connect to warehouse: %v", err)
	}
	defer db.Close()
	defer db.ExecContext(ctx, "DROP TABLE WEATHER_DATA_TEST")

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM WEATHER_DATA_TEST").Scan(&count); err != nil {
		t.Fatalf("Count query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 row in the warehouse, got %d", count)
	}
}

func TestMongoLoadUpserts(t *testing.T) {
	connString := os.Getenv("MONGO_CONNECTION_STRING")
	if connString == "" {
		t.Skip("MONGO_CONNECTION_STRING not set, skipping")
	}
	ctx := context.Background()

	loader := etl.NewMongoLoader(connString, "weather_test", "observations", logger.NewNop())

	// 1. Load the same table twice; the upsert key must deduplicate
	for i := 0; i < 2; i++ {
		if _, err := loader.Load(ctx, sinkTable()); err != nil {
			t.Fatalf("Mongo load %d failed: %v", i+1, err)
		}
	}

	// 2. Verify and clean up
	client, err := database.ConnectMongo(connString)
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	coll := client.Database("weather_test").Collection("observations")
	defer coll.Drop(ctx)

	count, err := coll.CountDocuments(ctx, bson.M{"city": "Warsaw"})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected the second load to upsert, got %d documents", count)
	}
}

func TestAzureUpload(t *testing.T) {
	connString := os.Getenv("AZURE_STORAGE_CONNECTION_STRING")
	if connString == "" {
		t.Skip("AZURE_STORAGE_CONNECTION_STRING not set, skipping")
	}
	ctx := context.Background()

	loader, err := etl.NewAzureLoader(ctx, connString, "weather-data-test", etl.FormatCSV, "", logger.NewNop())
	if err != nil {
		t.Fatalf("Failed to build Azure loader: %v", err)
	}

	artifact, err := loader.Load(ctx, sinkTable())
	if err != nil {
		t.Fatalf("Azure upload failed: %v", err)
	}
	if artifact.Kind != "azure-blob" || artifact.Rows != 1 {
		t.Errorf("Unexpected artifact: %+v", artifact)
	}
}
