package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/januszmateusz/weather-data-pipeline/pkg/database"
	"github.com/januszmateusz/weather-data-pipeline/pkg/logger"
	"github.com/januszmateusz/weather-data-pipeline/pkg/models"
)

// MongoLoader upserts table rows into a MongoDB collection, keyed by
// (city, timestamp) so re-running a sample never duplicates documents.
type MongoLoader struct {
	ConnString string
	Database   string
	Collection string
	log        *logger.Logger
}

func NewMongoLoader(connString, db, collection string, log *logger.Logger) *MongoLoader {
	if db == "" {
		db = "weather"
	}
	if collection == "" {
		collection = "observations"
	}
	return &MongoLoader{
		ConnString: connString,
		Database:   db,
		Collection: collection,
		log:        log.Named("mongo"),
	}
}

func (m *MongoLoader) Load(ctx context.Context, table models.WeatherTable) (*models.Artifact, error) {
	if table.Empty() {
		return nil, ErrNoData
	}
	if m.ConnString == "" {
		return nil, errors.New("MONGO_CONNECTION_STRING environment variable not set")
	}

	client, err := database.ConnectMongo(m.ConnString)
	if err != nil {
		return nil, err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()

	coll := client.Database(m.Database).Collection(m.Collection)
	writes := make([]mongo.WriteModel, 0, len(table.Records))
	for i := range table.Records {
		rec := &table.Records[i]
		doc := RecordDocument(rec, table.Columns)

		filter := bson.M{"city": rec.City, "timestamp": rec.Timestamp}
		update := bson.M{"$set": doc}
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(filter).
			SetUpdate(update).
			SetUpsert(true))
	}

	wctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	res, err := coll.BulkWrite(wctx, writes)
	if err != nil {
		return nil, fmt.Errorf("mongo bulk write failed: %w", err)
	}

	m.log.Info("Mongo bulk write finished",
		logger.Int64("matched", res.MatchedCount),
		logger.Int64("modified", res.ModifiedCount),
		logger.Int64("upserted", res.UpsertedCount))
	location := m.Database + "." + m.Collection
	return &models.Artifact{Kind: "mongo", Location: location, Rows: len(table.Records)}, nil
}

// RecordDocument flattens a record into a BSON document over the table's
// columns. Null cells are stored as BSON null.
func RecordDocument(rec *models.WeatherRecord, columns []string) bson.M {
	doc := bson.M{}
	for _, col := range columns {
		v, ok := rec.Value(col)
		if !ok {
			continue
		}
		if models.IsNull(v) {
			doc[col] = nil
			continue
		}
		doc[col] = v
	}
	return doc
}
