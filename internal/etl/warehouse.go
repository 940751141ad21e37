package etl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/januszmateusz/weather-data-pipeline/pkg/database"
	"github.com/januszmateusz/weather-data-pipeline/pkg/logger"
	"github.com/januszmateusz/weather-data-pipeline/pkg/models"
)

// WarehouseLoader appends a table to a SQL Server warehouse table. The
// connection lives only for the duration of one Load call. Warehouse naming
// follows the analytics schema convention: every column uppercased and
// timestamp renamed RECORD_TIMESTAMP.
type WarehouseLoader struct {
	ConnString string
	Table      string
	log        *logger.Logger
}

func NewWarehouseLoader(connString, table string, log *logger.Logger) *WarehouseLoader {
	if table == "" {
		table = "WEATHER_DATA"
	}
	return &WarehouseLoader{ConnString: connString, Table: table, log: log.Named("warehouse")}
}

func (l *WarehouseLoader) Load(ctx context.Context, table models.WeatherTable) (*models.Artifact, error) {
	if table.Empty() {
		return nil, ErrNoData
	}
	if l.ConnString == "" {
		return nil, errors.New("WAREHOUSE_CONNECTION_STRING environment variable not set")
	}

	db, err := database.ConnectWarehouse(l.ConnString)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	cols := WarehouseColumns(table.Columns)
	if _, err := db.ExecContext(ctx, CreateTableStatement(l.Table, cols)); err != nil {
		return nil, fmt.Errorf("failed to ensure table %s: %w", l.Table, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt := InsertStatement(l.Table, cols)
	for i := range table.Records {
		args := insertArgs(&table.Records[i], table.Columns)
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	l.log.Info("Warehouse load finished",
		logger.String("table", l.Table),
		logger.Int("rows", len(table.Records)))
	return &models.Artifact{Kind: "warehouse", Location: l.Table, Rows: len(table.Records)}, nil
}

// WarehouseColumns maps table columns to warehouse column names: timestamp
// becomes record_timestamp, everything is uppercased.
func WarehouseColumns(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		if c == "timestamp" {
			c = "record_timestamp"
		}
		out[i] = strings.ToUpper(c)
	}
	return out
}

// CreateTableStatement builds the idempotent bootstrap DDL for the warehouse
// table.
func CreateTableStatement(table string, cols []string) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%s %s", c, warehouseColumnType(c))
	}
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)",
		table, table, strings.Join(defs, ", "))
}

func warehouseColumnType(col string) string {
	switch col {
	case "RECORD_TIMESTAMP":
		return "DATETIME2"
	case "CITY", "COUNTRY", "WEATHER_DESCRIPTION", "TEMP_CATEGORY":
		return "NVARCHAR(255)"
	default:
		return "FLOAT"
	}
}

// InsertStatement builds the parameterized insert for one row.
func InsertStatement(table string, cols []string) string {
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("@p%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
}

// insertArgs renders a record's values in column order. Null cells become
// SQL NULL.
func insertArgs(rec *models.WeatherRecord, columns []string) []interface{} {
	args := make([]interface{}, 0, len(columns))
	for _, col := range columns {
		v, ok := rec.Value(col)
		if !ok || models.IsNull(v) {
			args = append(args, nil)
			continue
		}
		args = append(args, v)
	}
	return args
}
