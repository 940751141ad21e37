package cli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/januszmateusz/weather-data-pipeline/internal/config"
	"github.com/januszmateusz/weather-data-pipeline/internal/etl"
	"github.com/januszmateusz/weather-data-pipeline/internal/history"
	"github.com/januszmateusz/weather-data-pipeline/internal/scheduler"
	"github.com/januszmateusz/weather-data-pipeline/pkg/logger"
	"github.com/januszmateusz/weather-data-pipeline/pkg/models"
)

// setup loads the configuration and builds the logger shared by every
// command.
func setup(configPath string) (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadWithFallback(configPath)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func buildExtractor(cfg *config.Config, log *logger.Logger) etl.Extractor {
	return etl.NewOpenWeatherExtractor(etl.OpenWeatherConfig{
		APIKey:         cfg.API.Key,
		BaseURL:        cfg.API.BaseURL,
		Units:          cfg.API.Units,
		Timeout:        cfg.API.Timeout(),
		MaxRetries:     cfg.API.MaxRetries,
		InitialBackoff: cfg.API.InitialBackoff(),
		MaxBackoff:     cfg.API.MaxBackoff(),
	}, log)
}

func buildEnricher(cfg *config.Config) etl.Enricher {
	bins := etl.CategoryBins{
		UpperBounds: cfg.Enrichment.CategoryBounds,
		Labels:      cfg.Enrichment.CategoryLabels,
	}
	return etl.Chain(
		etl.TemperatureCategory(bins, cfg.API.Units),
		etl.ComfortIndex(cfg.API.Units),
	)
}

func buildValidator(cfg *config.Config) *etl.Validator {
	return etl.NewValidator(etl.ValidatorConfig{
		RequiredColumns: cfg.Validation.RequiredColumns,
		MinTemperature:  cfg.Validation.MinTemperature,
		MaxTemperature:  cfg.Validation.MaxTemperature,
		Units:           cfg.API.Units,
		MaxAge:          cfg.Validation.MaxAge(),
	})
}

// buildLoaders assembles the sink chain for one run. CSV is always first;
// the remote sinks join only when their flag is set.
func buildLoaders(ctx context.Context, cfg *config.Config, opts *RunOptions, log *logger.Logger) ([]etl.Loader, error) {
	loaders := []etl.Loader{
		etl.NewCSVLoader(cfg.Output.CSVPath, cfg.Output.WriteEmpty, log),
	}

	if opts.Azure {
		az, err := etl.NewAzureLoader(ctx, cfg.Azure.ConnString, cfg.Azure.Container,
			etl.BlobFormat(cfg.Azure.Format), cfg.Azure.BlobName, log)
		if err != nil {
			return nil, err
		}
		loaders = append(loaders, az)
	}
	if opts.Warehouse {
		loaders = append(loaders, etl.NewWarehouseLoader(cfg.Warehouse.ConnString, cfg.Warehouse.Table, log))
	}
	if opts.Mongo {
		loaders = append(loaders, etl.NewMongoLoader(cfg.Mongo.ConnString, cfg.Mongo.Database, cfg.Mongo.Collection, log))
	}
	return loaders, nil
}

func runPipeline(configPath string, opts *RunOptions) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	if len(opts.Cities) > 0 {
		cfg.Cities = opts.Cities
	}
	if opts.Output != "" {
		cfg.Output.CSVPath = opts.Output
	}

	ctx, stop := signalContext()
	defer stop()

	loaders, err := buildLoaders(ctx, cfg, opts, log)
	if err != nil {
		return err
	}

	pipeline := etl.NewPipeline(
		buildExtractor(cfg, log),
		etl.NewTransformer(),
		buildEnricher(cfg),
		buildValidator(cfg),
		loaders,
		cfg.Cities,
		log,
	)

	summary, err := pipeline.Run(ctx)
	printSummary(summary)
	if err != nil {
		var vErr *etl.ValidationError
		if errors.As(err, &vErr) {
			printViolations(vErr)
		}
		return err
	}
	return nil
}

func runCollect(configPath string, opts *CollectOptions) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	samples := cfg.Collect.Samples
	if opts.Samples > 0 {
		samples = opts.Samples
	}
	interval := cfg.Collect.Interval()
	if opts.Interval > 0 {
		interval = opts.Interval
	}

	store, err := history.New(cfg.History.Path, log)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signalContext()
	defer stop()

	extractor := buildExtractor(cfg, log)
	transformer := etl.NewTransformer()
	enrich := buildEnricher(cfg)
	validator := buildValidator(cfg)

	collector := &scheduler.Collector{
		Samples:  samples,
		Interval: interval,
		Log:      log,
		RunSample: func(ctx context.Context, sample int) error {
			loaders := []etl.Loader{
				&history.SampleLoader{Store: store, SampleID: sample},
			}
			if cfg.Collect.SampleDir != "" {
				path := filepath.Join(cfg.Collect.SampleDir, fmt.Sprintf("sample_%03d.csv", sample))
				loaders = append(loaders, etl.NewCSVLoader(path, false, log))
			}

			pipeline := etl.NewPipeline(extractor, transformer, enrich, validator, loaders, cfg.Cities, log)
			_, err := pipeline.Run(ctx)
			return err
		},
	}

	if err := collector.Run(ctx); err != nil {
		return err
	}
	fmt.Printf("Collected %d samples into %s\n", samples, cfg.History.Path)
	return nil
}

func runCheck(configPath, file string) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	if file == "" {
		file = cfg.Output.CSVPath
	}

	table, err := etl.ReadCSV(file)
	if err != nil {
		return err
	}
	fmt.Printf("Checking %s: %d rows, %d columns\n", file, len(table.Records), len(table.Columns))

	if err := buildValidator(cfg).Validate(table); err != nil {
		var vErr *etl.ValidationError
		if errors.As(err, &vErr) {
			printViolations(vErr)
		}
		return err
	}

	fmt.Println("All quality checks passed.")
	return nil
}

func runStats(configPath string) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	store, err := history.New(cfg.History.Path, log)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signalContext()
	defer stop()

	cities, err := store.CityStats(ctx)
	if err != nil {
		return err
	}
	countries, err := store.CountryStats(ctx)
	if err != nil {
		return err
	}

	if len(cities) == 0 {
		fmt.Println("History database is empty. Run 'weather-pipeline collect' first.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CITY\tREADINGS\tAVG TEMP\tMIN\tMAX\tAVG HUM\tMAX HUM\tAVG WIND")
	for _, st := range cities {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			st.City, st.Readings,
			statCell(st.AvgTemp), statCell(st.MinTemp), statCell(st.MaxTemp),
			statCell(st.AvgHumidity), statCell(st.MaxHumidity), statCell(st.AvgWindSpeed))
	}
	w.Flush()

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COUNTRY\tCITIES\tREADINGS\tAVG TEMP\tAVG HUM")
	for _, st := range countries {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
			st.Country, st.Cities, st.Readings,
			statCell(st.AvgTemp), statCell(st.AvgHumidity))
	}
	w.Flush()
	return nil
}

func printSummary(summary *models.RunSummary) {
	line := strings.Repeat("=", 50)
	fmt.Println(line)
	fmt.Printf("Pipeline completed in %s\n", summary.Duration().Round(time.Millisecond))
	fmt.Printf("Successfully processed: %d/%d cities\n", summary.CitiesSucceeded, summary.CitiesRequested)
	fmt.Printf("Failed: %d\n", len(summary.FailedCities))
	for _, f := range summary.FailedCities {
		fmt.Printf("  - %s: %s\n", f.City, f.Reason)
	}
	if summary.Rows > 0 {
		fmt.Printf("Rows produced: %d\n", summary.Rows)
	}
	for _, a := range summary.Artifacts {
		fmt.Printf("Output saved to: %s (%s, %d rows)\n", a.Location, a.Kind, a.Rows)
	}
	fmt.Println(line)
}

func printViolations(vErr *etl.ValidationError) {
	fmt.Fprintf(os.Stderr, "Data validation failed with %d violation(s):\n", len(vErr.Violations))
	for _, v := range vErr.Violations {
		if len(v.Rows) > 0 {
			fmt.Fprintf(os.Stderr, "  [%s] %s (rows %v)\n", v.Rule, v.Message, v.Rows)
		} else {
			fmt.Fprintf(os.Stderr, "  [%s] %s\n", v.Rule, v.Message)
		}
	}
}

func statCell(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}
