package cli

import (
	"github.com/spf13/cobra"
)

type RunOptions struct {
	Cities    []string
	Output    string
	Azure     bool
	Warehouse bool
	Mongo     bool
}

func newRunCmd(configPath *string) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once",
		Long: `Fetches current weather for every configured city, transforms and validates
the dataset, and writes it to the configured sinks. The CSV file is always
written; Azure, warehouse and Mongo loads are opt-in per invocation.`,
		RunE: func(c *cobra.Command, args []string) error {
			return runPipeline(*configPath, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Cities, "cities", nil, "Override the configured city list")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "CSV output path (default from config)")
	cmd.Flags().BoolVar(&opts.Azure, "azure", false, "Upload the dataset to Azure Blob Storage")
	cmd.Flags().BoolVar(&opts.Warehouse, "warehouse", false, "Load the dataset into the SQL warehouse")
	cmd.Flags().BoolVar(&opts.Mongo, "mongo", false, "Upsert the dataset into MongoDB")

	return cmd
}
