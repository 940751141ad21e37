// Package cli handles the command-line interface logic
// using the Cobra library.
package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "weather-pipeline",
		Short: "ETL pipeline for OpenWeatherMap data",
		Long: `weather-pipeline fetches current weather for a set of cities, flattens the
API responses into a tabular dataset, derives comfort and temperature-category
columns, validates data quality and loads the result into CSV files, Azure
Blob Storage, a SQL warehouse or MongoDB.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to TOML config file")

	rootCmd.AddCommand(
		newRunCmd(&configPath),
		newCollectCmd(&configPath),
		newCheckCmd(&configPath),
		newStatsCmd(&configPath),
	)

	return rootCmd
}
