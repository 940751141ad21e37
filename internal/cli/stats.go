package cli

import (
	"github.com/spf13/cobra"
)

func newStatsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print aggregate statistics from the history database",
		Long: `Summarizes everything collected so far: per-city temperature, humidity and
wind aggregates, and per-country rollups.`,
		RunE: func(c *cobra.Command, args []string) error {
			return runStats(*configPath)
		},
	}

	return cmd
}
