package cli

import (
	"time"

	"github.com/spf13/cobra"
)

type CollectOptions struct {
	Samples  int
	Interval time.Duration
}

func newCollectCmd(configPath *string) *cobra.Command {
	opts := &CollectOptions{}

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect repeated samples into the history database",
		Long: `Runs the pipeline once per interval and archives each sample in the local
SQLite history database, plus an optional per-sample CSV file. A failed
sample is logged and skipped; collection continues with the next round.`,
		RunE: func(c *cobra.Command, args []string) error {
			return runCollect(*configPath, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Samples, "samples", 0, "Number of samples to collect (default from config)")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "Delay between samples, e.g. 15m (default from config)")

	return cmd
}
