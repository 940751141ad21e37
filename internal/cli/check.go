package cli

import (
	"github.com/spf13/cobra"
)

func newCheckCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Validate an existing CSV dataset",
		Long: `Reads a previously produced CSV file and runs the full set of quality rules
against it. Without an argument the configured output file is checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			file := ""
			if len(args) == 1 {
				file = args[0]
			}
			return runCheck(*configPath, file)
		},
	}

	return cmd
}
