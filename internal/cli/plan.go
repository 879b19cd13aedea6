package cli

import (
	"github.com/spf13/cobra"

	"github.com/x31337/extsync/internal/config"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what sync would install, update and skip",
	Long:  `Scan the source directory and print the sync plan without changing anything. Equivalent to 'sync --dry-run'.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, true)
	},
}

func init() {
	addSourceFlags(planCmd)
	planCmd.Flags().Int(config.KeyWorkers, 0, "Number of parallel workers used to read package metadata")
	rootCmd.AddCommand(planCmd)
}
