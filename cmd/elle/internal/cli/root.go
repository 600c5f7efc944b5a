// Package cli wires command-line flags to the checker core and maps its
// verdict to an exit code.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "elle",
	Short: "Check a black-box transaction history for consistency anomalies",
	Long: `elle analyzes a transaction history for anomalies (G0, G1c,
G-single, G-nonadjacent, G2-item, plus aborted/intermediate reads and
lost updates) and reports whether the history is consistent with one
or more requested consistency models.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
