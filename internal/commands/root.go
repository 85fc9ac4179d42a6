// Package commands wires the CLI surface: importing statements, inspecting
// layouts, managing categorization rules and reviewing duplicate candidates.
package commands

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ledgerkeep/ledgerkeep/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand(logger *log.Logger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "ledgerkeep",
		Short:   "Import and reconcile bank statement exports",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newImportCommand(logger))
	rootCmd.AddCommand(newParseCommand(logger))
	rootCmd.AddCommand(newRulesCommand(logger))
	rootCmd.AddCommand(newReviewCommand(logger))

	return rootCmd
}
