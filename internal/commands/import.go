package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ledgerkeep/ledgerkeep/internal/service"
)

func newImportCommand(logger *log.Logger) *cobra.Command {
	var scope string
	var layoutID string

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import a CSV statement export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, logger)
			if err != nil {
				return err
			}
			defer a.close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			sum, err := a.importer.Import(ctx, service.ImportRequest{
				Scope:    a.scopeOrDefault(scope),
				FileName: filepath.Base(args[0]),
				Reader:   f,
				LayoutID: layoutID,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"imported %s: %d rows, %d inserted, %d duplicates, %d dropped, %d rules applied\n",
				filepath.Base(args[0]), sum.Total, sum.Inserted, sum.Duplicates, sum.Dropped, sum.RulesApplied)
			for _, rowErr := range sum.RowErrors {
				fmt.Fprintf(cmd.OutOrStdout(), "  skipped %s\n", rowErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "scope to import into (default: configured scope)")
	cmd.Flags().StringVar(&layoutID, "layout", "", "stored layout id to use instead of detection")

	return cmd
}
