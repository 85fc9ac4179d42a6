package commands

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ledgerkeep/ledgerkeep/internal/csvparse"
	"github.com/ledgerkeep/ledgerkeep/internal/layout"
	"github.com/ledgerkeep/ledgerkeep/internal/normalize"
)

// parse is a dry run: detect the layout and normalize rows without touching
// the store. Useful for checking an unfamiliar export before importing it.
func newParseCommand(logger *log.Logger) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "parse <file.csv>",
		Short: "Detect layout and preview normalization without importing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			parsed, err := csvparse.Parse(f)
			if err != nil {
				return fmt.Errorf("parse csv: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "delimiter: %q\n", parsed.Delimiter)
			fmt.Fprintf(out, "columns:   %d (%d data rows)\n", len(parsed.Tokens), len(parsed.Rows))
			for _, e := range parsed.Errors {
				fmt.Fprintf(out, "  %s\n", e)
			}

			samples := parsed.Rows
			if len(samples) > 20 {
				samples = samples[:20]
			}
			lay, err := layout.Detect(scope, parsed.Tokens, samples)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "source:    %s (confidence %.2f)\n", lay.Source, lay.Confidence)
			fmt.Fprintf(out, "mapping:   date=%s description=%s amount=%s\n",
				lay.Columns.Date, lay.Columns.Description, lay.Columns.Amount)

			ok, dropped, failed := 0, 0, 0
			for _, cells := range parsed.Rows {
				row, err := normalize.NormalizeRow(cells, lay)
				switch {
				case err != nil:
					failed++
				case row == nil:
					dropped++
				default:
					ok++
				}
			}
			fmt.Fprintf(out, "rows:      %d ok, %d blank, %d malformed\n", ok, dropped, failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "personal", "scope name used for the layout id preview")

	return cmd
}
