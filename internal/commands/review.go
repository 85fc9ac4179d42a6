package commands

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func newReviewCommand(logger *log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review fuzzy duplicate candidates",
	}
	cmd.AddCommand(newReviewFindCommand(logger))
	cmd.AddCommand(newReviewListCommand(logger))
	cmd.AddCommand(newReviewDecideCommand(logger, "merge", true,
		"Mark the newer row of a candidate pair as duplicate"))
	cmd.AddCommand(newReviewDecideCommand(logger, "dismiss", false,
		"Keep both rows of a candidate pair"))
	return cmd
}

func newReviewFindCommand(logger *log.Logger) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Scan for near-duplicate pairs across uploads",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, logger)
			if err != nil {
				return err
			}
			defer a.close()

			sc, err := a.scopes.Upsert(ctx, a.scopeOrDefault(scope))
			if err != nil {
				return err
			}
			queued, err := a.review.FindCandidates(ctx, sc.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d candidates queued\n", queued)
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "scope to scan")

	return cmd
}

func newReviewListCommand(logger *log.Logger) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, logger)
			if err != nil {
				return err
			}
			defer a.close()

			sc, err := a.scopes.Upsert(ctx, a.scopeOrDefault(scope))
			if err != nil {
				return err
			}
			pending, err := a.cands.ListPending(ctx, sc.ID)
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no pending candidates")
				return nil
			}
			out := cmd.OutOrStdout()
			for _, c := range pending {
				probe, err := a.cons.Get(ctx, c.TransactionID)
				if err != nil {
					return err
				}
				match, err := a.cons.Get(ctx, c.MatchID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s  [%s %.0f%%]\n", c.ID, c.Band, c.Similarity*100)
				if probe != nil && match != nil {
					fmt.Fprintf(out, "    %s  %s  %s\n", probe.Date, probe.SignedAmount.StringFixed(2), probe.Merchant)
					fmt.Fprintf(out, "    %s  %s  %s\n", match.Date, match.SignedAmount.StringFixed(2), match.Merchant)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "scope to list")

	return cmd
}

func newReviewDecideCommand(logger *log.Logger, verb string, merge bool, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <candidate-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, logger)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.review.Decide(ctx, args[0], merge); err != nil {
				return err
			}
			outcome := "dismissed"
			if merge {
				outcome = "merged"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "candidate %s %s\n", args[0], outcome)
			return nil
		},
	}
}
