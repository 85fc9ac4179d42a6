package commands

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func newRulesCommand(logger *log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage keyword categorization rules",
	}
	cmd.AddCommand(newRulesAddCommand(logger))
	cmd.AddCommand(newRulesListCommand(logger))
	cmd.AddCommand(newRulesRunCommand(logger))
	return cmd
}

func newRulesAddCommand(logger *log.Logger) *cobra.Command {
	var scope string
	var keyword string
	var category string
	var applyToHistory bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a keyword rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, logger)
			if err != nil {
				return err
			}
			defer a.close()

			cat, err := a.cats.FindByName(ctx, category)
			if err != nil {
				return err
			}
			if cat == nil {
				return fmt.Errorf("unknown category %q", category)
			}
			sc, err := a.scopes.Upsert(ctx, a.scopeOrDefault(scope))
			if err != nil {
				return err
			}

			rule, affected, err := a.ruleSvc.Create(ctx, sc.ID, keyword, cat.ID, applyToHistory)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rule %s: %q -> %s", rule.ID, keyword, cat.Name)
			if applyToHistory {
				fmt.Fprintf(cmd.OutOrStdout(), " (%d historical rows categorized)", affected)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "scope the rule belongs to")
	cmd.Flags().StringVar(&keyword, "keyword", "", "substring to match against merchants (required)")
	_ = cmd.MarkFlagRequired("keyword")
	cmd.Flags().StringVar(&category, "category", "", "category name to assign (required)")
	_ = cmd.MarkFlagRequired("category")
	cmd.Flags().BoolVar(&applyToHistory, "apply-to-history", false, "also categorize existing uncategorized rows")

	return cmd
}

func newRulesListCommand(logger *log.Logger) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
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
			rules, err := a.rules.ListByScope(ctx, sc.ID)
			if err != nil {
				return err
			}
			if len(rules) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no rules")
				return nil
			}
			cats, err := a.cats.List(ctx)
			if err != nil {
				return err
			}
			names := map[string]string{}
			for _, c := range cats {
				names[c.ID] = c.Name
			}
			for i, r := range rules {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. %q -> %s\n", i+1, r.Keyword, names[r.CategoryID])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "scope to list")

	return cmd
}

func newRulesRunCommand(logger *log.Logger) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay all rules over uncategorized transactions",
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
			n, err := a.ruleSvc.RunAll(ctx, sc.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d rows categorized\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "scope to sweep")

	return cmd
}
