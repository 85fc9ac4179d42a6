package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ledgerkeep/ledgerkeep/internal/database/repository"
	"github.com/ledgerkeep/ledgerkeep/internal/llm"
)

// RuleService applies keyword categorization rules to consolidated
// transactions. Matching is a case-insensitive substring check on the
// merchant; rules run in creation order, so when several match the same row
// the newest rule wins.
type RuleService struct {
	Rules        *repository.RuleRepo
	Categories   *repository.CategoryRepo
	Consolidated *repository.ConsolidatedRepo
	Audit        *repository.AuditRepo
	Provider     llm.Provider // optional; nil disables the AI fallback
	Logger       *log.Logger
}

// ApplyToNew runs all of the scope's rules over freshly imported rows and
// returns how many category assignments actually landed. Rule application is
// best effort: a failed update is logged and the rest proceed.
func (s *RuleService) ApplyToNew(ctx context.Context, scopeID string, txs []repository.ConsolidatedTransaction) int {
	rules, err := s.Rules.ListByScope(ctx, scopeID)
	if err != nil {
		s.Logger.Error("load rules", "error", err)
		return 0
	}

	applied := 0
	matched := make(map[string]bool, len(txs))
	for _, rule := range rules {
		for _, tx := range txs {
			if !matches(rule.Keyword, tx.Merchant) {
				continue
			}
			if err := s.Consolidated.SetCategory(ctx, tx.ID, rule.CategoryID); err != nil {
				s.Logger.Error("apply rule", "rule", rule.ID, "tx", tx.ID, "error", err)
				continue
			}
			if !matched[tx.ID] {
				matched[tx.ID] = true
				applied++
			}
		}
	}

	s.categorizeWithProvider(ctx, txs, matched)
	return applied
}

// Create stores a new rule and, when applyToHistory is set, sweeps it over
// the scope's uncategorized historical rows. Already-categorized rows are
// never touched retroactively. Returns the rule and how many historical rows
// it categorized.
func (s *RuleService) Create(ctx context.Context, scopeID, keyword, categoryID string, applyToHistory bool) (repository.Rule, int, error) {
	if strings.TrimSpace(keyword) == "" {
		return repository.Rule{}, 0, fmt.Errorf("rule keyword required")
	}
	rule := repository.Rule{
		ID:             uuid.NewString(),
		ScopeID:        scopeID,
		Keyword:        keyword,
		CategoryID:     categoryID,
		ApplyToHistory: applyToHistory,
	}
	if err := s.Rules.Insert(ctx, rule); err != nil {
		return repository.Rule{}, 0, fmt.Errorf("insert rule: %w", err)
	}
	if s.Audit != nil {
		if err := s.Audit.Record(ctx, "rule.created", rule.ID, fmt.Sprintf(`{"keyword":%q}`, keyword)); err != nil {
			s.Logger.Error("audit record", "event", "rule.created", "error", err)
		}
	}

	if !applyToHistory {
		return rule, 0, nil
	}
	affected, err := s.applyRuleToUncategorized(ctx, scopeID, rule)
	if err != nil {
		return rule, affected, err
	}
	return rule, affected, nil
}

// RunAll replays every rule of the scope over its uncategorized rows. Used
// as a manual retroactive sweep.
func (s *RuleService) RunAll(ctx context.Context, scopeID string) (int, error) {
	rules, err := s.Rules.ListByScope(ctx, scopeID)
	if err != nil {
		return 0, fmt.Errorf("load rules: %w", err)
	}
	total := 0
	for _, rule := range rules {
		n, err := s.applyRuleToUncategorized(ctx, scopeID, rule)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *RuleService) applyRuleToUncategorized(ctx context.Context, scopeID string, rule repository.Rule) (int, error) {
	txs, err := s.Consolidated.List(ctx, scopeID, repository.ConsolidatedFilters{
		Uncategorized: true,
		ExcludeStatus: repository.StatusDuplicate,
	})
	if err != nil {
		return 0, fmt.Errorf("list uncategorized: %w", err)
	}
	affected := 0
	for _, tx := range txs {
		if !matches(rule.Keyword, tx.Merchant) {
			continue
		}
		if err := s.Consolidated.SetCategory(ctx, tx.ID, rule.CategoryID); err != nil {
			return affected, fmt.Errorf("categorize %s: %w", tx.ID, err)
		}
		affected++
	}
	return affected, nil
}

// categorizeWithProvider asks the AI collaborator about rows no rule
// claimed. Suggestions are advisory: anything below the confidence floor or
// naming an unknown category is discarded, and failures never surface past a
// log line.
func (s *RuleService) categorizeWithProvider(ctx context.Context, txs []repository.ConsolidatedTransaction, matched map[string]bool) {
	if s.Provider == nil {
		return
	}
	cats, err := s.Categories.List(ctx)
	if err != nil || len(cats) == 0 {
		return
	}
	names := make([]string, len(cats))
	byName := make(map[string]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
		byName[strings.ToLower(c.Name)] = c.ID
	}

	for _, tx := range txs {
		if matched[tx.ID] {
			continue
		}
		resp, err := s.Provider.Categorize(ctx, llm.CategorizeRequest{
			Merchant:   tx.Merchant,
			Amount:     tx.SignedAmount.StringFixed(2),
			Date:       tx.Date,
			Categories: names,
		})
		if err != nil {
			s.Logger.Warn("ai categorize", "tx", tx.ID, "error", err)
			continue
		}
		if !resp.Usable() {
			continue
		}
		catID, ok := byName[strings.ToLower(resp.Category)]
		if !ok {
			continue
		}
		if err := s.Consolidated.SetCategory(ctx, tx.ID, catID); err != nil {
			s.Logger.Error("apply ai category", "tx", tx.ID, "error", err)
		}
	}
}

func matches(keyword, merchant string) bool {
	return strings.Contains(strings.ToLower(merchant), strings.ToLower(keyword))
}
