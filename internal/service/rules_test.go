package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerkeep/ledgerkeep/internal/database/repository"
	"github.com/ledgerkeep/ledgerkeep/internal/llm"
)

func TestRuleAppliesToFreshImports(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)
	ctx := context.Background()
	scopeID := e.scopeID(t, "personal")
	groceries := e.categoryID(t, "Groceries")

	_, affected, err := e.rules.Create(ctx, scopeID, "whole foods", groceries, false)
	require.NoError(t, err)
	require.Equal(t, 0, affected)

	sum := e.importCSV(t, "personal", "march.csv", genericCSV)
	require.Equal(t, 1, sum.RulesApplied)

	txs, err := e.consolidated.List(ctx, scopeID, repository.ConsolidatedFilters{Status: repository.StatusConfirmed})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, "Whole Foods Market", txs[0].Merchant)
	require.NotNil(t, txs[0].CategoryID)
	require.Equal(t, groceries, *txs[0].CategoryID)
}

func TestRuleRetroactiveSkipsCategorized(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)
	ctx := context.Background()
	scopeID := e.scopeID(t, "personal")
	transport := e.categoryID(t, "Transport")
	shopping := e.categoryID(t, "Shopping")

	csv := "date,description,amount\n" +
		"2025-05-01,Uber Trip Downtown,-12.00\n" +
		"2025-05-02,Uber Trip Airport,-34.00\n" +
		"2025-05-03,Uber Eats,-21.50\n" +
		"2025-05-04,Uber Trip Home,-9.75\n"
	e.importCSV(t, "personal", "rides.csv", csv)

	// One row was already categorized by hand; history application must
	// leave it alone.
	txs, err := e.consolidated.List(ctx, scopeID, repository.ConsolidatedFilters{})
	require.NoError(t, err)
	require.Len(t, txs, 4)
	var handPicked string
	for _, tx := range txs {
		if tx.Merchant == "Uber Eats" {
			handPicked = tx.ID
			require.NoError(t, e.consolidated.SetCategory(ctx, tx.ID, shopping))
		}
	}
	require.NotEmpty(t, handPicked)

	_, affected, err := e.rules.Create(ctx, scopeID, "uber", transport, true)
	require.NoError(t, err)
	require.Equal(t, 3, affected)

	kept, err := e.consolidated.Get(ctx, handPicked)
	require.NoError(t, err)
	require.Equal(t, shopping, *kept.CategoryID)

	confirmed, err := e.consolidated.List(ctx, scopeID, repository.ConsolidatedFilters{Status: repository.StatusConfirmed})
	require.NoError(t, err)
	require.Len(t, confirmed, 4)
}

func TestLastMatchingRuleWins(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)
	ctx := context.Background()
	scopeID := e.scopeID(t, "personal")
	groceries := e.categoryID(t, "Groceries")
	shopping := e.categoryID(t, "Shopping")

	_, _, err := e.rules.Create(ctx, scopeID, "whole foods", groceries, false)
	require.NoError(t, err)
	_, _, err = e.rules.Create(ctx, scopeID, "market", shopping, false)
	require.NoError(t, err)

	e.importCSV(t, "personal", "march.csv", genericCSV)

	txs, err := e.consolidated.List(ctx, scopeID, repository.ConsolidatedFilters{Status: repository.StatusConfirmed})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, shopping, *txs[0].CategoryID)
}

func TestRunAllSweepsUncategorized(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)
	ctx := context.Background()
	scopeID := e.scopeID(t, "personal")
	restaurants := e.categoryID(t, "Restaurants")

	e.importCSV(t, "personal", "march.csv", genericCSV)

	_, affected, err := e.rules.Create(ctx, scopeID, "coffee", restaurants, false)
	require.NoError(t, err)
	require.Equal(t, 0, affected)

	n, err := e.rules.RunAll(ctx, scopeID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestAICategorizerFallback(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{catResp: llm.CategorizeResponse{Category: "groceries", Confidence: 0.9}}
	e := newEnv(t, provider)
	ctx := context.Background()
	scopeID := e.scopeID(t, "personal")

	csv := "date,description,amount\n2025-06-01,Corner Shop,-14.30\n"
	sum := e.importCSV(t, "personal", "shop.csv", csv)
	// AI assignments are advisory and never counted as rule applications.
	require.Equal(t, 0, sum.RulesApplied)
	require.Equal(t, 1, provider.catCalls)

	txs, err := e.consolidated.List(ctx, scopeID, repository.ConsolidatedFilters{})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.NotNil(t, txs[0].CategoryID)
	require.Equal(t, e.categoryID(t, "Groceries"), *txs[0].CategoryID)
}

func TestAICategorizerLowConfidenceIgnored(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{catResp: llm.CategorizeResponse{Category: "Groceries", Confidence: 0.5}}
	e := newEnv(t, provider)
	ctx := context.Background()
	scopeID := e.scopeID(t, "personal")

	csv := "date,description,amount\n2025-06-01,Corner Shop,-14.30\n"
	e.importCSV(t, "personal", "shop.csv", csv)

	txs, err := e.consolidated.List(ctx, scopeID, repository.ConsolidatedFilters{Uncategorized: true})
	require.NoError(t, err)
	require.Len(t, txs, 1)
}

func TestCreateRuleRejectsBlankKeyword(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)
	scopeID := e.scopeID(t, "personal")

	_, _, err := e.rules.Create(context.Background(), scopeID, "   ", "cat", false)
	require.Error(t, err)
}
