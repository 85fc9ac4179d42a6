package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerkeep/ledgerkeep/internal/database/repository"
	"github.com/ledgerkeep/ledgerkeep/internal/layout"
	"github.com/ledgerkeep/ledgerkeep/internal/llm"
)

const genericCSV = `date,description,amount
2025-03-10,Blue Bottle Coffee,-4.50
2025-03-11,Whole Foods Market,-82.19
2025-03-12,Payroll Inc,2500.00
`

func TestImportFillsAllTiers(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)
	ctx := context.Background()

	sum := e.importCSV(t, "personal", "march.csv", genericCSV)
	require.Equal(t, 3, sum.Total)
	require.Equal(t, 3, sum.Inserted)
	require.Equal(t, 0, sum.Duplicates)
	require.Equal(t, 0, sum.Dropped)
	require.Empty(t, sum.RowErrors)

	scopeID := e.scopeID(t, "personal")

	total, dups, err := e.raw.CountForUpload(ctx, sum.UploadID)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Equal(t, 0, dups)

	cleanCount, err := e.clean.CountForScope(ctx, scopeID)
	require.NoError(t, err)
	require.Equal(t, 3, cleanCount)

	txs, err := e.consolidated.List(ctx, scopeID, repository.ConsolidatedFilters{})
	require.NoError(t, err)
	require.Len(t, txs, 3)

	up, err := e.uploads.Get(ctx, sum.UploadID)
	require.NoError(t, err)
	require.NotNil(t, up)
	require.Equal(t, "processed", up.Status)
	require.Equal(t, 3, up.RowCount)

	// The detected layout is stored and found again by header hash.
	stored, err := e.layouts.FindByHeaderHash(ctx, scopeID, layout.HashHeaders([]string{"date", "description", "amount"}))
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, layout.SourceGeneric, stored.Source)
}

func TestReimportIsIdempotent(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)
	ctx := context.Background()

	first := e.importCSV(t, "personal", "march.csv", genericCSV)
	require.Equal(t, 3, first.Inserted)

	second := e.importCSV(t, "personal", "march-again.csv", genericCSV)
	require.Equal(t, 3, second.Total)
	require.Equal(t, 3, second.Duplicates)
	require.Equal(t, 0, second.Inserted)

	// Raw keeps every row ever seen, flagged; clean holds each unique once.
	total, dups, err := e.raw.CountForUpload(ctx, second.UploadID)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Equal(t, 3, dups)

	scopeID := e.scopeID(t, "personal")
	cleanCount, err := e.clean.CountForScope(ctx, scopeID)
	require.NoError(t, err)
	require.Equal(t, 3, cleanCount)
}

func TestImportMixedDuplicateBatch(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)
	ctx := context.Background()

	row := func(i int) string {
		return fmt.Sprintf("2025-04-%02d,Store %d,-%d.25\n", i%28+1, i, 10+i)
	}

	var seed strings.Builder
	seed.WriteString("date,description,amount\n")
	for i := 0; i < 10; i++ {
		seed.WriteString(row(i))
	}
	sum := e.importCSV(t, "personal", "seed.csv", seed.String())
	require.Equal(t, 10, sum.Inserted)

	// 10 already stored + 85 new + 5 in-batch repeats of the new rows.
	var batch strings.Builder
	batch.WriteString("date,description,amount\n")
	for i := 0; i < 10; i++ {
		batch.WriteString(row(i))
	}
	for i := 10; i < 95; i++ {
		batch.WriteString(row(i))
	}
	for i := 10; i < 15; i++ {
		batch.WriteString(row(i))
	}
	sum = e.importCSV(t, "personal", "batch.csv", batch.String())
	require.Equal(t, 100, sum.Total)
	require.Equal(t, 15, sum.Duplicates)
	require.Equal(t, 85, sum.Inserted)

	scopeID := e.scopeID(t, "personal")
	count, err := e.consolidated.CountForScope(ctx, scopeID)
	require.NoError(t, err)
	require.Equal(t, 95, count)
}

func TestImportEmptyFileRejected(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)

	_, err := e.importer.Import(context.Background(), ImportRequest{
		Scope:    "personal",
		FileName: "empty.csv",
		Reader:   strings.NewReader("date,description,amount\n"),
	})
	require.ErrorIs(t, err, ErrEmptyBatch)

	var uploads int
	require.NoError(t, e.sql.QueryRow(`SELECT COUNT(*) FROM uploads`).Scan(&uploads))
	require.Equal(t, 0, uploads)
}

func TestImportUnmappableColumnsWritesNoRows(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)

	_, err := e.importer.Import(context.Background(), ImportRequest{
		Scope:    "personal",
		FileName: "weird.csv",
		Reader:   strings.NewReader("foo,bar,baz\nx,y,z\n"),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot map columns")

	// The upload record exists in error state; no transaction tier was touched.
	var uploads int
	var status string
	require.NoError(t, e.sql.QueryRow(`SELECT COUNT(*), MAX(status) FROM uploads`).Scan(&uploads, &status))
	require.Equal(t, 1, uploads)
	require.Equal(t, "error", status)

	for _, table := range []string{"raw_transactions", "clean_transactions", "consolidated_transactions"} {
		var n int
		require.NoError(t, e.sql.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
		require.Equal(t, 0, n, table)
	}
}

func TestImportRowErrorsDropOnlyBadRows(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)

	csv := "date,description,amount\n" +
		"2025-03-10,Blue Bottle Coffee,-4.50\n" +
		"not-a-date,Broken Row,-1.00\n" +
		"2025-03-12,Payroll Inc,2500.00\n"
	sum := e.importCSV(t, "personal", "mixed.csv", csv)
	require.Equal(t, 2, sum.Total)
	require.Equal(t, 2, sum.Inserted)
	require.Equal(t, 1, sum.Dropped)
	require.Len(t, sum.RowErrors, 1)
	require.Contains(t, sum.RowErrors[0], "line 3")
}

func TestImportAIMappingFallback(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{mapResp: llm.MapResponse{
		DateKey: "when", DescriptionKey: "who", AmountKey: "howmuch", Confidence: 0.8,
	}}
	e := newEnv(t, provider)

	csv := "when,who,howmuch\n2025-03-10,Blue Bottle Coffee,-4.50\n2025-03-11,Payroll Inc,2500.00\n"
	sum := e.importCSV(t, "personal", "odd-headers.csv", csv)
	require.Equal(t, 2, sum.Inserted)
	require.Equal(t, 1, provider.mapCalls)
}

func TestImportAILowConfidenceMappingDiscarded(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{mapResp: llm.MapResponse{
		DateKey: "when", DescriptionKey: "who", AmountKey: "howmuch", Confidence: 0.3,
	}}
	e := newEnv(t, provider)

	_, err := e.importer.Import(context.Background(), ImportRequest{
		Scope:    "personal",
		FileName: "odd-headers.csv",
		Reader:   strings.NewReader("when,who,howmuch\n2025-03-10,Blue Bottle Coffee,-4.50\n"),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot map columns")
	require.Equal(t, 1, provider.mapCalls)
}

func TestImportScopesAreIsolated(t *testing.T) {
	t.Parallel()
	e := newEnv(t, nil)
	ctx := context.Background()

	first := e.importCSV(t, "personal", "march.csv", genericCSV)
	require.Equal(t, 3, first.Inserted)

	// Identical rows in another scope are not duplicates.
	second := e.importCSV(t, "business", "march.csv", genericCSV)
	require.Equal(t, 3, second.Inserted)
	require.Equal(t, 0, second.Duplicates)

	count, err := e.consolidated.CountForScope(ctx, e.scopeID(t, "business"))
	require.NoError(t, err)
	require.Equal(t, 3, count)
}
