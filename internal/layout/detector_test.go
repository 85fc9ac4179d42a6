package layout

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectCardStatement(t *testing.T) {
	t.Parallel()

	tokens := []string{"authorizationdate", "posteddate", "merchant", "amount"}
	lay, err := Detect("house", tokens, nil)
	require.NoError(t, err)
	require.Equal(t, SourceCardStatement, lay.Source)
	require.Equal(t, "authorizationdate", lay.Columns.Date)
	require.Equal(t, "merchant", lay.Columns.Description)
	require.Equal(t, "amount", lay.Columns.Amount)
	require.Equal(t, SignPositive, lay.Rules.ExpenseSign)
	require.GreaterOrEqual(t, lay.Confidence, 0.75)
}

func TestDetectGermanBank(t *testing.T) {
	t.Parallel()

	tokens := []string{"buchungstag", "verwendungszweck", "betrag"}
	lay, err := Detect("house", tokens, nil)
	require.NoError(t, err)
	require.Equal(t, SourceGermanBank, lay.Source)
	require.Equal(t, "buchungstag", lay.Columns.Date)
	require.Equal(t, "verwendungszweck", lay.Columns.Description)
	require.Equal(t, "betrag", lay.Columns.Amount)
	require.Equal(t, ",", lay.Rules.DecimalSep)
	require.Equal(t, SignNegative, lay.Rules.ExpenseSign)
}

func TestDetectGenericFallback(t *testing.T) {
	t.Parallel()

	tokens := []string{"date", "description", "amount"}
	lay, err := Detect("house", tokens, nil)
	require.NoError(t, err)
	require.Equal(t, SourceGeneric, lay.Source)
	require.Equal(t, SignMixed, lay.Rules.ExpenseSign)
	require.Equal(t, 0.75, lay.Confidence)
}

func TestLoneBetragStaysGeneric(t *testing.T) {
	t.Parallel()

	tokens := []string{"date", "description", "betrag"}
	lay, err := Detect("house", tokens, nil)
	require.NoError(t, err)
	require.Equal(t, SourceGeneric, lay.Source)
	require.Equal(t, "betrag", lay.Columns.Amount)
}

func TestAmountScoringPrefersMoneyLikeColumn(t *testing.T) {
	t.Parallel()

	tokens := []string{"date", "description", "value", "amount"}
	samples := []map[string]string{
		{"value": "ref 991", "amount": "-12.50"},
		{"value": "ref 992", "amount": "8.00"},
		{"value": "ref 993", "amount": "-3.99"},
	}
	lay, err := Detect("house", tokens, samples)
	require.NoError(t, err)
	// "value" precedes "amount" in alias order but loses on sample scoring.
	require.Equal(t, "amount", lay.Columns.Amount)
}

func TestAmountScoringTieBreaksByColumnOrder(t *testing.T) {
	t.Parallel()

	tokens := []string{"date", "description", "debit", "credit"}
	lay, err := Detect("house", tokens, nil)
	require.NoError(t, err)
	require.Equal(t, "debit", lay.Columns.Amount)
}

func TestDetectFailsWithoutDateColumn(t *testing.T) {
	t.Parallel()

	tokens := []string{"description", "amount"}
	_, err := Detect("house", tokens, nil)
	require.Error(t, err)
	var de *DetectError
	require.ErrorAs(t, err, &de)
	require.Equal(t, []string{"date"}, de.Missing)
	require.Contains(t, err.Error(), "cannot map columns")
}

func TestHeaderHashStable(t *testing.T) {
	t.Parallel()

	a := HashHeaders([]string{"date", "description", "amount"})
	b := HashHeaders([]string{"date", "description", "amount"})
	c := HashHeaders([]string{"date", "amount", "description"})
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)

	require.Equal(t,
		DeterministicID("house", a),
		DeterministicID("house", b))
	require.NotEqual(t,
		DeterministicID("house", a),
		DeterministicID("flat", a))
}
