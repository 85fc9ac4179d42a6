package csvparse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCommaSeparated(t *testing.T) {
	t.Parallel()

	data := strings.Join([]string{
		"Date,Description,Amount",
		"24.11.2025,COLES SPOTSWOOD,-42.00",
		"",
		"25.11.2025,\"UBER *TRIP, MELBOURNE\",-18.50",
	}, "\n")

	res, err := Parse(strings.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, ',', res.Delimiter)
	require.Equal(t, []string{"Date", "Description", "Amount"}, res.Headers)
	require.Equal(t, []string{"date", "description", "amount"}, res.Tokens)
	require.Len(t, res.Rows, 2)
	require.Empty(t, res.Errors)
	require.Equal(t, "UBER *TRIP, MELBOURNE", res.Rows[1]["description"])
}

func TestParseSemicolonDelimiter(t *testing.T) {
	t.Parallel()

	data := "Buchungstag;Verwendungszweck;Betrag\n24.11.2025;REWE MARKT;-12,34\n"
	res, err := Parse(strings.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, ';', res.Delimiter)
	require.Equal(t, "-12,34", res.Rows[0]["betrag"])
}

func TestParseReportsBadLinesWithNumbers(t *testing.T) {
	t.Parallel()

	data := strings.Join([]string{
		"date,description,amount",
		"2025-11-24,ok row,1.00",
		"2025-11-25,bad \"quote here,2.00",
		"2025-11-26,another ok row,3.00",
	}, "\n")

	res, err := Parse(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0], "line 3")
}

func TestParseShortRowsPadded(t *testing.T) {
	t.Parallel()

	res, err := Parse(strings.NewReader("a,b,c\n1,2\n"))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "", res.Rows[0]["c"])
}

func TestParseEmptyInput(t *testing.T) {
	t.Parallel()

	_, err := Parse(strings.NewReader("  \n "))
	require.Error(t, err)
}

func TestNormalizeHeader(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Posted Date":    "posteddate",
		"posted_date":    "posteddate",
		" POSTED-DATE ":  "posteddate",
		"Betrag (EUR)":   "betrag(eur)",
		"Authorized.On":  "authorizedon",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeHeader(in), "input %q", in)
	}
}
