// Package normalize converts raw CSV cells into canonical transaction rows:
// ISO dates, decimal amounts, and a sign that follows the layout's expense
// convention rather than whatever the bank happened to print.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerkeep/ledgerkeep/internal/layout"
)

// Row is the canonical, ephemeral form of one CSV data line. It is consumed
// by the dedupe and persistence stages and never stored as-is.
type Row struct {
	// Raw preserves the original cells (token -> value) for the raw tier.
	Raw map[string]string
	// Date is ISO formatted (YYYY-MM-DD).
	Date string
	// Merchant is the untouched description text.
	Merchant string
	// Amount is signed; expenses are negative regardless of the source's
	// own convention.
	Amount decimal.Decimal
}

// NormalizeRow maps one raw row through the resolved layout. It returns
// (nil, nil) when a required cell is blank: such rows are dropped and
// counted, not treated as errors. Malformed dates or amounts are errors.
func NormalizeRow(cells map[string]string, lay layout.Layout) (*Row, error) {
	dateRaw := strings.TrimSpace(cells[lay.Columns.Date])
	merchant := strings.TrimSpace(cells[lay.Columns.Description])
	amountRaw := strings.TrimSpace(cells[lay.Columns.Amount])
	if dateRaw == "" || merchant == "" || amountRaw == "" {
		return nil, nil
	}

	date, err := ParseDate(dateRaw)
	if err != nil {
		return nil, err
	}
	magnitude, negative, err := parseMagnitude(amountRaw)
	if err != nil {
		return nil, err
	}

	return &Row{
		Raw:      cells,
		Date:     date,
		Merchant: merchant,
		Amount:   ResolveSign(magnitude, negative, lay.Rules.ExpenseSign),
	}, nil
}

// ParseDate accepts DD.MM.YYYY, DD/MM/YYYY and YYYY-MM-DD. Two-digit years
// are expanded by prefixing "20".
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("2006-01-02"), nil
	}

	sep := ""
	switch {
	case strings.Contains(s, "."):
		sep = "."
	case strings.Contains(s, "/"):
		sep = "/"
	default:
		return "", fmt.Errorf("unrecognized date %q", s)
	}
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return "", fmt.Errorf("unrecognized date %q", s)
	}
	year := parts[2]
	if len(year) == 2 {
		year = "20" + year
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	yr, err3 := strconv.Atoi(year)
	if err1 != nil || err2 != nil || err3 != nil {
		return "", fmt.Errorf("unrecognized date %q", s)
	}
	t := time.Date(yr, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date silently rolls over out-of-range components; reject those.
	if t.Year() != yr || t.Month() != time.Month(month) || t.Day() != day {
		return "", fmt.Errorf("invalid date %q", s)
	}
	return t.Format("2006-01-02"), nil
}

// ParseAmount parses a locale-ambiguous amount string and applies the
// literal sign, the behavior of a mixed-sign layout. "1.234,56" and
// "1,234.56" both yield 1234.56.
func ParseAmount(s string) (decimal.Decimal, error) {
	magnitude, negative, err := parseMagnitude(s)
	if err != nil {
		return decimal.Zero, err
	}
	return ResolveSign(magnitude, negative, layout.SignMixed), nil
}

// parseMagnitude strips currency symbols and whitespace, resolves the
// separator ambiguity, and returns a non-negative magnitude plus whether a
// literal minus was present. Sign resolution happens separately.
func parseMagnitude(s string) (decimal.Decimal, bool, error) {
	cleaned := make([]rune, 0, len(s))
	negative := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			cleaned = append(cleaned, r)
		case r == '-':
			negative = true
		}
		// everything else (currency symbols, spaces, plus signs) is noise
	}
	num := string(cleaned)
	if num == "" {
		return decimal.Zero, false, fmt.Errorf("unparseable amount %q", s)
	}

	lastComma := strings.LastIndex(num, ",")
	lastDot := strings.LastIndex(num, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		// Both present: the one that occurs last is the decimal separator,
		// the other is the thousands separator. Covers "1.234,56" and
		// "1,234.56" alike.
		if lastComma > lastDot {
			num = strings.ReplaceAll(num, ".", "")
			num = strings.Replace(num, ",", ".", 1)
		} else {
			num = strings.ReplaceAll(num, ",", "")
		}
	case lastComma >= 0:
		num = strings.Replace(num, ",", ".", 1)
	}

	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("unparseable amount %q: %w", s, err)
	}
	return d.Abs(), negative, nil
}

// ResolveSign combines the parsed magnitude, the literal sign character and
// the layout's declared expense convention. The canonical encoding stores
// expenses as negative amounts.
func ResolveSign(magnitude decimal.Decimal, negative bool, sign layout.Sign) decimal.Decimal {
	switch sign {
	case layout.SignPositive:
		// Positive cells are debits: flip. An explicit minus marks a
		// credit/refund and stays positive.
		if negative {
			return magnitude
		}
		return magnitude.Neg()
	default:
		// SignNegative and SignMixed both trust the literal sign.
		if negative {
			return magnitude.Neg()
		}
		return magnitude
	}
}
