// Package dedupe builds the stable identity key used for exact duplicate
// detection and scores fuzzy merchant similarity for cross-session review.
package dedupe

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeMerchant lower-cases the merchant text, strips diacritics and
// drops every non-alphanumeric rune. "Café  Müller" and "cafe muller" yield
// the same result.
func NormalizeMerchant(s string) string {
	folded, _, err := transform.String(stripMarks, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Key derives the identity fingerprint of a transaction occurrence:
// date, absolute amount at two decimal places, normalized merchant. Two rows
// with the same key are the same occurrence within a batch or store.
func Key(dateISO string, amount decimal.Decimal, merchant string) string {
	return dateISO + "|" + amount.Abs().StringFixed(2) + "|" + NormalizeMerchant(merchant)
}
