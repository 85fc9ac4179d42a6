// Package layout infers which columns of a bank CSV export hold the date,
// description and amount, and which locale rules apply when parsing them.
package layout

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Source tags the statement family a layout was detected for.
type Source string

const (
	// SourceCardStatement covers credit-card exports that carry
	// authorization/posted date column pairs.
	SourceCardStatement Source = "card_statement"
	// SourceGermanBank covers German bank statements (Buchungstag,
	// Verwendungszweck, Betrag).
	SourceGermanBank Source = "german_bank"
	// SourceGeneric is the fallback for everything else.
	SourceGeneric Source = "generic"
)

// Sign declares how a statement encodes expenses.
type Sign string

const (
	// SignNegative: expenses appear with a leading minus.
	SignNegative Sign = "negative"
	// SignPositive: expenses appear positive (debit-column style); the
	// normalizer flips them.
	SignPositive Sign = "positive"
	// SignMixed: the literal sign on each cell is authoritative.
	SignMixed Sign = "mixed"
)

// ColumnMapping names the normalized header tokens for the canonical fields.
type ColumnMapping struct {
	Date        string
	Description string
	Amount      string
}

// ParsingRules carries the locale conventions used by the row normalizer.
type ParsingRules struct {
	DateFormat  string
	DecimalSep  string
	ThousandSep string
	ExpenseSign Sign
}

// Layout is the resolved mapping for one header shape. Once persisted it is
// never mutated; a different header shape produces a new layout.
type Layout struct {
	ID         string
	Source     Source
	HeaderHash string
	Columns    ColumnMapping
	Rules      ParsingRules
	Confidence float64
}

// HashHeaders fingerprints a normalized header set. Imports with the same
// header shape reuse the stored layout by this hash.
func HashHeaders(tokens []string) string {
	sum := sha256.Sum256([]byte(strings.Join(tokens, "|")))
	return fmt.Sprintf("%x", sum[:])
}

// DeterministicID derives a stable layout id from scope and header hash, so
// re-detecting the same shape never forks a second record.
func DeterministicID(scope, headerHash string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("layout:"+scope+":"+headerHash)).String()
}
