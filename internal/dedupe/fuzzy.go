package dedupe

import (
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"
)

// Fuzzy search bounds: candidates must fall inside this date window and
// amount tolerance before merchant similarity is even computed.
const (
	DateWindowDays = 2
	MinSimilarity  = 0.6
)

var amountTolerance = decimal.RequireFromString("0.01")

// Band groups a similarity score for review display.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
)

// BandFor maps a qualifying score to its confidence band.
func BandFor(score float64) Band {
	if score > 0.9 {
		return BandHigh
	}
	return BandMedium
}

// Similarity computes 1 - levenshtein/maxLen over normalized merchant
// strings. Two empty strings count as identical.
func Similarity(a, b string) float64 {
	na, nb := NormalizeMerchant(a), NormalizeMerchant(b)
	maxLen := len(na)
	if len(nb) > maxLen {
		maxLen = len(nb)
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(na, nb)
	return 1 - float64(dist)/float64(maxLen)
}

// Qualifies reports whether two merchants clear the similarity threshold.
// The comparison is done in integer arithmetic (similarity >= 0.6 is
// 5*distance <= 2*maxLen) so the boundary is exact.
func Qualifies(a, b string) bool {
	na, nb := NormalizeMerchant(a), NormalizeMerchant(b)
	maxLen := len(na)
	if len(nb) > maxLen {
		maxLen = len(nb)
	}
	if maxLen == 0 {
		return true
	}
	dist := levenshtein.ComputeDistance(na, nb)
	return 5*dist <= 2*maxLen
}

// WithinWindow reports whether two ISO dates are at most DateWindowDays
// apart.
func WithinWindow(dateA, dateB string) bool {
	a, errA := time.Parse("2006-01-02", dateA)
	b, errB := time.Parse("2006-01-02", dateB)
	if errA != nil || errB != nil {
		return false
	}
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= DateWindowDays*24*time.Hour
}

// AmountClose reports whether the absolute difference of two amounts is
// within the tolerance.
func AmountClose(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(amountTolerance)
}

// Candidate is one fuzzy-comparable transaction.
type Candidate struct {
	Merchant string
	Amount   decimal.Decimal
	Date     string
}

// Match is the best qualifying candidate for a probe.
type Match struct {
	Index int
	Score float64
	Band  Band
}

// BestMatch scans the pool for the highest-scoring candidate within the date
// window and amount tolerance that clears the similarity threshold. It never
// merges anything; the result is a suggestion for a human decision.
func BestMatch(probe Candidate, pool []Candidate) (Match, bool) {
	best := Match{Index: -1, Score: -1}
	for i, c := range pool {
		if !WithinWindow(probe.Date, c.Date) {
			continue
		}
		if !AmountClose(probe.Amount.Abs(), c.Amount.Abs()) {
			continue
		}
		if !Qualifies(probe.Merchant, c.Merchant) {
			continue
		}
		if score := Similarity(probe.Merchant, c.Merchant); score > best.Score {
			best = Match{Index: i, Score: score, Band: BandFor(score)}
		}
	}
	if best.Index < 0 {
		return Match{}, false
	}
	return best, true
}
