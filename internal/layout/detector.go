package layout

import (
	"regexp"
	"strings"
)

// maxSampleRows bounds how many data rows the amount scorer inspects.
const maxSampleRows = 20

// heuristicConfidence is assigned to alias-table matches. AI-suggested
// mappings arrive with their own (lower, untrusted) confidence.
const (
	heuristicConfidence   = 0.75
	knownSourceConfidence = 0.9
)

// DetectError reports which canonical fields could not be mapped. The import
// pipeline treats it as fatal: no guessing, no writes.
type DetectError struct {
	Missing []string
}

func (e *DetectError) Error() string {
	return "cannot map columns: missing " + strings.Join(e.Missing, ", ")
}

// Alias tables, checked in order. Source-specific aliases run before the
// generic ones so that e.g. an authorization date beats a generic "date".
var (
	cardDateAliases    = []string{"authorizationdate", "authorizeddate", "transactiondate"}
	cardDescAliases    = []string{"merchant", "merchantname"}
	germanDateAliases  = []string{"buchungstag", "valutadatum", "wertstellung"}
	germanDescAliases  = []string{"verwendungszweck", "buchungstext", "beguenstigterzahlungspflichtiger", "auftraggeberempfaenger"}
	germanAmountAliases = []string{"betrag", "betrag(eur)", "umsatz"}

	genericDateAliases = []string{"date", "bookingdate", "posteddate", "postdate", "valuedate", "datum", "transactiondate"}
	genericDescAliases = []string{"description", "merchant", "payee", "narrative", "details", "text", "reference", "beschreibung"}
	genericAmountAliases = []string{"amount", "value", "betrag", "debit", "credit", "amountaud", "amounteur", "amountusd"}

	// Marker headers that identify a source family when present.
	cardMarkers   = []string{"authorizationdate", "authorizeddate", "statementperiod"}
	germanMarkers = []string{"buchungstag", "verwendungszweck", "betrag", "valutadatum"}
)

var twoDecimalPattern = regexp.MustCompile(`\d[.,]\d{2}(\s*[A-Z€$£]*)?$`)

// Detect resolves a layout from normalized header tokens and up to 20 sample
// rows (keyed by token). It fails rather than guess when any canonical field
// cannot be mapped.
func Detect(scope string, tokens []string, samples []map[string]string) (Layout, error) {
	src := detectSource(tokens)

	dateAliases, descAliases, amountAliases := aliasesFor(src)

	dateKey := firstPresent(tokens, dateAliases)
	descKey := firstPresent(tokens, descAliases)
	amountKey := pickAmountColumn(tokens, amountAliases, samples)

	var missing []string
	if dateKey == "" {
		missing = append(missing, "date")
	}
	if descKey == "" {
		missing = append(missing, "description")
	}
	if amountKey == "" {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return Layout{}, &DetectError{Missing: missing}
	}

	conf := heuristicConfidence
	if src != SourceGeneric {
		conf = knownSourceConfidence
	}
	hash := HashHeaders(tokens)
	return Layout{
		ID:         DeterministicID(scope, hash),
		Source:     src,
		HeaderHash: hash,
		Columns:    ColumnMapping{Date: dateKey, Description: descKey, Amount: amountKey},
		Rules:      rulesFor(src),
		Confidence: conf,
	}, nil
}

func detectSource(tokens []string) Source {
	if containsAny(tokens, cardMarkers) {
		return SourceCardStatement
	}
	// German statements are recognized by at least two marker headers so a
	// lone "betrag" column on an otherwise English export stays generic.
	hits := 0
	for _, m := range germanMarkers {
		if contains(tokens, m) {
			hits++
		}
	}
	if hits >= 2 {
		return SourceGermanBank
	}
	return SourceGeneric
}

func aliasesFor(src Source) (date, desc, amount []string) {
	switch src {
	case SourceCardStatement:
		return append(append([]string{}, cardDateAliases...), genericDateAliases...),
			append(append([]string{}, cardDescAliases...), genericDescAliases...),
			genericAmountAliases
	case SourceGermanBank:
		return append(append([]string{}, germanDateAliases...), genericDateAliases...),
			append(append([]string{}, germanDescAliases...), genericDescAliases...),
			append(append([]string{}, germanAmountAliases...), genericAmountAliases...)
	default:
		return genericDateAliases, genericDescAliases, genericAmountAliases
	}
}

func rulesFor(src Source) ParsingRules {
	switch src {
	case SourceCardStatement:
		// Card exports list debits as positive magnitudes.
		return ParsingRules{DateFormat: "DD/MM/YYYY", DecimalSep: ".", ThousandSep: ",", ExpenseSign: SignPositive}
	case SourceGermanBank:
		return ParsingRules{DateFormat: "DD.MM.YYYY", DecimalSep: ",", ThousandSep: ".", ExpenseSign: SignNegative}
	default:
		return ParsingRules{DateFormat: "YYYY-MM-DD", DecimalSep: ".", ThousandSep: ",", ExpenseSign: SignMixed}
	}
}

// pickAmountColumn scores every alias-matching column over the sample rows:
// +1 per cell containing a digit, +2 per cell matching a two-decimal pattern,
// +1 per cell with a leading minus. Highest score wins; ties break by column
// order.
func pickAmountColumn(tokens []string, aliases []string, samples []map[string]string) string {
	var candidates []string
	for _, tok := range tokens {
		if contains(aliases, tok) {
			candidates = append(candidates, tok)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	if len(candidates) == 1 {
		return candidates[0]
	}

	if len(samples) > maxSampleRows {
		samples = samples[:maxSampleRows]
	}
	best, bestScore := candidates[0], -1
	for _, cand := range candidates {
		score := 0
		for _, row := range samples {
			cell := strings.TrimSpace(row[cand])
			if cell == "" {
				continue
			}
			if strings.ContainsAny(cell, "0123456789") {
				score++
			}
			if twoDecimalPattern.MatchString(cell) {
				score += 2
			}
			if strings.HasPrefix(cell, "-") {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = cand, score
		}
	}
	return best
}

func firstPresent(tokens []string, aliases []string) string {
	for _, a := range aliases {
		if contains(tokens, a) {
			return a
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsAny(list []string, any []string) bool {
	for _, v := range any {
		if contains(list, v) {
			return true
		}
	}
	return false
}
