// Package llm models the optional AI mapping/categorization collaborator.
// It is never authoritative: every response carries a confidence score, and
// anything under the floor is treated as absent so the deterministic
// heuristics stay the default path.
package llm

import "context"

// Confidence floors. Responses below these are discarded by callers.
const (
	MinMappingConfidence  = 0.5
	MinCategoryConfidence = 0.7
)

// Provider is the single seam to the model. A nil Provider is valid
// everywhere: the pipeline must work without one.
type Provider interface {
	// MapColumns suggests which header tokens hold date/description/amount.
	MapColumns(ctx context.Context, req MapRequest) (MapResponse, error)
	// Categorize suggests a category for one transaction.
	Categorize(ctx context.Context, req CategorizeRequest) (CategorizeResponse, error)
}

// MapRequest carries the header tokens and up to 20 sample rows.
type MapRequest struct {
	Headers []string   `json:"headers"`
	Samples [][]string `json:"samples"`
}

// MapResponse names the suggested columns by header token.
type MapResponse struct {
	DateKey        string  `json:"date_key"`
	DescriptionKey string  `json:"description_key"`
	AmountKey      string  `json:"amount_key"`
	Confidence     float64 `json:"confidence"`
}

// Usable reports whether the mapping clears the confidence floor and names
// all three columns.
func (m MapResponse) Usable() bool {
	return m.Confidence >= MinMappingConfidence &&
		m.DateKey != "" && m.DescriptionKey != "" && m.AmountKey != ""
}

type CategorizeRequest struct {
	Merchant   string   `json:"merchant"`
	Amount     string   `json:"amount"`
	Date       string   `json:"date"`
	Categories []string `json:"categories"`
}

type CategorizeResponse struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Usable reports whether the suggestion clears the confidence floor.
func (c CategorizeResponse) Usable() bool {
	return c.Confidence >= MinCategoryConfidence && c.Category != ""
}
