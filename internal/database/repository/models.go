package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerkeep/ledgerkeep/internal/dedupe"
	"github.com/ledgerkeep/ledgerkeep/internal/layout"
)

// Scope is an owning account group. Every upload and every transaction row
// belongs to exactly one scope.
type Scope struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Upload groups one import invocation and owns the rows it produced.
type Upload struct {
	ID         string
	ScopeID    string
	Filename   string
	Status     string // processing | processed | error
	RowCount   int
	CreatedAt  time.Time
	FinishedAt *time.Time
}

// Upload statuses.
const (
	UploadProcessing = "processing"
	UploadProcessed  = "processed"
	UploadError      = "error"
)

// RawTransaction is the append-only audit record of one CSV line ever seen.
// Never deleted, never updated.
type RawTransaction struct {
	ID          string
	UploadID    string
	ScopeID     string
	RowIndex    int
	RawCells    string // JSON of the original cell map
	Date        string
	Merchant    string
	Amount      decimal.Decimal
	DedupeKey   string
	IsDuplicate bool
	CreatedAt   time.Time
}

// CleanTransaction is the deduplicated subset of the raw tier: one row per
// unique transaction occurrence per scope.
type CleanTransaction struct {
	ID        string
	UploadID  string
	RawID     string
	ScopeID   string
	Date      string
	Merchant  string
	Amount    decimal.Decimal
	DedupeKey string
	Source    layout.Source
	CreatedAt time.Time
}

// ConsolidatedTransaction is the operational record the rest of the
// application reads. Status moves between pending, confirmed and duplicate;
// rows are never deleted.
type ConsolidatedTransaction struct {
	ID           string
	UploadID     string
	CleanID      string
	ScopeID      string
	Merchant     string
	Amount       decimal.Decimal // unsigned magnitude
	SignedAmount decimal.Decimal
	Date         string
	Status       string
	CategoryID   *string
	Source       layout.Source
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Consolidated transaction statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusDuplicate = "duplicate"
)

// Category is a spending category rules can assign.
type Category struct {
	ID        string
	Name      string
	SortOrder int
}

// Rule maps a keyword to a category. Immutable once created.
type Rule struct {
	ID             string
	ScopeID        string
	Keyword        string
	CategoryID     string
	ApplyToHistory bool
	CreatedAt      time.Time
}

// DuplicateCandidate is a fuzzy near-duplicate surfaced for human review.
type DuplicateCandidate struct {
	ID            string
	ScopeID       string
	TransactionID string
	MatchID       string
	Similarity    float64
	Band          dedupe.Band
	Status        string // pending | merged | dismissed
	CreatedAt     time.Time
}

// Candidate statuses.
const (
	CandidatePending   = "pending"
	CandidateMerged    = "merged"
	CandidateDismissed = "dismissed"
)

// AuditEvent records one significant mutation or pipeline invocation.
type AuditEvent struct {
	ID        string
	EventType string
	EntityID  string
	Payload   string
	CreatedAt time.Time
}
