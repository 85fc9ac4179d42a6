// Package service wires the import pipeline: layout resolution, row
// normalization, two-stage dedupe, the three-tier storage funnel and
// post-insert rule application.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ledgerkeep/ledgerkeep/internal/csvparse"
	"github.com/ledgerkeep/ledgerkeep/internal/database/repository"
	"github.com/ledgerkeep/ledgerkeep/internal/dedupe"
	"github.com/ledgerkeep/ledgerkeep/internal/layout"
	"github.com/ledgerkeep/ledgerkeep/internal/llm"
	"github.com/ledgerkeep/ledgerkeep/internal/normalize"
)

// Pipeline stages, in order. One import invocation is a single synchronous
// unit of work; stages share nothing with concurrent invocations except the
// store itself.
type stage string

const (
	stageValidating      stage = "validating"
	stageLayoutResolving stage = "layout_resolving"
	stageNormalizing     stage = "normalizing"
	stageDeduping        stage = "deduping"
	stagePersisting      stage = "persisting"
	stageRuleApplying    stage = "rule_applying"
)

// ErrEmptyBatch rejects imports with no data rows. Fatal, zero writes.
var ErrEmptyBatch = errors.New("empty row set")

// ImportService orchestrates one import invocation per call. It holds no
// cross-request mutable state; construct once and share, or construct per
// request.
type ImportService struct {
	Scopes       *repository.ScopeRepo
	Uploads      *repository.UploadRepo
	Layouts      *repository.LayoutRepo
	Raw          *repository.RawTransactionRepo
	Clean        *repository.CleanTransactionRepo
	Consolidated *repository.ConsolidatedRepo
	Rules        *RuleService
	Audit        *repository.AuditRepo
	Provider     llm.Provider // optional; nil disables the AI fallback
	Logger       *log.Logger
}

// ImportRequest describes one invocation. Either Reader (raw CSV text) or
// Rows (already-normalized rows) must be set. Layout and LayoutID are
// optional shortcuts past detection.
type ImportRequest struct {
	Scope    string
	FileName string
	Reader   io.Reader
	Rows     []normalize.Row
	LayoutID string
	Layout   *layout.Layout
}

// Summary is what every successful invocation returns: enough counts to
// reconcile exactly what happened.
type Summary struct {
	UploadID     string
	Total        int
	Duplicates   int
	Inserted     int
	RulesApplied int
	Dropped      int
	RowErrors    []string
}

// Import runs the full pipeline. Input errors (empty batch, unmappable
// columns) are fatal with zero transaction writes; row-level errors drop the
// row and are reported in the summary; persistence errors are fatal from the
// failing tier forward but never roll back tiers already committed.
func (s *ImportService) Import(ctx context.Context, req ImportRequest) (Summary, error) {
	logger := s.Logger.With("scope", req.Scope, "file", req.FileName)
	logger.Debug("stage", "name", stageValidating)

	if req.FileName == "" {
		return Summary{}, errors.New("file name required")
	}
	if req.Reader == nil && len(req.Rows) == 0 {
		return Summary{}, ErrEmptyBatch
	}

	scope, err := s.Scopes.Upsert(ctx, req.Scope)
	if err != nil {
		return Summary{}, fmt.Errorf("ensure scope: %w", err)
	}

	var parsed csvparse.Result
	if req.Reader != nil {
		parsed, err = csvparse.Parse(req.Reader)
		if err != nil {
			return Summary{}, fmt.Errorf("parse csv: %w", err)
		}
		if len(parsed.Rows) == 0 {
			return Summary{}, ErrEmptyBatch
		}
	}

	upload := repository.Upload{
		ID:       uuid.NewString(),
		ScopeID:  scope.ID,
		Filename: req.FileName,
		Status:   repository.UploadProcessing,
	}
	if err := s.Uploads.Create(ctx, upload); err != nil {
		return Summary{}, fmt.Errorf("create upload: %w", err)
	}
	s.audit(ctx, "upload.started", upload.ID, fmt.Sprintf(`{"filename":%q}`, req.FileName))

	summary := Summary{UploadID: upload.ID}

	rows := req.Rows
	var lay layout.Layout
	if req.Reader != nil {
		logger.Debug("stage", "name", stageLayoutResolving)
		lay, err = s.resolveLayout(ctx, scope.ID, req, parsed)
		if err != nil {
			s.fail(ctx, upload.ID, err)
			return Summary{}, err
		}

		logger.Debug("stage", "name", stageNormalizing)
		rows, summary.Dropped, summary.RowErrors = s.normalizeRows(parsed.Rows, lay)
		// Lines the CSV reader rejected never reached normalization; they
		// are row errors all the same.
		summary.RowErrors = append(parsed.Errors, summary.RowErrors...)
		summary.Dropped += len(parsed.Errors)
	} else if req.Layout != nil {
		lay = *req.Layout
	} else {
		// Pre-normalized rows without a layout: generic source tag.
		lay = layout.Layout{Source: layout.SourceGeneric}
	}

	if len(rows) == 0 {
		err := fmt.Errorf("%w: no rows survived normalization", ErrEmptyBatch)
		s.fail(ctx, upload.ID, err)
		return Summary{}, err
	}

	logger.Debug("stage", "name", stageDeduping)
	summary.Total = len(rows)
	known, err := s.Clean.KeysForScope(ctx, scope.ID)
	if err != nil {
		s.fail(ctx, upload.ID, err)
		return Summary{}, fmt.Errorf("load persisted keys: %w", err)
	}

	rawRecs := make([]repository.RawTransaction, 0, len(rows))
	cleanRecs := make([]repository.CleanTransaction, 0, len(rows))
	seen := map[string]bool{}
	for i, row := range rows {
		key := dedupe.Key(row.Date, row.Amount, row.Merchant)
		dup := known[key] || seen[key]
		seen[key] = true
		if dup {
			summary.Duplicates++
		}

		cells, _ := json.Marshal(row.Raw)
		raw := repository.RawTransaction{
			ID:          uuid.NewString(),
			UploadID:    upload.ID,
			ScopeID:     scope.ID,
			RowIndex:    i,
			RawCells:    string(cells),
			Date:        row.Date,
			Merchant:    row.Merchant,
			Amount:      row.Amount,
			DedupeKey:   key,
			IsDuplicate: dup,
		}
		rawRecs = append(rawRecs, raw)
		if !dup {
			cleanRecs = append(cleanRecs, repository.CleanTransaction{
				ID:        uuid.NewString(),
				UploadID:  upload.ID,
				RawID:     raw.ID,
				ScopeID:   scope.ID,
				Date:      row.Date,
				Merchant:  row.Merchant,
				Amount:    row.Amount,
				DedupeKey: key,
				Source:    lay.Source,
			})
		}
	}

	logger.Debug("stage", "name", stagePersisting, "raw", len(rawRecs), "clean", len(cleanRecs))
	if err := s.Raw.InsertBatch(ctx, rawRecs); err != nil {
		s.fail(ctx, upload.ID, err)
		return Summary{}, fmt.Errorf("insert raw tier: %w", err)
	}
	insertedClean, skipped, err := s.Clean.InsertBatch(ctx, cleanRecs)
	if err != nil {
		s.fail(ctx, upload.ID, err)
		return Summary{}, fmt.Errorf("insert clean tier: %w", err)
	}
	// Rows losing the (scope, dedupe_key) race to a concurrent import count
	// as duplicates, not failures.
	summary.Duplicates += skipped

	consolidated := make([]repository.ConsolidatedTransaction, 0, len(insertedClean))
	for _, c := range insertedClean {
		consolidated = append(consolidated, repository.ConsolidatedTransaction{
			ID:           uuid.NewString(),
			UploadID:     upload.ID,
			CleanID:      c.ID,
			ScopeID:      scope.ID,
			Merchant:     c.Merchant,
			Amount:       c.Amount.Abs(),
			SignedAmount: c.Amount,
			Date:         c.Date,
			Status:       repository.StatusPending,
			Source:       c.Source,
		})
	}
	if err := s.Consolidated.InsertBatch(ctx, consolidated); err != nil {
		// Raw and clean stay committed: they are the append-only ledger of
		// what was attempted. Only the operational view failed.
		s.fail(ctx, upload.ID, err)
		return Summary{}, fmt.Errorf("insert consolidated tier: %w", err)
	}
	summary.Inserted = len(consolidated)

	logger.Debug("stage", "name", stageRuleApplying)
	summary.RulesApplied = s.Rules.ApplyToNew(ctx, scope.ID, consolidated)

	if err := s.Uploads.Finalize(ctx, upload.ID, repository.UploadProcessed, summary.Total); err != nil {
		logger.Error("finalize upload", "error", err)
	}
	payload, _ := json.Marshal(summary)
	s.audit(ctx, "upload.finished", upload.ID, string(payload))
	logger.Info("import done",
		"total", summary.Total, "duplicates", summary.Duplicates,
		"inserted", summary.Inserted, "rules_applied", summary.RulesApplied,
		"dropped", summary.Dropped)
	return summary, nil
}

// resolveLayout reuses a stored layout by id or header hash, falls back to
// heuristic detection, and only then consults the AI collaborator. Detection
// failure is fatal: the pipeline never guesses columns.
func (s *ImportService) resolveLayout(ctx context.Context, scopeID string, req ImportRequest, parsed csvparse.Result) (layout.Layout, error) {
	if req.Layout != nil {
		return *req.Layout, nil
	}
	if req.LayoutID != "" {
		lay, err := s.Layouts.Get(ctx, req.LayoutID)
		if err != nil {
			return layout.Layout{}, fmt.Errorf("load layout %s: %w", req.LayoutID, err)
		}
		if lay == nil {
			return layout.Layout{}, fmt.Errorf("layout %s not found", req.LayoutID)
		}
		return *lay, nil
	}

	hash := layout.HashHeaders(parsed.Tokens)
	if stored, err := s.Layouts.FindByHeaderHash(ctx, scopeID, hash); err != nil {
		return layout.Layout{}, fmt.Errorf("lookup layout: %w", err)
	} else if stored != nil {
		return *stored, nil
	}

	samples := parsed.Rows
	if len(samples) > 20 {
		samples = samples[:20]
	}
	lay, detectErr := layout.Detect(scopeID, parsed.Tokens, samples)
	if detectErr != nil {
		aiLay, ok := s.mapColumnsWithProvider(ctx, scopeID, hash, parsed)
		if !ok {
			return layout.Layout{}, detectErr
		}
		lay = aiLay
	}
	if err := s.Layouts.Insert(ctx, scopeID, lay); err != nil {
		return layout.Layout{}, fmt.Errorf("store layout: %w", err)
	}
	return lay, nil
}

// mapColumnsWithProvider asks the optional AI collaborator for a column
// mapping. Low-confidence or malformed suggestions are treated as absent.
func (s *ImportService) mapColumnsWithProvider(ctx context.Context, scopeID, hash string, parsed csvparse.Result) (layout.Layout, bool) {
	if s.Provider == nil {
		return layout.Layout{}, false
	}
	samples := make([][]string, 0, 20)
	for i, row := range parsed.Rows {
		if i == 20 {
			break
		}
		cells := make([]string, len(parsed.Tokens))
		for j, tok := range parsed.Tokens {
			cells[j] = row[tok]
		}
		samples = append(samples, cells)
	}
	resp, err := s.Provider.MapColumns(ctx, llm.MapRequest{Headers: parsed.Tokens, Samples: samples})
	if err != nil {
		s.Logger.Warn("ai column mapping failed", "error", err)
		return layout.Layout{}, false
	}
	if !resp.Usable() || !tokensContain(parsed.Tokens, resp.DateKey, resp.DescriptionKey, resp.AmountKey) {
		return layout.Layout{}, false
	}
	return layout.Layout{
		ID:         layout.DeterministicID(scopeID, hash),
		Source:     layout.SourceGeneric,
		HeaderHash: hash,
		Columns: layout.ColumnMapping{
			Date:        resp.DateKey,
			Description: resp.DescriptionKey,
			Amount:      resp.AmountKey,
		},
		Rules:      layout.ParsingRules{DateFormat: "YYYY-MM-DD", DecimalSep: ".", ThousandSep: ",", ExpenseSign: layout.SignMixed},
		Confidence: resp.Confidence,
	}, true
}

// normalizeRows maps parsed cells through the layout. Blank required fields
// drop the row silently; malformed values drop it with a line-numbered error.
func (s *ImportService) normalizeRows(raw []map[string]string, lay layout.Layout) (rows []normalize.Row, dropped int, rowErrors []string) {
	for i, cells := range raw {
		row, err := normalize.NormalizeRow(cells, lay)
		if err != nil {
			// +2: one for the header line, one for 1-based numbering.
			rowErrors = append(rowErrors, fmt.Sprintf("line %d: %v", i+2, err))
			dropped++
			continue
		}
		if row == nil {
			dropped++
			continue
		}
		rows = append(rows, *row)
	}
	return rows, dropped, rowErrors
}

func (s *ImportService) fail(ctx context.Context, uploadID string, cause error) {
	if err := s.Uploads.Finalize(ctx, uploadID, repository.UploadError, 0); err != nil {
		s.Logger.Error("finalize failed upload", "error", err)
	}
	s.audit(ctx, "upload.failed", uploadID, fmt.Sprintf(`{"reason":%q}`, cause.Error()))
}

// audit is fire-and-forget: a broken audit trail is logged, never fatal.
func (s *ImportService) audit(ctx context.Context, eventType, entityID, payload string) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Record(ctx, eventType, entityID, payload); err != nil {
		s.Logger.Error("audit record", "event", eventType, "error", err)
	}
}

func tokensContain(tokens []string, keys ...string) bool {
	for _, k := range keys {
		found := false
		for _, t := range tokens {
			if t == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
