package service

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ledgerkeep/ledgerkeep/internal/database/repository"
	"github.com/ledgerkeep/ledgerkeep/internal/dedupe"
)

// ReviewService surfaces fuzzy near-duplicates that survived the exact-key
// stage and records the human's merge or dismiss decision. It never deletes:
// merging marks the losing row duplicate and keeps it queryable.
type ReviewService struct {
	Consolidated *repository.ConsolidatedRepo
	Candidates   *repository.CandidateRepo
	Audit        *repository.AuditRepo
	Logger       *log.Logger
}

// FindCandidates scans the scope's live consolidated rows pairwise and
// queues every pair that clears the fuzzy gates: dates within two days,
// amounts within a cent, merchant similarity at least 0.6. Pairs from the
// same upload are skipped; the exact stage already handled those, and two
// similar purchases in one statement are usually real. Returns how many new
// candidates were queued.
func (s *ReviewService) FindCandidates(ctx context.Context, scopeID string) (int, error) {
	txs, err := s.Consolidated.List(ctx, scopeID, repository.ConsolidatedFilters{
		ExcludeStatus: repository.StatusDuplicate,
	})
	if err != nil {
		return 0, fmt.Errorf("list consolidated: %w", err)
	}

	queued := 0
	for i := 0; i < len(txs); i++ {
		for j := i + 1; j < len(txs); j++ {
			a, b := txs[i], txs[j]
			if a.UploadID == b.UploadID {
				continue
			}
			if !dedupe.WithinWindow(a.Date, b.Date) {
				continue
			}
			if !dedupe.AmountClose(a.SignedAmount, b.SignedAmount) {
				continue
			}
			if !dedupe.Qualifies(a.Merchant, b.Merchant) {
				continue
			}
			exists, err := s.Candidates.HasPair(ctx, a.ID, b.ID)
			if err != nil {
				return queued, fmt.Errorf("check pair: %w", err)
			}
			if exists {
				continue
			}

			// The newer row is the probe; the older one is what it may
			// duplicate.
			probe, match := a, b
			if probe.CreatedAt.Before(match.CreatedAt) {
				probe, match = match, probe
			}
			score := dedupe.Similarity(a.Merchant, b.Merchant)
			cand := repository.DuplicateCandidate{
				ID:            uuid.NewString(),
				ScopeID:       scopeID,
				TransactionID: probe.ID,
				MatchID:       match.ID,
				Similarity:    score,
				Band:          dedupe.BandFor(score),
				Status:        repository.CandidatePending,
			}
			if err := s.Candidates.Add(ctx, cand); err != nil {
				return queued, fmt.Errorf("queue candidate: %w", err)
			}
			queued++
			s.audit(ctx, "candidate.queued", cand.ID,
				fmt.Sprintf(`{"transaction_id":%q,"match_id":%q,"similarity":%.3f}`, probe.ID, match.ID, score))
		}
	}
	return queued, nil
}

// Decide records the reviewer's verdict on a pending candidate. Merge marks
// the probe row duplicate and keeps the match; dismiss leaves both live. The
// pair is remembered either way so it is never re-queued.
func (s *ReviewService) Decide(ctx context.Context, candidateID string, merge bool) error {
	cand, err := s.Candidates.Get(ctx, candidateID)
	if err != nil {
		return fmt.Errorf("load candidate: %w", err)
	}
	if cand == nil {
		return fmt.Errorf("candidate %s not found", candidateID)
	}
	if cand.Status != repository.CandidatePending {
		return fmt.Errorf("candidate %s already %s", candidateID, cand.Status)
	}

	if !merge {
		if err := s.Candidates.UpdateStatus(ctx, cand.ID, repository.CandidateDismissed); err != nil {
			return fmt.Errorf("dismiss candidate: %w", err)
		}
		s.audit(ctx, "candidate.dismissed", cand.ID, "{}")
		return nil
	}

	if err := s.Consolidated.SetStatus(ctx, cand.TransactionID, repository.StatusDuplicate); err != nil {
		return fmt.Errorf("mark duplicate: %w", err)
	}
	if err := s.Candidates.UpdateStatus(ctx, cand.ID, repository.CandidateMerged); err != nil {
		return fmt.Errorf("merge candidate: %w", err)
	}
	s.audit(ctx, "candidate.merged", cand.ID,
		fmt.Sprintf(`{"kept":%q,"superseded":%q}`, cand.MatchID, cand.TransactionID))
	return nil
}

func (s *ReviewService) audit(ctx context.Context, eventType, entityID, payload string) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Record(ctx, eventType, entityID, payload); err != nil {
		s.Logger.Error("audit record", "event", eventType, "error", err)
	}
}
