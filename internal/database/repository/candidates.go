package repository

import (
	"context"
	"database/sql"

	"github.com/ledgerkeep/ledgerkeep/internal/dedupe"
)

// CandidateRepo stores fuzzy near-duplicates awaiting a user decision.
type CandidateRepo struct{ db *sql.DB }

func NewCandidateRepo(db *sql.DB) *CandidateRepo { return &CandidateRepo{db: db} }

// Add queues a candidate pair. A pair already queued (in any status) is left
// untouched so review decisions are not resurrected by the next scan.
func (r *CandidateRepo) Add(ctx context.Context, c DuplicateCandidate) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO duplicate_candidates(
	 id, scope_id, transaction_id, match_id, similarity, band, status, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(transaction_id, match_id) DO NOTHING;
	`, c.ID, c.ScopeID, c.TransactionID, c.MatchID, c.Similarity, string(c.Band), c.Status)
	return err
}

func (r *CandidateRepo) ListPending(ctx context.Context, scopeID string) ([]DuplicateCandidate, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, scope_id, transaction_id, match_id, similarity, band, status, created_at
	FROM duplicate_candidates
	WHERE scope_id = ? AND status = ?
	ORDER BY similarity DESC, created_at ASC`, scopeID, CandidatePending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DuplicateCandidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CandidateRepo) Get(ctx context.Context, id string) (*DuplicateCandidate, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, scope_id, transaction_id, match_id, similarity, band, status, created_at
	FROM duplicate_candidates WHERE id = ?`, id)
	c, err := scanCandidate(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// HasPair reports whether the unordered pair is already queued.
func (r *CandidateRepo) HasPair(ctx context.Context, aID, bID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM duplicate_candidates
	WHERE (transaction_id = ? AND match_id = ?) OR (transaction_id = ? AND match_id = ?)`,
		aID, bID, bID, aID).Scan(&n)
	return n > 0, err
}

func (r *CandidateRepo) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE duplicate_candidates SET status = ? WHERE id = ?`, status, id)
	return err
}

func scanCandidate(row rowScanner) (DuplicateCandidate, error) {
	var c DuplicateCandidate
	var band string
	if err := row.Scan(&c.ID, &c.ScopeID, &c.TransactionID, &c.MatchID,
		&c.Similarity, &band, &c.Status, &c.CreatedAt); err != nil {
		return DuplicateCandidate{}, err
	}
	c.Band = dedupe.Band(band)
	return c, nil
}
