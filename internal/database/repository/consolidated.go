package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/ledgerkeep/ledgerkeep/internal/database"
	"github.com/ledgerkeep/ledgerkeep/internal/layout"
)

// ConsolidatedRepo handles the operational tier read by the rest of the
// application.
type ConsolidatedRepo struct{ db *sql.DB }

func NewConsolidatedRepo(db *sql.DB) *ConsolidatedRepo { return &ConsolidatedRepo{db: db} }

// InsertBatch writes consolidated rows in one transaction. Failure here is
// fatal to the batch but never rolls back the raw/clean tiers.
func (r *ConsolidatedRepo) InsertBatch(ctx context.Context, rows []ConsolidatedTransaction) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO consolidated_transactions(
		 id, upload_id, clean_id, scope_id, merchant, amount, signed_amount,
		 date, status, category_id, source, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.ID, row.UploadID, row.CleanID, row.ScopeID, row.Merchant,
				row.Amount.String(), row.SignedAmount.String(), row.Date,
				row.Status, row.CategoryID, string(row.Source)); err != nil {
				return err
			}
		}
		return nil
	})
}

// ConsolidatedFilters narrows List results.
type ConsolidatedFilters struct {
	UploadID      string
	Status        string
	Uncategorized bool
	ExcludeStatus string
}

func (r *ConsolidatedRepo) List(ctx context.Context, scopeID string, f ConsolidatedFilters) ([]ConsolidatedTransaction, error) {
	where := []string{"scope_id = ?"}
	args := []interface{}{scopeID}
	if f.UploadID != "" {
		where = append(where, "upload_id = ?")
		args = append(args, f.UploadID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.ExcludeStatus != "" {
		where = append(where, "status != ?")
		args = append(args, f.ExcludeStatus)
	}
	if f.Uncategorized {
		where = append(where, "category_id IS NULL")
	}

	query := `
	SELECT id, upload_id, clean_id, scope_id, merchant, amount, signed_amount,
	       date, status, category_id, source, created_at, updated_at
	FROM consolidated_transactions
	WHERE ` + strings.Join(where, " AND ") + `
	ORDER BY date ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ConsolidatedTransaction
	for rows.Next() {
		t, err := scanConsolidated(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *ConsolidatedRepo) Get(ctx context.Context, id string) (*ConsolidatedTransaction, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, upload_id, clean_id, scope_id, merchant, amount, signed_amount,
	       date, status, category_id, source, created_at, updated_at
	FROM consolidated_transactions WHERE id = ?`, id)
	t, err := scanConsolidated(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// SetCategory assigns a category and moves the row to confirmed.
func (r *ConsolidatedRepo) SetCategory(ctx context.Context, id, categoryID string) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE consolidated_transactions
	SET category_id = ?, status = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`, categoryID, StatusConfirmed, id)
	return err
}

// SetStatus performs a soft status transition. Rows are never deleted.
func (r *ConsolidatedRepo) SetStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE consolidated_transactions
	SET status = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`, status, id)
	return err
}

func (r *ConsolidatedRepo) CountForScope(ctx context.Context, scopeID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM consolidated_transactions WHERE scope_id = ?`, scopeID).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConsolidated(row rowScanner) (ConsolidatedTransaction, error) {
	var t ConsolidatedTransaction
	var amount, signed, source string
	var category sql.NullString
	if err := row.Scan(&t.ID, &t.UploadID, &t.CleanID, &t.ScopeID, &t.Merchant,
		&amount, &signed, &t.Date, &t.Status, &category, &source,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		return ConsolidatedTransaction{}, err
	}
	var err error
	if t.Amount, err = scanDecimal(amount); err != nil {
		return ConsolidatedTransaction{}, err
	}
	if t.SignedAmount, err = scanDecimal(signed); err != nil {
		return ConsolidatedTransaction{}, err
	}
	if category.Valid {
		t.CategoryID = &category.String
	}
	t.Source = layout.Source(source)
	return t, nil
}
