package repository

import (
	"context"
	"database/sql"

	"github.com/ledgerkeep/ledgerkeep/internal/layout"
)

// LayoutRepo stores resolved CSV layouts, shared read-only across uploads
// with a matching header hash. Layouts are never mutated once written; a new
// header shape produces a new record.
type LayoutRepo struct{ db *sql.DB }

func NewLayoutRepo(db *sql.DB) *LayoutRepo { return &LayoutRepo{db: db} }

func (r *LayoutRepo) Insert(ctx context.Context, scopeID string, lay layout.Layout) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO csv_layouts(
	 id, scope_id, source, header_hash, date_key, description_key, amount_key,
	 date_format, decimal_sep, thousand_sep, expense_sign, confidence, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(scope_id, source, header_hash) DO NOTHING;
	`, lay.ID, scopeID, string(lay.Source), lay.HeaderHash,
		lay.Columns.Date, lay.Columns.Description, lay.Columns.Amount,
		lay.Rules.DateFormat, lay.Rules.DecimalSep, lay.Rules.ThousandSep,
		string(lay.Rules.ExpenseSign), lay.Confidence)
	return err
}

// FindByHeaderHash returns the stored layout for a header shape, or nil when
// this shape has not been seen for the scope.
func (r *LayoutRepo) FindByHeaderHash(ctx context.Context, scopeID, headerHash string) (*layout.Layout, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, source, header_hash, date_key, description_key, amount_key,
	       date_format, decimal_sep, thousand_sep, expense_sign, confidence
	FROM csv_layouts WHERE scope_id = ? AND header_hash = ?`, scopeID, headerHash)
	return scanLayout(row)
}

func (r *LayoutRepo) Get(ctx context.Context, id string) (*layout.Layout, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, source, header_hash, date_key, description_key, amount_key,
	       date_format, decimal_sep, thousand_sep, expense_sign, confidence
	FROM csv_layouts WHERE id = ?`, id)
	return scanLayout(row)
}

func scanLayout(row *sql.Row) (*layout.Layout, error) {
	var lay layout.Layout
	var source, sign string
	if err := row.Scan(&lay.ID, &source, &lay.HeaderHash,
		&lay.Columns.Date, &lay.Columns.Description, &lay.Columns.Amount,
		&lay.Rules.DateFormat, &lay.Rules.DecimalSep, &lay.Rules.ThousandSep,
		&sign, &lay.Confidence); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	lay.Source = layout.Source(source)
	lay.Rules.ExpenseSign = layout.Sign(sign)
	return &lay, nil
}
