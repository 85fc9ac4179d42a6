package repository

import (
	"context"
	"database/sql"

	"github.com/ledgerkeep/ledgerkeep/internal/database"
)

// RawTransactionRepo is the append-only audit tier. Rows are only ever
// inserted; there is no update or delete path.
type RawTransactionRepo struct{ db *sql.DB }

func NewRawTransactionRepo(db *sql.DB) *RawTransactionRepo { return &RawTransactionRepo{db: db} }

// InsertBatch writes every raw row of an upload in one transaction. Any
// failure rolls the whole batch back: the pipeline treats that as fatal.
func (r *RawTransactionRepo) InsertBatch(ctx context.Context, rows []RawTransaction) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO raw_transactions(
		 id, upload_id, scope_id, row_index, raw_cells, date, merchant, amount,
		 dedupe_key, is_duplicate, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP);
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.ID, row.UploadID, row.ScopeID, row.RowIndex, row.RawCells,
				row.Date, row.Merchant, row.Amount.String(), row.DedupeKey,
				boolToInt(row.IsDuplicate)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *RawTransactionRepo) CountForUpload(ctx context.Context, uploadID string) (total, duplicates int, err error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT COUNT(*), COALESCE(SUM(is_duplicate), 0)
	FROM raw_transactions WHERE upload_id = ?`, uploadID)
	err = row.Scan(&total, &duplicates)
	return
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
