package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/ledgerkeep/ledgerkeep/internal/database"
)

// CleanTransactionRepo is the deduplicated tier. The (scope_id, dedupe_key)
// uniqueness constraint is the safety net against concurrent double imports.
type CleanTransactionRepo struct{ db *sql.DB }

func NewCleanTransactionRepo(db *sql.DB) *CleanTransactionRepo {
	return &CleanTransactionRepo{db: db}
}

// InsertBatch writes the deduplicated rows of an upload in one transaction.
// Rows losing a uniqueness race are skipped, not errors; their ids are
// excluded from the returned slice so the consolidated tier only sees rows
// that actually landed.
func (r *CleanTransactionRepo) InsertBatch(ctx context.Context, rows []CleanTransaction) (inserted []CleanTransaction, skipped int, err error) {
	err = database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO clean_transactions(
		 id, upload_id, raw_id, scope_id, date, merchant, amount, dedupe_key, source, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(scope_id, dedupe_key) DO NOTHING;
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, row := range rows {
			res, err := stmt.ExecContext(ctx,
				row.ID, row.UploadID, row.RawID, row.ScopeID, row.Date,
				row.Merchant, row.Amount.String(), row.DedupeKey, string(row.Source))
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				skipped++
				continue
			}
			inserted = append(inserted, row)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return inserted, skipped, nil
}

// KeysForScope loads every persisted dedupe key for a scope. The exact-key
// dedupe stage checks incoming rows against this set.
func (r *CleanTransactionRepo) KeysForScope(ctx context.Context, scopeID string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT dedupe_key FROM clean_transactions WHERE scope_id = ?`, scopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	keys := map[string]bool{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys[k] = true
	}
	return keys, rows.Err()
}

func (r *CleanTransactionRepo) CountForScope(ctx context.Context, scopeID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM clean_transactions WHERE scope_id = ?`, scopeID).Scan(&n)
	return n, err
}

func scanDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
