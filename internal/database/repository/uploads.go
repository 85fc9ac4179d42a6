package repository

import (
	"context"
	"database/sql"
)

// UploadRepo handles import invocations.
type UploadRepo struct{ db *sql.DB }

func NewUploadRepo(db *sql.DB) *UploadRepo { return &UploadRepo{db: db} }

func (r *UploadRepo) Create(ctx context.Context, u Upload) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO uploads(id, scope_id, filename, status, row_count, created_at)
	VALUES(?, ?, ?, ?, ?, CURRENT_TIMESTAMP);
	`, u.ID, u.ScopeID, u.Filename, u.Status, u.RowCount)
	return err
}

// Finalize moves an upload to its terminal status and records the row count.
func (r *UploadRepo) Finalize(ctx context.Context, id, status string, rowCount int) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE uploads SET status = ?, row_count = ?, finished_at = CURRENT_TIMESTAMP WHERE id = ?;
	`, status, rowCount, id)
	return err
}

func (r *UploadRepo) Get(ctx context.Context, id string) (*Upload, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, scope_id, filename, status, row_count, created_at, finished_at
	FROM uploads WHERE id = ?`, id)
	var u Upload
	var finished sql.NullTime
	if err := row.Scan(&u.ID, &u.ScopeID, &u.Filename, &u.Status, &u.RowCount, &u.CreatedAt, &finished); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if finished.Valid {
		u.FinishedAt = &finished.Time
	}
	return &u, nil
}
