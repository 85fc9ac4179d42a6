package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// AuditRepo persists one row per significant event. Callers treat Record as
// fire-and-forget: failures are logged, never propagated.
type AuditRepo struct{ db *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

func (r *AuditRepo) Record(ctx context.Context, eventType, entityID, payload string) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO audit_events(id, event_type, entity_id, payload, created_at)
	VALUES(?, ?, ?, ?, CURRENT_TIMESTAMP);
	`, uuid.NewString(), eventType, entityID, payload)
	return err
}

func (r *AuditRepo) ListByEntity(ctx context.Context, entityID string) ([]AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, event_type, entity_id, payload, created_at
	FROM audit_events WHERE entity_id = ? ORDER BY created_at ASC`, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditEvent
	for rows.Next() {
		var e AuditEvent
		if err := rows.Scan(&e.ID, &e.EventType, &e.EntityID, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
