package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ScopeRepo handles owning scopes.
type ScopeRepo struct{ db *sql.DB }

func NewScopeRepo(db *sql.DB) *ScopeRepo { return &ScopeRepo{db: db} }

// DeterministicScopeID derives a stable scope id from its name, so repeated
// upserts for the same name always hit the same row.
func DeterministicScopeID(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("scope:"+key)).String()
}

// Upsert ensures the scope exists. Idempotent; the pipeline calls it once at
// the start of every invocation.
func (r *ScopeRepo) Upsert(ctx context.Context, name string) (Scope, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Scope{}, errors.New("scope name required")
	}
	s := Scope{ID: DeterministicScopeID(name), Name: name}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO scopes(id, name, created_at) VALUES(?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(id) DO NOTHING;
	`, s.ID, s.Name)
	if err != nil {
		return Scope{}, err
	}
	return s, nil
}
