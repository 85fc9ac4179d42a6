package repository

import (
	"context"
	"database/sql"
	"time"
)

// RuleRepo stores keyword→category rules. Rules are immutable; deletion is
// not part of this surface.
type RuleRepo struct{ db *sql.DB }

func NewRuleRepo(db *sql.DB) *RuleRepo { return &RuleRepo{db: db} }

func (r *RuleRepo) Insert(ctx context.Context, rule Rule) error {
	// Sub-second precision so two rules created back to back keep a stable
	// evaluation order.
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO rules(id, scope_id, keyword, category_id, apply_to_history, created_at)
	VALUES(?, ?, ?, ?, ?, ?);
	`, rule.ID, rule.ScopeID, rule.Keyword, rule.CategoryID, boolToInt(rule.ApplyToHistory), time.Now().UTC())
	return err
}

// ListByScope returns rules in creation order. Evaluation order is list
// order; the last matching rule's category wins.
func (r *RuleRepo) ListByScope(ctx context.Context, scopeID string) ([]Rule, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, scope_id, keyword, category_id, apply_to_history, created_at
	FROM rules WHERE scope_id = ? ORDER BY created_at ASC, id ASC`, scopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Rule
	for rows.Next() {
		var rule Rule
		var hist int
		if err := rows.Scan(&rule.ID, &rule.ScopeID, &rule.Keyword, &rule.CategoryID, &hist, &rule.CreatedAt); err != nil {
			return nil, err
		}
		rule.ApplyToHistory = hist != 0
		out = append(out, rule)
	}
	return out, rows.Err()
}

// CategoryRepo stores the category taxonomy.
type CategoryRepo struct{ db *sql.DB }

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

func (r *CategoryRepo) Upsert(ctx context.Context, c Category) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO categories(id, name, sort_order) VALUES(?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET sort_order = excluded.sort_order;
	`, c.ID, c.Name, c.SortOrder)
	return err
}

func (r *CategoryRepo) List(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, name, sort_order FROM categories ORDER BY sort_order, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.SortOrder); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CategoryRepo) FindByName(ctx context.Context, name string) (*Category, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, name, sort_order FROM categories WHERE name = ? COLLATE NOCASE`, name)
	var c Category
	if err := row.Scan(&c.ID, &c.Name, &c.SortOrder); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
