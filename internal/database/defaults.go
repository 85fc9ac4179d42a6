package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/ledgerkeep/ledgerkeep/internal/database/repository"
)

// SeedDefaults ensures a baseline category taxonomy exists so rules have
// targets on a fresh database. Idempotent; safe on every startup.
func SeedDefaults(ctx context.Context, db *sql.DB) error {
	catRepo := repository.NewCategoryRepo(db)
	existing, err := catRepo.List(ctx)
	if err == nil && len(existing) > 0 {
		return nil
	}
	defaults := []string{
		"Income",
		"Groceries",
		"Restaurants",
		"Transport",
		"Shopping",
		"Utilities",
		"Subscriptions",
		"Health",
		"Entertainment",
		"Transfers",
	}
	for idx, name := range defaults {
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte("category:"+name)).String()
		if err := catRepo.Upsert(ctx, repository.Category{ID: id, Name: name, SortOrder: idx}); err != nil {
			return err
		}
	}
	return nil
}
