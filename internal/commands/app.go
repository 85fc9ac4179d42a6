package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/ledgerkeep/ledgerkeep/internal/config"
	"github.com/ledgerkeep/ledgerkeep/internal/database"
	"github.com/ledgerkeep/ledgerkeep/internal/database/repository"
	"github.com/ledgerkeep/ledgerkeep/internal/llm"
	"github.com/ledgerkeep/ledgerkeep/internal/service"
)

// app holds the wired service stack for one CLI invocation.
type app struct {
	cfg      config.Config
	db       *sql.DB
	scopes   *repository.ScopeRepo
	layouts  *repository.LayoutRepo
	uploads  *repository.UploadRepo
	rules    *repository.RuleRepo
	cats     *repository.CategoryRepo
	cands    *repository.CandidateRepo
	cons     *repository.ConsolidatedRepo
	importer *service.ImportService
	ruleSvc  *service.RuleService
	review   *service.ReviewService
	logger   *log.Logger
}

func newApp(ctx context.Context, logger *log.Logger) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := database.SeedDefaults(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed defaults: %w", err)
	}

	var provider llm.Provider
	if key := cfg.LLM.ResolveAPIKey(); key != "" {
		gemini, err := llm.NewGeminiProvider(ctx, key, cfg.LLM.Model)
		if err != nil {
			logger.Warn("ai collaborator unavailable", "error", err)
		} else {
			provider = gemini
		}
	}

	audit := repository.NewAuditRepo(db)
	a := &app{
		cfg:     cfg,
		db:      db,
		scopes:  repository.NewScopeRepo(db),
		layouts: repository.NewLayoutRepo(db),
		uploads: repository.NewUploadRepo(db),
		rules:   repository.NewRuleRepo(db),
		cats:    repository.NewCategoryRepo(db),
		cands:   repository.NewCandidateRepo(db),
		cons:    repository.NewConsolidatedRepo(db),
		logger:  logger,
	}
	a.ruleSvc = &service.RuleService{
		Rules:        a.rules,
		Categories:   a.cats,
		Consolidated: a.cons,
		Audit:        audit,
		Provider:     provider,
		Logger:       logger,
	}
	a.review = &service.ReviewService{
		Consolidated: a.cons,
		Candidates:   a.cands,
		Audit:        audit,
		Logger:       logger,
	}
	a.importer = &service.ImportService{
		Scopes:       a.scopes,
		Uploads:      a.uploads,
		Layouts:      a.layouts,
		Raw:          repository.NewRawTransactionRepo(db),
		Clean:        repository.NewCleanTransactionRepo(db),
		Consolidated: a.cons,
		Rules:        a.ruleSvc,
		Audit:        audit,
		Provider:     provider,
		Logger:       logger,
	}
	return a, nil
}

func (a *app) close() {
	_ = a.db.Close()
}

// scopeOrDefault resolves the --scope flag against the configured default.
func (a *app) scopeOrDefault(scope string) string {
	if scope != "" {
		return scope
	}
	return a.cfg.Import.DefaultScope
}
