package service

import (
	"context"
	"database/sql"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkeep/ledgerkeep/internal/database"
	"github.com/ledgerkeep/ledgerkeep/internal/database/repository"
	"github.com/ledgerkeep/ledgerkeep/internal/llm"
)

// env wires the service stack against a real sqlite file in a temp dir.
type env struct {
	sql          *sql.DB
	scopes       *repository.ScopeRepo
	raw          *repository.RawTransactionRepo
	clean        *repository.CleanTransactionRepo
	consolidated *repository.ConsolidatedRepo
	uploads      *repository.UploadRepo
	layouts      *repository.LayoutRepo
	categories   *repository.CategoryRepo
	candidates   *repository.CandidateRepo
	importer     *ImportService
	rules        *RuleService
	review       *ReviewService
}

func newEnv(t *testing.T, provider llm.Provider) *env {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedDefaults(context.Background(), db))

	logger := log.New(io.Discard)
	audit := repository.NewAuditRepo(db)
	e := &env{
		sql:          db,
		scopes:       repository.NewScopeRepo(db),
		raw:          repository.NewRawTransactionRepo(db),
		clean:        repository.NewCleanTransactionRepo(db),
		consolidated: repository.NewConsolidatedRepo(db),
		uploads:      repository.NewUploadRepo(db),
		layouts:      repository.NewLayoutRepo(db),
		categories:   repository.NewCategoryRepo(db),
		candidates:   repository.NewCandidateRepo(db),
	}
	e.rules = &RuleService{
		Rules:        repository.NewRuleRepo(db),
		Categories:   e.categories,
		Consolidated: e.consolidated,
		Audit:        audit,
		Provider:     provider,
		Logger:       logger,
	}
	e.review = &ReviewService{
		Consolidated: e.consolidated,
		Candidates:   e.candidates,
		Audit:        audit,
		Logger:       logger,
	}
	e.importer = &ImportService{
		Scopes:       e.scopes,
		Uploads:      e.uploads,
		Layouts:      e.layouts,
		Raw:          e.raw,
		Clean:        e.clean,
		Consolidated: e.consolidated,
		Rules:        e.rules,
		Audit:        audit,
		Provider:     provider,
		Logger:       logger,
	}
	return e
}

func (e *env) importCSV(t *testing.T, scope, name, csv string) Summary {
	t.Helper()
	sum, err := e.importer.Import(context.Background(), ImportRequest{
		Scope:    scope,
		FileName: name,
		Reader:   strings.NewReader(csv),
	})
	require.NoError(t, err)
	return sum
}

func (e *env) scopeID(t *testing.T, name string) string {
	t.Helper()
	s, err := e.scopes.Upsert(context.Background(), name)
	require.NoError(t, err)
	return s.ID
}

func (e *env) categoryID(t *testing.T, name string) string {
	t.Helper()
	c, err := e.categories.FindByName(context.Background(), name)
	require.NoError(t, err)
	require.NotNil(t, c)
	return c.ID
}

// fakeProvider is a canned llm.Provider for exercising the AI fallback
// paths without a network.
type fakeProvider struct {
	mapResp  llm.MapResponse
	mapErr   error
	catResp  llm.CategorizeResponse
	catErr   error
	mapCalls int
	catCalls int
}

func (f *fakeProvider) MapColumns(_ context.Context, _ llm.MapRequest) (llm.MapResponse, error) {
	f.mapCalls++
	return f.mapResp, f.mapErr
}

func (f *fakeProvider) Categorize(_ context.Context, _ llm.CategorizeRequest) (llm.CategorizeResponse, error) {
	f.catCalls++
	return f.catResp, f.catErr
}
