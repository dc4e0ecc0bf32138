package usecase

import (
	"log/slog"
	"sort"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
	"github.com/fairyhunter13/pgdeveloper/internal/sqltext"
	"github.com/fairyhunter13/pgdeveloper/pkg/textx"
)

// QueryService runs console SQL and serves the editor helpers.
type QueryService struct {
	Exec  domain.Executor
	Meta  domain.Metadata
	Intro *IntrospectionService
}

// NewQueryService constructs a QueryService.
func NewQueryService(exec domain.Executor, meta domain.Metadata, intro *IntrospectionService) QueryService {
	return QueryService{Exec: exec, Meta: meta, Intro: intro}
}

// Execute runs selection when it is non-blank and text otherwise.
func (s QueryService) Execute(ctx domain.Context, profile, text, selection string) (domain.QueryResult, error) {
	stmt := sqltext.SelectStatement(text, selection)
	res, err := s.Exec.Execute(ctx, profile, stmt)
	if err != nil {
		slog.Info("statement rejected", slog.String("profile", profile), slog.String("sql", textx.FirstLine(stmt, 80)), slog.Any("error", err))
		return domain.QueryResult{}, err
	}
	return res, nil
}

// Complete suggests identifiers at caret using the cached structure of
// profile and live column metadata.
func (s QueryService) Complete(ctx domain.Context, profile, text string, caret int) (sqltext.Completion, error) {
	cache, err := s.Intro.Cached(ctx, profile)
	if err != nil {
		return sqltext.Completion{}, err
	}
	return sqltext.Complete(ctx, text, caret, snapshotCatalog{cache: cache, meta: s.Meta})
}

// Highlight classifies the tokens of text.
func (QueryService) Highlight(text string) []sqltext.Span { return sqltext.Highlight(text) }

// snapshotCatalog answers schema and table lookups from a cache snapshot and
// column lookups from the database.
type snapshotCatalog struct {
	cache domain.DatabaseCache
	meta  domain.Metadata
}

func (c snapshotCatalog) Schemas(domain.Context) ([]string, error) {
	out := make([]string, 0, len(c.cache.Schemas))
	for name := range c.cache.Schemas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (c snapshotCatalog) Tables(_ domain.Context, schema string) ([]domain.DbObject, error) {
	sc := c.cache.Schemas[schema]
	out := make([]domain.DbObject, 0, len(sc.Tables))
	for _, t := range sc.Tables {
		out = append(out, domain.DbObject{Name: t.Name, Type: t.Type})
	}
	return out, nil
}

func (c snapshotCatalog) Columns(ctx domain.Context, schema, table string) ([]domain.ColumnInfo, error) {
	return c.meta.Columns(ctx, c.cache.ConnectionName, schema, table)
}
