package sqltext

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

type fakeCatalog struct {
	schemas []string
	tables  map[string][]domain.DbObject
	columns map[string][]domain.ColumnInfo
	err     error
}

func (f fakeCatalog) Schemas(context.Context) ([]string, error) { return f.schemas, f.err }
func (f fakeCatalog) Tables(_ context.Context, s string) ([]domain.DbObject, error) {
	return f.tables[s], f.err
}
func (f fakeCatalog) Columns(_ context.Context, s, t string) ([]domain.ColumnInfo, error) {
	return f.columns[s+"."+t], f.err
}

func catalog() fakeCatalog {
	return fakeCatalog{
		schemas: []string{"public", "billing"},
		tables: map[string][]domain.DbObject{
			"public":  {{Name: "users", Type: domain.TypeTable}, {Name: "orders", Type: domain.TypeTable}},
			"billing": {{Name: "invoices", Type: domain.TypeTable}, {Name: "users", Type: domain.TypeView}},
		},
		columns: map[string][]domain.ColumnInfo{
			"public.users":     {{Name: "id"}, {Name: "name"}, {Name: "email"}},
			"billing.invoices": {{Name: "id"}, {Name: "total"}},
		},
	}
}

func TestSelectStatement(t *testing.T) {
	assert.Equal(t, "SELECT 2", SelectStatement("SELECT 1; SELECT 2", "SELECT 2"))
	assert.Equal(t, "SELECT 1", SelectStatement("SELECT 1", "  \n"))
	assert.Equal(t, "SELECT 1", SelectStatement("SELECT 1", ""))
}

func TestComplete_Global(t *testing.T) {
	text := "SELECT * FROM us"
	got, err := Complete(context.Background(), text, len([]rune(text)), catalog())
	require.NoError(t, err)
	assert.Equal(t, "us", got.Word)
	assert.Equal(t, 2, got.Replace)
	assert.Equal(t, []string{"users"}, got.Items, "duplicates across schemas collapse")
}

func TestComplete_GlobalEmptyWordListsEverythingSorted(t *testing.T) {
	got, err := Complete(context.Background(), "", 0, catalog())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"FROM", "GROUP BY", "JOIN", "LIMIT", "ORDER BY", "SELECT", "WHERE",
		"billing", "invoices", "orders", "public", "users",
	}, got.Items)
}

func TestComplete_CaseInsensitivePrefix(t *testing.T) {
	got, err := Complete(context.Background(), "sel", 3, catalog())
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT"}, got.Items)
}

func TestComplete_DotTableInPublic(t *testing.T) {
	text := "SELECT USERS."
	got, err := Complete(context.Background(), text, len(text), catalog())
	require.NoError(t, err)
	assert.Equal(t, "USERS", got.Parent)
	assert.Equal(t, []string{"email", "id", "name"}, got.Items)

	text = "SELECT users.na"
	got, err = Complete(context.Background(), text, len(text), catalog())
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, got.Items)
}

func TestComplete_DotSchema(t *testing.T) {
	text := "SELECT * FROM billing."
	got, err := Complete(context.Background(), text, len(text), catalog())
	require.NoError(t, err)
	assert.Equal(t, []string{"invoices", "users"}, got.Items)
}

func TestComplete_DotSchemaTable(t *testing.T) {
	text := "SELECT billing.invoices.t"
	got, err := Complete(context.Background(), text, len(text), catalog())
	require.NoError(t, err)
	assert.Equal(t, "billing.invoices", got.Parent)
	assert.Equal(t, []string{"total"}, got.Items)
}

func TestComplete_UnknownParent(t *testing.T) {
	text := "SELECT u."
	got, err := Complete(context.Background(), text, len(text), catalog())
	require.NoError(t, err)
	assert.NotNil(t, got.Items)
	assert.Empty(t, got.Items)
}

func TestComplete_CaretInMiddleAndClamped(t *testing.T) {
	text := "SELECT * FROM ord WHERE x"
	got, err := Complete(context.Background(), text, 17, catalog())
	require.NoError(t, err)
	assert.Equal(t, []string{"orders"}, got.Items)

	_, err = Complete(context.Background(), text, 999, catalog())
	require.NoError(t, err)
	_, err = Complete(context.Background(), text, -5, catalog())
	require.NoError(t, err)
}

func TestComplete_Limit(t *testing.T) {
	cat := catalog()
	var many []domain.DbObject
	for i := 0; i < 40; i++ {
		many = append(many, domain.DbObject{Name: fmt.Sprintf("t%02d", i), Type: domain.TypeTable})
	}
	cat.tables["public"] = many
	got, err := Complete(context.Background(), "t", 1, cat)
	require.NoError(t, err)
	assert.Len(t, got.Items, MaxSuggestions)
	assert.Equal(t, "t00", got.Items[0])
}

func TestComplete_CatalogError(t *testing.T) {
	cat := catalog()
	cat.err = errors.New("down")
	_, err := Complete(context.Background(), "x", 1, cat)
	require.Error(t, err)
}

func TestHighlight(t *testing.T) {
	text := "select count(*) from t -- note\nwhere a = 'it''s' and n = 42; /* multi\nline */"
	spans := Highlight(text)
	classes := map[string][]string{}
	for _, s := range spans {
		classes[s.Class] = append(classes[s.Class], string([]rune(text)[s.Start:s.End]))
	}
	assert.Equal(t, []string{"select", "from", "where", "and"}, classes[ClassKeyword])
	assert.Equal(t, []string{"count"}, classes[ClassFunction])
	assert.Equal(t, []string{"(", ")"}, classes[ClassParen])
	assert.Equal(t, []string{";"}, classes[ClassSemicolon])
	assert.Equal(t, []string{"-- note", "/* multi\nline */"}, classes[ClassComment])
	assert.Equal(t, []string{"42"}, classes[ClassNumber])
	assert.Equal(t, []string{"'it'", "'s'"}, classes[ClassString])
}

func TestHighlight_RuneOffsetsAndWordBoundaries(t *testing.T) {
	text := "'héllo' selected my_select SELECT"
	spans := Highlight(text)
	require.Len(t, spans, 2)
	assert.Equal(t, Span{Start: 0, End: 7, Class: ClassString}, spans[0])
	assert.Equal(t, Span{Start: 27, End: 33, Class: ClassKeyword}, spans[1])
}

func TestHighlight_KeywordsInsideStringsAndComments(t *testing.T) {
	spans := Highlight("'SELECT' -- FROM")
	require.Len(t, spans, 2)
	assert.Equal(t, ClassString, spans[0].Class)
	assert.Equal(t, ClassComment, spans[1].Class)
	assert.Empty(t, Highlight(""))
}
