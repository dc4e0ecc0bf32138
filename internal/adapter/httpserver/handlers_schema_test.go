package httpserver_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/pgdeveloper/internal/usecase"
)

func TestSchema_Listings(t *testing.T) {
	f := newFixture(t)
	f.addActive(t, "local")

	rec := f.do(t, http.MethodGet, "/v1/schemas", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"schemas":["public"]}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/v1/schemas/public/tables?profile=local", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tables":[{"name":"user_stats","type":"VIEW"},{"name":"users","type":"TABLE"}]}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/v1/schemas/public/functions", nil)
	assert.JSONEq(t, `{"functions":["touch_updated_at"]}`, rec.Body.String())
	rec = f.do(t, http.MethodGet, "/v1/schemas/public/procedures", nil)
	assert.JSONEq(t, `{"procedures":[]}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/v1/schemas/public/tables/users/indexes", nil)
	assert.JSONEq(t, `{"indexes":[{"name":"users_pkey","unique":true}]}`, rec.Body.String())
	rec = f.do(t, http.MethodGet, "/v1/schemas/public/tables/users/columns", nil)
	assert.Contains(t, rec.Body.String(), `"name":"email"`)
}

func TestSchema_DescribeTable(t *testing.T) {
	f := newFixture(t)
	f.addActive(t, "local")
	rec := f.do(t, http.MethodGet, "/v1/schemas/public/tables/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[usecase.TableDetails](t, rec)
	assert.Equal(t, "users", d.Table)
	assert.Len(t, d.Columns, 2)
	require.Len(t, d.Indexes, 1)
	assert.True(t, d.Indexes[0].Unique)
}

func TestSchema_EditorDDL(t *testing.T) {
	f := newFixture(t)
	f.addActive(t, "local")

	rec := f.do(t, http.MethodPost, "/v1/schemas/public/tables/users/columns", map[string]any{"definition": "age integer"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodPost, "/v1/schemas/public/tables/users/columns", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodDelete, "/v1/schemas/public/tables/users/columns/age", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodDelete, "/v1/schemas/public/indexes/users_email_idx", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodPost, "/v1/routines", map[string]any{"source": "CREATE FUNCTION f() RETURNS int AS $$ SELECT 1 $$ LANGUAGE sql"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	require.Len(t, f.editor.calls, 4)
	assert.Equal(t, "add public.users age integer", f.editor.calls[0])
	assert.Equal(t, "drop column public.users.age", f.editor.calls[1])
	assert.Equal(t, "drop index public.users_email_idx", f.editor.calls[2])
	assert.True(t, strings.HasPrefix(f.editor.calls[3], "routine CREATE FUNCTION"))
}

func TestSchema_RoutineSource(t *testing.T) {
	f := newFixture(t)
	f.addActive(t, "local")
	rec := f.do(t, http.MethodGet, "/v1/schemas/public/routines/touch_updated_at", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "CREATE OR REPLACE FUNCTION")

	rec = f.do(t, http.MethodGet, "/v1/schemas/public/routines/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExplorer_IntrospectTreeSearch(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/introspect", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	f.addActive(t, "local")
	rec = f.do(t, http.MethodPost, "/v1/introspect", map[string]any{"profile": "local"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, `"connectionName":"local"`)
	assert.Contains(t, body, `"label":"Tables (2)"`)
	assert.Contains(t, body, `"label":"touch_updated_at"`)

	rec = f.do(t, http.MethodGet, "/v1/tree", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"label":"Database","type":"ROOT"`)

	rec = f.do(t, http.MethodGet, "/v1/search?q=USER", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[struct {
		Results []map[string]string `json:"results"`
	}](t, rec)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "user_stats", out.Results[0]["name"])
	assert.Equal(t, "table-editor", out.Results[0]["editor"])
	assert.Contains(t, rec.Body.String(), `"label":"public.users"`)

	rec = f.do(t, http.MethodGet, "/v1/search?q=zzz", nil)
	assert.Contains(t, rec.Body.String(), `"label":"No results"`)

	rec = f.do(t, http.MethodGet, "/v1/search?q="+strings.Repeat("a", 201), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOO_LONG")

	for _, q := range []string{"", "%20%20"} {
		rec = f.do(t, http.MethodGet, "/v1/search?q="+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		env := decode[envelope](t, rec)
		assert.Equal(t, "INVALID_ARGUMENT", env.Error.Code)
		assert.Contains(t, rec.Body.String(), `"code":"REQUIRED"`)
	}
}
