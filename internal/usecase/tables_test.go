package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
	"github.com/fairyhunter13/pgdeveloper/internal/usecase"
)

type recordingEditor struct {
	calls []string
	err   error
}

func (e *recordingEditor) AddColumn(_ context.Context, profile, schema, table, def string) error {
	e.calls = append(e.calls, "add:"+profile+":"+schema+"."+table+":"+def)
	return e.err
}
func (e *recordingEditor) DropColumn(_ context.Context, profile, schema, table, column string) error {
	e.calls = append(e.calls, "dropcol:"+schema+"."+table+"."+column)
	return e.err
}
func (e *recordingEditor) DropIndex(_ context.Context, profile, schema, index string) error {
	e.calls = append(e.calls, "dropidx:"+schema+"."+index)
	return e.err
}
func (e *recordingEditor) ApplyRoutine(_ context.Context, profile, source string) error {
	e.calls = append(e.calls, "routine:"+source)
	return e.err
}

func TestTables_Describe(t *testing.T) {
	svc := usecase.NewTableService(sampleMeta(), &recordingEditor{})
	d, err := svc.Describe(context.Background(), "", "public", "users")
	require.NoError(t, err)
	assert.Len(t, d.Columns, 2)
	assert.Equal(t, []domain.IndexInfo{{Name: "users_pkey", Unique: true}}, d.Indexes)

	d, err = svc.Describe(context.Background(), "", "public", "nothing")
	require.NoError(t, err)
	assert.NotNil(t, d.Columns)
	assert.NotNil(t, d.Indexes)

	_, err = svc.Describe(context.Background(), "", "", "users")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestTables_DescribeError(t *testing.T) {
	meta := sampleMeta()
	meta.failOn = "indexes"
	_, err := usecase.NewTableService(meta, &recordingEditor{}).Describe(context.Background(), "", "public", "users")
	assert.True(t, errors.Is(err, errCatalog))
}

func TestTables_EditorPassThrough(t *testing.T) {
	ed := &recordingEditor{}
	svc := usecase.NewTableService(sampleMeta(), ed)
	ctx := context.Background()
	require.NoError(t, svc.AddColumn(ctx, "p", "public", "users", "age INT"))
	require.NoError(t, svc.DropColumn(ctx, "p", "public", "users", "age"))
	require.NoError(t, svc.DropIndex(ctx, "p", "public", "users_email_idx"))
	require.NoError(t, svc.ApplyRoutine(ctx, "p", "CREATE OR REPLACE FUNCTION f() ..."))
	assert.Equal(t, []string{
		"add:p:public.users:age INT",
		"dropcol:public.users.age",
		"dropidx:public.users_email_idx",
		"routine:CREATE OR REPLACE FUNCTION f() ...",
	}, ed.calls)

	src, err := svc.RoutineSource(ctx, "", "public", "touch_updated_at")
	require.NoError(t, err)
	assert.Contains(t, src, "CREATE FUNCTION")
	_, err = svc.RoutineSource(ctx, "", "public", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
