package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

// TableEditor issues the DDL behind the table and routine editors.
type TableEditor struct{ ds *Manager }

// NewTableEditor constructs a TableEditor.
func NewTableEditor(ds *Manager) *TableEditor { return &TableEditor{ds: ds} }

// AddColumn appends a column. definition is raw SQL such as "age INT".
func (t *TableEditor) AddColumn(ctx context.Context, profile, schema, table, definition string) error {
	if strings.TrimSpace(definition) == "" {
		return fmt.Errorf("op=table.add_column: %w: empty column definition", domain.ErrInvalidArgument)
	}
	if err := requireNames(schema, table); err != nil {
		return fmt.Errorf("op=table.add_column: %w", err)
	}
	sql := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", pgx.Identifier{schema, table}.Sanitize(), strings.TrimSpace(definition))
	return t.exec(ctx, "table.add_column", profile, sql)
}

// DropColumn removes column from schema.table.
func (t *TableEditor) DropColumn(ctx context.Context, profile, schema, table, column string) error {
	if err := requireNames(schema, table, column); err != nil {
		return fmt.Errorf("op=table.drop_column: %w", err)
	}
	sql := fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", pgx.Identifier{schema, table}.Sanitize(), pgx.Identifier{column}.Sanitize())
	return t.exec(ctx, "table.drop_column", profile, sql)
}

// DropIndex removes schema.index.
func (t *TableEditor) DropIndex(ctx context.Context, profile, schema, index string) error {
	if err := requireNames(schema, index); err != nil {
		return fmt.Errorf("op=table.drop_index: %w", err)
	}
	return t.exec(ctx, "table.drop_index", profile, "DROP INDEX "+pgx.Identifier{schema, index}.Sanitize())
}

// ApplyRoutine runs an edited CREATE OR REPLACE FUNCTION/PROCEDURE text.
func (t *TableEditor) ApplyRoutine(ctx context.Context, profile, source string) error {
	if strings.TrimSpace(source) == "" {
		return fmt.Errorf("op=routine.apply: %w: empty routine source", domain.ErrInvalidArgument)
	}
	return t.exec(ctx, "routine.apply", profile, source)
}

func (t *TableEditor) exec(ctx context.Context, op, profile, sql string) error {
	ctx, span := otel.Tracer("repo.tableeditor").Start(ctx, op)
	defer span.End()
	return t.ds.Do(ctx, profile, func(ctx context.Context, pool PgxPool) error {
		if _, err := pool.Exec(ctx, sql, pgx.QueryExecModeSimpleProtocol); err != nil {
			return classify(op, err)
		}
		return nil
	})
}

func requireNames(names ...string) error {
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return fmt.Errorf("%w: missing identifier", domain.ErrInvalidArgument)
		}
	}
	return nil
}
