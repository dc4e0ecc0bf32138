package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

const (
	qSchemas = `SELECT schema_name::text FROM information_schema.schemata
WHERE schema_name <> 'information_schema' AND schema_name NOT LIKE 'pg\_%'
ORDER BY schema_name`
	qTables = `SELECT table_name::text, table_type::text FROM information_schema.tables
WHERE table_schema = $1 AND table_type IN ('BASE TABLE', 'VIEW')
ORDER BY table_name`
	qRoutines = `SELECT DISTINCT p.proname::text FROM pg_proc p
JOIN pg_namespace n ON n.oid = p.pronamespace
WHERE n.nspname = $1 AND p.prokind = $2
ORDER BY 1`
	qColumns = `SELECT column_name::text, data_type::text,
COALESCE(character_maximum_length, numeric_precision, 0)::int,
is_nullable = 'YES'
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`
	qIndexes = `SELECT i.relname::text, ix.indisunique FROM pg_index ix
JOIN pg_class t ON t.oid = ix.indrelid
JOIN pg_class i ON i.oid = ix.indexrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
WHERE n.nspname = $1 AND t.relname = $2
ORDER BY i.relname`
	qRoutineSource = `SELECT pg_get_functiondef(p.oid) FROM pg_proc p
JOIN pg_namespace n ON n.oid = p.pronamespace
WHERE n.nspname = $1 AND p.proname = $2 AND p.prokind IN ('f', 'p')
ORDER BY p.oid LIMIT 1`
)

// Metadata reads catalog information through the Manager's pools.
type Metadata struct{ ds *Manager }

// NewMetadata constructs a Metadata reader.
func NewMetadata(ds *Manager) *Metadata { return &Metadata{ds: ds} }

var _ domain.Metadata = (*Metadata)(nil)

// Schemas lists user schemas, skipping information_schema and pg_*.
func (m *Metadata) Schemas(ctx context.Context, profile string) ([]string, error) {
	ctx, span := otel.Tracer("repo.metadata").Start(ctx, "metadata.Schemas")
	defer span.End()
	return m.strings(ctx, "metadata.schemas", profile, qSchemas)
}

// Tables lists the tables and views of schema.
func (m *Metadata) Tables(ctx context.Context, profile, schema string) ([]domain.DbObject, error) {
	ctx, span := otel.Tracer("repo.metadata").Start(ctx, "metadata.Tables")
	defer span.End()
	var out []domain.DbObject
	err := m.ds.Do(ctx, profile, func(ctx context.Context, pool PgxPool) error {
		rows, err := pool.Query(ctx, qTables, schema)
		if err != nil {
			return classify("metadata.tables", err)
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DbObject, error) {
			var name, kind string
			if err := row.Scan(&name, &kind); err != nil {
				return domain.DbObject{}, err
			}
			t := domain.TypeTable
			if kind == "VIEW" {
				t = domain.TypeView
			}
			return domain.DbObject{Name: name, Type: t}, nil
		})
		if err != nil {
			return classify("metadata.tables", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// Functions lists the function names of schema.
func (m *Metadata) Functions(ctx context.Context, profile, schema string) ([]string, error) {
	ctx, span := otel.Tracer("repo.metadata").Start(ctx, "metadata.Functions")
	defer span.End()
	return m.strings(ctx, "metadata.functions", profile, qRoutines, schema, "f")
}

// Procedures lists the procedure names of schema.
func (m *Metadata) Procedures(ctx context.Context, profile, schema string) ([]string, error) {
	ctx, span := otel.Tracer("repo.metadata").Start(ctx, "metadata.Procedures")
	defer span.End()
	return m.strings(ctx, "metadata.procedures", profile, qRoutines, schema, "p")
}

// Columns describes the columns of schema.table in ordinal order.
func (m *Metadata) Columns(ctx context.Context, profile, schema, table string) ([]domain.ColumnInfo, error) {
	ctx, span := otel.Tracer("repo.metadata").Start(ctx, "metadata.Columns")
	defer span.End()
	var out []domain.ColumnInfo
	err := m.ds.Do(ctx, profile, func(ctx context.Context, pool PgxPool) error {
		rows, err := pool.Query(ctx, qColumns, schema, table)
		if err != nil {
			return classify("metadata.columns", err)
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ColumnInfo, error) {
			var c domain.ColumnInfo
			var size int32
			if err := row.Scan(&c.Name, &c.Type, &size, &c.Nullable); err != nil {
				return c, err
			}
			c.Size = int(size)
			return c, nil
		})
		if err != nil {
			return classify("metadata.columns", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// Indexes lists the indexes defined on schema.table.
func (m *Metadata) Indexes(ctx context.Context, profile, schema, table string) ([]domain.IndexInfo, error) {
	ctx, span := otel.Tracer("repo.metadata").Start(ctx, "metadata.Indexes")
	defer span.End()
	var out []domain.IndexInfo
	err := m.ds.Do(ctx, profile, func(ctx context.Context, pool PgxPool) error {
		rows, err := pool.Query(ctx, qIndexes, schema, table)
		if err != nil {
			return classify("metadata.indexes", err)
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.IndexInfo, error) {
			var ix domain.IndexInfo
			err := row.Scan(&ix.Name, &ix.Unique)
			return ix, err
		})
		if err != nil {
			return classify("metadata.indexes", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// RoutineSource returns the CREATE statement of the first routine named name.
func (m *Metadata) RoutineSource(ctx context.Context, profile, schema, name string) (string, error) {
	ctx, span := otel.Tracer("repo.metadata").Start(ctx, "metadata.RoutineSource")
	defer span.End()
	var src string
	err := m.ds.Do(ctx, profile, func(ctx context.Context, pool PgxPool) error {
		if err := pool.QueryRow(ctx, qRoutineSource, schema, name).Scan(&src); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("op=metadata.routine_source: %w: %s.%s", domain.ErrNotFound, schema, name)
			}
			return classify("metadata.routine_source", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return src, nil
}

func (m *Metadata) strings(ctx context.Context, op, profile, sql string, args ...any) ([]string, error) {
	var out []string
	err := m.ds.Do(ctx, profile, func(ctx context.Context, pool PgxPool) error {
		rows, err := pool.Query(ctx, sql, args...)
		if err != nil {
			return classify(op, err)
		}
		out, err = pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return classify(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
