package usecase

import (
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

// TableDetails is what the table editor shows for one table.
type TableDetails struct {
	Schema  string              `json:"schema"`
	Table   string              `json:"table"`
	Columns []domain.ColumnInfo `json:"columns"`
	Indexes []domain.IndexInfo  `json:"indexes"`
}

// TableService backs the table and routine editors.
type TableService struct {
	Meta   domain.Metadata
	Editor TableEditor
}

// NewTableService constructs a TableService.
func NewTableService(meta domain.Metadata, editor TableEditor) TableService {
	return TableService{Meta: meta, Editor: editor}
}

// Describe reads columns and indexes of schema.table in parallel.
func (s TableService) Describe(ctx domain.Context, profile, schema, table string) (TableDetails, error) {
	if strings.TrimSpace(schema) == "" || strings.TrimSpace(table) == "" {
		return TableDetails{}, fmt.Errorf("op=tables.describe: %w: schema and table are required", domain.ErrInvalidArgument)
	}
	d := TableDetails{Schema: schema, Table: table}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cols, err := s.Meta.Columns(gctx, profile, schema, table)
		d.Columns = cols
		return err
	})
	g.Go(func() error {
		idx, err := s.Meta.Indexes(gctx, profile, schema, table)
		d.Indexes = idx
		return err
	})
	if err := g.Wait(); err != nil {
		return TableDetails{}, err
	}
	d.Columns = nonNil(d.Columns)
	d.Indexes = nonNil(d.Indexes)
	return d, nil
}

// AddColumn appends a column given as "name type [constraints]".
func (s TableService) AddColumn(ctx domain.Context, profile, schema, table, definition string) error {
	return s.Editor.AddColumn(ctx, profile, schema, table, definition)
}

// DropColumn removes a column.
func (s TableService) DropColumn(ctx domain.Context, profile, schema, table, column string) error {
	return s.Editor.DropColumn(ctx, profile, schema, table, column)
}

// DropIndex removes an index.
func (s TableService) DropIndex(ctx domain.Context, profile, schema, index string) error {
	return s.Editor.DropIndex(ctx, profile, schema, index)
}

// RoutineSource returns the CREATE statement of a function or procedure.
func (s TableService) RoutineSource(ctx domain.Context, profile, schema, name string) (string, error) {
	return s.Meta.RoutineSource(ctx, profile, schema, name)
}

// ApplyRoutine runs an edited CREATE OR REPLACE statement.
func (s TableService) ApplyRoutine(ctx domain.Context, profile, source string) error {
	return s.Editor.ApplyRoutine(ctx, profile, source)
}
