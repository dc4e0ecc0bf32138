// Package sqlite implements the local object search index on an embedded
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	_ "modernc.org/sqlite"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

// MaxResults caps a single search.
const MaxResults = 50

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS search_index (
	connection TEXT NOT NULL,
	name       TEXT NOT NULL,
	type       TEXT NOT NULL,
	"schema"   TEXT NOT NULL,
	parent     TEXT NOT NULL DEFAULT ''
)`,
	`CREATE INDEX IF NOT EXISTS idx_search_index_name ON search_index(name)`,
}

// Index is a domain.SearchIndex backed by SQLite.
type Index struct{ db *sql.DB }

var _ domain.SearchIndex = (*Index)(nil)

// Open opens the index at dsn and creates the table. ":memory:" keeps the
// index for the life of the process.
func Open(ctx context.Context, dsn string) (*Index, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("op=index.open: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	for _, ddl := range schemaDDL {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("op=index.open: %w", err)
		}
	}
	return &Index{db: db}, nil
}

// Close releases the database.
func (x *Index) Close() error { return x.db.Close() }

// Ping reports whether the database is usable.
func (x *Index) Ping(ctx context.Context) error { return x.db.PingContext(ctx) }

// Clear removes every entry of connection.
func (x *Index) Clear(ctx context.Context, connection string) error {
	if _, err := x.db.ExecContext(ctx, `DELETE FROM search_index WHERE connection = ?`, connection); err != nil {
		return fmt.Errorf("op=index.clear: %w", err)
	}
	return nil
}

// Replace swaps every entry of connection for items in one transaction, so
// a search never sees a connection half indexed.
func (x *Index) Replace(ctx context.Context, connection string, items []domain.SearchResult) error {
	ctx, span := otel.Tracer("index.sqlite").Start(ctx, "index.Replace")
	defer span.End()
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("op=index.replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM search_index WHERE connection = ?`, connection); err != nil {
		return fmt.Errorf("op=index.replace: %w", err)
	}
	if len(items) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO search_index (connection, name, type, "schema", parent) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("op=index.replace: %w", err)
		}
		defer func() { _ = stmt.Close() }()
		for _, it := range items {
			if _, err := stmt.ExecContext(ctx, connection, it.Name, it.Type, it.Schema, it.Parent); err != nil {
				return fmt.Errorf("op=index.replace: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("op=index.replace: %w", err)
	}
	return nil
}

// Search finds objects whose name contains query, ignoring case. An empty
// connection searches every connection. A blank query matches nothing.
func (x *Index) Search(ctx context.Context, connection, query string) ([]domain.SearchResult, error) {
	ctx, span := otel.Tracer("index.sqlite").Start(ctx, "index.Search")
	defer span.End()
	out := []domain.SearchResult{}
	query = strings.TrimSpace(query)
	if query == "" {
		return out, nil
	}
	rows, err := x.db.QueryContext(ctx, `SELECT name, type, "schema", parent FROM search_index
WHERE (? = '' OR connection = ?) AND name LIKE ? ESCAPE '\'
ORDER BY name, "schema" LIMIT ?`, connection, connection, "%"+escapeLike(query)+"%", MaxResults)
	if err != nil {
		return nil, fmt.Errorf("op=index.search: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var r domain.SearchResult
		if err := rows.Scan(&r.Name, &r.Type, &r.Schema, &r.Parent); err != nil {
			return nil, fmt.Errorf("op=index.search: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=index.search: %w", err)
	}
	return out, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
