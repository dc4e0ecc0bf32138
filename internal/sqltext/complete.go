package sqltext

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

// MaxSuggestions caps one completion list.
const MaxSuggestions = 20

// DefaultSchema is where bare table names are resolved.
const DefaultSchema = "public"

var completionKeywords = []string{"SELECT", "FROM", "WHERE", "JOIN", "LIMIT", "ORDER BY", "GROUP BY"}

// Catalog is what completion needs to know about the database.
type Catalog interface {
	Schemas(ctx context.Context) ([]string, error)
	Tables(ctx context.Context, schema string) ([]domain.DbObject, error)
	Columns(ctx context.Context, schema, table string) ([]domain.ColumnInfo, error)
}

// Completion is the result of Complete. Replace is the number of runes
// before the caret that a chosen item replaces.
type Completion struct {
	Word    string   `json:"word"`
	Parent  string   `json:"parent,omitempty"`
	Replace int      `json:"replace"`
	Items   []string `json:"items"`
}

// Complete suggests identifiers for the word ending at caret, a rune offset
// into text. After "name." it offers the columns of table name in public, or
// the tables of schema name, and the columns of schema.table. Elsewhere it
// offers keywords, schemas and every table.
func Complete(ctx context.Context, text string, caret int, cat Catalog) (Completion, error) {
	runes := []rune(text)
	if caret < 0 {
		caret = 0
	}
	if caret > len(runes) {
		caret = len(runes)
	}
	word := wordBefore(runes, caret)
	res := Completion{Word: word, Replace: len([]rune(word)), Items: []string{}}

	var candidates []string
	var err error
	wordStart := caret - res.Replace
	if wordStart > 0 && runes[wordStart-1] == '.' {
		res.Parent = tokenBefore(runes, wordStart-1)
		candidates, err = memberCandidates(ctx, cat, res.Parent)
	} else {
		candidates, err = globalCandidates(ctx, cat)
	}
	if err != nil {
		return res, err
	}
	res.Items = filter(candidates, word)
	return res, nil
}

func memberCandidates(ctx context.Context, cat Catalog, parent string) ([]string, error) {
	if parent == "" {
		return nil, nil
	}
	if schema, table, ok := strings.Cut(parent, "."); ok {
		return columnNames(ctx, cat, schema, table)
	}
	tables, err := cat.Tables(ctx, DefaultSchema)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		if strings.EqualFold(t.Name, parent) {
			return columnNames(ctx, cat, DefaultSchema, t.Name)
		}
	}
	schemas, err := cat.Schemas(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range schemas {
		if s == parent {
			tables, err := cat.Tables(ctx, s)
			if err != nil {
				return nil, err
			}
			out := make([]string, 0, len(tables))
			for _, t := range tables {
				out = append(out, t.Name)
			}
			return out, nil
		}
	}
	return nil, nil
}

func columnNames(ctx context.Context, cat Catalog, schema, table string) ([]string, error) {
	cols, err := cat.Columns(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, c.Name)
	}
	return out, nil
}

func globalCandidates(ctx context.Context, cat Catalog) ([]string, error) {
	out := append([]string(nil), completionKeywords...)
	schemas, err := cat.Schemas(ctx)
	if err != nil {
		return nil, err
	}
	out = append(out, schemas...)
	for _, s := range schemas {
		tables, err := cat.Tables(ctx, s)
		if err != nil {
			return nil, err
		}
		for _, t := range tables {
			out = append(out, t.Name)
		}
	}
	return out, nil
}

// filter keeps case-insensitive prefix matches of word, deduplicated and
// sorted, capped at MaxSuggestions.
func filter(candidates []string, word string) []string {
	prefix := strings.ToLower(word)
	seen := make(map[string]struct{}, len(candidates))
	out := []string{}
	for _, c := range candidates {
		if !strings.HasPrefix(strings.ToLower(c), prefix) {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// wordBefore returns the identifier characters immediately before caret.
func wordBefore(runes []rune, caret int) string {
	i := caret
	for i > 0 && isIdentRune(runes[i-1]) {
		i--
	}
	return string(runes[i:caret])
}

// tokenBefore returns the dotted identifier chain ending at end.
func tokenBefore(runes []rune, end int) string {
	i := end
	for i > 0 && (isIdentRune(runes[i-1]) || runes[i-1] == '.') {
		i--
	}
	return strings.Trim(string(runes[i:end]), ".")
}
