package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
	"github.com/fairyhunter13/pgdeveloper/internal/explorer"
)

// nullCell is shown for SQL NULL.
const nullCell = "<null>"

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
}

// formatCell renders one result value for the terminal.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return nullStyle.Render(nullCell)
	case string:
		return x
	case time.Time:
		return x.Format("2006-01-02 15:04:05.999999Z07:00")
	case float32, float64, int16, int32, int64, bool:
		return fmt.Sprint(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

// renderResult prints a query result as a table, or its message for
// statements without a result set.
func renderResult(w io.Writer, res domain.QueryResult) {
	if !res.IsResultSet {
		fmt.Fprintln(w, successStyle.Render(res.Message))
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("(%s)", res.Duration.Round(time.Millisecond))))
		return
	}
	rows := make([][]string, len(res.Rows))
	for i, r := range res.Rows {
		cells := make([]string, len(r))
		for j, v := range r {
			cells[j] = formatCell(v)
		}
		rows[i] = cells
	}
	renderTable(w, res.Columns, rows)
	footer := fmt.Sprintf("(%d rows", len(res.Rows))
	if len(res.Rows) == 1 {
		footer = "(1 row"
	}
	if res.Truncated {
		footer += ", truncated"
	}
	footer += fmt.Sprintf(", %s)", res.Duration.Round(time.Millisecond))
	fmt.Fprintln(w, mutedStyle.Render(footer))
}

// renderTree prints the explorer tree with two spaces per level.
func renderTree(w io.Writer, n *explorer.Node) {
	var walk func(n *explorer.Node, depth int)
	walk = func(n *explorer.Node, depth int) {
		label := n.Label
		switch n.Type {
		case domain.TypeRoot, domain.TypeSchema:
			label = titleStyle.Render(label)
		case domain.TypeFolder, domain.TypeInfo:
			label = mutedStyle.Render(label)
		}
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), label)
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(n, 0)
}
