package explorer

import (
	"fmt"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

// TableProvider lists tables and views.
type TableProvider struct{}

func (TableProvider) Node(sc domain.SchemaCache) *Node {
	if len(sc.Tables) == 0 {
		return nil
	}
	folder := newNode(fmt.Sprintf("Tables (%d)", len(sc.Tables)), domain.TypeFolder, sc.Name, "")
	for _, t := range sc.Tables {
		folder.Children = append(folder.Children, newNode(t.Name, domain.TypeTable, sc.Name, t.Name))
	}
	return folder
}

func (TableProvider) IndexItems(sc domain.SchemaCache) []domain.SearchResult {
	out := make([]domain.SearchResult, 0, len(sc.Tables))
	for _, t := range sc.Tables {
		typ := t.Type
		if typ == "" {
			typ = domain.TypeTable
		}
		out = append(out, domain.SearchResult{Name: t.Name, Type: typ, Schema: sc.Name})
	}
	return out
}

func (TableProvider) Editor(item domain.SidebarItem) string {
	if item.Type == domain.TypeTable || item.Type == domain.TypeView {
		return EditorTable
	}
	return ""
}

// FunctionProvider lists functions.
type FunctionProvider struct{}

func (FunctionProvider) Node(sc domain.SchemaCache) *Node {
	return routineFolder("Functions", domain.TypeFunction, sc.Name, sc.Functions)
}

func (FunctionProvider) IndexItems(sc domain.SchemaCache) []domain.SearchResult {
	return routineItems(domain.TypeFunction, sc.Name, sc.Functions)
}

func (FunctionProvider) Editor(item domain.SidebarItem) string {
	if item.Type == domain.TypeFunction {
		return EditorRoutine
	}
	return ""
}

// ProcedureProvider lists procedures.
type ProcedureProvider struct{}

func (ProcedureProvider) Node(sc domain.SchemaCache) *Node {
	return routineFolder("Procedures", domain.TypeProcedure, sc.Name, sc.Procedures)
}

func (ProcedureProvider) IndexItems(sc domain.SchemaCache) []domain.SearchResult {
	return routineItems(domain.TypeProcedure, sc.Name, sc.Procedures)
}

func (ProcedureProvider) Editor(item domain.SidebarItem) string {
	if item.Type == domain.TypeProcedure {
		return EditorRoutine
	}
	return ""
}

func routineFolder(label, typ, schema string, names []string) *Node {
	if len(names) == 0 {
		return nil
	}
	folder := newNode(label, domain.TypeFolder, schema, "")
	for _, n := range names {
		folder.Children = append(folder.Children, newNode(n, typ, schema, n))
	}
	return folder
}

func routineItems(typ, schema string, names []string) []domain.SearchResult {
	out := make([]domain.SearchResult, 0, len(names))
	for _, n := range names {
		out = append(out, domain.SearchResult{Name: n, Type: typ, Schema: schema})
	}
	return out
}
