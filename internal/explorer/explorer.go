// Package explorer builds the database object tree shown by front ends from
// an introspection snapshot, and the flat tree of search results.
package explorer

import (
	"sort"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

// Editor names an item may open in.
const (
	EditorTable   = "table-editor"
	EditorRoutine = "routine-editor"
)

// Node is one entry of the explorer tree.
type Node struct {
	domain.SidebarItem
	Children []*Node `json:"children,omitempty"`
}

func newNode(label, typ, schema, name string) *Node {
	return &Node{SidebarItem: domain.SidebarItem{Label: label, Type: typ, Schema: schema, Name: name}}
}

// Provider contributes one kind of object to each schema node.
type Provider interface {
	// Node returns the folder for sc, or nil when it holds nothing.
	Node(sc domain.SchemaCache) *Node
	// IndexItems returns the search index rows for sc.
	IndexItems(sc domain.SchemaCache) []domain.SearchResult
	// Editor returns the editor that opens item, or "" when the provider does
	// not handle it.
	Editor(item domain.SidebarItem) string
}

// DefaultProviders returns the built-in providers in tree order.
func DefaultProviders() []Provider {
	return []Provider{TableProvider{}, FunctionProvider{}, ProcedureProvider{}}
}

// Explorer assembles trees from a fixed provider list.
type Explorer struct {
	providers []Provider
}

// New returns an Explorer over providers, or the defaults when none are given.
func New(providers ...Provider) *Explorer {
	if len(providers) == 0 {
		providers = DefaultProviders()
	}
	return &Explorer{providers: providers}
}

// BuildTree returns the Database root with one node per schema, sorted by
// name, each holding the non-empty provider folders.
func (e *Explorer) BuildTree(cache domain.DatabaseCache) *Node {
	root := newNode("Database", domain.TypeRoot, "", "")
	names := make([]string, 0, len(cache.Schemas))
	for name := range cache.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sc := cache.Schemas[name]
		if sc.Name == "" {
			sc.Name = name
		}
		schemaNode := newNode(name, domain.TypeSchema, name, "")
		for _, p := range e.providers {
			if n := p.Node(sc); n != nil {
				schemaNode.Children = append(schemaNode.Children, n)
			}
		}
		root.Children = append(root.Children, schemaNode)
	}
	return root
}

// IndexItems collects the search index rows of every schema in cache.
func (e *Explorer) IndexItems(cache domain.DatabaseCache) []domain.SearchResult {
	out := []domain.SearchResult{}
	for name, sc := range cache.Schemas {
		if sc.Name == "" {
			sc.Name = name
		}
		for _, p := range e.providers {
			out = append(out, p.IndexItems(sc)...)
		}
	}
	return out
}

// EditorFor returns the editor the first matching provider names for item.
func (e *Explorer) EditorFor(item domain.SidebarItem) string {
	for _, p := range e.providers {
		if ed := p.Editor(item); ed != "" {
			return ed
		}
	}
	return ""
}

// SearchTree renders search results as a Results root labelled schema.name,
// or a single "No results" node.
func SearchTree(results []domain.SearchResult) *Node {
	if len(results) == 0 {
		return newNode("No results", domain.TypeInfo, "", "")
	}
	root := newNode("Results", domain.TypeRoot, "", "")
	for _, r := range results {
		root.Children = append(root.Children, newNode(r.Schema+"."+r.Name, r.Type, r.Schema, r.Name))
	}
	return root
}
