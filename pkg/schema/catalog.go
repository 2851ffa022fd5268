// Package schema provides the read-only warehouse schema catalog used for
// prompt injection and table lookups.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Column is one column of a table. Nested struct fields are flattened
// into dotted paths; Parent names the enclosing struct path so callers
// can re-group fields, and is empty for top-level columns.
type Column struct {
	Name     string
	DataType string
	Parent   string
}

// Table is a fully-qualified table with its ordered columns.
type Table struct {
	Name    string
	Columns []Column
}

// Catalog maps fully-qualified table names to their columns. It is
// built once and never mutated, so concurrent readers need no locking.
type Catalog struct {
	tables map[string]*Table
	names  []string
}

// Entry is one raw (table, column, type) row fed to NewCatalog.
type Entry struct {
	Table    string
	Column   string
	DataType string
}

// NewCatalog builds a catalog from raw entries. Column order within a
// table follows entry order. Dotted column names are kept whole and
// linked to their parent path.
func NewCatalog(entries []Entry) *Catalog {
	c := &Catalog{tables: make(map[string]*Table)}

	for _, e := range entries {
		table := strings.TrimSpace(e.Table)
		column := strings.TrimSpace(e.Column)
		if table == "" || column == "" {
			continue
		}

		key := strings.ToLower(table)
		t, ok := c.tables[key]
		if !ok {
			t = &Table{Name: table}
			c.tables[key] = t
			c.names = append(c.names, table)
		}

		parent := ""
		if idx := strings.LastIndex(column, "."); idx > 0 {
			parent = column[:idx]
		}

		t.Columns = append(t.Columns, Column{
			Name:     column,
			DataType: e.DataType,
			Parent:   parent,
		})
	}

	sort.Strings(c.names)
	return c
}

// Tables returns the sorted fully-qualified table names in the catalog.
func (c *Catalog) Tables() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Lookup returns the table for a fully-qualified name, or false when
// the catalog does not know it. Matching is case-insensitive.
func (c *Catalog) Lookup(name string) (*Table, bool) {
	t, ok := c.tables[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Describe renders a compact textual schema block for the given tables,
// suitable for prompt injection. Unknown tables are skipped silently;
// the result is empty when nothing matched.
func (c *Catalog) Describe(tableNames []string) string {
	var b strings.Builder

	seen := make(map[string]bool)
	for _, name := range tableNames {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		t, ok := c.tables[key]
		if !ok {
			continue
		}

		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Table %s:\n", t.Name)
		for _, col := range t.Columns {
			fmt.Fprintf(&b, "  - %s (%s)\n", col.Name, col.DataType)
		}
	}

	return b.String()
}

// Len returns the number of tables in the catalog.
func (c *Catalog) Len() int {
	return len(c.tables)
}
