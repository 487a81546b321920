// Package infer recovers the semantic model of a source app: tables and
// their fields, cross-table associations, and typed relationships. All of
// it is heuristic; every guess degrades to a default plus a warning rather
// than an error, so a migration always completes.
package infer

import "sort"

// Tables maps table names to field-name sets, the working form of the
// extracted schema. Field sets are mutable: the model assembler adds
// hierarchy level columns after extraction, and nothing else writes to
// them once built.
type Tables map[string]map[string]bool

// AddTable ensures a table entry exists, with or without fields.
func (t Tables) AddTable(name string) {
	if t[name] == nil {
		t[name] = make(map[string]bool)
	}
}

// Add records a field under a table, creating the table entry if needed.
func (t Tables) Add(table, field string) {
	t.AddTable(table)
	if field != "" {
		t[table][field] = true
	}
}

// Names returns the table names in sorted order.
func (t Tables) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fields returns the sorted field names of one table.
func (t Tables) Fields(name string) []string {
	fields := make([]string, 0, len(t[name]))
	for f := range t[name] {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// ColumnTables maps every field name to a table that carries it. Tables
// are visited in sorted order, so a field shared by several tables lands
// on the last one in name order, deterministically.
func (t Tables) ColumnTables() map[string]string {
	owner := make(map[string]string)
	for _, name := range t.Names() {
		for _, f := range t.Fields(name) {
			owner[f] = name
		}
	}
	return owner
}
