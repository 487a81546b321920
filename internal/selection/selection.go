// Package selection narrows a migration to a subset of tables and
// sheets with glob-like include/exclude patterns.
package selection

import (
	"strings"

	"github.com/semshift/semshift/internal/qlik"
)

// Rules are the include/exclude patterns for one run. Empty include
// lists select everything; exclusions always win.
type Rules struct {
	IncludeTables []string `yaml:"include_tables,omitempty" json:"include_tables,omitempty"`
	ExcludeTables []string `yaml:"exclude_tables,omitempty" json:"exclude_tables,omitempty"`
	IncludeSheets []string `yaml:"include_sheets,omitempty" json:"include_sheets,omitempty"`
	ExcludeSheets []string `yaml:"exclude_sheets,omitempty" json:"exclude_sheets,omitempty"`
}

// Empty reports whether the rules select everything.
func (r Rules) Empty() bool {
	return len(r.IncludeTables) == 0 && len(r.ExcludeTables) == 0 &&
		len(r.IncludeSheets) == 0 && len(r.ExcludeSheets) == 0
}

// TableSelected reports whether a table name passes the rules.
func (r Rules) TableSelected(name string) bool {
	return selected(name, r.IncludeTables, r.ExcludeTables)
}

// SheetSelected reports whether a sheet name passes the rules.
func (r Rules) SheetSelected(name string) bool {
	return selected(name, r.IncludeSheets, r.ExcludeSheets)
}

func selected(name string, include, exclude []string) bool {
	for _, p := range exclude {
		if matchGlob(name, p) {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, p := range include {
		if matchGlob(name, p) {
			return true
		}
	}
	return false
}

// Apply returns a filtered copy of the app. Associations survive only
// when both endpoints stay; visuals follow their sheet.
func Apply(app *qlik.App, r Rules) *qlik.App {
	if app == nil || r.Empty() {
		return app
	}

	out := *app
	out.Tables = nil
	out.Associations = nil
	out.Sheets = nil
	out.Visualizations = nil
	out.Datasources = nil

	keep := make(map[string]bool)
	for _, t := range app.Tables {
		if r.TableSelected(t.Name) {
			out.Tables = append(out.Tables, t)
			keep[t.Name] = true
		}
	}
	for _, a := range app.Associations {
		if keep[a.FromTable] && keep[a.ToTable] {
			out.Associations = append(out.Associations, a)
		}
	}
	for _, ds := range app.Datasources {
		if ds.Table == "" || keep[ds.Table] {
			out.Datasources = append(out.Datasources, ds)
		}
	}

	sheetKeep := make(map[string]bool)
	for _, s := range app.Sheets {
		if r.SheetSelected(s.Name) {
			out.Sheets = append(out.Sheets, s)
			sheetKeep[s.ID] = true
		}
	}
	for _, v := range app.Visualizations {
		if v.SheetID == "" || sheetKeep[v.SheetID] {
			out.Visualizations = append(out.Visualizations, v)
		}
	}

	return &out
}

// OrphanedRef is an association from a selected table to one outside
// the selection.
type OrphanedRef struct {
	Table           string
	Field           string
	ReferencedTable string
}

// FindOrphans returns the associations a selection would sever.
func FindOrphans(app *qlik.App, r Rules) []OrphanedRef {
	if app == nil {
		return nil
	}
	keep := make(map[string]bool)
	for _, t := range app.Tables {
		if r.TableSelected(t.Name) {
			keep[t.Name] = true
		}
	}

	var orphans []OrphanedRef
	for _, a := range app.Associations {
		switch {
		case keep[a.FromTable] && !keep[a.ToTable]:
			orphans = append(orphans, OrphanedRef{
				Table:           a.FromTable,
				Field:           a.FromField,
				ReferencedTable: a.ToTable,
			})
		case keep[a.ToTable] && !keep[a.FromTable]:
			orphans = append(orphans, OrphanedRef{
				Table:           a.ToTable,
				Field:           a.ToField,
				ReferencedTable: a.FromTable,
			})
		}
	}
	return orphans
}

func matchGlob(name, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(name, pattern[:len(pattern)-1])
	}
	if strings.HasPrefix(pattern, "*") {
		return strings.HasSuffix(name, pattern[1:])
	}
	return name == pattern
}
