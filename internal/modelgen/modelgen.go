// Package modelgen assembles the target semantic model from an extracted
// schema, its associations, and the app's master items. Assembly is pure
// derivation: malformed pieces degrade to warnings, never errors.
package modelgen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/semshift/semshift/internal/dax"
	"github.com/semshift/semshift/internal/infer"
	"github.com/semshift/semshift/internal/pbi"
	"github.com/semshift/semshift/internal/qlik"
	"github.com/semshift/semshift/internal/typemap"
)

// Options configure assembly. The zero value is usable.
type Options struct {
	// Name is the model name. Defaults to "Model".
	Name string
	// Culture is the model culture. Defaults to "en-US".
	Culture string
	// TypeMap carries field pins and source-type overrides. Nil means
	// built-in inference.
	TypeMap *typemap.TypeMap
	// FieldTypes maps field names to their declared source types, as
	// returned by qlik.App.FieldTypes.
	FieldTypes map[string]string
}

// hierarchyLevels are the drill levels generated for date columns.
var hierarchyLevels = []string{"Year", "Quarter", "Month", "Day"}

// Assemble builds the target model: sorted tables and typed columns,
// relationships converted from the associations, measures placed on the
// table owning their first referenced column, calculated dimensions
// placed the same way, and a four-level hierarchy for every date or time
// column. Hierarchy level columns are injected into tables, the one
// point where the extracted schema is mutated.
func Assemble(tables infer.Tables, assocs []qlik.Association, measures []qlik.Measure, dims []qlik.Dimension, opts Options) (*pbi.Model, []string) {
	model := &pbi.Model{
		Name:          opts.Name,
		Culture:       opts.Culture,
		Tables:        []pbi.Table{},
		Relationships: []pbi.Relationship{},
	}
	if model.Name == "" {
		model.Name = "Model"
	}
	if model.Culture == "" {
		model.Culture = "en-US"
	}
	if len(tables) == 0 {
		return model, []string{"no tables to assemble: empty model"}
	}

	var warnings []string

	hierarchies := buildHierarchies(tables)

	rels, relWarnings := infer.ConvertRelationships(assocs)
	warnings = append(warnings, relWarnings...)
	model.Relationships = rels

	colTables := tables.ColumnTables()

	measureRefs := typemap.MeasureRefs(measures)

	measuresByTable, mWarnings := placeMeasures(measures, tables, colTables, rels)
	warnings = append(warnings, mWarnings...)

	columnsByTable, dWarnings := placeDimensions(dims, tables, colTables, rels)
	warnings = append(warnings, dWarnings...)

	for _, name := range tables.Names() {
		tbl := pbi.Table{Name: name}
		for _, f := range tables.Fields(name) {
			dataType := opts.TypeMap.ColumnType(f, opts.FieldTypes[f], measureRefs)
			col := pbi.Column{
				Name:         f,
				DataType:     dataType,
				SourceColumn: f,
			}
			if format := opts.TypeMap.FormatFor(f, dataType); format != "" {
				col.FormatString = format
			}
			tbl.Columns = append(tbl.Columns, col)
		}
		tbl.Columns = append(tbl.Columns, columnsByTable[name]...)
		tbl.Measures = measuresByTable[name]
		tbl.Hierarchies = hierarchies[name]
		model.Tables = append(model.Tables, tbl)
	}

	keys, keyWarnings := infer.FlagSyntheticKeys(tables)
	model.SyntheticKeys = keys
	warnings = append(warnings, keyWarnings...)

	return model, warnings
}

// buildHierarchies creates a hierarchy for every column whose name
// mentions a date or time, injecting the four level columns into the
// owning table.
func buildHierarchies(tables infer.Tables) map[string][]pbi.Hierarchy {
	out := make(map[string][]pbi.Hierarchy)
	for _, name := range tables.Names() {
		for _, field := range tables.Fields(name) {
			if !isDateField(field) {
				continue
			}
			h := pbi.Hierarchy{Name: field + " Hierarchy"}
			for _, level := range hierarchyLevels {
				column := field + " " + level
				h.Levels = append(h.Levels, pbi.Level{Name: level, Column: column})
				tables.Add(name, column)
			}
			out[name] = append(out[name], h)
		}
	}
	return out
}

func isDateField(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "date") || strings.Contains(lower, "time")
}

// placeMeasures translates every measure and groups the results by
// owning table, sorted by name within each table.
func placeMeasures(measures []qlik.Measure, tables infer.Tables, colTables map[string]string, rels []pbi.Relationship) (map[string][]pbi.Measure, []string) {
	byTable := make(map[string][]pbi.Measure)
	var warnings []string

	valid := make([]qlik.Measure, 0, len(measures))
	for _, m := range measures {
		if strings.TrimSpace(m.Expression) == "" {
			warnings = append(warnings, fmt.Sprintf("measure %s has no expression, skipped", m.Name))
			continue
		}
		valid = append(valid, m)
	}

	results := dax.TranslateMeasures(valid, dax.Options{ColumnTables: colTables, Relationships: rels})
	for _, res := range results {
		table, ok := owningTable(res.Source, colTables)
		if !ok {
			table = firstTable(tables)
			warnings = append(warnings, fmt.Sprintf("measure %s references no known column, placed on %s", res.Name, table))
		}
		for _, w := range res.Warnings {
			warnings = append(warnings, fmt.Sprintf("measure %s: %s", res.Name, w))
		}
		byTable[table] = append(byTable[table], pbi.Measure{
			Name:         res.Name,
			Expression:   res.Expression,
			FormatString: res.Format,
		})
	}

	for table := range byTable {
		ms := byTable[table]
		sort.Slice(ms, func(i, j int) bool { return ms[i].Name < ms[j].Name })
	}
	return byTable, warnings
}

// placeDimensions converts master dimensions and groups the calculated
// ones by owning table. Plain field dimensions already exist as columns
// and add nothing.
func placeDimensions(dims []qlik.Dimension, tables infer.Tables, colTables map[string]string, rels []pbi.Relationship) (map[string][]pbi.Column, []string) {
	byTable := make(map[string][]pbi.Column)
	var warnings []string
	for _, d := range dims {
		if strings.TrimSpace(d.Field) == "" {
			warnings = append(warnings, fmt.Sprintf("dimension %s has no field definition, skipped", d.Name))
			continue
		}
		table, ok := owningTable(d.Field, colTables)
		if !ok {
			table = firstTable(tables)
		}
		res := dax.TranslateDimension(d, dax.Options{
			TableName:     table,
			ColumnTables:  colTables,
			Relationships: rels,
		})
		if !res.Calculated {
			continue
		}
		if !ok {
			warnings = append(warnings, fmt.Sprintf("dimension %s references no known column, placed on %s", d.Name, table))
		}
		for _, w := range res.Warnings {
			warnings = append(warnings, fmt.Sprintf("dimension %s: %s", d.Name, w))
		}
		byTable[table] = append(byTable[table], pbi.Column{
			Name:       d.Name,
			DataType:   pbi.TypeString,
			Expression: res.Expression,
		})
	}
	return byTable, warnings
}

// owningTable resolves the table of the first column referenced inside
// the expression's first call.
func owningTable(expr string, colTables map[string]string) (string, bool) {
	refs := typemap.ExprRefs(expr)
	if len(refs) == 0 {
		return "", false
	}
	table, ok := colTables[refs[0]]
	return table, ok
}

func firstTable(tables infer.Tables) string {
	names := tables.Names()
	if len(names) == 0 {
		return ""
	}
	return names[0]
}
