package tmdl

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/semshift/semshift/internal/pbi"
)

func writeLines(path string, lines []string) error {
	text := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeDatabase(path string) error {
	return writeLines(path, []string{
		"database",
		"\tcompatibilityLevel: 1600",
	})
}

func writeModel(path string, model *pbi.Model, culture string) error {
	if culture == "" {
		culture = model.Culture
	}
	if culture == "" {
		culture = "en-US"
	}
	lines := []string{
		"model Model",
		"\tculture: " + culture,
		"\tdefaultPowerBIDataSourceVersion: powerBI_V3",
		"\tdiscourageImplicitMeasures",
		"",
		"annotation __PBI_TimeIntelligenceEnabled = 0",
	}
	if len(model.Tables) > 0 {
		lines = append(lines, "")
		for _, t := range model.Tables {
			lines = append(lines, "ref table "+quoteIdent(t.Name))
		}
	}
	return writeLines(path, lines)
}

func writeTable(path string, t *pbi.Table) error {
	lines := []string{
		"table " + quoteIdent(t.Name),
		"\tlineageTag: " + LineageTag("table", t.Name),
	}
	if t.Description != "" {
		lines = append(lines, "\tdescription: "+t.Description)
	}
	if t.IsHidden {
		lines = append(lines, "\tisHidden")
	}

	for i := range t.Columns {
		lines = append(lines, columnLines(t.Name, &t.Columns[i])...)
	}
	for i := range t.Measures {
		lines = append(lines, measureLines(t.Name, &t.Measures[i])...)
	}
	for _, h := range t.Hierarchies {
		lines = append(lines, hierarchyLines(t.Name, h)...)
	}
	if t.Partition != nil {
		lines = append(lines, partitionLines(t.Name, t.Partition)...)
	}
	return writeLines(path, lines)
}

func columnLines(table string, c *pbi.Column) []string {
	lines := []string{""}
	if c.Expression != "" {
		lines = append(lines, "\tcolumn "+quoteIdent(c.Name)+" = "+c.Expression)
	} else {
		lines = append(lines, "\tcolumn "+quoteIdent(c.Name))
	}
	lines = append(lines, "\t\tdataType: "+c.DataType)
	if c.FormatString != "" {
		lines = append(lines, "\t\tformatString: "+c.FormatString)
	}
	lines = append(lines,
		"\t\tlineageTag: "+LineageTag("column", table+"."+c.Name),
		"\t\tsummarizeBy: none")
	if c.Description != "" {
		lines = append(lines, "\t\tdescription: "+c.Description)
	}
	cat := c.DataCategory
	if cat == "" {
		cat = DataCategory(c.Name)
	}
	if cat != "" {
		lines = append(lines, "\t\tdataCategory: "+cat)
	}
	if c.IsHidden {
		lines = append(lines, "\t\tisHidden")
	}
	if c.SortByColumn != "" {
		lines = append(lines, "\t\tsortByColumn: "+quoteIdent(c.SortByColumn))
	}
	if c.Expression == "" {
		src := c.SourceColumn
		if src == "" {
			src = c.Name
		}
		lines = append(lines, "\t\tsourceColumn: "+src)
	}
	return lines
}

func measureLines(table string, m *pbi.Measure) []string {
	lines := []string{
		"",
		"\tmeasure " + quoteIdent(m.Name) + " = " + m.Expression,
		"\t\tlineageTag: " + LineageTag("measure", table+"."+m.Name),
	}
	if m.FormatString != "" {
		lines = append(lines, "\t\tformatString: "+m.FormatString)
	}
	if m.Folder != "" {
		lines = append(lines, "\t\tdisplayFolder: "+m.Folder)
	}
	if m.Description != "" {
		lines = append(lines, "\t\tdescription: "+m.Description)
	}
	return lines
}

func hierarchyLines(table string, h pbi.Hierarchy) []string {
	lines := []string{
		"",
		"\thierarchy " + quoteIdent(h.Name),
		"\t\tlineageTag: " + LineageTag("hierarchy", table+"."+h.Name),
	}
	for _, l := range h.Levels {
		col := l.Column
		// Levels reference a column of the same table; drop any
		// qualifier.
		if i := strings.LastIndex(col, "."); i >= 0 {
			col = col[i+1:]
		}
		lines = append(lines,
			"\t\tlevel "+quoteIdent(l.Name),
			"\t\t\tcolumn: "+quoteIdent(col))
	}
	return lines
}

func partitionLines(table string, p *pbi.Partition) []string {
	mode := p.Mode
	if mode == "" {
		mode = "import"
	}
	lines := []string{
		"",
		"\tpartition " + quoteIdent(table) + " = m",
		"\t\tmode: " + mode,
		"\t\tsource =",
	}
	expr := strings.ReplaceAll(p.Source, `\n`, "\n")
	expr = strings.ReplaceAll(expr, `\"`, `"`)
	for _, line := range strings.Split(expr, "\n") {
		lines = append(lines, "\t\t\t"+line)
	}
	return lines
}

func writeRelationships(path string, rels []pbi.Relationship) error {
	var lines []string
	for _, r := range rels {
		name := r.Name
		if name == "" {
			name = LineageTag("relationship", r.FromTable+"."+r.FromColumn+"-"+r.ToTable+"."+r.ToColumn)
		}
		lines = append(lines,
			"relationship "+quoteIdent(name),
			"\tfromColumn: "+quoteIdent(r.FromTable)+"."+quoteIdent(r.FromColumn),
			"\ttoColumn: "+quoteIdent(r.ToTable)+"."+quoteIdent(r.ToColumn))
		if r.CrossFilter != "" && r.CrossFilter != pbi.FilterSingle {
			lines = append(lines, "\tcrossFilteringBehavior: bothDirections")
		}
		if !r.IsActive {
			lines = append(lines, "\tisActive: false")
		}
		lines = append(lines, "")
	}
	if len(lines) > 0 {
		lines = lines[:len(lines)-1]
	}
	return writeLines(path, lines)
}

// writeExpressions emits one shared M expression per parameter so the
// what-if values surface in the query editor as well.
func writeExpressions(path string, params []Parameter) error {
	var lines []string
	for i, p := range params {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines,
			"expression "+quoteIdent(p.Name)+" = "+fmt.Sprintf("%g", p.Default)+" meta [IsParameterQuery=true, Type=\"Number\", IsParameterQueryRequired=true]",
			"\tlineageTag: "+LineageTag("expression", p.Name))
	}
	return writeLines(path, lines)
}
