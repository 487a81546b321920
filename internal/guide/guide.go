// Package guide renders the manual-work companion to a migration: a
// markdown document listing everything the automated conversion could
// not finish, with concrete rewrite suggestions.
package guide

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/semshift/semshift/internal/qlik"
	"github.com/semshift/semshift/internal/report"
)

// GuideFile is the name of the emitted guide.
const GuideFile = "MIGRATION_GUIDE.md"

var setAnalysisRe = regexp.MustCompile(`\{\$?<`)

// rewrites suggests a manual Power Query or DAX replacement for script
// functions the converter leaves alone.
var rewrites = map[string]string{
	"ApplyMap":      "replace the mapping table with a merge (Table.NestedJoin + Table.ExpandTableColumn) against the lookup query",
	"Peek":          "add an index column (Table.AddIndexColumn) and self-merge on index-1 to read the previous row",
	"Previous":      "add an index column (Table.AddIndexColumn) and self-merge on index-1 to read the previous row",
	"IntervalMatch": "use a cross join filtered on the interval bounds, or a DAX measure with TREATAS",
	"Crosstable":    "use Table.UnpivotOtherColumns on the qualifier columns",
	"Generic":       "pivot the attribute table with Table.Pivot",
	"Hierarchy":     "flatten the parent-child levels with PATH/PATHITEM DAX columns",
	"Exists":        "merge against the already-loaded query and keep matching rows",
	"FieldValue":    "reference the column directly; M queries are not ordinal",
	"NoOfRows":      "use Table.RowCount over the loaded query",
}

// WriteGuide renders the migration guide into dir and returns its path.
// The report is optional; without it the conversion sections are skipped.
func WriteGuide(dir string, app *qlik.App, rep *report.MigrationReport) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create guide directory: %w", err)
	}
	path := filepath.Join(dir, GuideFile)
	if err := os.WriteFile(path, []byte(Render(app, rep)), 0o644); err != nil {
		return "", fmt.Errorf("write guide: %w", err)
	}
	return path, nil
}

// Render builds the guide markdown.
func Render(app *qlik.App, rep *report.MigrationReport) string {
	var b strings.Builder

	name := "application"
	if app != nil && app.Name != "" {
		name = app.Name
	}
	fmt.Fprintf(&b, "# Migration Guide: %s\n\n", name)

	if rep != nil {
		fmt.Fprintf(&b, "%d tables and %d measures migrated into %d model tables with %d relationships.\n",
			rep.Source.Tables, rep.Source.Measures, rep.Target.Tables, rep.Target.Relationships)
		fmt.Fprintf(&b, "Expression conversion rate: %.0f%%.\n\n", rep.Conversion.ConversionRate)
	}

	if app != nil {
		writeVariables(&b, app.Variables)
		writeSectionAccess(&b, app.LoadScript)
	}
	if rep != nil {
		writeUnconverted(&b, rep.Conversion.UnconvertedFunctions)
	}
	if app != nil {
		writeSetAnalysis(&b, app.Measures)
		writeQVDs(&b, app.Datasources)
	}
	writeChecklist(&b, app, rep)

	return b.String()
}

func writeVariables(b *strings.Builder, vars []qlik.Variable) {
	if len(vars) == 0 {
		return
	}
	b.WriteString("## Variables\n\n")
	b.WriteString("Qlik variables have no direct equivalent. Numeric variables are\n")
	b.WriteString("candidates for what-if parameters; the rest become measures or\n")
	b.WriteString("hard-coded values.\n\n")
	b.WriteString("| Variable | Value | Suggested target |\n")
	b.WriteString("| --- | --- | --- |\n")
	for _, v := range vars {
		target := "DAX measure or constant"
		if _, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64); err == nil {
			target = "what-if parameter (GENERATESERIES)"
		}
		fmt.Fprintf(b, "| `%s` | `%s` | %s |\n", v.Name, v.Value, target)
	}
	b.WriteString("\n")
}

func writeSectionAccess(b *strings.Builder, script string) {
	rows, found := ParseSectionAccess(script)
	if !found {
		return
	}
	b.WriteString("## Row-Level Security\n\n")
	if len(rows) == 0 {
		b.WriteString("The load script declares section access but its table could not\n")
		b.WriteString("be parsed. Recreate the reduction rules as RLS roles manually.\n\n")
		return
	}
	fmt.Fprintf(b, "Section access with %d rows was found. Recreate it as RLS roles\n", len(rows))
	b.WriteString("(Modeling > Manage roles in Power BI Desktop):\n\n")
	for _, role := range BuildRoles(rows) {
		fmt.Fprintf(b, "### Role `%s`\n\n", role.Name)
		fmt.Fprintf(b, "- Table filter: `%s`\n", role.Filter)
		fmt.Fprintf(b, "- Members: %s\n\n", strings.Join(role.Members, ", "))
	}
	b.WriteString("Assign members in the Power BI service after publishing; ADMIN rows\n")
	b.WriteString("with `*` reductions map to workspace admins, not roles.\n\n")
}

func writeUnconverted(b *strings.Builder, funcs []string) {
	if len(funcs) == 0 {
		return
	}
	b.WriteString("## Unconverted Script Functions\n\n")
	b.WriteString("These functions appear in the load script but have no automatic\n")
	b.WriteString("Power Query translation:\n\n")
	for _, f := range funcs {
		hint := rewrites[f]
		if hint == "" {
			hint = "rewrite by hand in the Power Query editor"
		}
		fmt.Fprintf(b, "- `%s`: %s\n", f, hint)
	}
	b.WriteString("\n")
}

func writeSetAnalysis(b *strings.Builder, measures []qlik.Measure) {
	var flagged []qlik.Measure
	for _, m := range measures {
		if setAnalysisRe.MatchString(m.Expression) {
			flagged = append(flagged, m)
		}
	}
	if len(flagged) == 0 {
		return
	}
	b.WriteString("## Set Analysis Review\n\n")
	b.WriteString("Set analysis modifies selection state, which DAX has no direct\n")
	b.WriteString("equivalent for. Each converted measure below needs its filter\n")
	b.WriteString("re-expressed with CALCULATE and explicit filter arguments:\n\n")
	for _, m := range flagged {
		fmt.Fprintf(b, "- **%s**: `%s`\n", m.Name, m.Expression)
	}
	b.WriteString("\n")
}

func writeQVDs(b *strings.Builder, datasources []qlik.Datasource) {
	var qvds []qlik.Datasource
	for _, ds := range datasources {
		if strings.HasSuffix(strings.ToLower(ds.Path), ".qvd") {
			qvds = append(qvds, ds)
		}
	}
	if len(qvds) == 0 {
		return
	}
	b.WriteString("## QVD Sources\n\n")
	b.WriteString("Power Query cannot read QVD files. The generated queries point at\n")
	b.WriteString("CSV extracts; export each QVD before the first refresh:\n\n")
	for _, ds := range qvds {
		csv := strings.TrimSuffix(ds.Path, filepath.Ext(ds.Path)) + ".csv"
		fmt.Fprintf(b, "- `%s` → `%s`\n", ds.Path, csv)
	}
	b.WriteString("\n")
}

func writeChecklist(b *strings.Builder, app *qlik.App, rep *report.MigrationReport) {
	b.WriteString("## Checklist\n\n")
	b.WriteString("- [ ] Open the .pbip project in Power BI Desktop\n")
	b.WriteString("- [ ] Configure data source credentials\n")
	if rep != nil && len(rep.Conversion.UnconvertedFunctions) > 0 {
		b.WriteString("- [ ] Rewrite the unconverted script functions listed above\n")
	}
	if app != nil {
		if _, found := ParseSectionAccess(app.LoadScript); found {
			b.WriteString("- [ ] Recreate section access as RLS roles\n")
		}
		for _, ds := range app.Datasources {
			if strings.HasSuffix(strings.ToLower(ds.Path), ".qvd") {
				b.WriteString("- [ ] Export QVD sources to CSV\n")
				break
			}
		}
	}
	if rep != nil && len(rep.SyntheticKeys) > 0 {
		b.WriteString("- [ ] Remodel synthetic keys with explicit link tables\n")
	}
	b.WriteString("- [ ] Validate figures against the original app\n")
	b.WriteString("- [ ] Publish and assign RLS role members\n")
}
