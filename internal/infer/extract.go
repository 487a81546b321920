package infer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/semshift/semshift/internal/qlik"
)

// loadStmtRe matches one labelled LOAD statement: the table label on its
// own line, the LOAD keyword, the field list, and the source keyword that
// terminates it.
var loadStmtRe = regexp.MustCompile(
	`(?is)(\w+)\s*:\s*\r?\n\s*LOAD\s+(.*?)\s+(?:FROM|RESIDENT|INLINE)\b`)

var asAliasRe = regexp.MustCompile(`(?i)\s+as\s+`)

// ExtractSchema builds the table-to-fields mapping for an app. Structured
// table metadata wins when at least one table actually lists fields; apps
// whose structured tables are all field-less fall through to load-script
// parsing, the same as apps with no table metadata at all. When neither
// source yields anything the result is empty with a warning, never an
// error.
func ExtractSchema(app *qlik.App) (Tables, []string) {
	tables := make(Tables)
	var warnings []string

	if app == nil {
		return tables, append(warnings, "no app data: empty schema")
	}

	if len(app.Tables) > 0 {
		hasFields := false
		for _, tbl := range app.Tables {
			tables.AddTable(tbl.Name)
			for _, f := range tbl.Fields {
				if f.Name != "" {
					tables.Add(tbl.Name, f.Name)
					hasFields = true
				}
			}
		}
		if hasFields {
			return tables, warnings
		}
		// Table metadata without a single field is useless; start over
		// from the load script.
		tables = make(Tables)
	}

	if strings.TrimSpace(app.LoadScript) == "" {
		return tables, append(warnings,
			"no data source found (neither tables nor load script)")
	}

	matches := loadStmtRe.FindAllStringSubmatch(app.LoadScript, -1)
	for _, m := range matches {
		label, list := m[1], m[2]
		tables.AddTable(label)
		for _, raw := range strings.Split(list, ",") {
			entry := strings.TrimSpace(raw)
			if entry == "" {
				continue
			}
			if entry == "*" {
				warnings = append(warnings, fmt.Sprintf(
					"table %s: wildcard LOAD, field list unknown", label))
				continue
			}
			// "expr as alias" keeps the alias only.
			parts := asAliasRe.Split(entry, -1)
			if name := strings.TrimSpace(parts[len(parts)-1]); name != "" {
				tables.Add(label, name)
			}
		}
	}
	if len(matches) == 0 {
		warnings = append(warnings, "load script yielded no tables")
	}
	return tables, warnings
}
