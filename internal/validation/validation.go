// Package validation checks structural invariants at three points in a
// migration: the decoded application, the assembled model, and the
// emitted project directory. Checks report findings, never errors or
// panics; the caller decides whether error-level findings are fatal.
package validation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/semshift/semshift/internal/pbi"
	"github.com/semshift/semshift/internal/qlik"
)

// Finding severity levels.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Result statuses.
const (
	StatusPass = "PASS"
	StatusWarn = "WARN"
	StatusFail = "FAIL"
)

// Finding is one validation observation.
type Finding struct {
	Level   string `json:"level"`
	Area    string `json:"area"`
	Message string `json:"message"`
}

// Result holds the outcome of one validation pass.
type Result struct {
	Status    string    `json:"status"`
	Findings  []Finding `json:"findings"`
	CheckedAt time.Time `json:"checked_at"`
}

// HasErrors reports whether any error-level finding exists.
func (r *Result) HasErrors() bool {
	for _, f := range r.Findings {
		if f.Level == LevelError {
			return true
		}
	}
	return false
}

func (r *Result) add(level, area, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{
		Level:   level,
		Area:    area,
		Message: fmt.Sprintf(format, args...),
	})
}

func (r *Result) finish() *Result {
	r.CheckedAt = time.Now()
	r.Status = StatusPass
	for _, f := range r.Findings {
		switch f.Level {
		case LevelError:
			r.Status = StatusFail
			return r
		case LevelWarn:
			r.Status = StatusWarn
		}
	}
	return r
}

// CheckApp validates the decoded application structure.
func CheckApp(app *qlik.App) *Result {
	r := &Result{}
	if app == nil {
		r.add(LevelError, "app", "no application data")
		return r.finish()
	}
	if app.Name == "" {
		r.add(LevelInfo, "app", "application has no name")
	}

	seen := make(map[string]bool)
	for _, t := range app.Tables {
		if seen[t.Name] {
			r.add(LevelError, "tables", "duplicate table name %q", t.Name)
		}
		seen[t.Name] = true
		if len(t.Fields) == 0 {
			r.add(LevelWarn, "tables", "table %q declares no fields", t.Name)
		}
		if strings.HasPrefix(t.Name, "$Syn") {
			r.add(LevelWarn, "tables", "synthetic key table %q needs manual remodelling", t.Name)
		}
	}

	for _, a := range app.Associations {
		if len(app.Tables) == 0 {
			break
		}
		if !seen[a.FromTable] {
			r.add(LevelError, "associations", "association references unknown table %q", a.FromTable)
		}
		if !seen[a.ToTable] {
			r.add(LevelError, "associations", "association references unknown table %q", a.ToTable)
		}
	}

	for _, m := range app.Measures {
		if strings.TrimSpace(m.Expression) == "" {
			r.add(LevelWarn, "measures", "measure %q has an empty expression", m.Name)
		}
	}

	sheets := make(map[string]bool)
	for _, s := range app.Sheets {
		sheets[s.ID] = true
	}
	for _, v := range app.Visualizations {
		if v.SheetID != "" && !sheets[v.SheetID] {
			r.add(LevelInfo, "sheets", "visualization %q references unknown sheet %q", v.ID, v.SheetID)
		}
	}

	return r.finish()
}

// CheckModel validates the assembled semantic model.
func CheckModel(model *pbi.Model) *Result {
	r := &Result{}
	if model == nil {
		r.add(LevelError, "model", "no model data")
		return r.finish()
	}
	if len(model.Tables) == 0 {
		r.add(LevelWarn, "model", "model has no tables")
	}

	for _, t := range model.Tables {
		cols := make(map[string]bool)
		for _, c := range t.Columns {
			if cols[c.Name] {
				r.add(LevelError, "columns", "table %q: duplicate column name %q", t.Name, c.Name)
			}
			cols[c.Name] = true
		}
		for _, c := range t.Columns {
			if c.SortByColumn != "" && !cols[c.SortByColumn] {
				r.add(LevelWarn, "columns", "table %q: column %q sorts by missing column %q",
					t.Name, c.Name, c.SortByColumn)
			}
		}
		for _, h := range t.Hierarchies {
			for _, l := range h.Levels {
				col := l.Column
				if i := strings.LastIndex(col, "."); i >= 0 {
					col = col[i+1:]
				}
				if !cols[col] {
					r.add(LevelError, "hierarchies", "table %q: hierarchy %q level %q references missing column %q",
						t.Name, h.Name, l.Name, col)
				}
			}
		}
		for _, m := range t.Measures {
			if strings.TrimSpace(m.Expression) == "" {
				r.add(LevelWarn, "measures", "table %q: measure %q has an empty expression", t.Name, m.Name)
			}
		}
		if t.Partition == nil {
			r.add(LevelInfo, "partitions", "table %q has no partition source", t.Name)
		}
	}

	for _, rel := range model.Relationships {
		from := model.FindTable(rel.FromTable)
		if from == nil {
			r.add(LevelError, "relationships", "relationship %q: missing table %q", rel.Name, rel.FromTable)
		} else if from.FindColumn(rel.FromColumn) == nil {
			r.add(LevelError, "relationships", "relationship %q: missing column %s.%s",
				rel.Name, rel.FromTable, rel.FromColumn)
		}
		to := model.FindTable(rel.ToTable)
		if to == nil {
			r.add(LevelError, "relationships", "relationship %q: missing table %q", rel.Name, rel.ToTable)
		} else if to.FindColumn(rel.ToColumn) == nil {
			r.add(LevelError, "relationships", "relationship %q: missing column %s.%s",
				rel.Name, rel.ToTable, rel.ToColumn)
		}
	}

	return r.finish()
}

var refTableRe = regexp.MustCompile(`(?m)^ref table (?:'([^']+)'|(\S+))`)

// CheckProject validates an emitted PBIP project directory.
func CheckProject(dir string) *Result {
	r := &Result{}

	pbips, _ := filepath.Glob(filepath.Join(dir, "*.pbip"))
	if len(pbips) == 0 {
		r.add(LevelError, "project", "no .pbip file in %s", dir)
		return r.finish()
	}
	for _, p := range pbips {
		checkJSONFile(r, p)
	}

	base := strings.TrimSuffix(filepath.Base(pbips[0]), ".pbip")
	semDir := filepath.Join(dir, base+".SemanticModel")
	defDir := filepath.Join(semDir, "definition")

	for _, required := range []string{
		filepath.Join(semDir, "definition.pbism"),
		filepath.Join(defDir, "database.tmdl"),
		filepath.Join(defDir, "model.tmdl"),
	} {
		if _, err := os.Stat(required); err != nil {
			r.add(LevelError, "project", "missing artifact %s", relOr(dir, required))
		}
	}
	checkJSONFile(r, filepath.Join(semDir, "definition.pbism"))

	// Every table the model references must have its own TMDL file.
	if data, err := os.ReadFile(filepath.Join(defDir, "model.tmdl")); err == nil {
		for _, m := range refTableRe.FindAllStringSubmatch(string(data), -1) {
			name := m[1]
			if name == "" {
				name = m[2]
			}
			path := filepath.Join(defDir, "tables", name+".tmdl")
			if _, err := os.Stat(path); err != nil {
				r.add(LevelError, "project", "table %q referenced by model.tmdl has no table file", name)
			}
		}
	}

	repDir := filepath.Join(dir, base+".Report")
	if _, err := os.Stat(filepath.Join(repDir, "definition.pbir")); err != nil {
		r.add(LevelWarn, "project", "missing report definition %s", relOr(dir, filepath.Join(repDir, "definition.pbir")))
	} else {
		checkJSONFile(r, filepath.Join(repDir, "definition.pbir"))
	}

	return r.finish()
}

func checkJSONFile(r *Result, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	if !json.Valid(data) {
		r.add(LevelError, "project", "artifact %s is not valid JSON", filepath.Base(path))
	}
}

func relOr(base, path string) string {
	if rel, err := filepath.Rel(base, path); err == nil {
		return rel
	}
	return path
}

// FormatText renders the result as human-readable text.
func (r *Result) FormatText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Validation: %s (%d findings)\n", r.Status, len(r.Findings))
	for _, f := range r.Findings {
		fmt.Fprintf(&b, "  [%-5s] %-13s %s\n", f.Level, f.Area, f.Message)
	}
	return b.String()
}
