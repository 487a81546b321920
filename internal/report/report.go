// Package report builds the final migration report: what the source app
// contained, what the target model holds, how much converted cleanly,
// and what still needs a human.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/semshift/semshift/internal/dax"
	"github.com/semshift/semshift/internal/mquery"
	"github.com/semshift/semshift/internal/pbi"
	"github.com/semshift/semshift/internal/qlik"
	"github.com/semshift/semshift/internal/validation"
)

// MigrationReport is the final migration report.
type MigrationReport struct {
	Version         string             `json:"version"`
	GeneratedAt     time.Time          `json:"generated_at"`
	Source          SourceSummary      `json:"source"`
	Target          TargetSummary      `json:"target"`
	Conversion      ConversionSummary  `json:"conversion"`
	SyntheticKeys   []string           `json:"synthetic_keys,omitempty"`
	Validation      *validation.Result `json:"validation,omitempty"`
	Warnings        []string           `json:"warnings,omitempty"`
	MigrationReady  bool               `json:"migration_ready"`
	ReadinessChecks []ReadinessCheck   `json:"readiness_checks"`
	NextSteps       []string           `json:"next_steps"`
}

// SourceSummary describes the Qlik application.
type SourceSummary struct {
	AppName         string   `json:"app_name"`
	Tables          int      `json:"tables"`
	Fields          int      `json:"fields"`
	Measures        int      `json:"measures"`
	Dimensions      int      `json:"dimensions"`
	Sheets          int      `json:"sheets"`
	Visualizations  int      `json:"visualizations"`
	DatasourceTypes []string `json:"datasource_types,omitempty"`
}

// TargetSummary describes the assembled semantic model.
type TargetSummary struct {
	Tables        int `json:"tables"`
	Columns       int `json:"columns"`
	Measures      int `json:"measures"`
	Relationships int `json:"relationships"`
	Hierarchies   int `json:"hierarchies"`
}

// ConversionSummary describes how much of the app converted without
// manual work.
type ConversionSummary struct {
	Expressions          int      `json:"expressions"`
	ExpressionsConverted int      `json:"expressions_converted"`
	ExpressionsFlagged   int      `json:"expressions_flagged"`
	ConversionRate       float64  `json:"conversion_rate"`
	ScriptRate           float64  `json:"script_rate"`
	UnconvertedFunctions []string `json:"unconverted_functions,omitempty"`
}

// ReadinessCheck is a single migration readiness condition.
type ReadinessCheck struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// Generate creates a MigrationReport from the run's artifacts. Any input
// except the app may be nil or empty.
func Generate(
	app *qlik.App,
	model *pbi.Model,
	measures []dax.MeasureResult,
	script *mquery.ConversionReport,
	validationResult *validation.Result,
	warnings []string,
) *MigrationReport {
	r := &MigrationReport{
		Version:     "1",
		GeneratedAt: time.Now(),
		Validation:  validationResult,
		Warnings:    warnings,
	}

	if app != nil {
		r.Source = SourceSummary{
			AppName:         app.Name,
			Tables:          len(app.Tables),
			Measures:        len(app.Measures),
			Dimensions:      len(app.Dimensions),
			Sheets:          len(app.Sheets),
			Visualizations:  len(app.Visualizations),
			DatasourceTypes: datasourceTypes(app.Datasources),
		}
		for _, t := range app.Tables {
			r.Source.Fields += len(t.Fields)
		}
	}

	if model != nil {
		r.Target.Tables = len(model.Tables)
		r.Target.Relationships = len(model.Relationships)
		for _, t := range model.Tables {
			r.Target.Columns += len(t.Columns)
			r.Target.Measures += len(t.Measures)
			r.Target.Hierarchies += len(t.Hierarchies)
		}
		r.SyntheticKeys = model.SyntheticKeys
	}

	r.Conversion = conversionSummary(measures, script)
	r.ReadinessChecks = readinessChecks(r, model)

	r.MigrationReady = true
	for _, rc := range r.ReadinessChecks {
		if !rc.Passed {
			r.MigrationReady = false
			break
		}
	}

	if r.MigrationReady {
		r.NextSteps = []string{
			"Open the generated .pbip project in Power BI Desktop",
			"Configure data source credentials and refresh",
			"Review generated report pages against the original sheets",
		}
	} else {
		for _, rc := range r.ReadinessChecks {
			if !rc.Passed {
				r.NextSteps = append(r.NextSteps, rc.Message)
			}
		}
	}
	return r
}

func datasourceTypes(datasources []qlik.Datasource) []string {
	seen := make(map[string]bool)
	for _, ds := range datasources {
		kind := ds.ConnectionType
		if kind == "" {
			kind = ds.Type
		}
		if kind == "" {
			kind = ds.SourceType
		}
		if kind == "" && ds.Path != "" {
			if i := strings.LastIndex(ds.Path, "."); i >= 0 {
				kind = ds.Path[i+1:]
			}
		}
		kind = strings.ToLower(kind)
		if kind != "" {
			seen[kind] = true
		}
	}
	types := make([]string, 0, len(seen))
	for k := range seen {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}

func conversionSummary(measures []dax.MeasureResult, script *mquery.ConversionReport) ConversionSummary {
	c := ConversionSummary{Expressions: len(measures)}
	for _, m := range measures {
		if len(m.Warnings) == 0 {
			c.ExpressionsConverted++
		} else {
			c.ExpressionsFlagged++
		}
	}
	if c.Expressions > 0 {
		c.ConversionRate = float64(c.ExpressionsConverted) / float64(c.Expressions) * 100
	} else {
		c.ConversionRate = 100
	}
	if script != nil {
		c.ScriptRate = script.ConversionRate
		c.UnconvertedFunctions = script.Unconverted
	} else {
		c.ScriptRate = 100
	}
	return c
}

func readinessChecks(r *MigrationReport, model *pbi.Model) []ReadinessCheck {
	var checks []ReadinessCheck

	modelOK := model != nil && len(model.Tables) > 0
	checks = append(checks, ReadinessCheck{
		Name:    "model assembled",
		Passed:  modelOK,
		Message: "Assemble a model before emitting the project",
	})
	if modelOK {
		checks[len(checks)-1].Message = fmt.Sprintf("%d tables, %d relationships",
			r.Target.Tables, r.Target.Relationships)
	}

	exprOK := r.Conversion.ExpressionsFlagged == 0
	msg := "All expressions converted cleanly"
	if !exprOK {
		msg = fmt.Sprintf("Review %d flagged expressions in the migration guide",
			r.Conversion.ExpressionsFlagged)
	}
	checks = append(checks, ReadinessCheck{Name: "expressions converted", Passed: exprOK, Message: msg})

	scriptOK := len(r.Conversion.UnconvertedFunctions) == 0
	msg = "Load script converted without manual steps"
	if !scriptOK {
		msg = fmt.Sprintf("Rewrite %d unconverted script functions manually: %s",
			len(r.Conversion.UnconvertedFunctions),
			strings.Join(r.Conversion.UnconvertedFunctions, ", "))
	}
	checks = append(checks, ReadinessCheck{Name: "load script converted", Passed: scriptOK, Message: msg})

	synOK := len(r.SyntheticKeys) == 0
	msg = "No synthetic keys in the model"
	if !synOK {
		msg = fmt.Sprintf("Remodel %d synthetic keys with explicit link tables",
			len(r.SyntheticKeys))
	}
	checks = append(checks, ReadinessCheck{Name: "no synthetic keys", Passed: synOK, Message: msg})

	valOK := r.Validation == nil || !r.Validation.HasErrors()
	msg = "Validation passed"
	if !valOK {
		msg = "Fix error-level validation findings"
	}
	checks = append(checks, ReadinessCheck{Name: "validation clean", Passed: valOK, Message: msg})

	return checks
}

// WriteJSON writes the report as JSON.
func WriteJSON(report *MigrationReport, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadJSON reads a report from a JSON file.
func ReadJSON(path string) (*MigrationReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	r := &MigrationReport{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return r, nil
}

// WriteText writes the report as human-readable text.
func WriteText(report *MigrationReport, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	return os.WriteFile(path, []byte(FormatText(report)), 0o644)
}

// FormatText renders the report as human-readable text.
func FormatText(report *MigrationReport) string {
	var b strings.Builder

	b.WriteString("=== semshift Migration Report ===\n")
	b.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format(time.RFC3339)))

	b.WriteString("Source:\n")
	b.WriteString(fmt.Sprintf("  App:            %s\n", report.Source.AppName))
	b.WriteString(fmt.Sprintf("  Tables:         %d (%d fields)\n", report.Source.Tables, report.Source.Fields))
	b.WriteString(fmt.Sprintf("  Measures:       %d\n", report.Source.Measures))
	b.WriteString(fmt.Sprintf("  Sheets:         %d (%d visualizations)\n", report.Source.Sheets, report.Source.Visualizations))
	if len(report.Source.DatasourceTypes) > 0 {
		b.WriteString(fmt.Sprintf("  Datasources:    %s\n", strings.Join(report.Source.DatasourceTypes, ", ")))
	}
	b.WriteString("\n")

	b.WriteString("Target:\n")
	b.WriteString(fmt.Sprintf("  Tables:         %d (%d columns)\n", report.Target.Tables, report.Target.Columns))
	b.WriteString(fmt.Sprintf("  Measures:       %d\n", report.Target.Measures))
	b.WriteString(fmt.Sprintf("  Relationships:  %d\n", report.Target.Relationships))
	b.WriteString(fmt.Sprintf("  Hierarchies:    %d\n\n", report.Target.Hierarchies))

	b.WriteString("Conversion:\n")
	b.WriteString(fmt.Sprintf("  Expressions:    %d converted, %d flagged (%.0f%%)\n",
		report.Conversion.ExpressionsConverted, report.Conversion.ExpressionsFlagged,
		report.Conversion.ConversionRate))
	b.WriteString(fmt.Sprintf("  Load script:    %.0f%%\n", report.Conversion.ScriptRate))
	if len(report.Conversion.UnconvertedFunctions) > 0 {
		b.WriteString(fmt.Sprintf("  Unconverted:    %s\n", strings.Join(report.Conversion.UnconvertedFunctions, ", ")))
	}
	b.WriteString("\n")

	if len(report.SyntheticKeys) > 0 {
		b.WriteString(fmt.Sprintf("Synthetic Keys: %s\n\n", strings.Join(report.SyntheticKeys, ", ")))
	}

	if report.Validation != nil {
		b.WriteString(fmt.Sprintf("Validation: %s (%d findings)\n\n",
			report.Validation.Status, len(report.Validation.Findings)))
	}

	if report.MigrationReady {
		b.WriteString("Migration Ready: YES\n\n")
	} else {
		b.WriteString("Migration Ready: NO\n\n")
	}

	b.WriteString("Readiness Checks:\n")
	for _, rc := range report.ReadinessChecks {
		status := "PASS"
		if !rc.Passed {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("  [%s] %s\n", status, rc.Name))
	}
	b.WriteString("\n")

	b.WriteString("Next Steps:\n")
	for i, s := range report.NextSteps {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, s))
	}

	return b.String()
}
