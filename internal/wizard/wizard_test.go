package wizard

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/semshift/semshift/internal/engine"
	"github.com/semshift/semshift/internal/report"
	"github.com/semshift/semshift/internal/state"
)

func TestMigrationRules_AllTables(t *testing.T) {
	w := &Wizard{
		state:   state.New(),
		app:     testApp(),
		options: &Options{Calendar: true, ReportPages: true, Guide: true},
	}
	w.state.SelectedTables = []string{"Customers", "OrderLines", "Orders", "Products"}

	r := w.migrationRules()
	if !r.Empty() {
		t.Errorf("selecting every table should yield empty rules, got %+v", r)
	}
}

func TestMigrationRules_Subset(t *testing.T) {
	w := &Wizard{
		state:   state.New(),
		app:     testApp(),
		options: &Options{Calendar: true, ReportPages: true, Guide: true},
	}
	w.state.SelectedTables = []string{"Orders", "Customers"}

	r := w.migrationRules()
	if len(r.IncludeTables) != 2 {
		t.Errorf("expected 2 include tables, got %v", r.IncludeTables)
	}
	if len(r.ExcludeSheets) != 0 {
		t.Errorf("report pages enabled should not exclude sheets, got %v", r.ExcludeSheets)
	}
}

func TestMigrationRules_NoReportPages(t *testing.T) {
	w := &Wizard{
		state:   state.New(),
		app:     testApp(),
		options: &Options{Calendar: true, ReportPages: false, Guide: true},
	}

	r := w.migrationRules()
	if len(r.ExcludeSheets) != 1 || r.ExcludeSheets[0] != "*" {
		t.Errorf("disabling report pages should exclude every sheet, got %v", r.ExcludeSheets)
	}
}

func TestEnsureApp_NoSource(t *testing.T) {
	w := &Wizard{state: state.New()}
	err := w.ensureApp()
	if err == nil || !strings.Contains(err.Error(), "no source application") {
		t.Errorf("ensureApp without a source = %v, want missing-source error", err)
	}
}

func TestNewLoadsState(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.yaml")

	w, err := New(statePath, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if w.state.CurrentStep != state.StepExtract {
		t.Errorf("fresh wizard should start at extract, got %q", w.state.CurrentStep)
	}

	w.state.SourcePath = "/tmp/sales.json"
	w.state.CompleteStep(state.StepExtract, state.StepConvert)
	if err := w.state.Save(statePath); err != nil {
		t.Fatalf("Save: %v", err)
	}

	w2, err := New(statePath, nil)
	if err != nil {
		t.Fatalf("New (resume): %v", err)
	}
	if w2.state.CurrentStep != state.StepConvert {
		t.Errorf("resumed wizard step = %q, want convert", w2.state.CurrentStep)
	}
	if w2.state.SourcePath != "/tmp/sales.json" {
		t.Errorf("resumed source path = %q", w2.state.SourcePath)
	}
}

func TestSummaryContent(t *testing.T) {
	res := &engine.Result{
		Report: &report.MigrationReport{},
		ProjectPath: "/tmp/out/Sales.pbip",
		GuidePath:   "/tmp/out/MIGRATION_GUIDE.md",
	}
	m := NewSummaryModel(res)

	v := m.View()
	if !strings.Contains(v, "Step 5: Summary") {
		t.Error("view should contain title")
	}
	if !strings.Contains(v, "Sales.pbip") {
		t.Error("summary should show the project path")
	}
	if !strings.Contains(v, "MIGRATION_GUIDE.md") {
		t.Error("summary should show the guide path")
	}
}

func TestSummaryNilResult(t *testing.T) {
	m := NewSummaryModel(nil)
	v := m.View()
	if !strings.Contains(v, "No run results") {
		t.Error("summary without a result should say so")
	}
}
