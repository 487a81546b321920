package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/semshift/semshift/internal/config"
	"github.com/semshift/semshift/internal/qlik"
	"github.com/semshift/semshift/internal/selection"
)

func writeFixtureApp(t *testing.T, dir string) string {
	t.Helper()
	app := qlik.App{
		Name: "Sales Demo",
		Tables: []qlik.Table{
			{Name: "Orders", Fields: []qlik.Field{{Name: "OrderID"}, {Name: "CustomerID"}, {Name: "Amount"}}},
			{Name: "Customers", Fields: []qlik.Field{{Name: "CustomerID"}, {Name: "Region"}}},
			{Name: "AuditLog", Fields: []qlik.Field{{Name: "EventID"}}},
		},
		Associations: []qlik.Association{
			{FromTable: "Orders", FromField: "CustomerID", ToTable: "Customers", ToField: "CustomerID"},
		},
		Measures: []qlik.Measure{
			{Name: "Total Sales", Expression: "Sum(Amount)"},
		},
		Datasources: []qlik.Datasource{
			{Name: "orders", Type: "qvd", Path: "lib://data/orders.qvd", Table: "Orders"},
			{Name: "customers", Type: "csv", Path: "lib://data/customers.csv", Table: "Customers"},
		},
		Sheets: []qlik.Sheet{
			{ID: "sh1", Name: "Overview"},
		},
		Visualizations: []qlik.Visual{
			{ID: "v1", Type: "barchart", Title: "Sales by Region", SheetID: "sh1", Dimensions: []string{"Region"}, Measures: []string{"Sum(Amount)"}},
		},
		LoadScript: "Orders:\nLOAD OrderID, CustomerID, Amount FROM [lib://data/orders.qvd] (qvd);\n",
	}
	data, err := json.MarshalIndent(app, "", "  ")
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	path := filepath.Join(dir, "sales.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default(writeFixtureApp(t, dir))
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Output.ProjectName = "Sales"
	return cfg
}

func TestRunFullPipeline(t *testing.T) {
	cfg := testConfig(t)
	eng := New(cfg, nil)

	var phases []Phase
	eng.OnProgress = func(p Progress) { phases = append(phases, p.Phase) }

	res, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(phases) != len(Phases) {
		t.Fatalf("got %d progress events, want %d: %v", len(phases), len(Phases), phases)
	}
	for i, p := range Phases {
		if phases[i] != p {
			t.Errorf("phase %d = %s, want %s", i, phases[i], p)
		}
	}

	if res.App == nil || res.App.Name != "Sales Demo" {
		t.Fatalf("result app = %+v", res.App)
	}
	if res.Model == nil || len(res.Model.Tables) != 3 {
		t.Fatalf("model tables = %+v", res.Model)
	}
	orders := res.Model.FindTable("Orders")
	if orders == nil || orders.Partition == nil {
		t.Fatal("Orders table missing generated partition")
	}
	if res.Report == nil || res.Validation == nil || res.Estimate == nil {
		t.Fatal("result missing report, validation, or estimate")
	}

	for _, p := range []string{res.ProjectPath, res.GuidePath, res.ReportPath} {
		if p == "" {
			t.Fatal("result path not set")
		}
		if _, err := os.Stat(p); err != nil {
			t.Errorf("output missing: %v", err)
		}
	}
	if _, err := os.Stat(filepath.Join(cfg.Output.Dir, "report.txt")); err != nil {
		t.Errorf("text report missing: %v", err)
	}

	last, lastErr := eng.Last()
	if last != res || lastErr != nil {
		t.Error("Last did not retain the run result")
	}
}

func TestRunWithSelection(t *testing.T) {
	cfg := testConfig(t)
	eng := New(cfg, nil)
	eng.Rules = selection.Rules{ExcludeTables: []string{"AuditLog"}}

	res, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Model.FindTable("AuditLog") != nil {
		t.Error("excluded table survived into the model")
	}
	if res.Model.FindTable("Orders") == nil {
		t.Error("included table missing from the model")
	}
}

func TestRunCancelled(t *testing.T) {
	cfg := testConfig(t)
	eng := New(cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	eng.OnProgress = func(p Progress) {
		if p.Phase == PhaseInfer {
			cancel()
		}
	}

	_, err := eng.Run(ctx)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRunMissingSource(t *testing.T) {
	cfg := config.Default("/nonexistent/app.json")
	cfg.Output.Dir = t.TempDir()
	eng := New(cfg, nil)
	if _, err := eng.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestRunNoConfig(t *testing.T) {
	eng := New(nil, nil)
	if _, err := eng.Run(context.Background()); err == nil {
		t.Fatal("expected error with no config")
	}
}

func TestStartAndRunning(t *testing.T) {
	cfg := testConfig(t)
	eng := New(cfg, nil)

	events := make(chan Progress, len(Phases))
	type outcome struct {
		res *Result
		err error
	}
	finished := make(chan outcome, 1)
	err := eng.Start(
		func(p Progress) { events <- p },
		func(res *Result, err error) { finished <- outcome{res, err} },
	)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.After(10 * time.Second)
	var got int
	for got < len(Phases) {
		select {
		case <-events:
			got++
		case <-deadline:
			t.Fatalf("timed out after %d progress events", got)
		}
	}

	select {
	case o := <-finished:
		if o.err != nil {
			t.Fatalf("background run failed: %v", o.err)
		}
		if o.res == nil || o.res.Report == nil {
			t.Fatal("background run produced no result")
		}
	case <-deadline:
		t.Fatal("run never finished")
	}

	for eng.Running() {
		time.Sleep(10 * time.Millisecond)
	}
}
