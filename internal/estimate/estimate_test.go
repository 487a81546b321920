package estimate

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/semshift/semshift/internal/qlik"
)

func sampleApp() *qlik.App {
	return &qlik.App{
		Name: "Sales Dashboard",
		Tables: []qlik.Table{
			{Name: "Orders", Fields: []qlik.Field{
				{Name: "OrderID"}, {Name: "CustomerID"}, {Name: "Amount"},
			}},
			{Name: "Customers", Fields: []qlik.Field{
				{Name: "CustomerID"}, {Name: "Name"},
			}},
			{Name: "$Syn1", Fields: []qlik.Field{{Name: "Key"}}},
		},
		Measures: []qlik.Measure{
			{Name: "Total", Expression: "Sum(Amount)"},
			{Name: "Active", Expression: "Sum({$<Year={2024}>} Amount)"},
		},
		Sheets: []qlik.Sheet{{ID: "s1", Name: "Overview"}},
		Visualizations: []qlik.Visual{
			{ID: "v1", Type: "barchart", SheetID: "s1"},
			{ID: "v2", Type: "kpi", SheetID: "s1"},
		},
		Datasources: []qlik.Datasource{
			{ConnectionType: "sqlserver", Table: "Orders"},
			{Path: "data/history.qvd"},
		},
	}
}

func TestEstimate(t *testing.T) {
	p := Estimate(sampleApp())

	if p.AppName != "Sales Dashboard" {
		t.Errorf("AppName = %q", p.AppName)
	}
	if p.Tables != 3 || p.Fields != 6 || p.Measures != 2 || p.Sheets != 1 {
		t.Errorf("counts = %d tables, %d fields, %d measures, %d sheets",
			p.Tables, p.Fields, p.Measures, p.Sheets)
	}

	want := map[string]float64{
		"schema":      1.0,
		"expressions": 1.0,
		"sheets":      0.5,
		"datasources": 1.5,
		"model":       1.0,
	}
	for _, a := range p.Areas {
		if a.Days != want[a.Area] {
			t.Errorf("area %s = %.1f days, want %.1f", a.Area, a.Days, want[a.Area])
		}
	}
	if p.TotalDays != 5.0 {
		t.Errorf("TotalDays = %.1f, want 5.0", p.TotalDays)
	}
	if p.TShirtSize != "M" {
		t.Errorf("TShirtSize = %q, want M", p.TShirtSize)
	}
	if len(p.Recommendations) != 3 {
		t.Errorf("Recommendations = %v", p.Recommendations)
	}
}

func TestEstimateDeterministic(t *testing.T) {
	a := Estimate(sampleApp())
	b := Estimate(sampleApp())
	if a.TotalDays != b.TotalDays || a.TShirtSize != b.TShirtSize {
		t.Errorf("two runs disagree: %.1f/%s vs %.1f/%s",
			a.TotalDays, a.TShirtSize, b.TotalDays, b.TShirtSize)
	}
}

func TestTShirtSize(t *testing.T) {
	cases := []struct {
		days float64
		want string
	}{
		{0, "S"},
		{4.5, "S"},
		{5, "M"},
		{14.5, "M"},
		{15, "L"},
		{39.5, "L"},
		{40, "XL"},
		{200, "XL"},
	}
	for _, c := range cases {
		if got := tShirtSize(c.days); got != c.want {
			t.Errorf("tShirtSize(%.1f) = %q, want %q", c.days, got, c.want)
		}
	}
}

func TestRound(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{0.1, 0.5},
		{0.2, 0.5},
		{0.7, 0.5},
		{0.87, 1.0},
		{1.3, 1.5},
	}
	for _, c := range cases {
		if got := round(c.in); got != c.want {
			t.Errorf("round(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestPlanYAMLRoundTrip(t *testing.T) {
	p := Estimate(sampleApp())
	path := filepath.Join(t.TempDir(), "estimate.yaml")
	if err := p.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	got, err := LoadYAML(path)
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if got.TotalDays != p.TotalDays || got.TShirtSize != p.TShirtSize {
		t.Errorf("round trip changed totals: %.1f/%s", got.TotalDays, got.TShirtSize)
	}
	if len(got.Areas) != len(p.Areas) {
		t.Errorf("round trip changed areas: %d", len(got.Areas))
	}
}

func TestFormatText(t *testing.T) {
	text := Estimate(sampleApp()).FormatText()
	for _, want := range []string{
		`Estimate for "Sales Dashboard": 5.0 days (M)`,
		"schema",
		"datasources",
		"Recommendations:",
		"QVD sources",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("FormatText missing %q:\n%s", want, text)
		}
	}
}
