package visuals

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/semshift/semshift/internal/pbi"
	"github.com/semshift/semshift/internal/qlik"
)

func TestTypeFor(t *testing.T) {
	cases := []struct {
		in    string
		want  string
		known bool
	}{
		{"barchart", "clusteredBarChart", true},
		{"linechart", "lineChart", true},
		{"piechart", "pieChart", true},
		{"kpi", "card", true},
		{"table", "tableEx", true},
		{"pivot-table", "pivotTable", true},
		{"combochart", "lineStackedColumnComboChart", true},
		{"text-image", "textbox", true},
		{"filterpane", "slicer", true},
		{"hologram", "tableEx", false},
	}
	for _, tc := range cases {
		got, known := TypeFor(tc.in)
		if got != tc.want || known != tc.known {
			t.Errorf("TypeFor(%q) = %q, %v; want %q, %v", tc.in, got, known, tc.want, tc.known)
		}
	}
}

func TestParseAggregation(t *testing.T) {
	fn, col := parseAggregation("Sum(Amount)")
	if fn != "sum" || col != "Amount" {
		t.Errorf("got %q, %q", fn, col)
	}
	fn, col = parseAggregation("Revenue")
	if fn != "" || col != "Revenue" {
		t.Errorf("got %q, %q", fn, col)
	}
}

func pagesModel() *pbi.Model {
	return &pbi.Model{
		Name: "Sales",
		Tables: []pbi.Table{
			{
				Name: "Orders",
				Columns: []pbi.Column{
					{Name: "Region", DataType: pbi.TypeString},
					{Name: "Amount", DataType: pbi.TypeDouble},
				},
				Measures: []pbi.Measure{
					{Name: "Total Sales", Expression: "SUM(Orders[Amount])"},
				},
			},
		},
	}
}

func TestWritePages(t *testing.T) {
	app := &qlik.App{
		Name: "Sales",
		Sheets: []qlik.Sheet{
			{ID: "sh1", Name: "Overview"},
			{ID: "sh2", Name: "Detail View"},
		},
		Visualizations: []qlik.Visual{
			{Type: "barchart", Title: "Sales by Region", SheetID: "sh1",
				Dimensions: []string{"Region"}, Measures: []string{"Sum(Amount)"},
				Cell: &qlik.Cell{Col: 0, Row: 0, ColSpan: 12, RowSpan: 6}},
			{Type: "kpi", SheetID: "sh2", Measures: []string{"Total Sales"}},
			{Type: "hologram", SheetID: "sh2"},
		},
	}

	dir := t.TempDir()
	warnings, err := WritePages(dir, "Sales", app, pagesModel())
	if err != nil {
		t.Fatalf("WritePages: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "hologram") {
		t.Errorf("warnings = %v, want one naming the unknown type", warnings)
	}

	pagesDir := filepath.Join(dir, "Sales.Report", "definition", "pages")
	data, err := os.ReadFile(filepath.Join(pagesDir, "pages.json"))
	if err != nil {
		t.Fatal(err)
	}
	var index struct {
		PageOrder      []string `json:"pageOrder"`
		ActivePageName string   `json:"activePageName"`
	}
	if err := json.Unmarshal(data, &index); err != nil {
		t.Fatal(err)
	}
	if len(index.PageOrder) != 2 || index.PageOrder[0] != "Overview" || index.PageOrder[1] != "DetailView" {
		t.Errorf("pageOrder = %v", index.PageOrder)
	}
	if index.ActivePageName != "Overview" {
		t.Errorf("activePageName = %s", index.ActivePageName)
	}

	// The bar chart page carries one visual bound to Category and Y.
	overviewVisuals := filepath.Join(pagesDir, "Overview", "visuals")
	entries, err := os.ReadDir(overviewVisuals)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("Overview visuals = %d, want 1", len(entries))
	}
	vdata, err := os.ReadFile(filepath.Join(overviewVisuals, entries[0].Name(), "visual.json"))
	if err != nil {
		t.Fatal(err)
	}
	text := string(vdata)
	for _, want := range []string{
		`"visualType": "clusteredBarChart"`,
		`"Entity": "Orders"`,
		`"Property": "Region"`,
		`"queryRef": "Orders.Region"`,
		`"Function": 1`,
		`"queryRef": "Sum(Orders.Amount)"`,
		`"Value": "\"Sales by Region\""`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("visual.json missing %s:\n%s", want, text)
		}
	}

	// Grid cell 12x6 on a 24-column grid maps to half width, 300px tall.
	var doc struct {
		Position struct {
			X, Y, Width, Height int
		} `json:"position"`
	}
	if err := json.Unmarshal(vdata, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Position.X != 0 || doc.Position.Y != 0 || doc.Position.Width != 636 || doc.Position.Height != 300 {
		t.Errorf("position = %+v", doc.Position)
	}
}

func TestWritePagesNamedMeasureBinding(t *testing.T) {
	app := &qlik.App{
		Name: "Sales",
		Visualizations: []qlik.Visual{
			{Type: "kpi", Measures: []string{"Total Sales"}},
		},
	}
	dir := t.TempDir()
	if _, err := WritePages(dir, "Sales", app, pagesModel()); err != nil {
		t.Fatalf("WritePages: %v", err)
	}

	// No sheets: everything lands on a single ReportSection page.
	visualsDir := filepath.Join(dir, "Sales.Report", "definition", "pages", "ReportSection", "visuals")
	entries, err := os.ReadDir(visualsDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("visuals = %d, want 1", len(entries))
	}
	data, err := os.ReadFile(filepath.Join(visualsDir, entries[0].Name(), "visual.json"))
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, `"Measure"`) || !strings.Contains(text, `"Property": "Total Sales"`) {
		t.Errorf("named measure should bind as a Measure field:\n%s", text)
	}
	if !strings.Contains(text, `"visualType": "card"`) {
		t.Errorf("kpi should map to card:\n%s", text)
	}
}
