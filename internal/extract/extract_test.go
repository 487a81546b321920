package extract

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/semshift/semshift/internal/qlik"
)

func writeQVF(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.qvf")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadQVF(t *testing.T) {
	path := writeQVF(t, map[string]string{
		"app.xml":        `<App><Title>Sales Dashboard</Title><Description>demo</Description></App>`,
		"loadscript.txt": "Sales:\nLOAD SaleID, CustomerID, Amount FROM [lib://data/sales.qvd];",
		"objects/dimension_1.json": `{"qInfo": {"qId": "dim1"}, "qMetaDef": {"title": "Region"},
			"qDim": {"qFieldDefs": ["Region"], "qFieldLabels": ["Region"]}}`,
		"objects/m1.json": `{"qInfo": {"qId": "m1"}, "qMetaDef": {"title": "Total Sales"},
			"qMeasure": {"qDef": "Sum(Amount)", "qLabel": "Total"}}`,
		"objects/sheet_1.json": `{"qInfo": {"qId": "sh1"}, "qMetaDef": {"title": "Overview"},
			"cells": [{"name": "chart1", "type": "barchart", "col": 0, "row": 0}]}`,
		"variables.json": `[{"qName": "vMargin", "qDefinition": "0.2"}]`,
	})

	app, warnings, err := ReadQVF(path)
	if err != nil {
		t.Fatalf("ReadQVF: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	if app.Name != "Sales Dashboard" {
		t.Errorf("Name = %q, want Sales Dashboard", app.Name)
	}
	if len(app.Tables) != 1 || app.Tables[0].Name != "Sales" {
		t.Fatalf("Tables = %+v, want one Sales table from the script", app.Tables)
	}
	if len(app.Tables[0].Fields) != 3 {
		t.Errorf("Sales fields = %v, want 3", app.Tables[0].Fields)
	}
	if len(app.Measures) != 1 || app.Measures[0].Expression != "Sum(Amount)" {
		t.Errorf("Measures = %+v, want Sum(Amount)", app.Measures)
	}
	if len(app.Dimensions) != 1 || app.Dimensions[0].Field != "Region" {
		t.Errorf("Dimensions = %+v, want field Region", app.Dimensions)
	}
	if len(app.Sheets) != 1 || app.Sheets[0].Name != "Overview" {
		t.Errorf("Sheets = %+v, want Overview", app.Sheets)
	}
	if len(app.Visualizations) != 1 || app.Visualizations[0].Type != "barchart" {
		t.Errorf("Visualizations = %+v, want one barchart", app.Visualizations)
	}
	if len(app.Variables) != 1 || app.Variables[0].Name != "vMargin" {
		t.Errorf("Variables = %+v, want vMargin", app.Variables)
	}
}

func TestReadQVF_EmptyArchiveSoftFails(t *testing.T) {
	path := writeQVF(t, map[string]string{"readme.txt": "nothing here"})
	app, warnings, err := ReadQVF(path)
	if err != nil {
		t.Fatalf("ReadQVF: %v", err)
	}
	if len(warnings) == 0 {
		t.Error("expected a warning for an archive without app content")
	}
	if app.Name != "app" {
		t.Errorf("Name = %q, want the file stem", app.Name)
	}
}

func TestReadQVF_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.qvf")
	if err := os.WriteFile(path, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadQVF(path); err == nil {
		t.Fatal("expected an error for a non-zip QVF")
	}
}

func TestReadJSONExport_AppDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")
	doc := `{"name": "Demo", "tables": [{"name": "Sales", "fields": ["SaleID", "Amount"]}],
		"measures": [{"name": "Total", "expression": "Sum(Amount)"}]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	app, _, err := ReadJSONExport(path)
	if err != nil {
		t.Fatalf("ReadJSONExport: %v", err)
	}
	if app.Name != "Demo" || len(app.Tables) != 1 || len(app.Measures) != 1 {
		t.Errorf("app = %s, want Demo with 1 table and 1 measure", app.Summary())
	}
}

func TestReadJSONExport_EngineLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.json")
	doc := `{"qAppLayout": {"qTitle": "Engine App"},
		"qHyperCubeDef": {
			"qDimensions": [{"qLibraryId": "d1", "qDef": {"qFieldDefs": ["Country"]}}],
			"qMeasures": [{"qLibraryId": "m1", "qDef": {"qDef": "Sum(Sales)", "qLabel": "Sales"}}]}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	app, _, err := ReadJSONExport(path)
	if err != nil {
		t.Fatalf("ReadJSONExport: %v", err)
	}
	if app.Name != "Engine App" {
		t.Errorf("Name = %q, want Engine App", app.Name)
	}
	if len(app.Dimensions) != 1 || app.Dimensions[0].Field != "Country" {
		t.Errorf("Dimensions = %+v, want Country", app.Dimensions)
	}
	if len(app.Measures) != 1 || app.Measures[0].Expression != "Sum(Sales)" {
		t.Errorf("Measures = %+v, want Sum(Sales)", app.Measures)
	}
}

func TestReadJSONExport_InvalidShape(t *testing.T) {
	for name, doc := range map[string]string{
		"array":     `[1, 2, 3]`,
		"scalar":    `42`,
		"unrelated": `{"foo": "bar"}`,
		"not-json":  `{{{`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.json")
			if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
				t.Fatal(err)
			}
			_, _, err := ReadJSONExport(path)
			if !errors.Is(err, qlik.ErrInvalidSchema) {
				t.Errorf("err = %v, want ErrInvalidSchema", err)
			}
		})
	}
}

func TestIntermediateRoundTrip(t *testing.T) {
	app := &qlik.App{
		Name:        "Round Trip",
		Description: "artifact test",
		LoadScript:  "Sales:\nLOAD A, B FROM x;",
		Measures:    []qlik.Measure{{ID: "m1", Name: "Total", Expression: "Sum(A)"}},
		Dimensions:  []qlik.Dimension{{ID: "d1", Name: "Region", Field: "Region"}},
		Variables:   []qlik.Variable{{Name: "vX", Value: "1"}},
		Associations: []qlik.Association{
			{FromTable: "Sales", FromField: "CustomerID", ToTable: "Customers", ToField: "CustomerID"},
		},
	}
	dir := t.TempDir()
	if err := WriteIntermediate(dir, app, "app.qvf"); err != nil {
		t.Fatalf("WriteIntermediate: %v", err)
	}
	for _, name := range IntermediateFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing artifact %s", name)
		}
	}

	loaded, warnings, err := LoadIntermediate(dir)
	if err != nil {
		t.Fatalf("LoadIntermediate: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	if loaded.Name != app.Name || loaded.LoadScript != app.LoadScript {
		t.Errorf("loaded = %+v, want name and script preserved", loaded)
	}
	if len(loaded.Measures) != 1 || loaded.Measures[0].Expression != "Sum(A)" {
		t.Errorf("Measures = %+v, want Sum(A)", loaded.Measures)
	}
	if len(loaded.Associations) != 1 || loaded.Associations[0].FromTable != "Sales" {
		t.Errorf("Associations = %+v", loaded.Associations)
	}
}

func TestLoadIntermediate_MissingFilesDefaultEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "app_metadata.json"),
		[]byte(`{"name": "Partial"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	app, _, err := LoadIntermediate(dir)
	if err != nil {
		t.Fatalf("LoadIntermediate: %v", err)
	}
	if app.Name != "Partial" {
		t.Errorf("Name = %q, want Partial", app.Name)
	}
	if len(app.Measures) != 0 || len(app.Sheets) != 0 {
		t.Errorf("expected empty collections, got %s", app.Summary())
	}
}

func TestLoadIntermediate_LegacyAssociationShape(t *testing.T) {
	dir := t.TempDir()
	doc := `[{"table1": "Sales", "field1": "CustomerID", "table2": "Customers", "field2": "CustomerID"}]`
	if err := os.WriteFile(filepath.Join(dir, "associations.json"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	app, _, err := LoadIntermediate(dir)
	if err != nil {
		t.Fatalf("LoadIntermediate: %v", err)
	}
	if len(app.Associations) != 1 {
		t.Fatalf("Associations = %+v, want 1", app.Associations)
	}
	a := app.Associations[0]
	if a.FromTable != "Sales" || a.ToTable != "Customers" || a.FromField != "CustomerID" {
		t.Errorf("association = %+v, want Sales→Customers on CustomerID", a)
	}
}

func TestRead_Dispatch(t *testing.T) {
	if _, _, err := Read(filepath.Join(t.TempDir(), "missing.qvf")); err == nil {
		t.Error("expected an error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "model.xlsx")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Read(path); err == nil {
		t.Error("expected an error for an unsupported extension")
	}
}
