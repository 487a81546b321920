//go:build integration

package integration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/semshift/semshift/internal/qlik"
)

// writeFixtureApp writes a JSON export of a small but complete sales
// application and returns its path.
func writeFixtureApp(t *testing.T, dir string) string {
	t.Helper()

	app := qlik.App{
		Name: "Sales Demo",
		Tables: []qlik.Table{
			{Name: "Orders", Fields: []qlik.Field{
				{Name: "OrderID", Type: "integer"},
				{Name: "CustomerID", Type: "integer"},
				{Name: "OrderDate", Type: "date"},
				{Name: "Amount", Type: "money"},
			}},
			{Name: "Customers", Fields: []qlik.Field{
				{Name: "CustomerID", Type: "integer"},
				{Name: "Name", Type: "text"},
				{Name: "Country", Type: "text"},
			}},
			{Name: "Products", Fields: []qlik.Field{
				{Name: "ProductID", Type: "integer"},
				{Name: "Category", Type: "text"},
				{Name: "UnitPrice", Type: "num"},
			}},
		},
		Associations: []qlik.Association{
			{FromTable: "Orders", FromField: "CustomerID", ToTable: "Customers", ToField: "CustomerID"},
		},
		Measures: []qlik.Measure{
			{Name: "Total Sales", Expression: "Sum(Amount)", Format: "#,##0.00"},
			{Name: "YTD Sales", Expression: "Sum({<Year=>} Amount)"},
			{Name: "All Sales", Expression: "Sum({1} Amount)"},
		},
		Dimensions: []qlik.Dimension{
			{Name: "Country", Field: "Country"},
		},
		Variables: []qlik.Variable{
			{Name: "vTarget", Value: "100000"},
		},
		Sheets: []qlik.Sheet{
			{ID: "sh1", Name: "Overview"},
		},
		Visualizations: []qlik.Visual{
			{ID: "v1", SheetID: "sh1", Type: "barchart", Title: "Sales by Country",
				Dimensions: []string{"Country"}, Measures: []string{"Sum(Amount)"}},
		},
		Datasources: []qlik.Datasource{
			{Name: "orders", Type: "qvd", Path: "lib://data/orders.qvd", Table: "Orders"},
			{Name: "customers", Type: "csv", Path: "lib://data/customers.csv", Table: "Customers"},
		},
		LoadScript: "Orders:\nLOAD OrderID, CustomerID, OrderDate, Amount FROM [lib://data/orders.qvd] (qvd);\n\nCustomers:\nLOAD CustomerID, Name, Country FROM [lib://data/customers.csv] (txt);\n",
	}

	data, err := json.MarshalIndent(app, "", "  ")
	if err != nil {
		t.Fatalf("marshaling fixture: %v", err)
	}
	path := filepath.Join(dir, "sales.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func mustExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected %s to exist: %v", path, err)
	}
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}
