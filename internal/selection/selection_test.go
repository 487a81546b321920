package selection

import (
	"testing"

	"github.com/semshift/semshift/internal/qlik"
)

func testApp() *qlik.App {
	return &qlik.App{
		Name: "Sales",
		Tables: []qlik.Table{
			{Name: "Orders"},
			{Name: "OrderItems"},
			{Name: "Customers"},
			{Name: "AuditLog"},
		},
		Associations: []qlik.Association{
			{FromTable: "Orders", FromField: "CustomerID", ToTable: "Customers", ToField: "CustomerID"},
			{FromTable: "OrderItems", FromField: "OrderID", ToTable: "Orders", ToField: "OrderID"},
		},
		Datasources: []qlik.Datasource{
			{Table: "Orders", ConnectionType: "sqlserver"},
			{Table: "AuditLog", ConnectionType: "sqlserver"},
			{Path: "lib://data/shared.csv"},
		},
		Sheets: []qlik.Sheet{
			{ID: "s1", Name: "Overview"},
			{ID: "s2", Name: "Audit Detail"},
		},
		Visualizations: []qlik.Visual{
			{ID: "v1", SheetID: "s1"},
			{ID: "v2", SheetID: "s2"},
		},
	}
}

func TestMatchGlob(t *testing.T) {
	cases := []struct {
		name, pattern string
		want          bool
	}{
		{"Orders", "*", true},
		{"OrderItems", "Order*", true},
		{"AuditLog", "*Log", true},
		{"Orders", "Orders", true},
		{"Orders", "Customers", false},
		{"Customers", "Order*", false},
	}
	for _, c := range cases {
		if got := matchGlob(c.name, c.pattern); got != c.want {
			t.Errorf("matchGlob(%q, %q) = %v", c.name, c.pattern, c.want)
		}
	}
}

func TestTableSelected(t *testing.T) {
	r := Rules{IncludeTables: []string{"Order*"}, ExcludeTables: []string{"OrderItems"}}
	if !r.TableSelected("Orders") {
		t.Error("Orders not selected")
	}
	if r.TableSelected("OrderItems") {
		t.Error("exclusion did not win over inclusion")
	}
	if r.TableSelected("Customers") {
		t.Error("Customers selected outside include list")
	}
	if !(Rules{}).TableSelected("Anything") {
		t.Error("empty rules should select everything")
	}
}

func TestApply(t *testing.T) {
	app := testApp()
	r := Rules{
		ExcludeTables: []string{"AuditLog"},
		ExcludeSheets: []string{"Audit*"},
	}
	got := Apply(app, r)

	if len(got.Tables) != 3 {
		t.Errorf("tables = %d", len(got.Tables))
	}
	if len(got.Associations) != 2 {
		t.Errorf("associations = %d", len(got.Associations))
	}
	if len(got.Datasources) != 2 {
		t.Errorf("datasources = %+v", got.Datasources)
	}
	if len(got.Sheets) != 1 || got.Sheets[0].Name != "Overview" {
		t.Errorf("sheets = %+v", got.Sheets)
	}
	if len(got.Visualizations) != 1 || got.Visualizations[0].ID != "v1" {
		t.Errorf("visualizations = %+v", got.Visualizations)
	}
	if len(app.Tables) != 4 {
		t.Error("Apply mutated the input app")
	}
}

func TestApplyEmptyRulesPassthrough(t *testing.T) {
	app := testApp()
	if got := Apply(app, Rules{}); got != app {
		t.Error("empty rules should return the app unchanged")
	}
}

func TestFindOrphans(t *testing.T) {
	app := testApp()
	r := Rules{ExcludeTables: []string{"Customers"}}

	orphans := FindOrphans(app, r)
	if len(orphans) != 1 {
		t.Fatalf("orphans = %+v", orphans)
	}
	o := orphans[0]
	if o.Table != "Orders" || o.Field != "CustomerID" || o.ReferencedTable != "Customers" {
		t.Errorf("orphan = %+v", o)
	}
}

func TestFindOrphansNone(t *testing.T) {
	if orphans := FindOrphans(testApp(), Rules{}); len(orphans) != 0 {
		t.Errorf("orphans = %+v", orphans)
	}
}
