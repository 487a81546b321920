package modelgen

import (
	"strings"
	"testing"

	"github.com/semshift/semshift/internal/infer"
	"github.com/semshift/semshift/internal/pbi"
	"github.com/semshift/semshift/internal/qlik"
	"github.com/semshift/semshift/internal/typemap"
)

func TestAssemble_ColumnsSortedAndTyped(t *testing.T) {
	model, _ := Assemble(salesTables(), nil, nil, nil, Options{})

	if len(model.Tables) != 2 {
		t.Fatalf("tables = %d, want 2", len(model.Tables))
	}
	if model.Tables[0].Name != "Customers" || model.Tables[1].Name != "Sales" {
		t.Fatalf("table order = %s, %s, want Customers, Sales", model.Tables[0].Name, model.Tables[1].Name)
	}

	sales := model.Tables[1]
	want := []struct {
		name, dataType, format string
	}{
		{"Amount", pbi.TypeDouble, "#,0.00"},
		{"CustomerID", pbi.TypeInt64, "0"},
		{"SaleID", pbi.TypeInt64, "0"},
	}
	if len(sales.Columns) != len(want) {
		t.Fatalf("Sales columns = %d, want %d", len(sales.Columns), len(want))
	}
	for i, w := range want {
		col := sales.Columns[i]
		if col.Name != w.name {
			t.Fatalf("column %d = %s, want %s", i, col.Name, w.name)
		}
		if col.DataType != w.dataType {
			t.Fatalf("%s type = %s, want %s", w.name, col.DataType, w.dataType)
		}
		if col.FormatString != w.format {
			t.Fatalf("%s format = %q, want %q", w.name, col.FormatString, w.format)
		}
		if col.SourceColumn != w.name {
			t.Fatalf("%s sourceColumn = %q, want %q", w.name, col.SourceColumn, w.name)
		}
	}
}

func TestAssemble_Defaults(t *testing.T) {
	model, _ := Assemble(salesTables(), nil, nil, nil, Options{})
	if model.Name != "Model" {
		t.Fatalf("name = %q, want Model", model.Name)
	}
	if model.Culture != "en-US" {
		t.Fatalf("culture = %q, want en-US", model.Culture)
	}

	model, _ = Assemble(salesTables(), nil, nil, nil, Options{Name: "Retail"})
	if model.Name != "Retail" {
		t.Fatalf("name = %q, want Retail", model.Name)
	}
}

func TestAssemble_DeclaredTypeWins(t *testing.T) {
	opts := Options{FieldTypes: map[string]string{"Amount": "money"}}
	model, _ := Assemble(salesTables(), nil, nil, nil, opts)

	col := findTable(t, model, "Sales").FindColumn("Amount")
	if col.DataType != pbi.TypeDecimal {
		t.Fatalf("Amount type = %s, want %s", col.DataType, pbi.TypeDecimal)
	}
	if col.FormatString != "" {
		t.Fatalf("Amount format = %q, want empty", col.FormatString)
	}
}

func TestAssemble_TypeMapPin(t *testing.T) {
	tm := typemap.Default()
	tm.Fields["Amount"] = pbi.TypeDecimal

	model, _ := Assemble(salesTables(), nil, nil, nil, Options{TypeMap: tm})
	col := findTable(t, model, "Sales").FindColumn("Amount")
	if col.DataType != pbi.TypeDecimal {
		t.Fatalf("Amount type = %s, want %s", col.DataType, pbi.TypeDecimal)
	}
}

func TestAssemble_MeasurePlacement(t *testing.T) {
	measures := []qlik.Measure{{Name: "Total Sales", Expression: "Sum(Amount)"}}
	model, warnings := Assemble(salesTables(), nil, measures, nil, Options{})

	sales := findTable(t, model, "Sales")
	if len(sales.Measures) != 1 {
		t.Fatalf("Sales measures = %d, want 1", len(sales.Measures))
	}
	m := sales.Measures[0]
	if m.Expression != "SUM(Amount)" {
		t.Fatalf("expression = %q, want SUM(Amount)", m.Expression)
	}
	if m.FormatString != "#,0.00" {
		t.Fatalf("format = %q, want #,0.00", m.FormatString)
	}
	if hasWarning(warnings, "placed on") {
		t.Fatalf("unexpected placement warning: %v", warnings)
	}
}

func TestAssemble_MeasurePlacedOnFirstReference(t *testing.T) {
	// Both columns resolve; the first one referenced decides the home table.
	measures := []qlik.Measure{
		{Name: "Weighted", Expression: "Sum(Amount, CustomerName)"},
		{Name: "Reversed", Expression: "Sum(CustomerName, Amount)"},
	}
	model, _ := Assemble(salesTables(), nil, measures, nil, Options{})

	sales := findTable(t, model, "Sales")
	if len(sales.Measures) != 1 || sales.Measures[0].Name != "Weighted" {
		t.Fatalf("Sales measures = %v, want [Weighted]", measureNames(sales))
	}
	customers := findTable(t, model, "Customers")
	if len(customers.Measures) != 1 || customers.Measures[0].Name != "Reversed" {
		t.Fatalf("Customers measures = %v, want [Reversed]", measureNames(customers))
	}
}

func measureNames(tbl *pbi.Table) []string {
	var names []string
	for _, m := range tbl.Measures {
		names = append(names, m.Name)
	}
	return names
}

func TestAssemble_MeasureFallbackToFirstTable(t *testing.T) {
	measures := []qlik.Measure{{Name: "Headcount", Expression: "Count(EmployeeID)"}}
	model, warnings := Assemble(salesTables(), nil, measures, nil, Options{})

	customers := findTable(t, model, "Customers")
	if len(customers.Measures) != 1 {
		t.Fatalf("Customers measures = %d, want 1", len(customers.Measures))
	}
	if !hasWarning(warnings, "references no known column") {
		t.Fatalf("missing fallback warning, got %v", warnings)
	}
}

func TestAssemble_MeasuresSortedByName(t *testing.T) {
	measures := []qlik.Measure{
		{Name: "Zeta", Expression: "Sum(Amount)"},
		{Name: "Alpha", Expression: "Avg(Amount)"},
	}
	model, _ := Assemble(salesTables(), nil, measures, nil, Options{})

	sales := findTable(t, model, "Sales")
	if len(sales.Measures) != 2 {
		t.Fatalf("Sales measures = %d, want 2", len(sales.Measures))
	}
	if sales.Measures[0].Name != "Alpha" || sales.Measures[1].Name != "Zeta" {
		t.Fatalf("measure order = %s, %s, want Alpha, Zeta", sales.Measures[0].Name, sales.Measures[1].Name)
	}
}

func TestAssemble_MeasureWithoutExpression(t *testing.T) {
	measures := []qlik.Measure{{Name: "Broken"}}
	model, warnings := Assemble(salesTables(), nil, measures, nil, Options{})

	for _, tbl := range model.Tables {
		if len(tbl.Measures) != 0 {
			t.Fatalf("table %s has %d measures, want 0", tbl.Name, len(tbl.Measures))
		}
	}
	if !hasWarning(warnings, "has no expression") {
		t.Fatalf("missing skip warning, got %v", warnings)
	}
}

func TestAssemble_DateHierarchy(t *testing.T) {
	tables := infer.Tables{}
	tables.Add("Orders", "OrderID")
	tables.Add("Orders", "OrderDate")

	model, _ := Assemble(tables, nil, nil, nil, Options{})
	orders := findTable(t, model, "Orders")

	if len(orders.Hierarchies) != 1 {
		t.Fatalf("hierarchies = %d, want 1", len(orders.Hierarchies))
	}
	h := orders.Hierarchies[0]
	if h.Name != "OrderDate Hierarchy" {
		t.Fatalf("hierarchy name = %q, want OrderDate Hierarchy", h.Name)
	}
	if len(h.Levels) != 4 {
		t.Fatalf("levels = %d, want 4", len(h.Levels))
	}
	wantLevels := []string{"Year", "Quarter", "Month", "Day"}
	for i, level := range h.Levels {
		if level.Name != wantLevels[i] {
			t.Fatalf("level %d = %s, want %s", i, level.Name, wantLevels[i])
		}
		wantColumn := "OrderDate " + wantLevels[i]
		if level.Column != wantColumn {
			t.Fatalf("level %d column = %s, want %s", i, level.Column, wantColumn)
		}
		col := orders.FindColumn(level.Column)
		if col == nil {
			t.Fatalf("level column %s not injected into table", level.Column)
		}
		if col.DataType != pbi.TypeInt64 {
			t.Fatalf("%s type = %s, want %s", level.Column, col.DataType, pbi.TypeInt64)
		}
	}
}

func TestAssemble_HierarchyInjectionMutatesSchema(t *testing.T) {
	tables := infer.Tables{}
	tables.Add("Orders", "OrderDate")

	Assemble(tables, nil, nil, nil, Options{})

	fields := tables.Fields("Orders")
	want := []string{"OrderDate", "OrderDate Day", "OrderDate Month", "OrderDate Quarter", "OrderDate Year"}
	if len(fields) != len(want) {
		t.Fatalf("fields = %v, want %v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Fatalf("fields = %v, want %v", fields, want)
		}
	}
}

func TestAssemble_SyntheticKeys(t *testing.T) {
	tables := infer.Tables{}
	tables.Add("$SynKey1", "Key1")
	tables.Add("Orders", "OrderID")

	model, warnings := Assemble(tables, nil, nil, nil, Options{})
	if len(model.SyntheticKeys) != 1 || model.SyntheticKeys[0] != "$SynKey1" {
		t.Fatalf("syntheticKeys = %v, want [$SynKey1]", model.SyntheticKeys)
	}
	if !hasWarning(warnings, "synthetic key table") {
		t.Fatalf("missing synthetic key warning, got %v", warnings)
	}
}

func TestAssemble_RelationshipsFromAssociations(t *testing.T) {
	assocs := []qlik.Association{{
		FromTable: "Sales", FromField: "CustomerID",
		ToTable: "Customers", ToField: "CustomerID",
		Type: "natural",
	}}
	model, _ := Assemble(salesTables(), assocs, nil, nil, Options{})

	if len(model.Relationships) != 1 {
		t.Fatalf("relationships = %d, want 1", len(model.Relationships))
	}
	r := model.Relationships[0]
	if r.Name != "Sales_Customers" {
		t.Fatalf("name = %q, want Sales_Customers", r.Name)
	}
	if r.Cardinality != pbi.ManyToOne || r.CrossFilter != pbi.FilterSingle || !r.IsActive {
		t.Fatalf("relationship = %+v, want active many-to-one single", r)
	}
}

func TestAssemble_CalculatedDimension(t *testing.T) {
	dims := []qlik.Dimension{{Name: "Customer Upper", Field: "Upper(CustomerName)"}}
	model, _ := Assemble(salesTables(), nil, nil, dims, Options{})

	col := findTable(t, model, "Customers").FindColumn("Customer Upper")
	if col == nil {
		t.Fatalf("calculated column not placed on Customers")
	}
	if col.Expression != "UPPER(CustomerName)" {
		t.Fatalf("expression = %q, want UPPER(CustomerName)", col.Expression)
	}
	if col.DataType != pbi.TypeString {
		t.Fatalf("type = %s, want %s", col.DataType, pbi.TypeString)
	}
	if col.SourceColumn != "" {
		t.Fatalf("sourceColumn = %q, want empty", col.SourceColumn)
	}
}

func TestAssemble_PlainDimensionAddsNothing(t *testing.T) {
	dims := []qlik.Dimension{{Name: "Region", Field: "CustomerName"}}
	model, _ := Assemble(salesTables(), nil, nil, dims, Options{})

	customers := findTable(t, model, "Customers")
	if len(customers.Columns) != 2 {
		t.Fatalf("Customers columns = %d, want 2", len(customers.Columns))
	}
	if customers.FindColumn("Region") != nil {
		t.Fatalf("plain dimension became a column")
	}
}

func TestAssemble_EmptyTables(t *testing.T) {
	model, warnings := Assemble(nil, nil, nil, nil, Options{})

	if model.Tables == nil || len(model.Tables) != 0 {
		t.Fatalf("tables = %v, want empty non-nil", model.Tables)
	}
	if !hasWarning(warnings, "empty model") {
		t.Fatalf("missing empty model warning, got %v", warnings)
	}
}

// helpers

func salesTables() infer.Tables {
	tables := infer.Tables{}
	for _, f := range []string{"SaleID", "CustomerID", "Amount"} {
		tables.Add("Sales", f)
	}
	for _, f := range []string{"CustomerID", "CustomerName"} {
		tables.Add("Customers", f)
	}
	return tables
}

func findTable(t *testing.T, m *pbi.Model, name string) *pbi.Table {
	t.Helper()
	tbl := m.FindTable(name)
	if tbl == nil {
		t.Fatalf("table %s not in model", name)
	}
	return tbl
}

func hasWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}
