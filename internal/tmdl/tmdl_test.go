package tmdl

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/semshift/semshift/internal/pbi"
)

func TestQuoteIdent(t *testing.T) {
	cases := map[string]string{
		"Sales":        "Sales",
		"Sales Orders": "'Sales Orders'",
		"a.b":          "'a.b'",
		"a-b":          "'a-b'",
		"Net(Amount)":  "'Net(Amount)'",
		"":             "''",
		"Order_Lines":  "Order_Lines",
	}
	for in, want := range cases {
		if got := quoteIdent(in); got != want {
			t.Errorf("quoteIdent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLineageTagDeterministic(t *testing.T) {
	a := LineageTag("column", "Sales.Amount")
	b := LineageTag("column", "Sales.Amount")
	if a != b {
		t.Errorf("same inputs gave %s and %s", a, b)
	}
	if a == LineageTag("column", "Sales.Region") {
		t.Error("different names gave the same tag")
	}
	uuidShape := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	if !uuidShape.MatchString(a) {
		t.Errorf("tag %q is not UUID-shaped", a)
	}
}

func TestDataCategory(t *testing.T) {
	cases := map[string]string{
		"Country":    "Country",
		"city":       "City",
		"Region":     "StateOrProvince",
		"zip":        "PostalCode",
		"lat":        "Latitude",
		"lng":        "Longitude",
		"CustomerID": "",
	}
	for in, want := range cases {
		if got := DataCategory(in); got != want {
			t.Errorf("DataCategory(%q) = %q, want %q", in, got, want)
		}
	}
}

func sampleModel() *pbi.Model {
	return &pbi.Model{
		Name: "Sales",
		Tables: []pbi.Table{
			{
				Name: "Orders",
				Columns: []pbi.Column{
					{Name: "OrderID", DataType: pbi.TypeInt64, SourceColumn: "OrderID"},
					{Name: "Country", DataType: pbi.TypeString, SourceColumn: "Country"},
					{Name: "Margin", DataType: pbi.TypeDouble, Expression: "[Revenue] - [Cost]"},
				},
				Measures: []pbi.Measure{
					{Name: "Total Sales", Expression: "SUM(Orders[Amount])", FormatString: "#,0.00"},
				},
				Hierarchies: []pbi.Hierarchy{
					{Name: "Date Hierarchy", Levels: []pbi.Level{
						{Name: "Year", Column: "Orders.OrderDate Year"},
						{Name: "Month", Column: "OrderDate Month"},
					}},
				},
				Partition: &pbi.Partition{Mode: "import", Source: "let\n    Source = X\nin\n    Source"},
			},
			{Name: "Sales Reps", Columns: []pbi.Column{
				{Name: "RepID", DataType: pbi.TypeInt64, SourceColumn: "RepID"},
			}},
		},
		Relationships: []pbi.Relationship{
			{
				Name: "rel_1", FromTable: "Orders", FromColumn: "RepID",
				ToTable: "Sales Reps", ToColumn: "RepID",
				Cardinality: pbi.ManyToOne, CrossFilter: pbi.FilterSingle, IsActive: true,
			},
			{
				Name: "rel_2", FromTable: "Orders", FromColumn: "AltRepID",
				ToTable: "Sales Reps", ToColumn: "RepID",
				Cardinality: pbi.ManyToOne, CrossFilter: pbi.FilterBoth, IsActive: false,
			},
		},
	}
}

func TestWriteProjectLayout(t *testing.T) {
	dir := t.TempDir()
	pbipPath, err := WriteProject(dir, "Sales Report", sampleModel(), Options{})
	if err != nil {
		t.Fatalf("WriteProject: %v", err)
	}
	if filepath.Base(pbipPath) != "Sales Report.pbip" {
		t.Errorf("pbip path = %s", pbipPath)
	}

	for _, rel := range []string{
		"Sales Report.pbip",
		".gitignore",
		"Sales Report.SemanticModel/.platform",
		"Sales Report.SemanticModel/definition.pbism",
		"Sales Report.SemanticModel/diagramLayout.json",
		"Sales Report.SemanticModel/definition/database.tmdl",
		"Sales Report.SemanticModel/definition/model.tmdl",
		"Sales Report.SemanticModel/definition/relationships.tmdl",
		"Sales Report.SemanticModel/definition/tables/Orders.tmdl",
		"Sales Report.SemanticModel/definition/tables/Sales Reps.tmdl",
		"Sales Report.Report/.platform",
		"Sales Report.Report/definition.pbir",
		"Sales Report.Report/definition/version.json",
		"Sales Report.Report/definition/report.json",
		"Sales Report.Report/definition/pages/pages.json",
	} {
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			t.Errorf("missing %s: %v", rel, err)
		}
	}
}

func TestWriteProjectTableContent(t *testing.T) {
	dir := t.TempDir()
	if _, err := WriteProject(dir, "Sales", sampleModel(), Options{}); err != nil {
		t.Fatalf("WriteProject: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "Sales.SemanticModel", "definition", "tables", "Orders.tmdl"))
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)

	for _, want := range []string{
		"table Orders\n\tlineageTag: ",
		"\tcolumn OrderID\n\t\tdataType: int64",
		"\t\tsummarizeBy: none",
		"\t\tsourceColumn: OrderID",
		"\t\tdataCategory: Country",
		"\tcolumn Margin = [Revenue] - [Cost]",
		"\tmeasure 'Total Sales' = SUM(Orders[Amount])",
		"\t\tformatString: #,0.00",
		"\thierarchy 'Date Hierarchy'",
		"\t\tlevel Year\n\t\t\tcolumn: 'OrderDate Year'",
		"\t\tlevel Month\n\t\t\tcolumn: 'OrderDate Month'",
		"\tpartition Orders = m\n\t\tmode: import\n\t\tsource =\n\t\t\tlet\n\t\t\t    Source = X",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Orders.tmdl missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "sourceColumn: Margin") {
		t.Error("calculated column should not carry sourceColumn")
	}
}

func TestWriteProjectModelAndRelationships(t *testing.T) {
	dir := t.TempDir()
	if _, err := WriteProject(dir, "Sales", sampleModel(), Options{Culture: "fr-FR"}); err != nil {
		t.Fatalf("WriteProject: %v", err)
	}

	model, err := os.ReadFile(filepath.Join(dir, "Sales.SemanticModel", "definition", "model.tmdl"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"model Model",
		"\tculture: fr-FR",
		"\tdefaultPowerBIDataSourceVersion: powerBI_V3",
		"\tdiscourageImplicitMeasures",
		"ref table Orders",
		"ref table 'Sales Reps'",
	} {
		if !strings.Contains(string(model), want) {
			t.Errorf("model.tmdl missing %q", want)
		}
	}

	rels, err := os.ReadFile(filepath.Join(dir, "Sales.SemanticModel", "definition", "relationships.tmdl"))
	if err != nil {
		t.Fatal(err)
	}
	text := string(rels)
	for _, want := range []string{
		"relationship rel_1\n\tfromColumn: Orders.RepID\n\ttoColumn: 'Sales Reps'.RepID",
		"relationship rel_2",
		"\tcrossFilteringBehavior: bothDirections",
		"\tisActive: false",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("relationships.tmdl missing %q:\n%s", want, text)
		}
	}
	// rel_1 is single-direction and active, so neither override appears
	// in its block.
	rel1 := text[:strings.Index(text, "relationship rel_2")]
	if strings.Contains(rel1, "crossFilteringBehavior") || strings.Contains(rel1, "isActive") {
		t.Errorf("rel_1 block carries overrides it should omit:\n%s", rel1)
	}
}

func TestWriteProjectCalendarAndParameters(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		Calendar: true,
		Parameters: []Parameter{
			{Name: "Discount Rate", Min: 0, Max: 0.5, Step: 0.05, Default: 0.1},
		},
	}
	if _, err := WriteProject(dir, "Sales", sampleModel(), opts); err != nil {
		t.Fatalf("WriteProject: %v", err)
	}

	cal, err := os.ReadFile(filepath.Join(dir, "Sales.SemanticModel", "definition", "tables", "Calendar.tmdl"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"table Calendar",
		"\t\tdataCategory: Time",
		"\t\tsortByColumn: Month",
		"List.Dates(StartDate, DayCount",
		"\tmeasure Today = TODAY()",
	} {
		if !strings.Contains(string(cal), want) {
			t.Errorf("Calendar.tmdl missing %q", want)
		}
	}

	param, err := os.ReadFile(filepath.Join(dir, "Sales.SemanticModel", "definition", "tables", "Discount Rate.tmdl"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"column 'Discount Rate Value' = GENERATESERIES(0, 0.5, 0.05)",
		"measure DiscountRateValue = SELECTEDVALUE('Discount Rate'[Discount Rate Value], 0.1)",
	} {
		if !strings.Contains(string(param), want) {
			t.Errorf("parameter table missing %q", want)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "Sales.SemanticModel", "definition", "expressions.tmdl")); err != nil {
		t.Errorf("expressions.tmdl should exist when parameters are configured: %v", err)
	}
}

func TestWriteTheme(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteTheme(dir, "Sales")
	if err != nil {
		t.Fatalf("WriteTheme: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "#118DFF") {
		t.Error("theme missing default palette")
	}
}
