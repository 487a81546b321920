package mquery

import (
	"strings"
	"testing"

	"github.com/semshift/semshift/internal/qlik"
)

func TestMType(t *testing.T) {
	cases := map[string]string{
		"integer":   "Int64.Type",
		"num":       "type number",
		"money":     "Currency.Type",
		"text":      "type text",
		"date":      "type date",
		"timestamp": "type datetime",
		"time":      "type time",
		"boolean":   "type logical",
		"dual":      "type text",
		"mystery":   "type text",
		"":          "type text",
	}
	for in, want := range cases {
		if got := MType(in); got != want {
			t.Errorf("MType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGenerate_Excel(t *testing.T) {
	q, warnings := Generate(qlik.Datasource{
		ConnectionType: "excel",
		Path:           `C:\Data\sales.xlsx`,
		Table:          "Sales",
		Fields:         []qlik.Field{{Name: "Amount", Type: "num"}, {Name: "Region", Type: "text"}},
	})
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	for _, want := range []string{
		`Excel.Workbook(File.Contents("C:\Data\sales.xlsx"), null, true)`,
		`Table.PromoteHeaders`,
		`Table.TransformColumnTypes(PromotedHeaders, {{"Amount", type number}, {"Region", type text}})`,
		"in\n    ChangedTypes",
	} {
		if !strings.Contains(q, want) {
			t.Errorf("query missing %q:\n%s", want, q)
		}
	}
}

func TestGenerate_SQLServerSchemaSplit(t *testing.T) {
	q, _ := Generate(qlik.Datasource{
		ConnectionType: "sqlserver",
		Server:         "db01",
		Database:       "sales",
		Table:          "fact.Orders",
	})
	if !strings.Contains(q, `Source{[Schema="fact",Item="Orders"]}[Data]`) {
		t.Errorf("schema split missing:\n%s", q)
	}
}

func TestGenerate_SnowflakeNavigation(t *testing.T) {
	q, _ := Generate(qlik.Datasource{
		Type:      "snowflake",
		Server:    "acme.snowflakecomputing.com",
		Warehouse: "WH1",
		Database:  "SALES",
		Schema:    "PUBLIC",
		Table:     "ORDERS",
	})
	for _, want := range []string{
		`Snowflake.Databases("acme.snowflakecomputing.com", "WH1")`,
		`DB = Source{[Name="SALES"]}[Data]`,
		`Schema = DB{[Name="PUBLIC"]}[Data]`,
		`Table = Schema{[Name="ORDERS"]}[Data]`,
	} {
		if !strings.Contains(q, want) {
			t.Errorf("query missing %q:\n%s", want, q)
		}
	}
}

func TestGenerate_QVDPointsAtCSV(t *testing.T) {
	q, _ := Generate(qlik.Datasource{Type: "qvd", Path: `C:\Data\sales.qvd`})
	if !strings.Contains(q, `// QVD source: C:\Data\sales.qvd`) {
		t.Errorf("missing QVD comment:\n%s", q)
	}
	if !strings.Contains(q, `File.Contents("C:\Data\sales.csv")`) {
		t.Errorf("missing .csv swap:\n%s", q)
	}
}

func TestGenerate_UnknownConnectorFallsBack(t *testing.T) {
	// "azuresynapse" (no underscore) is not in the dispatch table.
	q, warnings := Generate(qlik.Datasource{
		ConnectionType: "azuresynapse",
		Table:          "Orders",
		Fields:         []qlik.Field{{Name: "OrderID"}},
	})
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", warnings)
	}
	if !strings.Contains(q, `#table({"OrderID"}, {})`) {
		t.Errorf("fallback query missing #table sample:\n%s", q)
	}
}

func TestGenerate_ConnectorFromExtension(t *testing.T) {
	q, warnings := Generate(qlik.Datasource{Path: "/data/export.csv"})
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	if !strings.Contains(q, "Csv.Document") {
		t.Errorf("expected CSV template from extension:\n%s", q)
	}
}

func TestGenerateAll(t *testing.T) {
	queries, _ := GenerateAll([]qlik.Datasource{
		{ConnectionType: "csv", Table: "A", Path: "a.csv"},
		{ConnectionType: "postgresql", Table: "B"},
	})
	if len(queries) != 2 {
		t.Fatalf("queries = %d, want 2", len(queries))
	}
	if !strings.Contains(queries["B"], "PostgreSQL.Database") {
		t.Errorf("B query = %s", queries["B"])
	}
}

func TestApplyInjectsSteps(t *testing.T) {
	base := "let\n    Source = Csv.Document(File.Contents(\"a.csv\")),\n    PromotedHeaders = Table.PromoteHeaders(Source)\nin\n    PromotedHeaders"
	steps := []Step{
		RemoveColumns("PromotedHeaders", []string{"Junk"}),
		FilterNulls("RemovedColumns", "ID", false),
	}
	got := Apply(base, steps)

	for _, want := range []string{
		"PromotedHeaders = Table.PromoteHeaders(Source),",
		`RemovedColumns = Table.RemoveColumns(PromotedHeaders, {"Junk"}),`,
		"FilteredNulls = Table.SelectRows(RemovedColumns, each [ID] <> null)",
		"in\n    FilteredNulls",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "in\n    PromotedHeaders") {
		t.Error("old in clause survived")
	}
}

func TestApplyNoSteps(t *testing.T) {
	base := "let\n    Source = X\nin\n    Source"
	if got := Apply(base, nil); got != base {
		t.Errorf("Apply with no steps changed the query: %s", got)
	}
}

func TestGroupByStep(t *testing.T) {
	s := GroupBy("Source", []string{"Region"}, []AggSpec{
		{Column: "Amount", Agg: "sum", Alias: "Total"},
		{Column: "OrderID", Agg: "countd"},
	})
	for _, want := range []string{
		`Table.Group(Source, {"Region"}`,
		`{"Total", each List.Sum([Amount]), type number}`,
		`{"countd_OrderID", each List.NonNullCount([OrderID]), Int64.Type}`,
	} {
		if !strings.Contains(s.Code, want) {
			t.Errorf("missing %q in %s", want, s.Code)
		}
	}
}

func TestJoinWithExpand(t *testing.T) {
	steps := Join("Source", "Customers", "CustomerID", "CustomerID", "left", []string{"Name"})
	if len(steps) != 2 {
		t.Fatalf("steps = %d, want join + expand", len(steps))
	}
	if !strings.Contains(steps[0].Code, "JoinKind.LeftOuter") {
		t.Errorf("join step = %s", steps[0].Code)
	}
	if !strings.Contains(steps[1].Code, `Table.ExpandTableColumn(Joined, "Joined", {"Name"})`) {
		t.Errorf("expand step = %s", steps[1].Code)
	}
}

func TestParseLoadStatement(t *testing.T) {
	stmt := "Sales:\nLOAD SaleID, Upper(Region) as RegionU, Amount FROM [lib://data/sales.csv] WHERE Amount > 0;"
	ls, err := ParseLoadStatement(stmt)
	if err != nil {
		t.Fatalf("ParseLoadStatement: %v", err)
	}
	if ls.TableName != "Sales" {
		t.Errorf("TableName = %q, want Sales", ls.TableName)
	}
	if ls.SourceType != "file" || ls.Source != "lib://data/sales.csv" {
		t.Errorf("source = %s %s", ls.SourceType, ls.Source)
	}
	if len(ls.Fields) != 3 {
		t.Errorf("Fields = %v, want 3", ls.Fields)
	}
	if ls.Where != "Amount > 0" {
		t.Errorf("Where = %q", ls.Where)
	}
}

func TestConvertLoad_CalculatedField(t *testing.T) {
	ls := LoadStatement{
		TableName:  "Sales",
		Fields:     []string{"SaleID", "Upper(Region) as RegionU"},
		Source:     "lib://data/sales.csv",
		SourceType: "file",
		Where:      "Amount > 0",
	}
	q := ConvertLoad(ls)
	for _, want := range []string{
		"Csv.Document",
		`Table.AddColumn(PromotedHeaders, "RegionU", each Text.Upper(Region))`,
		`Table.SelectColumns(AddColumn1, {"SaleID", "RegionU"})`,
		"Filtered = Table.SelectRows(SelectedColumns, each (Amount > 0))",
		"in\n    Filtered",
	} {
		if !strings.Contains(q, want) {
			t.Errorf("missing %q:\n%s", want, q)
		}
	}
}

func TestConvertScript_Report(t *testing.T) {
	script := "Sales:\nLOAD SaleID, Upper(Region) as RegionU FROM [lib://data/sales.csv];\n\n" +
		"Other:\nLOAD X, ApplyMap('m', Y) as Z FROM [lib://data/other.csv];"
	results, report := ConvertScript(script)
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if report.Total != 2 || report.Converted != 2 {
		t.Errorf("report = %+v", report)
	}
	found := false
	for _, f := range report.Unconverted {
		if f == "ApplyMap" {
			found = true
		}
	}
	if !found {
		t.Errorf("ApplyMap should be reported unconverted: %v", report.Unconverted)
	}
	if report.ConversionRate != 100 {
		t.Errorf("ConversionRate = %v, want 100", report.ConversionRate)
	}
}

func TestConvertExpression(t *testing.T) {
	cases := map[string]string{
		"Upper(Name)":     "Text.Upper(Name)",
		"Today()":         "Date.From(DateTime.LocalNow())",
		"Round(Amount,2)": "Number.Round(Amount,2)",
		"Mystery(X)":      "Mystery(X)",
	}
	for in, want := range cases {
		if got := ConvertExpression(in); got != want {
			t.Errorf("ConvertExpression(%q) = %q, want %q", in, got, want)
		}
	}
}
