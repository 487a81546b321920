// Package mquery renders Power Query M source queries for the target
// model's partitions: one connector template per supported datasource
// kind, a vocabulary of chainable transform steps, and a converter that
// rewrites Qlik load scripts statement by statement.
package mquery

import (
	"fmt"
	"sort"
	"strings"

	"github.com/semshift/semshift/internal/qlik"
)

var mTypes = map[string]string{
	"integer":   "Int64.Type",
	"int":       "Int64.Type",
	"num":       "type number",
	"number":    "type number",
	"numeric":   "type number",
	"real":      "type number",
	"money":     "Currency.Type",
	"currency":  "Currency.Type",
	"decimal":   "type number",
	"text":      "type text",
	"string":    "type text",
	"date":      "type date",
	"timestamp": "type datetime",
	"datetime":  "type datetime",
	"time":      "type time",
	"boolean":   "type logical",
	"dual":      "type text",
}

// MType maps a Qlik data type to its Power Query M type. Unknown or
// empty types map to text.
func MType(qlikType string) string {
	if t, ok := mTypes[strings.ToLower(qlikType)]; ok {
		return t
	}
	return "type text"
}

type generator func(ds qlik.Datasource) string

// generators dispatches by normalized connector name. Spelling variants
// carry their own entries; there is no fuzzy matching, and a name outside
// this table falls back to a #table sample.
var generators = map[string]generator{
	"excel":         genExcel,
	"xlsx":          genExcel,
	"xls":           genExcel,
	"csv":           genCSV,
	"txt":           genCSV,
	"text":          genCSV,
	"sqlserver":     genSQLServer,
	"sql":           genSQLServer,
	"mssql":         genSQLServer,
	"postgresql":    genPostgres,
	"postgres":      genPostgres,
	"oracle":        genOracle,
	"mysql":         genMySQL,
	"bigquery":      genBigQuery,
	"snowflake":     genSnowflake,
	"teradata":      genTeradata,
	"saphana":       genSapHana,
	"sap_hana":      genSapHana,
	"hana":          genSapHana,
	"redshift":      genRedshift,
	"databricks":    genDatabricks,
	"spark":         genSpark,
	"azuresql":      genAzureSQL,
	"azure_sql":     genAzureSQL,
	"synapse":       genSynapse,
	"azure_synapse": genSynapse,
	"googlesheets":  genWeb,
	"google_sheets": genWeb,
	"sharepoint":    genSharePoint,
	"json":          genJSON,
	"xml":           genXML,
	"pdf":           genPDF,
	"salesforce":    genSalesforce,
	"web":           genWeb,
	"qvd":           genQVD,
	"odbc":          genODBC,
	"oledb":         genOleDB,
	"ole_db":        genOleDB,
}

// Generate renders a complete let..in M document for one datasource. The
// connector is resolved from ConnectionType, Type, or SourceType in that
// order, lowercased with spaces and hyphens stripped, falling back to the
// path extension. Unknown connectors produce a #table sample with a
// review warning.
func Generate(ds qlik.Datasource) (string, []string) {
	kind := connectorKind(ds)
	gen, ok := generators[kind]
	if !ok {
		warning := fmt.Sprintf("no connector template for %q on table %s; emitted a sample query",
			kind, tableName(ds))
		if kind == "" {
			warning = fmt.Sprintf("datasource for table %s has no connection type; emitted a sample query",
				tableName(ds))
		}
		return genSample(ds), []string{warning}
	}
	return gen(ds), nil
}

// GenerateAll renders one query per datasource, keyed by table name, with
// every warning collected.
func GenerateAll(datasources []qlik.Datasource) (map[string]string, []string) {
	queries := make(map[string]string, len(datasources))
	var warnings []string
	for _, ds := range datasources {
		q, w := Generate(ds)
		queries[tableName(ds)] = q
		warnings = append(warnings, w...)
	}
	return queries, warnings
}

func connectorKind(ds qlik.Datasource) string {
	kind := ds.ConnectionType
	if kind == "" {
		kind = ds.Type
	}
	if kind == "" {
		kind = ds.SourceType
	}
	kind = strings.ToLower(kind)
	kind = strings.ReplaceAll(kind, " ", "")
	kind = strings.ReplaceAll(kind, "-", "")
	if kind == "" && ds.Path != "" {
		if i := strings.LastIndex(ds.Path, "."); i >= 0 {
			kind = strings.ToLower(ds.Path[i+1:])
		}
	}
	return kind
}

func tableName(ds qlik.Datasource) string {
	switch {
	case ds.Table != "":
		return ds.Table
	case ds.Name != "":
		return ds.Name
	default:
		return "Table"
	}
}

func defaulted(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// mstr quotes a value for M source. M escapes a double quote by doubling
// it; backslashes are literal.
func mstr(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// splitQualified splits schema.table, with a default schema when the name
// is unqualified.
func splitQualified(name, defaultSchema string) (schema, table string) {
	if i := strings.Index(name, "."); i >= 0 {
		return name[:i], name[i+1:]
	}
	return defaultSchema, name
}

// typeStep renders a Table.TransformColumnTypes step from the declared
// columns, or "" when no columns are known.
func typeStep(fields []qlik.Field, prev string) string {
	if len(fields) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(fields))
	for _, f := range fields {
		pairs = append(pairs, fmt.Sprintf("{%s, %s}", mstr(f.Name), MType(f.Type)))
	}
	return fmt.Sprintf("    ChangedTypes = Table.TransformColumnTypes(%s, {%s})",
		prev, strings.Join(pairs, ", "))
}

func letQuery(lines []string, final string) string {
	var b strings.Builder
	b.WriteString("let\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\nin\n    ")
	b.WriteString(final)
	return b.String()
}

func genExcel(ds qlik.Datasource) string {
	path := defaulted(ds.Path, `C:\Data\file.xlsx`)
	sheet := defaulted(ds.SheetName, defaulted(ds.Table, "Sheet1"))
	lines := []string{
		fmt.Sprintf("    Source = Excel.Workbook(File.Contents(%s), null, true),", mstr(path)),
		fmt.Sprintf("    Sheet = Source{[Item=%s,Kind=\"Sheet\"]}[Data],", mstr(sheet)),
		"    PromotedHeaders = Table.PromoteHeaders(Sheet, [PromoteAllScalars=true])",
	}
	if ts := typeStep(ds.Fields, "PromotedHeaders"); ts != "" {
		lines[len(lines)-1] += ","
		lines = append(lines, ts)
		return letQuery(lines, "ChangedTypes")
	}
	return letQuery(lines, "PromotedHeaders")
}

func genCSV(ds qlik.Datasource) string {
	path := defaulted(ds.Path, `C:\Data\file.csv`)
	delimiter := defaulted(ds.Delimiter, ",")
	lines := []string{
		fmt.Sprintf("    Source = Csv.Document(File.Contents(%s), [Delimiter=%s, Encoding=65001, QuoteStyle=QuoteStyle.None]),",
			mstr(path), mstr(delimiter)),
		"    PromotedHeaders = Table.PromoteHeaders(Source, [PromoteAllScalars=true])",
	}
	if ts := typeStep(ds.Fields, "PromotedHeaders"); ts != "" {
		lines[len(lines)-1] += ","
		lines = append(lines, ts)
		return letQuery(lines, "ChangedTypes")
	}
	return letQuery(lines, "PromotedHeaders")
}

func genSQLServer(ds qlik.Datasource) string {
	schema, table := splitQualified(defaulted(ds.Table, "dbo.Table1"), "dbo")
	return letQuery([]string{
		fmt.Sprintf("    Source = Sql.Database(%s, %s),",
			mstr(defaulted(ds.Server, "localhost")), mstr(defaulted(ds.Database, "master"))),
		fmt.Sprintf("    Table = Source{[Schema=%s,Item=%s]}[Data]", mstr(schema), mstr(table)),
	}, "Table")
}

func genPostgres(ds qlik.Datasource) string {
	schema, table := splitQualified(defaulted(ds.Table, "public.table1"), "public")
	return letQuery([]string{
		fmt.Sprintf("    Source = PostgreSQL.Database(%s, %s),",
			mstr(defaulted(ds.Server, "localhost")), mstr(defaulted(ds.Database, "postgres"))),
		fmt.Sprintf("    Table = Source{[Schema=%s,Item=%s]}[Data]", mstr(schema), mstr(table)),
	}, "Table")
}

func genOracle(ds qlik.Datasource) string {
	schema, table := splitQualified(defaulted(ds.Table, "SCHEMA.TABLE1"), "SCHEMA")
	return letQuery([]string{
		fmt.Sprintf("    Source = Oracle.Database(%s),", mstr(defaulted(ds.Server, "localhost"))),
		fmt.Sprintf("    Table = Source{[Schema=%s,Item=%s]}[Data]", mstr(schema), mstr(table)),
	}, "Table")
}

func genMySQL(ds qlik.Datasource) string {
	database := defaulted(ds.Database, "mydb")
	return letQuery([]string{
		fmt.Sprintf("    Source = MySQL.Database(%s, %s),",
			mstr(defaulted(ds.Server, "localhost")), mstr(database)),
		fmt.Sprintf("    Table = Source{[Schema=%s,Item=%s]}[Data]",
			mstr(database), mstr(defaulted(ds.Table, "table1"))),
	}, "Table")
}

func genBigQuery(ds qlik.Datasource) string {
	return letQuery([]string{
		fmt.Sprintf("    Source = GoogleBigQuery.Database([BillingProject=%s]),",
			mstr(defaulted(ds.Project, "my-project"))),
		fmt.Sprintf("    Dataset = Source{[Name=%s]}[Data],", mstr(defaulted(ds.Database, "my_dataset"))),
		fmt.Sprintf("    Table = Dataset{[Name=%s]}[Data]", mstr(defaulted(ds.Table, "table1"))),
	}, "Table")
}

func genSnowflake(ds qlik.Datasource) string {
	return letQuery([]string{
		fmt.Sprintf("    Source = Snowflake.Databases(%s, %s),",
			mstr(defaulted(ds.Server, "account.snowflakecomputing.com")),
			mstr(defaulted(ds.Warehouse, "COMPUTE_WH"))),
		fmt.Sprintf("    DB = Source{[Name=%s]}[Data],", mstr(defaulted(ds.Database, "MY_DB"))),
		fmt.Sprintf("    Schema = DB{[Name=%s]}[Data],", mstr(defaulted(ds.Schema, "PUBLIC"))),
		fmt.Sprintf("    Table = Schema{[Name=%s]}[Data]", mstr(defaulted(ds.Table, "TABLE1"))),
	}, "Table")
}

func genTeradata(ds qlik.Datasource) string {
	return letQuery([]string{
		fmt.Sprintf("    Source = Teradata.Database(%s, [Database=%s]),",
			mstr(defaulted(ds.Server, "teradata-server")), mstr(defaulted(ds.Database, "DBC"))),
		fmt.Sprintf("    Table = Source{[Name=%s]}[Data]", mstr(defaulted(ds.Table, "TABLE1"))),
	}, "Table")
}

func genSapHana(ds qlik.Datasource) string {
	schema, table := splitQualified(defaulted(ds.Table, "SCHEMA.TABLE1"), "_SYS_BIC")
	return letQuery([]string{
		fmt.Sprintf("    Source = SapHana.Database(%s),", mstr(defaulted(ds.Server, "hana-server:30015"))),
		fmt.Sprintf("    Table = Source{[Schema=%s,Name=%s]}[Data]", mstr(schema), mstr(table)),
	}, "Table")
}

func genRedshift(ds qlik.Datasource) string {
	schema, table := splitQualified(defaulted(ds.Table, "public.table1"), "public")
	return letQuery([]string{
		fmt.Sprintf("    Source = AmazonRedshift.Database(%s, %s),",
			mstr(defaulted(ds.Server, "cluster.redshift.amazonaws.com")),
			mstr(defaulted(ds.Database, "dev"))),
		fmt.Sprintf("    Table = Source{[Schema=%s,Item=%s]}[Data]", mstr(schema), mstr(table)),
	}, "Table")
}

func genDatabricks(ds qlik.Datasource) string {
	return letQuery([]string{
		fmt.Sprintf("    Source = Databricks.Catalogs(%s, %s),",
			mstr(defaulted(ds.Server, "adb-xxx.azuredatabricks.net")),
			mstr(defaulted(ds.Path, "/sql/1.0/warehouses/xxx"))),
		fmt.Sprintf("    Catalog = Source{[Name=%s]}[Data],", mstr(defaulted(ds.Catalog, "main"))),
		fmt.Sprintf("    Table = Catalog{[Name=%s]}[Data]", mstr(defaulted(ds.Table, "default.table1"))),
	}, "Table")
}

func genSpark(ds qlik.Datasource) string {
	return letQuery([]string{
		fmt.Sprintf("    Source = SparkHive.Database(%s),", mstr(defaulted(ds.Server, "spark-server"))),
		fmt.Sprintf("    Table = Source{[Name=%s]}[Data]", mstr(defaulted(ds.Table, "default.table1"))),
	}, "Table")
}

func genAzureSQL(ds qlik.Datasource) string {
	schema, table := splitQualified(defaulted(ds.Table, "dbo.Table1"), "dbo")
	return letQuery([]string{
		fmt.Sprintf("    Source = AzureSQL.Database(%s, %s),",
			mstr(defaulted(ds.Server, "server.database.windows.net")),
			mstr(defaulted(ds.Database, "mydb"))),
		fmt.Sprintf("    Table = Source{[Schema=%s,Item=%s]}[Data]", mstr(schema), mstr(table)),
	}, "Table")
}

func genSynapse(ds qlik.Datasource) string {
	schema, table := splitQualified(defaulted(ds.Table, "dbo.Table1"), "dbo")
	return letQuery([]string{
		fmt.Sprintf("    Source = AzureSynapse.Database(%s, %s),",
			mstr(defaulted(ds.Server, "workspace.sql.azuresynapse.net")),
			mstr(defaulted(ds.Database, "pool"))),
		fmt.Sprintf("    Table = Source{[Schema=%s,Item=%s]}[Data]", mstr(schema), mstr(table)),
	}, "Table")
}

func genSharePoint(ds qlik.Datasource) string {
	file := defaulted(ds.Path, "Shared Documents/data.xlsx")
	if i := strings.LastIndex(file, "/"); i >= 0 {
		file = file[i+1:]
	}
	return letQuery([]string{
		fmt.Sprintf("    Source = SharePoint.Files(%s, [ApiVersion = 15]),",
			mstr(defaulted(ds.URL, "https://company.sharepoint.com/sites/data"))),
		fmt.Sprintf("    File = Source{[Name=%s]}[Content],", mstr(file)),
		"    Workbook = Excel.Workbook(File, true),",
		"    Sheet = Workbook{[Item=\"Sheet1\",Kind=\"Sheet\"]}[Data]",
	}, "Sheet")
}

func genJSON(ds qlik.Datasource) string {
	return letQuery([]string{
		fmt.Sprintf("    Source = Json.Document(File.Contents(%s)),", mstr(defaulted(ds.Path, `C:\Data\data.json`))),
		"    Table = Table.FromRecords(Source)",
	}, "Table")
}

func genXML(ds qlik.Datasource) string {
	return letQuery([]string{
		fmt.Sprintf("    Source = Xml.Tables(File.Contents(%s)),", mstr(defaulted(ds.Path, `C:\Data\data.xml`))),
		"    Table = Source{0}",
	}, "Table")
}

func genPDF(ds qlik.Datasource) string {
	return letQuery([]string{
		fmt.Sprintf("    Source = Pdf.Tables(File.Contents(%s)),", mstr(defaulted(ds.Path, `C:\Data\report.pdf`))),
		"    Table = Source{[Id=\"Table001\"]}[Data]",
	}, "Table")
}

func genSalesforce(ds qlik.Datasource) string {
	return letQuery([]string{
		"    Source = Salesforce.Data(),",
		fmt.Sprintf("    Table = Source{[Name=%s]}[Data]", mstr(defaulted(ds.Table, "Account"))),
	}, "Table")
}

func genWeb(ds qlik.Datasource) string {
	url := defaulted(ds.URL, defaulted(ds.Path, "https://example.com/data"))
	return letQuery([]string{
		fmt.Sprintf("    Source = Web.BrowserContents(%s),", mstr(url)),
		`    Table = Html.Table(Source, {{"Column1", "TABLE > TR > TD:nth-child(1)"}})`,
	}, "Table")
}

// genQVD cannot read QVD files natively; it points at a CSV sibling and
// leaves the original path in a comment for re-pointing.
func genQVD(ds qlik.Datasource) string {
	path := defaulted(ds.Path, `C:\Data\file.qvd`)
	csvPath := strings.TrimSuffix(path, ".qvd") + ".csv"
	return letQuery([]string{
		"    // QVD source: " + path,
		"    // QVD files need the Qlik QVD connector or conversion to CSV/Parquet",
		fmt.Sprintf("    Source = Csv.Document(File.Contents(%s), [Delimiter=\",\", Encoding=65001]),", mstr(csvPath)),
		"    PromotedHeaders = Table.PromoteHeaders(Source, [PromoteAllScalars=true])",
	}, "PromotedHeaders")
}

func genODBC(ds qlik.Datasource) string {
	return letQuery([]string{
		fmt.Sprintf("    Source = Odbc.DataSource(%s),", mstr(defaulted(ds.Query, "DSN=MyDSN"))),
		fmt.Sprintf("    Table = Source{[Name=%s]}[Data]", mstr(defaulted(ds.Table, "table1"))),
	}, "Table")
}

func genOleDB(ds qlik.Datasource) string {
	conn := defaulted(ds.Query, "Provider=SQLOLEDB;Data Source=server;Initial Catalog=db")
	return letQuery([]string{
		fmt.Sprintf("    Source = OleDb.DataSource(%s),", mstr(conn)),
		fmt.Sprintf("    Table = Source{[Name=%s]}[Data]", mstr(defaulted(ds.Table, "table1"))),
	}, "Table")
}

// genSample is the fallback for unknown connectors: an empty #table with
// the declared column names so the model still refreshes.
func genSample(ds qlik.Datasource) string {
	cols := []string{`"Column1"`}
	if len(ds.Fields) > 0 {
		cols = cols[:0]
		for _, f := range ds.Fields {
			cols = append(cols, mstr(f.Name))
		}
	}
	return letQuery([]string{
		fmt.Sprintf("    // Configure the data source for table %q manually", tableName(ds)),
		fmt.Sprintf("    Source = #table({%s}, {})", strings.Join(cols, ", ")),
	}, "Source")
}

// Connectors returns the supported connector names, sorted.
func Connectors() []string {
	names := make([]string, 0, len(generators))
	for k := range generators {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
