package mquery

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// LoadStatement is one parsed Qlik LOAD statement.
type LoadStatement struct {
	TableName  string
	Fields     []string
	Source     string
	SourceType string // file, resident, inline, sql
	Where      string
}

// StatementResult carries the conversion outcome for one statement.
type StatementResult struct {
	Statement LoadStatement
	Query     string
	Err       error
}

// ConversionReport summarizes a whole-script conversion.
type ConversionReport struct {
	Total           int      `json:"total"`
	Converted       int      `json:"converted"`
	ConversionRate  float64  `json:"conversionRate"`
	Unconverted     []string `json:"unconvertedFunctions,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// scriptFuncs maps Qlik script functions to their Power Query M
// counterparts for calculated fields and WHERE clauses. Today is handled
// separately; it converts to a full call, not a rename.
var scriptFuncs = []struct{ qlik, m string }{
	{"Upper", "Text.Upper"},
	{"Lower", "Text.Lower"},
	{"Len", "Text.Length"},
	{"Trim", "Text.Trim"},
	{"LTrim", "Text.TrimStart"},
	{"RTrim", "Text.TrimEnd"},
	{"SubField", "Text.Split"},
	{"Left", "Text.Start"},
	{"Right", "Text.End"},
	{"Mid", "Text.Middle"},
	{"Replace", "Text.Replace"},
	{"Date", "Date.From"},
	{"Now", "DateTime.LocalNow"},
	{"Year", "Date.Year"},
	{"Month", "Date.Month"},
	{"Day", "Date.Day"},
	{"MonthName", "Date.MonthName"},
	{"WeekDay", "Date.DayOfWeek"},
	{"YearStart", "Date.StartOfYear"},
	{"YearEnd", "Date.EndOfYear"},
	{"MonthStart", "Date.StartOfMonth"},
	{"MonthEnd", "Date.EndOfMonth"},
	{"Round", "Number.Round"},
	{"Floor", "Number.RoundDown"},
	{"Ceil", "Number.RoundUp"},
	{"Abs", "Number.Abs"},
	{"Sqrt", "Number.Sqrt"},
	{"Exp", "Number.Exp"},
	{"Log", "Number.Log"},
	{"Mod", "Number.Mod"},
	{"Sum", "List.Sum"},
	{"Avg", "List.Average"},
	{"Count", "List.Count"},
	{"Min", "List.Min"},
	{"Max", "List.Max"},
}

var scriptFuncRes = buildScriptFuncRes()

func buildScriptFuncRes() []struct {
	re *regexp.Regexp
	m  string
} {
	out := make([]struct {
		re *regexp.Regexp
		m  string
	}, len(scriptFuncs))
	for i, f := range scriptFuncs {
		out[i].re = regexp.MustCompile(`(?i)\b` + f.qlik + `\s*\(`)
		out[i].m = f.m + "("
	}
	return out
}

var todayRe = regexp.MustCompile(`(?i)\bToday\s*\(\s*\)`)

// ConvertExpression rewrites a Qlik field expression into M, renaming
// every function the map knows. Unknown functions stay as-is.
func ConvertExpression(expr string) string {
	expr = todayRe.ReplaceAllString(expr, "Date.From(DateTime.LocalNow())")
	for _, f := range scriptFuncRes {
		expr = f.re.ReplaceAllString(expr, f.m)
	}
	return expr
}

var (
	stmtStartRe = regexp.MustCompile(`(?im)^[ \t]*(?:\w+[ \t]*:[ \t]*\r?\n)?[ \t]*LOAD\b`)
	tableLblRe  = regexp.MustCompile(`(?is)^[ \t]*(\w+)[ \t]*:`)
	loadBodyRe  = regexp.MustCompile(`(?is)\bLOAD\s+(.*?)\s+(FROM|RESIDENT|INLINE)\b`)
	fromFileRe  = regexp.MustCompile(`(?i)FROM\s+\[([^\]]*)\]`)
	residentRe  = regexp.MustCompile(`(?i)RESIDENT\s+(\w+)`)
	whereRe     = regexp.MustCompile(`(?i)WHERE\s+(.*?)(?:;|$)`)
	fieldExprRe = regexp.MustCompile(`(?i)[()+\-*/]|\bif\b|\bupper\b|\blower\b`)
	sqlLoadRe   = regexp.MustCompile(`(?is)\bLOAD\s+(.*?);?\s*$`)
	funcNameRe  = regexp.MustCompile(`\b(\w+)\s*\(`)
)

// ParseLoadStatement parses one LOAD statement: the optional table
// label, the field list, the source kind, and any WHERE clause.
func ParseLoadStatement(stmt string) (LoadStatement, error) {
	var ls LoadStatement
	if m := tableLblRe.FindStringSubmatch(stmt); m != nil {
		ls.TableName = m[1]
	}

	flat := strings.Join(strings.Fields(stmt), " ")
	body := loadBodyRe.FindStringSubmatch(flat)
	if body == nil {
		// A LOAD terminated by a bare semicolon is a SQL passthrough.
		if m := sqlLoadRe.FindStringSubmatch(flat); m != nil && strings.Contains(strings.ToUpper(flat), "SQL") {
			ls.SourceType = "sql"
			return ls, nil
		}
		return ls, fmt.Errorf("malformed LOAD statement")
	}

	for _, f := range strings.Split(body[1], ",") {
		if f = strings.TrimSpace(f); f != "" {
			ls.Fields = append(ls.Fields, f)
		}
	}

	switch strings.ToUpper(body[2]) {
	case "FROM":
		ls.SourceType = "file"
		if m := fromFileRe.FindStringSubmatch(flat); m != nil {
			ls.Source = m[1]
		}
	case "RESIDENT":
		ls.SourceType = "resident"
		if m := residentRe.FindStringSubmatch(flat); m != nil {
			ls.Source = m[1]
		}
	case "INLINE":
		ls.SourceType = "inline"
		ls.Source = "inline_data"
	}

	if m := whereRe.FindStringSubmatch(flat); m != nil {
		ls.Where = strings.TrimSpace(m[1])
	}
	return ls, nil
}

var asSplitRe = regexp.MustCompile(`(?i)\s+as\s+`)

// splitAlias separates "expr as alias" into its parts; a plain field
// returns itself with no alias.
func splitAlias(field string) (expr, alias string) {
	parts := asSplitRe.Split(field, 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(field), ""
}

// ConvertLoad renders one LOAD statement as an M query: the source step
// per source kind, one AddColumn per calculated field, a SelectColumns
// projection, and a SelectRows filter for the WHERE clause.
func ConvertLoad(ls LoadStatement) string {
	var lines []string
	base := "Source"

	switch ls.SourceType {
	case "file":
		ext := ""
		if i := strings.LastIndex(ls.Source, "."); i >= 0 {
			ext = strings.ToLower(ls.Source[i+1:])
		}
		switch ext {
		case "xlsx", "xls":
			lines = append(lines,
				fmt.Sprintf("    Source = Excel.Workbook(File.Contents(%s), null, true),", mstr(ls.Source)),
				"    Sheet = Source{[Item=\"Sheet1\",Kind=\"Sheet\"]}[Data],",
				"    PromotedHeaders = Table.PromoteHeaders(Sheet, [PromoteAllScalars=true])")
			base = "PromotedHeaders"
		default:
			lines = append(lines,
				fmt.Sprintf("    Source = Csv.Document(File.Contents(%s), [Delimiter=\",\", Encoding=65001, QuoteStyle=QuoteStyle.None]),", mstr(ls.Source)),
				"    PromotedHeaders = Table.PromoteHeaders(Source, [PromoteAllScalars=true])")
			base = "PromotedHeaders"
		}
	case "resident":
		lines = append(lines, "    Source = "+ls.Source)
	case "sql":
		lines = append(lines,
			"    Source = Sql.Database(\"ServerName\", \"DatabaseName\"),",
			"    Table = Source{[Schema=\"dbo\",Item=\"TableName\"]}[Data]")
		base = "Table"
	default:
		lines = append(lines, "    Source = #table({\"Column1\"}, {})")
	}

	var keep []string
	added := 0
	for _, field := range ls.Fields {
		expr, alias := splitAlias(field)
		switch {
		case fieldExprRe.MatchString(expr):
			name := alias
			if name == "" {
				name = expr
			}
			added++
			stepName := fmt.Sprintf("AddColumn%d", added)
			lines[len(lines)-1] += ","
			lines = append(lines, fmt.Sprintf("    %s = Table.AddColumn(%s, %s, each %s)",
				stepName, base, mstr(name), ConvertExpression(expr)))
			base = stepName
			keep = append(keep, name)
		case alias != "":
			added++
			stepName := fmt.Sprintf("AddColumn%d", added)
			lines[len(lines)-1] += ","
			lines = append(lines, fmt.Sprintf("    %s = Table.AddColumn(%s, %s, each [%s])",
				stepName, base, mstr(alias), expr))
			base = stepName
			keep = append(keep, alias)
		default:
			keep = append(keep, expr)
		}
	}
	if len(keep) > 0 && keep[0] != "*" {
		lines[len(lines)-1] += ","
		lines = append(lines, fmt.Sprintf("    SelectedColumns = Table.SelectColumns(%s, {%s})",
			base, colList(keep)))
		base = "SelectedColumns"
	}

	if ls.Where != "" {
		lines[len(lines)-1] += ","
		lines = append(lines, fmt.Sprintf("    Filtered = Table.SelectRows(%s, each (%s))",
			base, ConvertExpression(ls.Where)))
		base = "Filtered"
	}

	return letQuery(lines, base)
}

// ConvertScript converts a whole load script statement by statement.
// Malformed statements fail individually; the batch always completes and
// the report names every function Qlik used that has no M mapping.
func ConvertScript(script string) ([]StatementResult, ConversionReport) {
	var results []StatementResult

	starts := stmtStartRe.FindAllStringIndex(script, -1)
	for i, loc := range starts {
		end := len(script)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		raw := strings.TrimSpace(script[loc[0]:end])
		if raw == "" {
			continue
		}
		ls, err := ParseLoadStatement(raw)
		res := StatementResult{Statement: ls, Err: err}
		if err == nil {
			res.Query = ConvertLoad(ls)
		}
		results = append(results, res)
	}

	return results, buildReport(script, results)
}

func buildReport(script string, results []StatementResult) ConversionReport {
	report := ConversionReport{Total: len(results)}
	for _, r := range results {
		if r.Err == nil {
			report.Converted++
		}
	}

	known := make(map[string]bool, len(scriptFuncs))
	for _, f := range scriptFuncs {
		known[strings.ToLower(f.qlik)] = true
	}
	known["today"] = true
	// Script keywords captured by the function pattern but not functions.
	for _, kw := range []string{"load", "from", "resident", "inline", "where", "if"} {
		known[kw] = true
	}

	seen := make(map[string]bool)
	for _, m := range funcNameRe.FindAllStringSubmatch(script, -1) {
		name := m[1]
		if !known[strings.ToLower(name)] && !seen[name] {
			seen[name] = true
			report.Unconverted = append(report.Unconverted, name)
		}
	}
	sort.Strings(report.Unconverted)
	for _, f := range report.Unconverted {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("review function %s manually; no M equivalent is mapped", f))
	}

	if report.Total > 0 {
		report.ConversionRate = float64(report.Converted) / float64(report.Total) * 100
	} else {
		report.ConversionRate = 100
	}
	return report
}
