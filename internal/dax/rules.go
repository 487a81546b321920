package dax

import (
	"fmt"
	"regexp"
	"strings"
)

// RuleKind selects how a function rule rewrites its match.
type RuleKind int

const (
	// Rename swaps the call opener for Target, leaving arguments alone.
	Rename RuleKind = iota
	// TemplateRewrite splices captured arguments into the Target template,
	// where {0} is the first capture group.
	TemplateRewrite
	// StructuralRewrite hands the full submatch slice to Rewrite; m[0] is
	// the whole match, m[1:] the capture groups.
	StructuralRewrite
)

// Rule is one entry of the function substitution table. Rules run in
// declared order; ordering is significant where one rule's output could
// otherwise be re-matched by a later pattern.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Kind    RuleKind
	Target  string
	Rewrite func(m []string) string
	Warn    string
}

func rename(name, pattern, target string) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(pattern), Kind: Rename, Target: target}
}

func tmpl(name, pattern, target string) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(pattern), Kind: TemplateRewrite, Target: target}
}

func structural(name, pattern string, fn func(m []string) string) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(pattern), Kind: StructuralRewrite, Rewrite: fn}
}

// review marks constructs with no usable equivalent: the match passes
// through unchanged and the translation is flagged for manual work.
func review(name, pattern, warn string) Rule {
	return Rule{
		Name:    name,
		Pattern: regexp.MustCompile(pattern),
		Kind:    StructuralRewrite,
		Rewrite: func(m []string) string { return m[0] },
		Warn:    warn,
	}
}

// splice fills {0}, {1}, ... slots with trimmed capture groups.
func splice(target string, groups []string) string {
	out := target
	for i, g := range groups {
		out = strings.ReplaceAll(out, fmt.Sprintf("{%d}", i), strings.TrimSpace(g))
	}
	return out
}

// oneArg matches Name(arg) with a single argument free of commas and
// nested parentheses. Nested calls defeat it and pass through; the same
// boundary the set-analysis pattern has.
func oneArg(name string) string {
	return `(?i)\b` + name + `\s*\(\s*([^,()]+?)\s*\)`
}

func twoArg(name string) string {
	return `(?i)\b` + name + `\s*\(\s*([^,()]+?)\s*,\s*([^()]+?)\s*\)`
}

func opener(name string) string {
	return `(?i)\b` + name + `\s*\(`
}

// functionRules is the full substitution table, most specific entries
// first. Aggregations inside set expressions are handled earlier by the
// set-analysis phase; these cover plain calls.
var functionRules = []Rule{
	// aggregations
	structural("count distinct", `(?i)\bCount\s*\(\s*Distinct\s+([^()]+?)\s*\)`, func(m []string) string {
		return "DISTINCTCOUNT(" + strings.TrimSpace(m[1]) + ")"
	}),
	rename("sum", opener("Sum"), "SUM("),
	rename("avg", opener("Avg"), "AVERAGE("),
	rename("count", opener("Count"), "COUNT("),
	rename("min", opener("Min"), "MIN("),
	rename("max", opener("Max"), "MAX("),
	rename("median", opener("Median"), "MEDIAN("),
	rename("stdev", opener("Stdev"), "STDEV.S("),
	tmpl("sterr", oneArg("Sterr"), "STDEV.S({0}) / SQRT(COUNT({0}))"),
	rename("fractile", opener("Fractile"), "PERCENTILE.INC("),
	tmpl("only", oneArg("Only"), "FIRSTNONBLANK({0}, 1)"),
	review("mode", opener("Mode"), "Mode() has no direct equivalent; derive it with TOPN over a grouped count"),
	review("firstsortedvalue", opener("FirstSortedValue"), "FirstSortedValue() needs a manual TOPN/ORDER rewrite"),
	review("concat", opener("Concat"), "Concat() needs CONCATENATEX with an explicit table argument"),

	// conditional and null handling
	rename("if", opener("If"), "IF("),
	rename("isnull", opener("IsNull"), "ISBLANK("),
	rename("isnum", opener("IsNum"), "ISNUMBER("),
	rename("istext", opener("IsText"), "ISTEXT("),
	rename("null", `(?i)\bNull\s*\(\s*\)`, "BLANK()"),
	rename("coalesce", opener("Coalesce"), "COALESCE("),

	// string functions
	rename("upper", opener("Upper"), "UPPER("),
	rename("lower", opener("Lower"), "LOWER("),
	review("capitalize", opener("Capitalize"), "Capitalize() has no equivalent; title-casing needs a manual rewrite"),
	rename("trim", opener("Trim"), "TRIM("),
	{Name: "ltrim", Pattern: regexp.MustCompile(opener("LTrim")), Kind: Rename, Target: "TRIM(",
		Warn: "LTrim() approximated by TRIM(), which strips both ends"},
	{Name: "rtrim", Pattern: regexp.MustCompile(opener("RTrim")), Kind: Rename, Target: "TRIM(",
		Warn: "RTrim() approximated by TRIM(), which strips both ends"},
	rename("len", opener("Len"), "LEN("),
	rename("left", opener("Left"), "LEFT("),
	rename("right", opener("Right"), "RIGHT("),
	rename("mid", opener("Mid"), "MID("),
	structural("index", twoArg("Index"), func(m []string) string {
		return fmt.Sprintf("SEARCH(%s, %s)", strings.TrimSpace(m[2]), strings.TrimSpace(m[1]))
	}),
	structural("subfield", `(?i)\bSubField\s*\(\s*([^,()]+?)\s*,\s*([^,()]+?)\s*,\s*([^()]+?)\s*\)`, func(m []string) string {
		return fmt.Sprintf("PATHITEM(SUBSTITUTE(%s, %s, \"|\"), %s)",
			strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), strings.TrimSpace(m[3]))
	}),
	review("subfield all", opener("SubField"), "SubField() without an index returns a value list; split it in the query layer instead"),
	rename("replace", opener("Replace"), "SUBSTITUTE("),
	review("purgechar", opener("PurgeChar"), "PurgeChar() needs nested SUBSTITUTE calls, one per character"),
	review("keepchar", opener("KeepChar"), "KeepChar() has no equivalent; filter characters in the query layer"),
	rename("chr", opener("Chr"), "UNICHAR("),
	rename("ord", opener("Ord"), "UNICODE("),
	rename("repeat", opener("Repeat"), "REPT("),
	review("textbetween", opener("TextBetween"), "TextBetween() needs a MID/SEARCH rewrite"),

	// date and time: interpretation variants first so the plain names
	// cannot re-match their output
	tmpl("date interpret", `(?i)\bDate#\s*\(\s*([^,()]+?)\s*(?:,\s*[^()]*)?\)`, "DATEVALUE({0})"),
	structural("date format", `(?i)\bDate\s*\(\s*([^,()]+?)\s*(?:,\s*([^()]+?)\s*)?\)`, func(m []string) string {
		if strings.TrimSpace(m[2]) == "" {
			return fmt.Sprintf("FORMAT(%s, \"Short Date\")", strings.TrimSpace(m[1]))
		}
		return fmt.Sprintf("FORMAT(%s, %s)", strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	}),
	tmpl("time interpret", `(?i)\bTime#\s*\(\s*([^,()]+?)\s*(?:,\s*[^()]*)?\)`, "TIMEVALUE({0})"),
	structural("time format", `(?i)\bTime\s*\(\s*([^,()]+?)\s*(?:,\s*([^()]+?)\s*)?\)`, func(m []string) string {
		if strings.TrimSpace(m[2]) == "" {
			return fmt.Sprintf("FORMAT(%s, \"Long Time\")", strings.TrimSpace(m[1]))
		}
		return fmt.Sprintf("FORMAT(%s, %s)", strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	}),
	review("timestamp interpret", opener("Timestamp#"), "Timestamp#() needs a DATEVALUE + TIMEVALUE composition"),
	tmpl("timestamp format", oneArg("Timestamp"), "FORMAT({0}, \"General Date\")"),
	rename("makedate", opener("MakeDate"), "DATE("),
	rename("maketime", opener("MakeTime"), "TIME("),
	rename("today", `(?i)\bToday\s*\([^)]*\)`, "TODAY()"),
	rename("now", `(?i)\bNow\s*\([^)]*\)`, "NOW()"),
	{Name: "localtime", Pattern: regexp.MustCompile(`(?i)\bLocalTime\s*\([^)]*\)`), Kind: Rename, Target: "NOW()",
		Warn: "LocalTime() timezone argument dropped; NOW() uses the service timezone"},
	tmpl("yearstart", oneArg("YearStart"), "DATE(YEAR({0}), 1, 1)"),
	tmpl("yearend", oneArg("YearEnd"), "DATE(YEAR({0}), 12, 31)"),
	{Name: "yeartodate", Pattern: regexp.MustCompile(oneArg("YearToDate")), Kind: TemplateRewrite, Target: "TOTALYTD({0})",
		Warn: "TOTALYTD needs the calendar date column as its second argument"},
	tmpl("monthstart", oneArg("MonthStart"), "EOMONTH({0}, -1) + 1"),
	tmpl("monthend", oneArg("MonthEnd"), "EOMONTH({0}, 0)"),
	tmpl("monthname", oneArg("MonthName"), "FORMAT({0}, \"MMMM\")"),
	tmpl("quarterstart", oneArg("QuarterStart"), "DATE(YEAR({0}), 3 * (QUARTER({0}) - 1) + 1, 1)"),
	tmpl("quarterend", oneArg("QuarterEnd"), "EOMONTH(DATE(YEAR({0}), 3 * QUARTER({0}), 1), 0)"),
	tmpl("weekstart", oneArg("WeekStart"), "{0} - WEEKDAY({0}, 2) + 1"),
	tmpl("weekend", oneArg("WeekEnd"), "{0} - WEEKDAY({0}, 2) + 7"),
	tmpl("daystart", oneArg("DayStart"), "INT({0})"),
	tmpl("dayend", oneArg("DayEnd"), "INT({0}) + TIME(23, 59, 59)"),
	tmpl("weekday", oneArg("WeekDay"), "FORMAT({0}, \"ddd\")"),
	tmpl("dayname", oneArg("DayName"), "FORMAT({0}, \"dddd\")"),
	rename("week", opener("Week"), "WEEKNUM("),
	rename("addmonths", opener("AddMonths"), "EDATE("),
	structural("addyears", twoArg("AddYears"), func(m []string) string {
		return fmt.Sprintf("EDATE(%s, 12 * (%s))", strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	}),
	structural("age", twoArg("Age"), func(m []string) string {
		return fmt.Sprintf("DATEDIFF(%s, %s, YEAR)", strings.TrimSpace(m[2]), strings.TrimSpace(m[1]))
	}),
	rename("networkdays", opener("NetWorkDays"), "NETWORKDAYS("),
	review("inyear", opener("InYear"), "InYear() flag needs a manual date-range comparison"),
	review("inmonth", opener("InMonth"), "InMonth() flag needs a manual date-range comparison"),
	rename("year", opener("Year"), "YEAR("),
	rename("month", opener("Month"), "MONTH("),
	rename("day", opener("Day"), "DAY("),
	rename("hour", opener("Hour"), "HOUR("),
	rename("minute", opener("Minute"), "MINUTE("),
	rename("second", opener("Second"), "SECOND("),
	rename("quarter", opener("Quarter"), "QUARTER("),

	// numeric functions
	structural("ceil", `(?i)\bCeil\s*\(\s*([^,()]+?)\s*(?:,\s*([^()]+?)\s*)?\)`, func(m []string) string {
		if strings.TrimSpace(m[2]) == "" {
			return fmt.Sprintf("ROUNDUP(%s, 0)", strings.TrimSpace(m[1]))
		}
		return fmt.Sprintf("CEILING(%s, %s)", strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	}),
	structural("floor", `(?i)\bFloor\s*\(\s*([^,()]+?)\s*(?:,\s*([^()]+?)\s*)?\)`, func(m []string) string {
		if strings.TrimSpace(m[2]) == "" {
			return fmt.Sprintf("ROUNDDOWN(%s, 0)", strings.TrimSpace(m[1]))
		}
		return fmt.Sprintf("FLOOR(%s, %s)", strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	}),
	rename("round", opener("Round"), "ROUND("),
	rename("abs", opener("Abs"), "ABS("),
	rename("sqrt", opener("Sqrt"), "SQRT("),
	tmpl("sqr", oneArg("Sqr"), "({0}) * ({0})"),
	rename("exp", opener("Exp"), "EXP("),
	rename("log10", opener("Log10"), "LOG10("),
	rename("log", opener("Log"), "LN("),
	rename("asin", opener("ASin"), "ASIN("),
	rename("acos", opener("ACos"), "ACOS("),
	review("atan2", opener("ATan2"), "ATan2() has no equivalent; rewrite with ATAN and quadrant handling"),
	rename("atan", opener("ATan"), "ATAN("),
	rename("sin", opener("Sin"), "SIN("),
	rename("cos", opener("Cos"), "COS("),
	rename("tan", opener("Tan"), "TAN("),
	rename("pow", opener("Pow"), "POWER("),
	rename("fmod", opener("Fmod"), "MOD("),
	rename("mod", opener("Mod"), "MOD("),
	structural("div", twoArg("Div"), func(m []string) string {
		return fmt.Sprintf("QUOTIENT(%s, %s)", strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	}),
	rename("sign", opener("Sign"), "SIGN("),
	tmpl("frac", oneArg("Frac"), "({0}) - INT({0})"),
	rename("even", opener("Even"), "ISEVEN("),
	rename("odd", opener("Odd"), "ISODD("),
	review("bitcount", opener("BitCount"), "BitCount() has no equivalent"),
	rename("rand", `(?i)\bRand\s*\(\s*\)`, "RAND()"),

	// type interpretation
	tmpl("num interpret", `(?i)\bNum#\s*\(\s*([^,()]+?)\s*(?:,\s*[^()]*)?\)`, "VALUE({0})"),
	structural("num format", `(?i)\bNum\s*\(\s*([^,()]+?)\s*(?:,\s*([^()]+?)\s*)?\)`, func(m []string) string {
		if strings.TrimSpace(m[2]) == "" {
			return fmt.Sprintf("VALUE(%s)", strings.TrimSpace(m[1]))
		}
		return fmt.Sprintf("FORMAT(%s, %s)", strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	}),
	tmpl("text", oneArg("Text"), "FORMAT({0}, \"General Number\")"),
	tmpl("money", oneArg("Money"), "FORMAT({0}, \"Currency\")"),
	review("interval", opener("Interval"), "Interval() formatting needs a manual duration rewrite"),
	{Name: "dual", Pattern: regexp.MustCompile(twoArg("Dual")), Kind: StructuralRewrite,
		Rewrite: func(m []string) string { return strings.TrimSpace(m[1]) },
		Warn:    "Dual() numeric part dropped; only the display value is kept"},

	// record counters and field introspection
	review("rowno", opener("RowNo"), "RowNo() has no row context; use an index column from the query layer"),
	review("recno", opener("RecNo"), "RecNo() has no row context; use an index column from the query layer"),
	review("iterno", opener("IterNo"), "IterNo() is a load-script construct with no model equivalent"),
	review("autonumber", opener("AutoNumber"), "AutoNumber() needs a surrogate key generated in the query layer"),
	rename("noofrows", opener("NoOfRows"), "COUNTROWS("),
	review("fieldvaluecount", opener("FieldValueCount"), "FieldValueCount() maps to DISTINCTCOUNT over the column; rewrite manually"),
	review("fieldvalue", opener("FieldValue"), "FieldValue() positional access has no equivalent"),
	review("getfieldselections", opener("GetFieldSelections"), "GetFieldSelections() is selection-state dependent; consider SELECTEDVALUE"),
}
