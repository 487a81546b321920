package mquery

import (
	"fmt"
	"strings"
)

// Step is one M transform appended after a query's source step. Code is a
// complete step line referencing the previous step by name.
type Step struct {
	Name string
	Code string
}

func step(name, format string, args ...any) Step {
	return Step{Name: name, Code: "    " + name + " = " + fmt.Sprintf(format, args...)}
}

func colList(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = mstr(c)
	}
	return strings.Join(quoted, ", ")
}

func transformList(columns []string, fn string) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = fmt.Sprintf("{%s, %s}", mstr(c), fn)
	}
	return strings.Join(parts, ", ")
}

// RenameColumns renames columns per the ordered old→new pairs.
func RenameColumns(prev string, pairs [][2]string) Step {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("{%s, %s}", mstr(p[0]), mstr(p[1]))
	}
	return step("RenamedColumns", "Table.RenameColumns(%s, {%s})", prev, strings.Join(parts, ", "))
}

// RemoveColumns drops the named columns.
func RemoveColumns(prev string, columns []string) Step {
	return step("RemovedColumns", "Table.RemoveColumns(%s, {%s})", prev, colList(columns))
}

// SelectColumns keeps only the named columns.
func SelectColumns(prev string, columns []string) Step {
	return step("SelectedColumns", "Table.SelectColumns(%s, {%s})", prev, colList(columns))
}

// DuplicateColumn copies a column under a new name.
func DuplicateColumn(prev, source, newName string) Step {
	return step("DuplicatedColumn", "Table.DuplicateColumn(%s, %s, %s)", prev, mstr(source), mstr(newName))
}

// ReorderColumns sets the column order.
func ReorderColumns(prev string, columns []string) Step {
	return step("ReorderedColumns", "Table.ReorderColumns(%s, {%s})", prev, colList(columns))
}

// SplitColumn splits one column on a delimiter.
func SplitColumn(prev, column, delimiter string) Step {
	return step("SplitColumn",
		"Table.SplitColumn(%s, %s, Splitter.SplitTextByDelimiter(%s, QuoteStyle.Csv))",
		prev, mstr(column), mstr(delimiter))
}

// MergeColumns combines columns into one, joined by a separator.
func MergeColumns(prev string, columns []string, newName, separator string) Step {
	return step("MergedColumns",
		"Table.CombineColumns(%s, {%s}, Combiner.CombineTextByDelimiter(%s, QuoteStyle.None), %s)",
		prev, colList(columns), mstr(separator), mstr(newName))
}

// ReplaceValues replaces one text value with another in a column.
func ReplaceValues(prev, column, oldValue, newValue string) Step {
	return step("ReplacedValues",
		"Table.ReplaceValue(%s, %s, %s, Replacer.ReplaceText, {%s})",
		prev, mstr(oldValue), mstr(newValue), mstr(column))
}

// ReplaceNulls substitutes nulls in a column with a value.
func ReplaceNulls(prev, column, replacement string) Step {
	return step("ReplacedNulls",
		"Table.ReplaceValue(%s, null, %s, Replacer.ReplaceValue, {%s})",
		prev, mstr(replacement), mstr(column))
}

// TrimText trims whitespace in the named columns.
func TrimText(prev string, columns []string) Step {
	return step("TrimmedText", "Table.TransformColumns(%s, {%s})", prev, transformList(columns, "Text.Trim"))
}

// CleanText strips non-printable characters in the named columns.
func CleanText(prev string, columns []string) Step {
	return step("CleanedText", "Table.TransformColumns(%s, {%s})", prev, transformList(columns, "Text.Clean"))
}

// UpperCase uppercases the named columns.
func UpperCase(prev string, columns []string) Step {
	return step("UpperCase", "Table.TransformColumns(%s, {%s})", prev, transformList(columns, "Text.Upper"))
}

// LowerCase lowercases the named columns.
func LowerCase(prev string, columns []string) Step {
	return step("LowerCase", "Table.TransformColumns(%s, {%s})", prev, transformList(columns, "Text.Lower"))
}

// ProperCase title-cases the named columns.
func ProperCase(prev string, columns []string) Step {
	return step("ProperCase", "Table.TransformColumns(%s, {%s})", prev, transformList(columns, "Text.Proper"))
}

// FillDown fills nulls downward in the named columns.
func FillDown(prev string, columns []string) Step {
	return step("FilledDown", "Table.FillDown(%s, {%s})", prev, colList(columns))
}

// FillUp fills nulls upward in the named columns.
func FillUp(prev string, columns []string) Step {
	return step("FilledUp", "Table.FillUp(%s, {%s})", prev, colList(columns))
}

// FilterValues keeps rows whose column matches one of the values.
func FilterValues(prev, column string, values []string) Step {
	return step("FilteredRows",
		"Table.SelectRows(%s, each List.Contains({%s}, [%s]))", prev, colList(values), column)
}

// ExcludeValues drops rows whose column matches one of the values.
func ExcludeValues(prev, column string, values []string) Step {
	return step("ExcludedRows",
		"Table.SelectRows(%s, each not List.Contains({%s}, [%s]))", prev, colList(values), column)
}

// FilterRange keeps rows inside a numeric range; empty bounds are open.
func FilterRange(prev, column, min, max string) Step {
	var conds []string
	if min != "" {
		conds = append(conds, fmt.Sprintf("[%s] >= %s", column, min))
	}
	if max != "" {
		conds = append(conds, fmt.Sprintf("[%s] <= %s", column, max))
	}
	cond := "true"
	if len(conds) > 0 {
		cond = strings.Join(conds, " and ")
	}
	return step("FilteredRange", "Table.SelectRows(%s, each %s)", prev, cond)
}

// FilterNulls drops (or keeps, when keepNulls) rows whose column is null.
func FilterNulls(prev, column string, keepNulls bool) Step {
	op := "<>"
	if keepNulls {
		op = "="
	}
	return step("FilteredNulls", "Table.SelectRows(%s, each [%s] %s null)", prev, column, op)
}

// FilterContains keeps rows whose column contains the text.
func FilterContains(prev, column, text string) Step {
	return step("FilteredContains",
		"Table.SelectRows(%s, each Text.Contains([%s], %s))", prev, column, mstr(text))
}

// DistinctRows removes duplicates, over the whole row or the named columns.
func DistinctRows(prev string, columns []string) Step {
	if len(columns) == 0 {
		return step("DistinctRows", "Table.Distinct(%s)", prev)
	}
	return step("DistinctRows", "Table.Distinct(%s, {%s})", prev, colList(columns))
}

// TopN keeps the n highest (or lowest, when ascending) rows by column.
func TopN(prev, column string, n int, ascending bool) Step {
	order := "Order.Descending"
	if ascending {
		order = "Order.Ascending"
	}
	return step("TopN", "Table.MaxN(%s, {{%s, %s}}, %d)", prev, mstr(column), order, n)
}

// AggSpec is one aggregation of a GroupBy: a source column, an
// aggregation name (sum, avg, count, countd, min, max, median, stdev),
// and an output alias.
type AggSpec struct {
	Column string
	Agg    string
	Alias  string
}

var aggFuncs = map[string][2]string{
	"sum":           {"List.Sum", "type number"},
	"avg":           {"List.Average", "type number"},
	"average":       {"List.Average", "type number"},
	"count":         {"List.Count", "Int64.Type"},
	"countd":        {"List.NonNullCount", "Int64.Type"},
	"countdistinct": {"List.NonNullCount", "Int64.Type"},
	"min":           {"List.Min", "type number"},
	"max":           {"List.Max", "type number"},
	"median":        {"List.Median", "type number"},
	"stdev":         {"List.StandardDeviation", "type number"},
}

// GroupBy groups on the given columns with one aggregation per spec.
// Unknown aggregation names fall back to sum.
func GroupBy(prev string, groupCols []string, specs []AggSpec) Step {
	parts := make([]string, len(specs))
	for i, s := range specs {
		alias := s.Alias
		if alias == "" {
			alias = s.Agg + "_" + s.Column
		}
		fn, ok := aggFuncs[strings.ToLower(s.Agg)]
		if !ok {
			fn = aggFuncs["sum"]
		}
		parts[i] = fmt.Sprintf("{%s, each %s([%s]), %s}", mstr(alias), fn[0], s.Column, fn[1])
	}
	return step("GroupedRows", "Table.Group(%s, {%s}, {%s})",
		prev, colList(groupCols), strings.Join(parts, ", "))
}

// Unpivot turns the named columns into attribute/value rows.
func Unpivot(prev string, columns []string, attribute, value string) Step {
	return step("Unpivoted", "Table.UnpivotColumns(%s, {%s}, %s, %s)",
		prev, colList(columns), mstr(attribute), mstr(value))
}

// UnpivotOther unpivots every column except the named ones.
func UnpivotOther(prev string, keep []string, attribute, value string) Step {
	return step("UnpivotedOther", "Table.UnpivotOtherColumns(%s, {%s}, %s, %s)",
		prev, colList(keep), mstr(attribute), mstr(value))
}

// Pivot spreads an attribute column into one column per distinct value.
func Pivot(prev, attribute, value, agg string) Step {
	fn, ok := aggFuncs[strings.ToLower(agg)]
	if !ok {
		fn = aggFuncs["sum"]
	}
	return step("Pivoted", "Table.Pivot(%s, List.Distinct(%s[%s]), %s, %s, %s)",
		prev, prev, attribute, mstr(attribute), mstr(value), fn[0])
}

var joinKinds = map[string]string{
	"inner":      "JoinKind.Inner",
	"left":       "JoinKind.LeftOuter",
	"leftouter":  "JoinKind.LeftOuter",
	"right":      "JoinKind.RightOuter",
	"rightouter": "JoinKind.RightOuter",
	"full":       "JoinKind.FullOuter",
	"fullouter":  "JoinKind.FullOuter",
	"leftanti":   "JoinKind.LeftAnti",
	"rightanti":  "JoinKind.RightAnti",
}

// Join nests rightTable into prev on the key pair and expands the named
// columns. Unknown join kinds default to left outer.
func Join(prev, rightTable, leftKey, rightKey, kind string, expand []string) []Step {
	k, ok := joinKinds[strings.ReplaceAll(strings.ToLower(kind), " ", "")]
	if !ok {
		k = "JoinKind.LeftOuter"
	}
	steps := []Step{step("Joined",
		"Table.NestedJoin(%s, {%s}, %s, {%s}, \"Joined\", %s)",
		prev, mstr(leftKey), rightTable, mstr(rightKey), k)}
	if len(expand) > 0 {
		steps = append(steps, step("Expanded",
			"Table.ExpandTableColumn(Joined, \"Joined\", {%s})", colList(expand)))
	}
	return steps
}

// Append unions the given tables.
func Append(tables []string) Step {
	return step("Appended", "Table.Combine({%s})", strings.Join(tables, ", "))
}

// SortSpec is one sort key.
type SortSpec struct {
	Column    string
	Ascending bool
}

// SortRows sorts by the given keys in order.
func SortRows(prev string, specs []SortSpec) Step {
	parts := make([]string, len(specs))
	for i, s := range specs {
		order := "Order.Descending"
		if s.Ascending {
			order = "Order.Ascending"
		}
		parts[i] = fmt.Sprintf("{%s, %s}", mstr(s.Column), order)
	}
	return step("SortedRows", "Table.Sort(%s, {%s})", prev, strings.Join(parts, ", "))
}

// Transpose swaps rows and columns.
func Transpose(prev string) Step {
	return step("Transposed", "Table.Transpose(%s)", prev)
}

// AddIndex appends an index column counting from start.
func AddIndex(prev, name string, start int) Step {
	return step("AddedIndex", "Table.AddIndexColumn(%s, %s, %d, 1)", prev, mstr(name), start)
}

// SkipRows drops the first count rows.
func SkipRows(prev string, count int) Step {
	return step("SkippedRows", "Table.Skip(%s, %d)", prev, count)
}

// RemoveTopRows removes the first count rows.
func RemoveTopRows(prev string, count int) Step {
	return step("RemovedTopRows", "Table.RemoveFirstN(%s, %d)", prev, count)
}

// RemoveBottomRows removes the last count rows.
func RemoveBottomRows(prev string, count int) Step {
	return step("RemovedBottomRows", "Table.RemoveLastN(%s, %d)", prev, count)
}

// PromoteHeaders lifts the first row into column headers.
func PromoteHeaders(prev string) Step {
	return step("PromotedHeaders", "Table.PromoteHeaders(%s, [PromoteAllScalars=true])", prev)
}

// DemoteHeaders pushes column headers down into the first row.
func DemoteHeaders(prev string) Step {
	return step("DemotedHeaders", "Table.DemoteHeaders(%s)", prev)
}

// AddCustomColumn appends a calculated column from an M expression.
func AddCustomColumn(prev, name, expression, mType string) Step {
	if mType == "" {
		mType = "type text"
	}
	return step("AddedCustom", "Table.AddColumn(%s, %s, each %s, %s)",
		prev, mstr(name), expression, mType)
}

// Apply injects steps into a let..in query before the in clause and
// repoints the final reference at the last step. A query without an in
// clause is returned unchanged.
func Apply(query string, steps []Step) string {
	if len(steps) == 0 {
		return query
	}
	lines := strings.Split(strings.TrimSpace(query), "\n")
	inIndex := -1
	for i, line := range lines {
		s := strings.ToLower(strings.TrimSpace(line))
		if s == "in" || strings.HasPrefix(s, "in ") {
			inIndex = i
			break
		}
	}
	if inIndex < 0 {
		return query
	}

	out := make([]string, 0, len(lines)+len(steps)+2)
	out = append(out, lines[:inIndex]...)
	if last := strings.TrimRight(out[len(out)-1], " \t"); !strings.HasSuffix(last, ",") {
		out[len(out)-1] = last + ","
	}
	for i, s := range steps {
		code := s.Code
		if i < len(steps)-1 {
			code += ","
		}
		out = append(out, code)
	}
	out = append(out, "in", "    "+steps[len(steps)-1].Name)
	return strings.Join(out, "\n")
}
