package dax

import (
	"regexp"
	"strings"

	"github.com/semshift/semshift/internal/qlik"
	"github.com/semshift/semshift/internal/typemap"
)

// MeasureResult is one translated measure with its target format string.
type MeasureResult struct {
	Name       string
	Source     string
	Expression string
	Format     string
	Warnings   []string
}

// TranslateMeasures converts every measure expression. The measure's
// declared format string is converted when present; otherwise a default is
// derived from the leading aggregation.
func TranslateMeasures(measures []qlik.Measure, opts Options) []MeasureResult {
	results := make([]MeasureResult, 0, len(measures))
	for _, m := range measures {
		expr, warnings := Translate(m.Expression, opts)
		format := typemap.QlikFormat(m.Format)
		if format == "" {
			format = measureFormat(m.Expression)
		}
		results = append(results, MeasureResult{
			Name:       m.Name,
			Source:     m.Expression,
			Expression: expr,
			Format:     format,
			Warnings:   warnings,
		})
	}
	return results
}

func measureFormat(expr string) string {
	switch {
	case hasAggPrefix(expr, "count"):
		return "0"
	case hasAggPrefix(expr, "sum"), hasAggPrefix(expr, "avg"):
		return "#,0.00"
	default:
		return "#,0.00"
	}
}

func hasAggPrefix(expr, agg string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(expr)), agg)
}

// calculatedRe detects dimension definitions that are expressions rather
// than plain field names.
var calculatedRe = regexp.MustCompile(`(?i)[(+\-*/]|\b(?:if|upper|lower|left|right)\b`)

// DimensionResult is one converted dimension. Calculated dimensions carry
// a translated expression; plain ones just name their field.
type DimensionResult struct {
	Name       string
	Field      string
	Expression string
	Calculated bool
	Warnings   []string
}

// TranslateDimension converts a master dimension's field definition. A
// definition containing operators or function calls becomes a calculated
// column; a bare field name passes through.
func TranslateDimension(d qlik.Dimension, opts Options) DimensionResult {
	res := DimensionResult{Name: d.Name, Field: d.Field}
	if !calculatedRe.MatchString(d.Field) {
		return res
	}
	colOpts := opts
	colOpts.CalculatedColumn = true
	res.Calculated = true
	res.Expression, res.Warnings = Translate(d.Field, colOpts)
	return res
}
