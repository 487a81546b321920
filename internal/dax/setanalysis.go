package dax

import (
	"fmt"
	"regexp"
	"strings"
)

// setExprRe matches AggFunc({set} field). The set group is non-recursive:
// any brace group inside a modifier value defeats the match and the whole
// construct passes through with only later function renames applied. That
// boundary is intentional and covered by a regression test; widening it
// changes observable output.
var setExprRe = regexp.MustCompile(`(?i)(\b\w+)\s*\(\s*\{([^}]*)\}\s*((?:Distinct\s+)?\w+)\s*\)`)

var (
	modifierRe = regexp.MustCompile(`<([^>]*)>`)
	assignRe   = regexp.MustCompile(`(\w+)\s*=\s*(?:\{([^}]*)\})?`)
	numberRe   = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// convertSetExpressions rewrites set-analysis aggregations into CALCULATE
// calls with one filter argument per modifier. A leading set identifier 1
// prepends an ALL directive; $ is the current selection and adds nothing.
func (t *translator) convertSetExpressions(s string) string {
	return setExprRe.ReplaceAllStringFunc(s, func(m string) string {
		g := setExprRe.FindStringSubmatch(m)
		aggName := g[1]
		set := strings.TrimSpace(g[2])
		fieldExpr := strings.TrimSpace(g[3])

		distinct := false
		if rest, ok := cutPrefixFold(fieldExpr, "distinct"); ok {
			distinct = true
			fieldExpr = strings.TrimSpace(rest)
		}
		agg := t.mapAggregation(aggName, fieldExpr, distinct)

		var filters []string
		if rest, ok := strings.CutPrefix(set, "1"); ok {
			filters = append(filters, t.allFilter(fieldExpr))
			set = strings.TrimSpace(rest)
		}
		set = strings.TrimPrefix(set, "$")
		filters = append(filters, t.parseSetModifiers(set)...)

		if len(filters) == 0 {
			if set != "" {
				t.warnf("set expression %q carried no usable modifiers; emitted a plain aggregation", m)
			}
			return agg
		}
		return fmt.Sprintf("CALCULATE(%s, %s)", agg, strings.Join(filters, ", "))
	})
}

// allFilter clears all filters, scoped to the aggregated field's owning
// table when one is known.
func (t *translator) allFilter(field string) string {
	table := t.opts.ColumnTables[field]
	if table == "" {
		table = t.opts.TableName
	}
	if table == "" {
		return "ALL()"
	}
	return fmt.Sprintf("ALL('%s')", table)
}

// qualify prefixes a bare field with the owning table when the
// translation context knows it.
func (t *translator) qualify(field string) string {
	if t.opts.TableName == "" || strings.ContainsAny(field, "[.") {
		return field
	}
	return fmt.Sprintf("'%s'[%s]", t.opts.TableName, field)
}

// parseSetModifiers builds one filter argument per field assignment in
// the <...> groups. An empty value set removes the field's filter; a
// value list becomes OR-joined equalities, with numbers left unquoted.
func (t *translator) parseSetModifiers(set string) []string {
	var filters []string
	for _, mod := range modifierRe.FindAllStringSubmatch(set, -1) {
		for _, assign := range assignRe.FindAllStringSubmatch(mod[1], -1) {
			field := t.qualify(assign[1])
			values := strings.TrimSpace(assign[2])
			if values == "" {
				filters = append(filters, fmt.Sprintf("REMOVEFILTERS(%s)", field))
				continue
			}
			var terms []string
			for _, v := range strings.Split(values, ",") {
				v = strings.Trim(strings.TrimSpace(v), `'"`)
				if v == "" {
					continue
				}
				if numberRe.MatchString(v) {
					terms = append(terms, fmt.Sprintf("%s = %s", field, v))
				} else {
					terms = append(terms, fmt.Sprintf("%s = %q", field, v))
				}
			}
			if len(terms) > 0 {
				filters = append(filters, strings.Join(terms, " || "))
			}
		}
	}
	return filters
}

// mapAggregation maps a Qlik aggregation name used inside a set
// expression to its DAX call over the (table-qualified) field.
func (t *translator) mapAggregation(name, field string, distinct bool) string {
	field = t.qualify(field)
	switch strings.ToLower(name) {
	case "sum":
		return fmt.Sprintf("SUM(%s)", field)
	case "avg":
		return fmt.Sprintf("AVERAGE(%s)", field)
	case "count":
		if distinct {
			return fmt.Sprintf("DISTINCTCOUNT(%s)", field)
		}
		return fmt.Sprintf("COUNT(%s)", field)
	case "min":
		return fmt.Sprintf("MIN(%s)", field)
	case "max":
		return fmt.Sprintf("MAX(%s)", field)
	case "only":
		return fmt.Sprintf("FIRSTNONBLANK(%s, 1)", field)
	case "stdev":
		return fmt.Sprintf("STDEV.S(%s)", field)
	case "fractile":
		return fmt.Sprintf("PERCENTILE.INC(%s)", field)
	case "median":
		return fmt.Sprintf("MEDIAN(%s)", field)
	default:
		t.warnf("unknown aggregation %q in set expression; name uppercased", name)
		return fmt.Sprintf("%s(%s)", strings.ToUpper(name), field)
	}
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
