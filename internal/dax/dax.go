// Package dax translates Qlik expressions into DAX. Translation is a
// fixed sequence of text transforms; it never fails, and constructs it
// cannot express are passed through with a review warning instead.
package dax

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/semshift/semshift/internal/pbi"
)

// Options carries the model context a translation runs against.
type Options struct {
	// TableName is the table owning the expression, used for set-analysis
	// context overrides and cross-table resolution.
	TableName string
	// ColumnTables maps column names to their owning table.
	ColumnTables map[string]string
	// Relationships is the converted relationship set.
	Relationships []pbi.Relationship
	// CalculatedColumn enables cross-table reference resolution, which
	// only applies in row context.
	CalculatedColumn bool
}

// Translate converts a Qlik expression to DAX. Empty input is returned
// as-is. The returned warnings flag constructs that need manual review.
func Translate(expr string, opts Options) (string, []string) {
	if strings.TrimSpace(expr) == "" {
		return expr, nil
	}
	t := &translator{opts: opts, seen: make(map[string]bool)}

	out := expr
	out = normalizeOperators(out)
	out = t.convertStructural(out)
	out = t.convertSetExpressions(out)
	out = t.convertAggr(out)
	out = t.applyFunctionRules(out)
	out = convertAlt(out)
	out = convertClass(out)
	out = t.resolveCrossTableRefs(out)
	out = cleanup(out)
	return out, t.warnings
}

type translator struct {
	opts     Options
	warnings []string
	seen     map[string]bool
}

func (t *translator) warnf(format string, args ...any) {
	w := fmt.Sprintf(format, args...)
	if t.seen[w] {
		return
	}
	t.seen[w] = true
	t.warnings = append(t.warnings, w)
}

var (
	andRe = regexp.MustCompile(`(?i)\band\b`)
	orRe  = regexp.MustCompile(`(?i)\bor\b`)
	notRe = regexp.MustCompile(`(?i)\bnot\b`)
)

func normalizeOperators(s string) string {
	s = andRe.ReplaceAllString(s, "&&")
	s = orRe.ReplaceAllString(s, "||")
	s = notRe.ReplaceAllString(s, "NOT")
	return s
}

var (
	ifThenElseRe   = regexp.MustCompile(`(?is)\bIf\s+(.+?)\s+Then\s+(.+?)\s+Else\s+(.+?)\s+End\b`)
	ifThenElseIfRe = regexp.MustCompile(`(?is)\bIf\s+(.+?)\s+Then\s+(.+?)\s+ElseIf\b`)
	pickRe         = regexp.MustCompile(`(?i)\bPick\s*\(`)
	matchRe        = regexp.MustCompile(`(?i)\bMatch\s*\(`)
)

// convertStructural rewrites block conditionals and selector calls.
// Chained ElseIf sequences nest; deep chains degrade and are flagged.
func (t *translator) convertStructural(s string) string {
	s = ifThenElseRe.ReplaceAllString(s, "IF($1, $2, $3)")
	if ifThenElseIfRe.MatchString(s) {
		t.warnf("chained ElseIf converted to nested IF; verify branch closing parentheses")
		s = ifThenElseIfRe.ReplaceAllString(s, "IF($1, $2, IF(")
	}
	s = pickRe.ReplaceAllString(s, "SWITCH(")
	if matchRe.MatchString(s) {
		t.warnf("Match() kept as-is; rewrite as SWITCH(TRUE(), ...) or an IN expression")
	}
	return s
}

var aggrRe = regexp.MustCompile(`(?is)\bAggr\s*\(\s*(.+?)\s*,\s*(.+?)\s*\)`)

// convertAggr rewrites the call head only; the dimension list is passed
// through unparsed.
func (t *translator) convertAggr(s string) string {
	if !aggrRe.MatchString(s) {
		return s
	}
	t.warnf("Aggr() converted to an ADDCOLUMNS/SUMMARIZE skeleton; review grouping and context")
	return aggrRe.ReplaceAllString(s, `ADDCOLUMNS(SUMMARIZE(VALUES($2)), "Value", $1)`)
}

func (t *translator) applyFunctionRules(s string) string {
	for _, r := range functionRules {
		s = t.applyRule(s, r)
	}
	return s
}

func (t *translator) applyRule(s string, r Rule) string {
	if r.Warn != "" && r.Pattern.MatchString(s) {
		t.warnf("%s", r.Warn)
	}
	switch r.Kind {
	case Rename:
		return r.Pattern.ReplaceAllLiteralString(s, r.Target)
	case TemplateRewrite:
		return r.Pattern.ReplaceAllStringFunc(s, func(m string) string {
			g := r.Pattern.FindStringSubmatch(m)
			return splice(r.Target, g[1:])
		})
	case StructuralRewrite:
		return r.Pattern.ReplaceAllStringFunc(s, func(m string) string {
			return r.Rewrite(r.Pattern.FindStringSubmatch(m))
		})
	}
	return s
}

var altRe = regexp.MustCompile(`(?i)\bAlt\s*\(`)

// convertAlt maps Alt to COALESCE. Only the opener is renamed so the
// argument list, nested calls included, is copied verbatim.
func convertAlt(s string) string {
	return altRe.ReplaceAllLiteralString(s, "COALESCE(")
}

var classRe = regexp.MustCompile(`(?i)\bClass\s*\(\s*([^,()]+?)\s*(?:,\s*([^()]+?)\s*)?\)`)

// convertClass rewrites bucket expressions into a floor-division bucket
// start concatenated with the bucket end. Width defaults to 100.
func convertClass(s string) string {
	return classRe.ReplaceAllStringFunc(s, func(m string) string {
		g := classRe.FindStringSubmatch(m)
		value := strings.TrimSpace(g[1])
		width := strings.TrimSpace(g[2])
		if width == "" {
			width = "100"
		}
		bucket := fmt.Sprintf("INT(DIVIDE(%s, %s)) * %s", value, width, width)
		return fmt.Sprintf(`%s & " - " & (%s + %s)`, bucket, bucket, width)
	})
}

var (
	wsRe        = regexp.MustCompile(`[ \t]+`)
	emptyCallRe = regexp.MustCompile(`\(\s+\)`)
	spaceComma  = regexp.MustCompile(`\s+,`)
)

// cleanup collapses runs of spaces and tabs to a single space. Newlines
// are kept so multi-line expressions stay readable in emitted TMDL.
func cleanup(s string) string {
	s = wsRe.ReplaceAllString(s, " ")
	s = emptyCallRe.ReplaceAllString(s, "()")
	s = spaceComma.ReplaceAllString(s, ",")
	return strings.TrimSpace(s)
}
