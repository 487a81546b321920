package typemap

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/semshift/semshift/internal/pbi"
	"github.com/semshift/semshift/internal/qlik"
)

var dateSuffixes = []string{"date", "time", "datetime", "timestamp"}

var decimalSuffixes = []string{
	"amount", "price", "cost", "total", "revenue", "salary", "rate",
	"balance", "fee", "tax", "discount", "margin", "budget",
	"weight", "height", "latitude", "longitude",
}

var intSuffixes = []string{
	"id", "quantity", "qty", "count", "number", "num", "index",
	"year", "quarter", "month", "day", "age", "rank", "order",
}

// Token sets for compound names ("UnitPrice", "date_commande"). The
// decimal set carries the French amount words the suffix lists do not.
var (
	dateTokens = map[string]bool{
		"date": true, "time": true, "datetime": true, "timestamp": true,
	}
	decimalTokens = map[string]bool{
		"price": true, "amount": true, "cost": true, "total": true,
		"revenue": true, "salary": true, "rate": true, "balance": true,
		"fee": true, "tax": true, "discount": true, "margin": true,
		"montant": true, "prix": true, "solde": true,
	}
	intTokens = map[string]bool{
		"id": true, "qty": true, "quantity": true, "count": true,
		"num": true, "number": true, "year": true, "quarter": true,
		"month": true, "day": true, "age": true, "rank": true,
	}
)

// InferColumnType assigns a target data type from the field name alone.
// Ordered rules, first match wins:
//
//  1. fields referenced by aggregation measures are double;
//  2. date-word suffixes mean dateTime;
//  3. decimal-word suffixes mean double, checked before the integer list
//     so "Discount" is not caught by the "count" suffix;
//  4. integer-word suffixes mean int64;
//  5. compound names split on camelCase and underscore boundaries have
//     each token re-checked against the same word sets;
//  6. anything else is a string.
func InferColumnType(field string, measureRefs map[string]bool) string {
	low := strings.ToLower(strings.TrimSpace(field))

	if measureRefs[field] {
		return pbi.TypeDouble
	}
	if hasAnySuffix(low, dateSuffixes) {
		return pbi.TypeDateTime
	}
	if hasAnySuffix(low, decimalSuffixes) {
		return pbi.TypeDouble
	}
	if hasAnySuffix(low, intSuffixes) {
		return pbi.TypeInt64
	}

	for _, tok := range splitTokens(strings.TrimSpace(field)) {
		switch {
		case dateTokens[tok]:
			return pbi.TypeDateTime
		case decimalTokens[tok]:
			return pbi.TypeDouble
		case intTokens[tok]:
			return pbi.TypeInt64
		}
	}
	return pbi.TypeString
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

// splitTokens splits a name on underscores and lower-to-upper camelCase
// boundaries, lowercasing each token. The original casing drives the
// split, so "DateCommande" yields "date" and "commande".
func splitTokens(name string) []string {
	var tokens []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	var prev rune
	for _, r := range name {
		switch {
		case r == '_':
			flush()
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
		prev = r
	}
	flush()
	return tokens
}

var measureRefRe = regexp.MustCompile(`\(([^)]+)\)`)

// ExprRefs lists the column names referenced by the first parenthesised
// group of an expression, in the order they appear. Entries are split on
// commas and stripped of table qualifiers and brackets, so Sum(Amount),
// Sum(Sales.Amount), and Sum([Amount]) all yield "Amount".
func ExprRefs(expr string) []string {
	match := measureRefRe.FindStringSubmatch(expr)
	if match == nil {
		return nil
	}
	var refs []string
	for _, part := range strings.Split(match[1], ",") {
		name := strings.TrimSpace(part)
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
		name = strings.Trim(name, "[]")
		if name != "" {
			refs = append(refs, name)
		}
	}
	return refs
}

// MeasureRefs collects the column names referenced by measures into a
// set, used to steer numeric type inference toward aggregated columns.
func MeasureRefs(measures []qlik.Measure) map[string]bool {
	refs := make(map[string]bool)
	for _, m := range measures {
		for _, name := range ExprRefs(m.Expression) {
			refs[name] = true
		}
	}
	return refs
}
