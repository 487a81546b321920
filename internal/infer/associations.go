package infer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/semshift/semshift/internal/qlik"
)

var idSuffixRe = regexp.MustCompile(`(?i)id$`)

// InferAssociations derives cross-table associations. Explicit associations
// declared by the app are taken verbatim and suppress all inference; their
// type defaults to "explicit" when unset.
//
// Without explicit input, every field name shared by a pair of tables
// (pairs visited in sorted order) yields one "natural" association:
//   - a field ending in "ID" or "Id" points from the fact table to the
//     dimension table, the dimension being the table whose stemmed name
//     matches the stemmed field prefix; if neither matches, the table with
//     more fields is assumed to be the fact side (ties keep pair order);
//   - any other shared field associates the pair in sorted order.
//
// Every inferred association also emits an advisory warning so the caller
// can surface what was guessed.
func InferAssociations(tables Tables, explicit []qlik.Association) ([]qlik.Association, []string) {
	return InferAssociationsWith(tables, explicit, SuffixStemmer{})
}

// InferAssociationsWith is InferAssociations with a caller-chosen Stemmer.
func InferAssociationsWith(tables Tables, explicit []qlik.Association, stem Stemmer) ([]qlik.Association, []string) {
	if len(explicit) > 0 {
		assocs := make([]qlik.Association, len(explicit))
		copy(assocs, explicit)
		for i := range assocs {
			if assocs[i].Type == "" {
				assocs[i].Type = "explicit"
			}
		}
		return assocs, nil
	}

	var assocs []qlik.Association
	var warnings []string
	names := tables.Names()
	for i, t1 := range names {
		for _, t2 := range names[i+1:] {
			for _, field := range commonFields(tables[t1], tables[t2]) {
				var a qlik.Association
				if hasIDSuffix(field) {
					fact, dim, note := classifyKeySides(tables, stem, t1, t2, field)
					a = qlik.Association{
						FromTable: fact, FromField: field,
						ToTable: dim, ToField: field,
						Type: "natural", Note: note,
					}
				} else {
					a = qlik.Association{
						FromTable: t1, FromField: field,
						ToTable: t2, ToField: field,
						Type: "natural", Note: "shared field",
					}
				}
				assocs = append(assocs, a)
				warnings = append(warnings, fmt.Sprintf(
					"inferred association %s.%s -> %s.%s (%s)",
					a.FromTable, a.FromField, a.ToTable, a.ToField, a.Note))
			}
		}
	}
	return assocs, warnings
}

// classifyKeySides decides which side of a key field is the fact (many)
// table and which the dimension (one). The dimension is the table whose
// stemmed name matches the stemmed field prefix; checked against t2 first
// so that the sorted-pair order is kept when both match.
func classifyKeySides(tables Tables, stem Stemmer, t1, t2, field string) (fact, dim, note string) {
	switch {
	case isDimensionFor(stem, t2, field):
		return t1, t2, "key field, dimension matched by stem"
	case isDimensionFor(stem, t1, field):
		return t2, t1, "key field, dimension matched by stem"
	case len(tables[t1]) >= len(tables[t2]):
		return t1, t2, "key field, larger table assumed fact"
	default:
		return t2, t1, "key field, larger table assumed fact"
	}
}

// isDimensionFor reports whether table looks like the dimension for a key
// field: "Customers" is the dimension for "CustomerID".
func isDimensionFor(stem Stemmer, table, field string) bool {
	prefix := idSuffixRe.ReplaceAllString(field, "")
	if prefix == "" {
		return false
	}
	return stem.Stem(table) == stem.Stem(prefix)
}

func hasIDSuffix(field string) bool {
	return strings.HasSuffix(field, "ID") || strings.HasSuffix(field, "Id")
}

func commonFields(a, b map[string]bool) []string {
	var common []string
	for f := range a {
		if b[f] {
			common = append(common, f)
		}
	}
	sort.Strings(common)
	return common
}

// FlagSyntheticKeys lists the tables Qlik created to stand in for an
// ambiguous multi-field join. They are flagged for manual remodelling but
// stay in the model; the engine never tries to resolve them.
func FlagSyntheticKeys(tables Tables) ([]string, []string) {
	var keys, warnings []string
	for _, name := range tables.Names() {
		if strings.HasPrefix(name, "$Syn") {
			keys = append(keys, name)
			warnings = append(warnings, fmt.Sprintf(
				"synthetic key table %s: ambiguous multi-field join, remodel manually", name))
		}
	}
	return keys, warnings
}
