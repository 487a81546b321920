package infer

import (
	"fmt"

	"github.com/semshift/semshift/internal/pbi"
	"github.com/semshift/semshift/internal/qlik"
)

// ConvertRelationships turns associations into typed relationships.
// Cardinality comes from field-name shape: a from-field ending in ID/Id is
// the many side (many-to-one); failing that, an ID/Id to-field means
// one-to-many; anything else defaults to many-to-one with a warning that
// the cardinality was assumed. Cross-filtering is always single direction
// and every relationship starts active.
//
// Names follow the FromTable_ToTable convention. Two associations between
// the same ordered table pair on different fields therefore collide on
// name; that is left as-is for manual review. Exact duplicates (same
// tables, same columns) are dropped after the first, with a warning.
func ConvertRelationships(assocs []qlik.Association) ([]pbi.Relationship, []string) {
	var rels []pbi.Relationship
	var warnings []string
	seen := make(map[string]bool)

	for _, a := range assocs {
		key := a.FromTable + "\x00" + a.FromField + "\x00" + a.ToTable + "\x00" + a.ToField
		if seen[key] {
			warnings = append(warnings, fmt.Sprintf(
				"duplicate association %s.%s -> %s.%s dropped",
				a.FromTable, a.FromField, a.ToTable, a.ToField))
			continue
		}
		seen[key] = true

		cardinality := pbi.ManyToOne
		switch {
		case hasIDSuffix(a.FromField):
		case hasIDSuffix(a.ToField):
			cardinality = pbi.OneToMany
		default:
			warnings = append(warnings, fmt.Sprintf(
				"relationship %s_%s: cardinality assumed many-to-one (no key suffix on %s)",
				a.FromTable, a.ToTable, a.FromField))
		}

		rels = append(rels, pbi.Relationship{
			Name:        a.FromTable + "_" + a.ToTable,
			FromTable:   a.FromTable,
			FromColumn:  a.FromField,
			ToTable:     a.ToTable,
			ToColumn:    a.ToField,
			Cardinality: cardinality,
			CrossFilter: pbi.FilterSingle,
			IsActive:    true,
		})
	}
	return rels, warnings
}
