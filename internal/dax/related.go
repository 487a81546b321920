package dax

import (
	"fmt"
	"regexp"

	"github.com/semshift/semshift/internal/pbi"
)

// crossRefRe finds bracketed column references. Qualified forms
// ('Table'[Col], Table[Col]) match the first alternations and are left
// alone; only bare [Col] references capture a group.
var crossRefRe = regexp.MustCompile(`'[^']*'\[\w+\]|\w+\[\w+\]|\[(\w+)\]`)

// resolveCrossTableRefs rewrites bare column references that live on
// another table. It only applies to calculated columns, which evaluate in
// row context; measures resolve columns through their own aggregations.
func (t *translator) resolveCrossTableRefs(s string) string {
	if !t.opts.CalculatedColumn || t.opts.TableName == "" || len(t.opts.ColumnTables) == 0 {
		return s
	}
	return crossRefRe.ReplaceAllStringFunc(s, func(m string) string {
		g := crossRefRe.FindStringSubmatch(m)
		col := g[1]
		if col == "" {
			return m // already qualified
		}
		owner := t.opts.ColumnTables[col]
		if owner == "" || owner == t.opts.TableName {
			return m
		}
		if t.relatedPath(owner) {
			return fmt.Sprintf("RELATED('%s'[%s])", owner, col)
		}
		t.warnf("no relationship path from %s to %s for [%s]; LOOKUPVALUE needs a key column filled in",
			t.opts.TableName, owner, col)
		return fmt.Sprintf("LOOKUPVALUE('%s'[%s])", owner, col)
	})
}

// relatedPath reports whether RELATED can reach owner from the current
// table: a many-to-one link outward, or a one-to-many link back.
func (t *translator) relatedPath(owner string) bool {
	for _, r := range t.opts.Relationships {
		if r.FromTable == t.opts.TableName && r.ToTable == owner && r.Cardinality == pbi.ManyToOne {
			return true
		}
		if r.FromTable == owner && r.ToTable == t.opts.TableName && r.Cardinality == pbi.OneToMany {
			return true
		}
	}
	return false
}
