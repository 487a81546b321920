package guide

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// AccessRow is one parsed row of a section access table.
type AccessRow struct {
	Access     string
	UserID     string
	Reductions map[string]string
}

// Role is one row-level security role derived from section access.
type Role struct {
	Name    string
	Field   string
	Value   string
	Filter  string
	Members []string
}

var sectionAccessRe = regexp.MustCompile(
	`(?is)SECTION\s+ACCESS\s*;(.*?)(?:SECTION\s+APPLICATION\s*;|\z)`)

var inlineTableRe = regexp.MustCompile(`(?is)LOAD\s+\*\s+INLINE\s*\[(.*?)\]`)

// ParseSectionAccess extracts the access table from a load script. The
// second return is false when the script has no section access block.
func ParseSectionAccess(script string) ([]AccessRow, bool) {
	m := sectionAccessRe.FindStringSubmatch(script)
	if m == nil {
		return nil, false
	}
	tbl := inlineTableRe.FindStringSubmatch(m[1])
	if tbl == nil {
		return nil, true
	}

	var header []string
	var rows []AccessRow
	for _, line := range strings.Split(tbl[1], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cells := strings.Split(line, ",")
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		if header == nil {
			header = cells
			for i := range header {
				header[i] = strings.ToUpper(header[i])
			}
			continue
		}
		row := AccessRow{Reductions: make(map[string]string)}
		for i, c := range cells {
			if i >= len(header) {
				break
			}
			switch header[i] {
			case "ACCESS":
				row.Access = strings.ToUpper(c)
			case "USERID", "NTNAME", "USER.EMAIL":
				row.UserID = c
			case "OMIT", "PASSWORD", "SERIAL":
				// not expressible as an RLS filter
			default:
				row.Reductions[header[i]] = c
			}
		}
		rows = append(rows, row)
	}
	return rows, true
}

// BuildRoles folds access rows into RLS roles: one role per distinct
// field/value reduction, with the users that share it as members. A "*"
// reduction means unrestricted access and produces no role.
func BuildRoles(rows []AccessRow) []Role {
	type key struct{ field, value string }
	members := make(map[key][]string)
	for _, r := range rows {
		for field, value := range r.Reductions {
			if value == "*" || value == "" {
				continue
			}
			k := key{field, value}
			members[k] = append(members[k], r.UserID)
		}
	}

	roles := make([]Role, 0, len(members))
	for k, m := range members {
		sort.Strings(m)
		roles = append(roles, Role{
			Name:    fmt.Sprintf("%s_%s", k.field, sanitizeRoleName(k.value)),
			Field:   k.field,
			Value:   k.value,
			Filter:  fmt.Sprintf("[%s] = %q", k.field, k.value),
			Members: m,
		})
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles
}

func sanitizeRoleName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
