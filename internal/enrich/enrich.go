// Package enrich overrides inferred column types with authoritative
// ones read from the source warehouse's information schema.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/semshift/semshift/internal/pbi"
)

// Apply connects to the warehouse named by dsn and replaces inferred
// column types with the declared ones. An empty dsn is a no-op. Any
// failure degrades to warnings; the inferred types stand.
func Apply(ctx context.Context, dsn string, model *pbi.Model) []string {
	if dsn == "" || model == nil {
		return nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return []string{fmt.Sprintf("enrich: connecting to warehouse: %v", err)}
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return []string{fmt.Sprintf("enrich: pinging warehouse: %v", err)}
	}

	types, err := queryColumnTypes(ctx, pool, tableNames(model))
	if err != nil {
		return []string{fmt.Sprintf("enrich: reading information_schema: %v", err)}
	}

	return ApplyOverrides(model, types)
}

func tableNames(model *pbi.Model) []string {
	names := make([]string, 0, len(model.Tables))
	for _, t := range model.Tables {
		names = append(names, t.Name)
	}
	return names
}

// queryColumnTypes reads declared column types for the given tables,
// keyed by lowercased table then column name. Matching is
// case-insensitive because Qlik labels rarely preserve warehouse casing.
func queryColumnTypes(ctx context.Context, pool *pgxpool.Pool, tables []string) (map[string]map[string]string, error) {
	lowered := make([]string, len(tables))
	for i, t := range tables {
		lowered[i] = strings.ToLower(t)
	}

	rows, err := pool.Query(ctx, `
		SELECT lower(table_name), lower(column_name), udt_name
		FROM information_schema.columns
		WHERE lower(table_name) = ANY($1)
		ORDER BY table_name, ordinal_position`, lowered)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := make(map[string]map[string]string)
	for rows.Next() {
		var table, column, udt string
		if err := rows.Scan(&table, &column, &udt); err != nil {
			return nil, err
		}
		if types[table] == nil {
			types[table] = make(map[string]string)
		}
		types[table][column] = udt
	}
	return types, rows.Err()
}

// ApplyOverrides rewrites column data types from udt names, keyed by
// lowercased table and column. Calculated columns are left alone.
func ApplyOverrides(model *pbi.Model, types map[string]map[string]string) []string {
	var warnings []string
	for ti := range model.Tables {
		t := &model.Tables[ti]
		cols := types[strings.ToLower(t.Name)]
		if cols == nil {
			continue
		}
		for ci := range t.Columns {
			c := &t.Columns[ci]
			if c.Expression != "" {
				continue
			}
			udt, ok := cols[strings.ToLower(c.Name)]
			if !ok {
				warnings = append(warnings, fmt.Sprintf(
					"enrich: column %s.%s not found in warehouse schema", t.Name, c.Name))
				continue
			}
			if mapped := MapUDT(udt); mapped != "" && mapped != c.DataType {
				c.DataType = mapped
			}
		}
	}
	return warnings
}

// MapUDT maps a Postgres udt name to a model data type. Unknown names
// return "" so inference stands.
func MapUDT(udt string) string {
	switch strings.ToLower(udt) {
	case "int2", "int4", "int8", "smallint", "integer", "bigint", "serial", "bigserial":
		return pbi.TypeInt64
	case "float4", "float8", "real", "double precision":
		return pbi.TypeDouble
	case "numeric", "decimal", "money":
		return pbi.TypeDecimal
	case "date", "timestamp", "timestamptz", "time", "timetz":
		return pbi.TypeDateTime
	case "bool", "boolean":
		return pbi.TypeBoolean
	case "text", "varchar", "bpchar", "char", "uuid", "name":
		return pbi.TypeString
	default:
		return ""
	}
}
