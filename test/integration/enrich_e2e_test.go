//go:build integration

package integration

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/semshift/semshift/internal/enrich"
	"github.com/semshift/semshift/internal/pbi"
)

// Requires a reachable Postgres; set SEMSHIFT_TEST_PG_DSN to run.
func enrichDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("SEMSHIFT_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("skipping: SEMSHIFT_TEST_PG_DSN not set")
	}
	return dsn
}

func TestEnrichAgainstLivePostgres(t *testing.T) {
	dsn := enrichDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer pool.Close()

	_, err = pool.Exec(ctx, `
		DROP TABLE IF EXISTS orders;
		CREATE TABLE orders (
			order_id   bigint,
			amount     numeric(12,2),
			order_date timestamp,
			note       text
		)`)
	if err != nil {
		t.Fatalf("creating fixture table: %v", err)
	}
	defer pool.Exec(ctx, `DROP TABLE IF EXISTS orders`)

	model := &pbi.Model{
		Tables: []pbi.Table{
			{Name: "Orders", Columns: []pbi.Column{
				{Name: "order_id", DataType: "string"},
				{Name: "amount", DataType: "string"},
				{Name: "order_date", DataType: "string"},
				{Name: "note", DataType: "string"},
			}},
		},
	}

	warnings := enrich.Apply(ctx, dsn, model)
	for _, w := range warnings {
		t.Logf("warning: %s", w)
	}

	want := map[string]string{
		"order_id":   "int64",
		"amount":     "decimal",
		"order_date": "dateTime",
		"note":       "string",
	}
	for _, c := range model.Tables[0].Columns {
		if got := c.DataType; got != want[c.Name] {
			t.Errorf("%s type = %q, want %q", c.Name, got, want[c.Name])
		}
	}
}

func TestEnrichUnreachableWarns(t *testing.T) {
	model := &pbi.Model{Tables: []pbi.Table{{Name: "Orders"}}}
	warnings := enrich.Apply(context.Background(),
		"postgres://nobody@127.0.0.1:1/none?connect_timeout=1", model)
	if len(warnings) == 0 {
		t.Error("unreachable warehouse should warn, not fail silently")
	}
}
