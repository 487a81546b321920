package enrich

import (
	"context"
	"strings"
	"testing"

	"github.com/semshift/semshift/internal/pbi"
)

func TestMapUDT(t *testing.T) {
	cases := []struct {
		udt, want string
	}{
		{"int4", pbi.TypeInt64},
		{"bigint", pbi.TypeInt64},
		{"float8", pbi.TypeDouble},
		{"numeric", pbi.TypeDecimal},
		{"timestamptz", pbi.TypeDateTime},
		{"date", pbi.TypeDateTime},
		{"bool", pbi.TypeBoolean},
		{"varchar", pbi.TypeString},
		{"VARCHAR", pbi.TypeString},
		{"jsonb", ""},
	}
	for _, c := range cases {
		if got := MapUDT(c.udt); got != c.want {
			t.Errorf("MapUDT(%q) = %q, want %q", c.udt, got, c.want)
		}
	}
}

func TestApplyOverrides(t *testing.T) {
	model := &pbi.Model{
		Tables: []pbi.Table{
			{
				Name: "Orders",
				Columns: []pbi.Column{
					{Name: "OrderID", DataType: pbi.TypeString, SourceColumn: "OrderID"},
					{Name: "Amount", DataType: pbi.TypeString, SourceColumn: "Amount"},
					{Name: "Margin", DataType: pbi.TypeDouble, Expression: "[A] - [B]"},
					{Name: "Ghost", DataType: pbi.TypeString, SourceColumn: "Ghost"},
				},
			},
			{
				Name:    "Untracked",
				Columns: []pbi.Column{{Name: "X", DataType: pbi.TypeString}},
			},
		},
	}
	types := map[string]map[string]string{
		"orders": {
			"orderid": "int8",
			"amount":  "numeric",
			"margin":  "float8",
		},
	}

	warnings := ApplyOverrides(model, types)

	orders := model.FindTable("Orders")
	if got := orders.FindColumn("OrderID").DataType; got != pbi.TypeInt64 {
		t.Errorf("OrderID type = %q", got)
	}
	if got := orders.FindColumn("Amount").DataType; got != pbi.TypeDecimal {
		t.Errorf("Amount type = %q", got)
	}
	if got := orders.FindColumn("Margin").DataType; got != pbi.TypeDouble {
		t.Errorf("calculated column type changed: %q", got)
	}
	if got := model.FindTable("Untracked").Columns[0].DataType; got != pbi.TypeString {
		t.Errorf("untracked table type changed: %q", got)
	}

	if len(warnings) != 1 || !strings.Contains(warnings[0], "Orders.Ghost") {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestApplyNoDSN(t *testing.T) {
	model := &pbi.Model{Tables: []pbi.Table{{Name: "Orders"}}}
	if warnings := Apply(context.Background(), "", model); warnings != nil {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestApplyBadDSNWarns(t *testing.T) {
	model := &pbi.Model{Tables: []pbi.Table{{Name: "Orders"}}}
	warnings := Apply(context.Background(), "not a dsn", model)
	if len(warnings) != 1 || !strings.Contains(warnings[0], "enrich:") {
		t.Errorf("warnings = %v", warnings)
	}
}
