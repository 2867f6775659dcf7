package dbgateway

import (
	"strings"
	"testing"
)

func TestSchemaFormatForLLM(t *testing.T) {
	users := NewTable("users", []Column{
		NewColumn("id", "integer"),
		NewColumn("email", "text"),
		NewColumn("created_at", "timestamp").WithDefault("now()"),
	})
	users.PrimaryKey = []string{"id"}

	orders := NewTable("orders", []Column{
		NewColumn("id", "integer"),
		NewColumn("user_id", "integer"),
	})
	orders.PrimaryKey = []string{"id"}

	schema := NewSchema([]Table{users, orders}, []ForeignKey{
		NewForeignKey("orders", []string{"user_id"}, "users", []string{"id"}),
	})

	out := schema.FormatForLLM()

	for _, want := range []string{
		"Table: users",
		"id: integer (PK, NOT NULL)",
		"created_at: timestamp (NOT NULL) DEFAULT now()",
		"Foreign Keys:",
		"orders.user_id -> users.id",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatForLLM() missing %q, got:\n%s", want, out)
		}
	}
}

func TestColumnBuilder(t *testing.T) {
	c := NewColumn("name", "text").Nullable().WithDefault("'unknown'")
	if !c.IsNullable || c.Default == nil || *c.Default != "'unknown'" {
		t.Errorf("unexpected column: %+v", c)
	}
}

func TestTableNew(t *testing.T) {
	tbl := NewTable("widgets", []Column{NewColumn("id", "integer")})
	if tbl.Name != "widgets" || len(tbl.Columns) != 1 {
		t.Errorf("unexpected table: %+v", tbl)
	}
}

func TestForeignKeyNew(t *testing.T) {
	fk := NewForeignKey("a", []string{"b_id"}, "b", []string{"id"})
	if fk.FromTable != "a" || fk.ToTable != "b" {
		t.Errorf("unexpected fk: %+v", fk)
	}
}

func TestIndexBuilder(t *testing.T) {
	idx := NewIndex("idx_email", []string{"email"}).Unique()
	if !idx.IsUnique || idx.Name != "idx_email" {
		t.Errorf("unexpected index: %+v", idx)
	}
}

func TestEmptySchema(t *testing.T) {
	s := NewSchema(nil, nil)
	if s.FormatForLLM() != "" {
		t.Errorf("expected empty output, got %q", s.FormatForLLM())
	}
}

func TestContentHashStableAndSensitive(t *testing.T) {
	a := NewSchema([]Table{NewTable("t", []Column{NewColumn("id", "integer")})}, nil)
	b := NewSchema([]Table{NewTable("t", []Column{NewColumn("id", "integer")})}, nil)
	if a.ContentHash() != b.ContentHash() {
		t.Error("expected identical schemas to hash the same")
	}

	c := NewSchema([]Table{NewTable("t", []Column{NewColumn("id", "bigint")})}, nil)
	if a.ContentHash() == c.ContentHash() {
		t.Error("expected differing column type to change the hash")
	}
}
