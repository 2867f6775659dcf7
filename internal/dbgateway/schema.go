package dbgateway

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/xlab/treeprint"
)

// Column describes one table column as seen by introspection.
type Column struct {
	Name       string
	DataType   string
	IsNullable bool
	Default    *string
}

// NewColumn builds a non-nullable column with no default.
func NewColumn(name, dataType string) Column {
	return Column{Name: name, DataType: dataType}
}

// Nullable marks the column as nullable.
func (c Column) Nullable() Column {
	c.IsNullable = true
	return c
}

// WithDefault attaches a DEFAULT expression.
func (c Column) WithDefault(def string) Column {
	c.Default = &def
	return c
}

// Index describes a btree/other index discovered during introspection.
type Index struct {
	Name     string
	Columns  []string
	IsUnique bool
}

// NewIndex builds a non-unique index over the given columns.
func NewIndex(name string, columns []string) Index {
	return Index{Name: name, Columns: columns}
}

// Unique marks the index as unique.
func (i Index) Unique() Index {
	i.IsUnique = true
	return i
}

// Table is one introspected base table, with its primary key column
// names and any indexes found on it.
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey []string
	Indexes    []Index
}

// NewTable builds a table with the given name and columns.
func NewTable(name string, columns []Column) Table {
	return Table{Name: name, Columns: columns}
}

// ForeignKey describes a foreign key relationship between two tables.
type ForeignKey struct {
	FromTable   string
	FromColumns []string
	ToTable     string
	ToColumns   []string
}

// NewForeignKey builds a foreign key.
func NewForeignKey(fromTable string, fromColumns []string, toTable string, toColumns []string) ForeignKey {
	return ForeignKey{FromTable: fromTable, FromColumns: fromColumns, ToTable: toTable, ToColumns: toColumns}
}

// Schema is the full introspected shape of a database: every base
// table and every foreign key relationship between them.
type Schema struct {
	Tables      []Table
	ForeignKeys []ForeignKey
}

// NewSchema builds a schema from tables and foreign keys.
func NewSchema(tables []Table, foreignKeys []ForeignKey) Schema {
	return Schema{Tables: tables, ForeignKeys: foreignKeys}
}

func (s Schema) isPrimaryKey(t Table, col string) bool {
	for _, pk := range t.PrimaryKey {
		if pk == col {
			return true
		}
	}
	return false
}

func (s Schema) foreignKeyTarget(t Table, col string) (string, bool) {
	for _, fk := range s.ForeignKeys {
		if fk.FromTable != t.Name {
			continue
		}
		for i, fromCol := range fk.FromColumns {
			if fromCol == col && i < len(fk.ToColumns) {
				return fmt.Sprintf("%s.%s", fk.ToTable, fk.ToColumns[i]), true
			}
		}
	}
	return "", false
}

func formatColumnLine(t Table, s Schema, c Column) string {
	var annotations []string
	if s.isPrimaryKey(t, c.Name) {
		annotations = append(annotations, "PK")
	}
	if !c.IsNullable {
		annotations = append(annotations, "NOT NULL")
	}
	if target, ok := s.foreignKeyTarget(t, c.Name); ok {
		annotations = append(annotations, "FK->"+target)
	}

	line := fmt.Sprintf("  %s: %s", c.Name, c.DataType)
	if len(annotations) > 0 {
		line += fmt.Sprintf(" (%s)", strings.Join(annotations, ", "))
	}
	if c.Default != nil {
		line += fmt.Sprintf(" DEFAULT %s", *c.Default)
	}
	return line
}

func formatTableForLLM(s Schema, t Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table: %s\n", t.Name)
	for _, c := range t.Columns {
		b.WriteString(formatColumnLine(t, s, c))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatForLLM renders the schema as plain text suitable for a system
// prompt: one block per table, followed by a foreign key summary.
func (s Schema) FormatForLLM() string {
	var b strings.Builder
	for i, t := range s.Tables {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(formatTableForLLM(s, t))
	}

	if len(s.ForeignKeys) > 0 {
		b.WriteString("\nForeign Keys:\n")
		for _, fk := range s.ForeignKeys {
			for i, fromCol := range fk.FromColumns {
				if i >= len(fk.ToColumns) {
					continue
				}
				fmt.Fprintf(&b, "  - %s.%s -> %s.%s\n", fk.FromTable, fromCol, fk.ToTable, fk.ToColumns[i])
			}
		}
	}

	return b.String()
}

// FormatForDisplay renders the schema as a tree for the /schema
// command: one branch per table, a leaf per column annotated with its
// type and any PK/FK/NOT NULL markers. Unlike FormatForLLM this isn't
// meant to be economical with tokens, just readable in a terminal.
func (s Schema) FormatForDisplay() string {
	if len(s.Tables) == 0 {
		return "(no tables)"
	}

	tree := treeprint.NewWithRoot("schema")
	for _, t := range s.Tables {
		branch := tree.AddBranch(t.Name)
		for _, c := range t.Columns {
			branch.AddNode(strings.TrimLeft(formatColumnLine(t, s, c), " "))
		}
	}
	return tree.String()
}

// ContentHash returns a stable fingerprint over the schema's identity
// fields (table/column/FK names and shapes), used to detect when a
// re-introspection actually changed anything worth invalidating a
// cached prompt over.
func (s Schema) ContentHash() uint64 {
	h := fnv.New64a()

	tables := make([]Table, len(s.Tables))
	copy(tables, s.Tables)
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })

	for _, t := range tables {
		fmt.Fprintf(h, "table:%s\n", t.Name)
		cols := make([]Column, len(t.Columns))
		copy(cols, t.Columns)
		sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })
		for _, c := range cols {
			fmt.Fprintf(h, "col:%s:%s:%v\n", c.Name, c.DataType, c.IsNullable)
		}
		pk := append([]string(nil), t.PrimaryKey...)
		sort.Strings(pk)
		fmt.Fprintf(h, "pk:%s\n", strings.Join(pk, ","))
	}

	fks := make([]ForeignKey, len(s.ForeignKeys))
	copy(fks, s.ForeignKeys)
	sort.Slice(fks, func(i, j int) bool {
		if fks[i].FromTable != fks[j].FromTable {
			return fks[i].FromTable < fks[j].FromTable
		}
		return fks[i].ToTable < fks[j].ToTable
	})
	for _, fk := range fks {
		fmt.Fprintf(h, "fk:%s:%s:%s:%s\n", fk.FromTable, strings.Join(fk.FromColumns, ","), fk.ToTable, strings.Join(fk.ToColumns, ","))
	}

	return h.Sum64()
}
