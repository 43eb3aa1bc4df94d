package sqlkit

import (
	"fmt"
	"sync"
)

// Table is an immutable table descriptor.
type Table struct {
	name        string
	withRowID   bool
	columns     []Field
	foreignKeys []ForeignKey
}

func (t *Table) Name() string    { return t.name }
func (t *Table) WithRowID() bool { return t.withRowID }

func (t *Table) Columns() []Field {
	return append([]Field(nil), t.columns...)
}

func (t *Table) ForeignKeys() []ForeignKey {
	return append([]ForeignKey(nil), t.foreignKeys...)
}

// PrimaryKey returns the columns flagged as primary key, in declaration order.
func (t *Table) PrimaryKey() []Field {
	return t.filter(Field.IsPrimaryKey)
}

// UniqueColumns returns the columns flagged as unique, in declaration order.
func (t *Table) UniqueColumns() []Field {
	return t.filter(Field.IsUnique)
}

// Column looks a column up by its bare name.
func (t *Table) Column(name string) (Field, bool) {
	for _, c := range t.columns {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

func (t *Table) filter(keep func(Field) bool) []Field {
	var out []Field
	for _, c := range t.columns {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func (t *Table) String() string {
	return t.name
}

// TableBuilder declares a table.
type TableBuilder struct {
	name        string
	withRowID   bool
	columns     []Field
	foreignKeys []ForeignKey
}

// NewTable starts a table with a row id.
func NewTable(name string) *TableBuilder {
	return &TableBuilder{name: name, withRowID: true}
}

// Columns appends columns in declaration order.
func (b *TableBuilder) Columns(columns ...Field) *TableBuilder {
	b.columns = append(b.columns, columns...)
	return b
}

func (b *TableBuilder) ForeignKeys(fks ...ForeignKey) *TableBuilder {
	b.foreignKeys = append(b.foreignKeys, fks...)
	return b
}

// WithoutRowID opts the table out of SQLite's implicit row id. The table
// must then declare a primary key or unique column.
func (b *TableBuilder) WithoutRowID() *TableBuilder {
	b.withRowID = false
	return b
}

func (b *TableBuilder) Build() (*Table, error) {
	what := "table " + b.name
	if err := validateName(b.name); err != nil {
		return nil, buildErr(what, err)
	}
	if len(b.columns) == 0 {
		return nil, buildErr(what, ErrMissingColumns)
	}
	seen := make(map[string]bool, len(b.columns))
	hasKey := false
	for _, c := range b.columns {
		if c.TableName() != b.name {
			return nil, buildErr(what, fmt.Errorf("%w: %s", ErrForeignColumn, c.FullName()))
		}
		if seen[c.Name()] {
			return nil, buildErr(what, fmt.Errorf("%w: %s", ErrDuplicateColumn, c.Name()))
		}
		seen[c.Name()] = true
		hasKey = hasKey || c.IsPrimaryKey() || c.IsUnique()
	}
	if !b.withRowID && !hasKey {
		return nil, buildErr(what, ErrNoKeyColumn)
	}
	return &Table{
		name:        b.name,
		withRowID:   b.withRowID,
		columns:     append([]Field(nil), b.columns...),
		foreignKeys: append([]ForeignKey(nil), b.foreignKeys...),
	}, nil
}

func (b *TableBuilder) MustBuild() *Table {
	return Mustv(b.Build())
}

// Schema is the set of tables a database holds at a given version.
type Schema struct {
	version int
	tables  func() ([]*Table, error)
}

// NewSchema declares the tables of schema version. register is called once,
// on first use, and its result is kept for the lifetime of the process.
func NewSchema(version int, register func() ([]*Table, error)) *Schema {
	return &Schema{
		version: version,
		tables:  sync.OnceValues(register),
	}
}

// StaticSchema declares a schema from tables that are already built.
func StaticSchema(version int, tables ...*Table) *Schema {
	return NewSchema(version, func() ([]*Table, error) { return tables, nil })
}

func (s *Schema) Version() int {
	return s.version
}

// Tables returns the registered tables in creation order.
func (s *Schema) Tables() ([]*Table, error) {
	tables, err := s.tables()
	if err != nil {
		return nil, fmt.Errorf("register tables: %w", err)
	}
	return append([]*Table(nil), tables...), nil
}

// Table looks a registered table up by name.
func (s *Schema) Table(name string) (*Table, bool) {
	tables, err := s.tables()
	if err != nil {
		return nil, false
	}
	for _, t := range tables {
		if t.name == name {
			return t, true
		}
	}
	return nil, false
}
