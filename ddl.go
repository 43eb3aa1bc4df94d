package sqlkit

import (
	"context"
	"strings"
)

func execCompile(ctx context.Context, d *database, query string, args []any) (*Exec, error) {
	return &Exec{query: query, args: args, db: d}, nil
}

func execStatement(query string) Statement[*Exec] {
	return Statement[*Exec]{sql: query, compile: execCompile}
}

// CreateTableBuilder renders CREATE TABLE for a table descriptor.
type CreateTableBuilder struct {
	table        *Table
	ifNotExists  bool
	withoutRowID bool
}

// CreateTable renders table with WITHOUT ROWID when the table asks for it.
func CreateTable(table *Table) *CreateTableBuilder {
	return &CreateTableBuilder{table: table, withoutRowID: true}
}

func (b *CreateTableBuilder) IfNotExists() *CreateTableBuilder {
	b.ifNotExists = true
	return b
}

// SupportsWithoutRowID tells the builder whether the target SQLite accepts
// WITHOUT ROWID (3.8.2 and later). When it does not, the clause is left off.
func (b *CreateTableBuilder) SupportsWithoutRowID(ok bool) *CreateTableBuilder {
	b.withoutRowID = ok
	return b
}

func (b *CreateTableBuilder) Build() (Statement[*Exec], error) {
	if b.table == nil {
		return Statement[*Exec]{}, buildErr("create table", ErrMissingTable)
	}
	t := b.table
	defs := make([]string, 0, len(t.columns)+len(t.foreignKeys)+2)
	for _, c := range t.columns {
		defs = append(defs, c.Definition())
	}
	if pk := t.PrimaryKey(); len(pk) > 0 {
		defs = append(defs, "PRIMARY KEY("+strings.Join(names(pk), ", ")+")")
	}
	if uq := t.UniqueColumns(); len(uq) > 0 {
		defs = append(defs, "UNIQUE("+strings.Join(names(uq), ", ")+")")
	}
	for _, fk := range t.foreignKeys {
		defs = append(defs, fk.Definition())
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	if b.ifNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(t.name)
	sb.WriteByte('(')
	sb.WriteString(strings.Join(defs, ", "))
	sb.WriteByte(')')
	if !t.withRowID && b.withoutRowID {
		sb.WriteString(" WITHOUT ROWID")
	}
	return execStatement(sb.String()), nil
}

func (b *CreateTableBuilder) MustBuild() Statement[*Exec] {
	return Mustv(b.Build())
}

// AlterTableBuilder picks one ALTER TABLE action for a table.
type AlterTableBuilder struct {
	table string
}

func AlterTable(table string) *AlterTableBuilder {
	return &AlterTableBuilder{table: table}
}

// RenameTo starts ALTER TABLE t RENAME TO name.
func (b *AlterTableBuilder) RenameTo(name string) *RenameTableBuilder {
	return &RenameTableBuilder{table: b.table, to: name}
}

// AddColumn starts ALTER TABLE t ADD COLUMN def.
func (b *AlterTableBuilder) AddColumn(f Field) *AddColumnBuilder {
	return &AddColumnBuilder{table: b.table, column: f}
}

type RenameTableBuilder struct {
	table string
	to    string
}

func (b *RenameTableBuilder) Build() (Statement[*Exec], error) {
	what := "alter table " + b.table
	if b.table == "" {
		return Statement[*Exec]{}, buildErr(what, ErrMissingTable)
	}
	if b.to == "" {
		return Statement[*Exec]{}, buildErr(what, ErrMissingTarget)
	}
	if err := validateName(b.to); err != nil {
		return Statement[*Exec]{}, buildErr(what, err)
	}
	return execStatement("ALTER TABLE " + b.table + " RENAME TO " + b.to), nil
}

func (b *RenameTableBuilder) MustBuild() Statement[*Exec] {
	return Mustv(b.Build())
}

type AddColumnBuilder struct {
	table  string
	column Field
}

// Build renders the column definition. SQLite refuses to add a NOT NULL
// column without a default to a table that has rows; that is reported when
// the statement runs.
func (b *AddColumnBuilder) Build() (Statement[*Exec], error) {
	what := "alter table " + b.table
	if b.table == "" {
		return Statement[*Exec]{}, buildErr(what, ErrMissingTable)
	}
	if b.column == nil {
		return Statement[*Exec]{}, buildErr(what, ErrMissingTarget)
	}
	return execStatement("ALTER TABLE " + b.table + " ADD COLUMN " + b.column.Definition()), nil
}

func (b *AddColumnBuilder) MustBuild() Statement[*Exec] {
	return Mustv(b.Build())
}

type DropTableBuilder struct {
	table    string
	ifExists bool
}

func DropTable(table string) *DropTableBuilder {
	return &DropTableBuilder{table: table}
}

func (b *DropTableBuilder) IfExists() *DropTableBuilder {
	b.ifExists = true
	return b
}

func (b *DropTableBuilder) Build() (Statement[*Exec], error) {
	if b.table == "" {
		return Statement[*Exec]{}, buildErr("drop table", ErrMissingTable)
	}
	if b.ifExists {
		return execStatement("DROP TABLE IF EXISTS " + b.table), nil
	}
	return execStatement("DROP TABLE " + b.table), nil
}

func (b *DropTableBuilder) MustBuild() Statement[*Exec] {
	return Mustv(b.Build())
}

// Vacuum renders VACUUM. It cannot run inside a transaction.
func Vacuum() Statement[*Exec] {
	return execStatement("VACUUM")
}
