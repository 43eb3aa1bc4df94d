package sqlkit

import (
	"strings"

	"github.com/jmoiron/sqlx"
)

// UpdateBuilder renders UPDATE [OR <conflict>] t SET a = ?, ... [WHERE (...)].
type UpdateBuilder struct {
	table    string
	columns  []Field
	where    Expression
	conflict Conflict
}

func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

// Columns declares the columns to set, in bind order.
func (b *UpdateBuilder) Columns(fields ...Field) *UpdateBuilder {
	b.columns = append(b.columns, fields...)
	return b
}

func (b *UpdateBuilder) Where(e Expression) *UpdateBuilder {
	b.where = e
	return b
}

func (b *UpdateBuilder) OnConflict(c Conflict) *UpdateBuilder {
	b.conflict = c
	return b
}

func (b *UpdateBuilder) Build() (Statement[*UpdateExecutor], error) {
	what := "update " + b.table
	if b.table == "" {
		return Statement[*UpdateExecutor]{}, buildErr(what, ErrMissingTable)
	}
	if len(b.columns) == 0 {
		return Statement[*UpdateExecutor]{}, buildErr(what, ErrMissingColumns)
	}
	if err := sameTable(b.table, b.columns); err != nil {
		return Statement[*UpdateExecutor]{}, buildErr(what, err)
	}

	var sb strings.Builder
	sb.WriteString("UPDATE")
	sb.WriteString(b.conflict.or())
	sb.WriteByte(' ')
	sb.WriteString(b.table)
	sb.WriteString(" SET ")
	for i, c := range b.columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.Name())
		sb.WriteString(" = ?")
	}
	var args []string
	if b.where != nil {
		sb.WriteString(" WHERE (")
		sb.WriteString(b.where.Raw())
		sb.WriteByte(')')
		args = b.where.Args()
	}

	columns := append([]Field(nil), b.columns...)
	return Statement[*UpdateExecutor]{
		sql:  sb.String(),
		args: args,
		compile: prepared(func(d *database, stmt *sqlx.Stmt, where []any) *UpdateExecutor {
			return newUpdateExecutor(d, stmt, columns, where)
		}),
	}, nil
}

func (b *UpdateBuilder) MustBuild() Statement[*UpdateExecutor] {
	return Mustv(b.Build())
}
