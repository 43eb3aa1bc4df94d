package sqlkit

import (
	"github.com/jmoiron/sqlx"
)

// DeleteBuilder renders DELETE FROM t [WHERE (...)]. Without a filter every
// row is deleted.
type DeleteBuilder struct {
	table string
	where Expression
}

func DeleteFrom(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

func (b *DeleteBuilder) Where(e Expression) *DeleteBuilder {
	b.where = e
	return b
}

func (b *DeleteBuilder) Build() (Statement[*DeleteExecutor], error) {
	if b.table == "" {
		return Statement[*DeleteExecutor]{}, buildErr("delete", ErrMissingTable)
	}
	query := "DELETE FROM " + b.table
	var args []string
	if b.where != nil {
		query += " WHERE (" + b.where.Raw() + ")"
		args = b.where.Args()
	}
	return Statement[*DeleteExecutor]{
		sql:  query,
		args: args,
		compile: prepared(func(d *database, stmt *sqlx.Stmt, args []any) *DeleteExecutor {
			return &DeleteExecutor{stmt: stmt, db: d, args: args}
		}),
	}, nil
}

func (b *DeleteBuilder) MustBuild() Statement[*DeleteExecutor] {
	return Mustv(b.Build())
}
