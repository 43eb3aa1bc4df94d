package sqlkit

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// InsertBuilder renders INSERT [OR <conflict>] INTO t(cols) VALUES(?, ...).
type InsertBuilder struct {
	table    string
	columns  []Field
	conflict Conflict
}

func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

// Columns declares the columns values are bound to, in bind order.
func (b *InsertBuilder) Columns(fields ...Field) *InsertBuilder {
	b.columns = append(b.columns, fields...)
	return b
}

func (b *InsertBuilder) OnConflict(c Conflict) *InsertBuilder {
	b.conflict = c
	return b
}

func (b *InsertBuilder) Build() (Statement[*InsertExecutor], error) {
	what := "insert into " + b.table
	if b.table == "" {
		return Statement[*InsertExecutor]{}, buildErr(what, ErrMissingTable)
	}
	if len(b.columns) == 0 {
		return Statement[*InsertExecutor]{}, buildErr(what, ErrMissingColumns)
	}
	if err := sameTable(b.table, b.columns); err != nil {
		return Statement[*InsertExecutor]{}, buildErr(what, err)
	}
	marks := strings.Repeat(", ?", len(b.columns))[2:]
	query := fmt.Sprintf("INSERT%s INTO %s(%s) VALUES(%s)",
		b.conflict.or(), b.table, strings.Join(names(b.columns), ", "), marks)

	columns := append([]Field(nil), b.columns...)
	return Statement[*InsertExecutor]{
		sql: query,
		compile: prepared(func(d *database, stmt *sqlx.Stmt, _ []any) *InsertExecutor {
			return newInsertExecutor(d, stmt, columns)
		}),
	}, nil
}

func (b *InsertBuilder) MustBuild() Statement[*InsertExecutor] {
	return Mustv(b.Build())
}

func sameTable(table string, fields []Field) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.TableName() != table {
			return fmt.Errorf("%w: %s", ErrForeignColumn, f.FullName())
		}
		if seen[f.Name()] {
			return fmt.Errorf("%w: %s", ErrDuplicateColumn, f.Name())
		}
		seen[f.Name()] = true
	}
	return nil
}
