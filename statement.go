package sqlkit

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Statement is a rendered SQL template and its bind arguments. It holds no
// connection; Compile turns it into an executor of type E against a
// Database. The same Statement may be compiled any number of times.
type Statement[E any] struct {
	sql     string
	args    []string
	compile func(ctx context.Context, d *database, query string, args []any) (E, error)
}

func (s Statement[E]) SQL() string {
	return s.sql
}

// Args returns the positional bind arguments of the WHERE and ON clauses.
func (s Statement[E]) Args() []string {
	return append([]string(nil), s.args...)
}

func (s Statement[E]) String() string {
	if len(s.args) == 0 {
		return s.sql
	}
	return fmt.Sprintf("%s %q", s.sql, s.args)
}

// Compile prepares the statement against db.
func (s Statement[E]) Compile(ctx context.Context, db Database) (E, error) {
	var zero E
	if s.compile == nil {
		return zero, fmt.Errorf("sqlkit: compile of unbuilt statement: %w", ErrNotReady)
	}
	d, err := attached(db)
	if err != nil {
		return zero, err
	}
	return s.compile(ctx, d, s.sql, bindArgs(s.args))
}

// Compile is s.Compile(ctx, db).
func Compile[E any](ctx context.Context, db Database, s Statement[E]) (E, error) {
	return s.Compile(ctx, db)
}

// Run compiles and executes a DDL statement once.
func Run(ctx context.Context, db Database, s Statement[*Exec]) error {
	e, err := s.Compile(ctx, db)
	if err != nil {
		return err
	}
	return e.Execute(ctx)
}

func bindArgs(args []string) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

func prepared[E any](build func(d *database, stmt *sqlx.Stmt, args []any) E) func(context.Context, *database, string, []any) (E, error) {
	return func(ctx context.Context, d *database, query string, args []any) (E, error) {
		stmt, err := d.prepare(ctx, query)
		if err != nil {
			var zero E
			return zero, fmt.Errorf("prepare %q: %w", query, err)
		}
		return build(d, stmt, args), nil
	}
}
