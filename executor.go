package sqlkit

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Binder is implemented by the executors that take column values.
type Binder interface {
	bindField(f Field, kind Kind, v any)
}

// Bind binds v to column c with the column's own value type.
func Bind[V Value](b Binder, c Column[V], v V) {
	b.bindField(c, c.codec.kind, c.bindValue(v))
}

// binder holds positional values for the columns a statement declares.
// Errors from the Bind calls are kept and reported by Execute.
type binder[E any] struct {
	self    E
	columns []Field
	values  []any
	bound   []bool
	err     error
}

func newBinder[E any](self E, columns []Field) *binder[E] {
	return &binder[E]{
		self:    self,
		columns: columns,
		values:  make([]any, len(columns)),
		bound:   make([]bool, len(columns)),
	}
}

func (b *binder[E]) position(f Field) int {
	for i, c := range b.columns {
		if c.FullName() == f.FullName() {
			return i
		}
	}
	return -1
}

func (b *binder[E]) bindField(f Field, kind Kind, v any) {
	if b.err != nil {
		return
	}
	i := b.position(f)
	if i < 0 {
		b.err = fmt.Errorf("%w: %s", ErrUnknownColumn, f.FullName())
		return
	}
	if kind != 0 && f.Kind() != kind {
		b.err = fmt.Errorf("%w: %s is %s, bound %s", ErrKindMismatch, f.FullName(), f.Kind(), kind)
		return
	}
	b.values[i] = v
	b.bound[i] = true
}

func (b *binder[E]) BindInteger(f Field, v int64) E {
	b.bindField(f, KindInteger, v)
	return b.self
}

func (b *binder[E]) BindReal(f Field, v float64) E {
	b.bindField(f, KindReal, v)
	return b.self
}

func (b *binder[E]) BindText(f Field, v string) E {
	b.bindField(f, KindText, v)
	return b.self
}

func (b *binder[E]) BindBlob(f Field, v []byte) E {
	b.bindField(f, KindBlob, v)
	return b.self
}

// BindBool binds an INTEGER column as 1 or 0.
func (b *binder[E]) BindBool(f Field, v bool) E {
	b.bindField(f, KindInteger, boolCodec.bind(v))
	return b.self
}

func (b *binder[E]) BindNull(f Field) E {
	b.bindField(f, 0, nil)
	return b.self
}

// take returns the bound values and resets the binder for the next execution.
func (b *binder[E]) take() ([]any, error) {
	defer b.clear()
	if b.err != nil {
		return nil, b.err
	}
	for i, ok := range b.bound {
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnboundColumn, b.columns[i].FullName())
		}
	}
	return append([]any(nil), b.values...), nil
}

func (b *binder[E]) clear() {
	for i := range b.values {
		b.values[i] = nil
		b.bound[i] = false
	}
	b.err = nil
}

// InsertExecutor runs a compiled INSERT. It can be bound and executed
// repeatedly until Close.
type InsertExecutor struct {
	*binder[*InsertExecutor]
	stmt *sqlx.Stmt
	db   *database
}

func newInsertExecutor(d *database, stmt *sqlx.Stmt, columns []Field) *InsertExecutor {
	e := &InsertExecutor{stmt: stmt, db: d}
	e.binder = newBinder(e, columns)
	return e
}

// Execute inserts one row and returns its row id, or -1 when the conflict
// algorithm dropped the row. Bindings are cleared either way.
func (e *InsertExecutor) Execute(ctx context.Context) (int64, error) {
	args, err := e.take()
	if err != nil {
		return -1, err
	}
	res, err := e.stmt.ExecContext(ctx, args...)
	if err != nil {
		return -1, e.db.check(ctx, err)
	}
	return execResult{res}.RowID()
}

func (e *InsertExecutor) Close() error {
	return e.stmt.Close()
}

// UpdateExecutor runs a compiled UPDATE. The SET values are bound before
// each Execute; the WHERE arguments are fixed at build time.
type UpdateExecutor struct {
	*binder[*UpdateExecutor]
	stmt  *sqlx.Stmt
	db    *database
	where []any
}

func newUpdateExecutor(d *database, stmt *sqlx.Stmt, columns []Field, where []any) *UpdateExecutor {
	e := &UpdateExecutor{stmt: stmt, db: d, where: where}
	e.binder = newBinder(e, columns)
	return e
}

// Execute returns the number of rows changed.
func (e *UpdateExecutor) Execute(ctx context.Context) (int64, error) {
	args, err := e.take()
	if err != nil {
		return 0, err
	}
	res, err := e.stmt.ExecContext(ctx, append(args, e.where...)...)
	if err != nil {
		return 0, e.db.check(ctx, err)
	}
	return res.RowsAffected()
}

func (e *UpdateExecutor) Close() error {
	return e.stmt.Close()
}

// DeleteExecutor runs a compiled DELETE.
type DeleteExecutor struct {
	stmt *sqlx.Stmt
	db   *database
	args []any
}

// Execute returns the number of rows deleted.
func (e *DeleteExecutor) Execute(ctx context.Context) (int64, error) {
	res, err := e.stmt.ExecContext(ctx, e.args...)
	if err != nil {
		return 0, e.db.check(ctx, err)
	}
	return res.RowsAffected()
}

func (e *DeleteExecutor) Close() error {
	return e.stmt.Close()
}

// Exec runs a compiled schema statement. It is not prepared: DDL is
// typically run once, and VACUUM refuses to run beside open statements.
type Exec struct {
	query string
	args  []any
	db    *database
}

func (e *Exec) SQL() string {
	return e.query
}

func (e *Exec) Execute(ctx context.Context) error {
	_, err := e.db.ext().ExecContext(ctx, e.query, e.args...)
	return e.db.check(ctx, err)
}
