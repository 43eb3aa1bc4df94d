package sqlkit

import (
	"context"
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Query is the compiled form of a SELECT. It is single-use: the first read
// opens the cursor, reads nested inside it share the cursor, and when the
// outermost read returns the cursor and the prepared statement are closed.
// Any read after that fails with ErrHandleClosed.
//
// Query is safe for concurrent use; reads from other goroutines share the
// same cursor and hold it open the same way nested reads do.
type Query struct {
	stmt *sqlx.Stmt
	args []any
	db   *database

	// trim lets a lone reader release rows it has passed. A reader that
	// starts after that runs the statement again on another connection, so
	// trim is off for single-connection pools and transactions.
	trim bool

	mu     sync.Mutex
	refs   int
	cur    *cursor
	closed bool
}

func newQuery(d *database, stmt *sqlx.Stmt, args []any) *Query {
	trim := d.tx == nil && d.db.Stats().MaxOpenConnections != 1
	return &Query{stmt: stmt, args: args, db: d, trim: trim}
}

func (q *Query) acquire(ctx context.Context) (*cursor, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrHandleClosed
	}
	if q.refs == 0 {
		rows, err := q.stmt.QueryxContext(ctx, q.args...)
		if err != nil {
			q.closed = true
			q.stmt.Close()
			return nil, q.db.check(ctx, err)
		}
		cur, err := newCursor(rows)
		if err != nil {
			q.closed = true
			q.stmt.Close()
			return nil, err
		}
		q.cur = cur
	}
	q.refs++
	return q.cur, nil
}

func (q *Query) release(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.refs--
	if q.refs > 0 {
		return nil
	}
	q.closed = true
	cur := q.cur
	q.cur = nil
	err := errors.Join(cur.close(), q.stmt.Close())
	return q.db.check(ctx, err)
}

// with holds the cursor for the duration of fn.
func (q *Query) with(ctx context.Context, fn func(c *cursor) error) (err error) {
	c, err := q.acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := q.release(ctx); err == nil {
			err = rerr
		}
	}()
	return fn(c)
}

// reader returns the cursor a new reader starts on: the shared one, or a
// private pass over the statement when the shared one has released rows.
func (q *Query) reader(ctx context.Context, c *cursor) (*cursor, func() error, error) {
	if !c.trimmed() {
		return c, func() error { return nil }, nil
	}
	rows, err := q.stmt.QueryxContext(ctx, q.args...)
	if err != nil {
		return nil, nil, q.db.check(ctx, err)
	}
	own, err := newCursor(rows)
	if err != nil {
		return nil, nil, err
	}
	return own, own.close, nil
}

// advance releases the rows before next when c is the shared cursor and
// the caller is its only reader.
func (q *Query) advance(c *cursor, next int) {
	if !q.trim {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.refs == 1 && q.cur == c {
		c.discard(next)
	}
}

// Close discards a Query that was never read. It is a no-op once the
// cursor has been opened; the outermost read closes it instead.
func (q *Query) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || q.refs > 0 {
		return nil
	}
	q.closed = true
	return q.stmt.Close()
}

// ForEach calls fn for each row in order and stops at the first error.
func (q *Query) ForEach(ctx context.Context, fn func(Row) error) error {
	return q.with(ctx, func(shared *cursor) (err error) {
		c, done, err := q.reader(ctx, shared)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := done(); err == nil {
				err = cerr
			}
		}()
		for i := 0; ; i++ {
			row, ok, err := c.row(i)
			if err != nil {
				return q.db.check(ctx, err)
			}
			if !ok {
				return nil
			}
			if err := fn(row); err != nil {
				return err
			}
			q.advance(c, i+1)
		}
	})
}

// Map converts every row with fn.
func Map[T any](ctx context.Context, q *Query, fn func(Row) (T, error)) ([]T, error) {
	var out []T
	err := q.ForEach(ctx, func(r Row) error {
		v, err := fn(r)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// First converts the first row with fn, or fails with ErrNotFound.
func First[T any](ctx context.Context, q *Query, fn func(Row) (T, error)) (T, error) {
	v, err := FirstOrNil(ctx, q, fn)
	if err != nil {
		var zero T
		return zero, err
	}
	if v == nil {
		var zero T
		return zero, ErrNotFound
	}
	return *v, nil
}

// FirstOrNil converts the first row with fn, or returns nil when there is none.
func FirstOrNil[T any](ctx context.Context, q *Query, fn func(Row) (T, error)) (*T, error) {
	var out *T
	err := q.with(ctx, func(shared *cursor) error {
		c, done, err := q.reader(ctx, shared)
		if err != nil {
			return err
		}
		defer done()
		row, ok, err := c.row(0)
		if err != nil || !ok {
			return q.db.check(ctx, err)
		}
		v, err := fn(row)
		if err != nil {
			return err
		}
		out = &v
		return nil
	})
	return out, err
}

// SimpleInteger reads the first column of the first row. NULL reads as 0.
func (q *Query) SimpleInteger(ctx context.Context) (int64, error) {
	return First(ctx, q, func(r Row) (int64, error) { return r.Int64(0), nil })
}

func (q *Query) SimpleReal(ctx context.Context) (float64, error) {
	return First(ctx, q, func(r Row) (float64, error) { return r.Float64(0), nil })
}

func (q *Query) SimpleText(ctx context.Context) (string, error) {
	return First(ctx, q, func(r Row) (string, error) { return r.String(0), nil })
}

func (q *Query) SimpleBlob(ctx context.Context) ([]byte, error) {
	return First(ctx, q, func(r Row) ([]byte, error) { return r.Bytes(0), nil })
}
