package sqlkit

import (
	"context"
	"errors"
	"iter"
)

// RowsSeq adapts a Query to a range-over-func loop. Check Err after the loop.
type RowsSeq struct {
	ctx context.Context
	q   *Query
	err error
}

var errStopped = errors.New("sqlkit: iteration stopped")

// Rows returns the query's rows as a sequence. Breaking out of the loop
// releases the cursor like returning from ForEach does.
func (q *Query) Rows(ctx context.Context) *RowsSeq {
	return &RowsSeq{ctx: ctx, q: q}
}

func (e *RowsSeq) Iter() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		err := e.q.ForEach(e.ctx, func(r Row) error {
			if !yield(r) {
				return errStopped
			}
			return nil
		})
		if errors.Is(err, errStopped) {
			err = nil
		}
		e.err = err
	}
}

func (e *RowsSeq) Err() error {
	return e.err
}
