package sqlkit

import (
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"
)

var errTrimmed = errors.New("sqlkit: row already released")

// cursor reads a forward-only result set into memory on demand, so each
// reader sharing it can keep its own position. Rows every reader has moved
// past can be released with discard; base is the index of buf[0].
type cursor struct {
	rows    *sqlx.Rows
	columns []string
	index   map[string]int

	mu   sync.Mutex
	base int
	buf  [][]any
	done bool
	err  error
}

func newCursor(rows *sqlx.Rows) (*cursor, error) {
	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; !dup {
			index[c] = i
		}
	}
	return &cursor{rows: rows, columns: columns, index: index}, nil
}

// row returns row i, reading ahead as needed. ok is false past the end.
func (c *cursor) row(i int) (r Row, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < c.base {
		return Row{}, false, errTrimmed
	}
	for c.base+len(c.buf) <= i && !c.done {
		if !c.rows.Next() {
			c.done = true
			c.err = c.rows.Err()
			break
		}
		values, err := c.rows.SliceScan()
		if err != nil {
			c.done = true
			c.err = err
			break
		}
		c.buf = append(c.buf, values)
	}
	if i < c.base+len(c.buf) {
		return Row{values: c.buf[i-c.base], cur: c}, true, nil
	}
	return Row{}, false, c.err
}

// trimmed reports whether rows from the start of the result were released.
func (c *cursor) trimmed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base > 0
}

// buffered is the number of rows held in memory.
func (c *cursor) buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}

// discard releases the rows before n.
func (c *cursor) discard(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := min(n-c.base, len(c.buf))
	if k <= 0 {
		return
	}
	clear(c.buf[:k])
	c.buf = c.buf[k:]
	c.base += k
}

func (c *cursor) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf = nil
	return c.rows.Close()
}
