package sqlkit

import (
	"strconv"
	"strings"
	"time"
)

// Row is one result row of a Query. It is only valid inside the callback
// or iteration step that produced it.
//
// Index reads never fail: a NULL value, a negative index or an index past
// the last column yields the zero value, and the OrNil variants yield nil.
type Row struct {
	values []any
	cur    *cursor
}

// Len is the number of columns.
func (r Row) Len() int {
	return len(r.values)
}

func (r Row) Columns() []string {
	if r.cur == nil {
		return nil
	}
	return append([]string(nil), r.cur.columns...)
}

// Index returns the position of the result column called name, or -1.
func (r Row) Index(name string) int {
	if r.cur == nil {
		return -1
	}
	if i, ok := r.cur.index[name]; ok {
		return i
	}
	return -1
}

// IndexOf finds f by its alias, then its full name, then its bare name.
func (r Row) IndexOf(f Field) int {
	for _, name := range []string{f.Alias(), f.FullName(), f.Name()} {
		if i := r.Index(name); i >= 0 {
			return i
		}
	}
	return -1
}

func (r Row) raw(i int) any {
	if i < 0 || i >= len(r.values) {
		return nil
	}
	return r.values[i]
}

// Value returns the driver value at i as scanned.
func (r Row) Value(i int) any {
	return r.raw(i)
}

func (r Row) IsNull(i int) bool {
	return r.raw(i) == nil
}

func (r Row) Int64(i int) int64 {
	v, _ := asInt64(r.raw(i))
	return v
}

func (r Row) Int32(i int) int32 { return int32(r.Int64(i)) }
func (r Row) Int16(i int) int16 { return int16(r.Int64(i)) }

func (r Row) Float64(i int) float64 {
	v, _ := asFloat64(r.raw(i))
	return v
}

func (r Row) Float32(i int) float32 { return float32(r.Float64(i)) }

func (r Row) String(i int) string {
	v, _ := asString(r.raw(i))
	return v
}

func (r Row) Bytes(i int) []byte {
	v, _ := asBytes(r.raw(i))
	return v
}

// Bool reads an INTEGER column; any value other than 0 is true.
func (r Row) Bool(i int) bool {
	return r.Int64(i) != 0
}

func (r Row) Int64OrNil(i int) *int64 {
	return ptr(asInt64(r.raw(i)))
}

func (r Row) Int32OrNil(i int) *int32 {
	v, ok := asInt64(r.raw(i))
	return ptr(int32(v), ok)
}

func (r Row) Int16OrNil(i int) *int16 {
	v, ok := asInt64(r.raw(i))
	return ptr(int16(v), ok)
}

func (r Row) Float64OrNil(i int) *float64 {
	return ptr(asFloat64(r.raw(i)))
}

func (r Row) Float32OrNil(i int) *float32 {
	v, ok := asFloat64(r.raw(i))
	return ptr(float32(v), ok)
}

func (r Row) StringOrNil(i int) *string {
	return ptr(asString(r.raw(i)))
}

func (r Row) BytesOrNil(i int) *[]byte {
	return ptr(asBytes(r.raw(i)))
}

func (r Row) BoolOrNil(i int) *bool {
	v, ok := asInt64(r.raw(i))
	return ptr(v != 0, ok)
}

// Get reads column c from r, converted to the column's value type.
func Get[V Value](r Row, c Column[V]) V {
	v, _ := c.Decode(r.raw(r.IndexOf(c)))
	return v
}

// GetOrNil is Get returning nil for NULL or a column missing from the row.
func GetOrNil[V Value](r Row, c Column[V]) *V {
	return ptr(c.Decode(r.raw(r.IndexOf(c))))
}

func ptr[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}

// The as* helpers convert a scanned driver value. ok is false only for NULL
// and for types no driver produces; text that does not parse as a number
// reads as 0, the way SQLite's own numeric accessors behave.

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case float64:
		return int64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		return parseInt(x), true
	case []byte:
		return parseInt(string(x)), true
	case time.Time:
		return x.Unix(), true
	}
	return 0, false
}

func parseInt(s string) int64 {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	f, _ := strconv.ParseFloat(s, 64)
	return int64(f)
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, true
	case []byte:
		f, _ := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		return f, true
	case time.Time:
		return float64(x.Unix()), true
	}
	return 0, false
}

func asString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int:
		return strconv.Itoa(x), true
	case float64:
		return formatReal(x), true
	case bool:
		return formatBool(x), true
	case time.Time:
		return x.Format(time.RFC3339Nano), true
	}
	return "", false
}

func asBytes(v any) ([]byte, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case []byte:
		return append([]byte{}, x...), true
	}
	s, ok := asString(v)
	if !ok {
		return nil, false
	}
	return []byte(s), true
}
