package sqlkit

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the SQLite storage class a column is declared with.
type Kind int

const (
	KindInteger Kind = iota + 1
	KindReal
	KindText
	KindBlob
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "INTEGER"
	case KindReal:
		return "REAL"
	case KindText:
		return "TEXT"
	case KindBlob:
		return "BLOB"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// AliasSeparator joins a table and column name into the alias every
// selected column is exposed under. It may not appear in either name.
const AliasSeparator = "@"

// Value is the set of Go types a column can carry. bool is stored as INTEGER.
type Value interface {
	int64 | float64 | string | []byte | bool
}

// Field is the untyped view of a column, used wherever columns of different
// value types are listed together.
type Field interface {
	TableName() string
	Name() string
	// FullName is the table-qualified name, "table.column".
	FullName() string
	// Alias is the result-set name, "table@column".
	Alias() string
	Kind() Kind
	IsPrimaryKey() bool
	IsUnique() bool
	IsNotNull() bool
	HasDefault() bool
	// Definition renders the column as it appears in CREATE TABLE and
	// ALTER TABLE ADD COLUMN.
	Definition() string

	desc() *column
}

type column struct {
	table      string
	name       string
	kind       Kind
	primaryKey bool
	unique     bool
	notNull    bool
	hasDefault bool
	defaultSQL string
}

func (c *column) TableName() string  { return c.table }
func (c *column) Name() string       { return c.name }
func (c *column) FullName() string   { return c.table + "." + c.name }
func (c *column) Alias() string      { return c.table + AliasSeparator + c.name }
func (c *column) Kind() Kind         { return c.kind }
func (c *column) IsPrimaryKey() bool { return c.primaryKey }
func (c *column) IsUnique() bool     { return c.unique }
func (c *column) IsNotNull() bool    { return c.notNull }
func (c *column) HasDefault() bool   { return c.hasDefault }
func (c *column) desc() *column      { return c }

func (c *column) Definition() string {
	var sb strings.Builder
	sb.WriteString(c.name)
	sb.WriteByte(' ')
	sb.WriteString(c.kind.String())
	if c.notNull {
		sb.WriteString(" NOT NULL")
	}
	if c.hasDefault {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(c.defaultSQL)
	}
	return sb.String()
}

func (c *column) String() string {
	return c.FullName()
}

// codec holds the per-kind conversions of a column value type.
type codec[V Value] struct {
	kind Kind
	// placeholder is the SQL a bound literal is rendered as.
	placeholder string
	arg         func(V) string
	literal     func(V) string
	decode      func(any) (V, bool)
	bind        func(V) any
}

var integerCodec = &codec[int64]{
	kind:        KindInteger,
	placeholder: "?",
	arg:         func(v int64) string { return strconv.FormatInt(v, 10) },
	literal:     func(v int64) string { return strconv.FormatInt(v, 10) },
	decode:      asInt64,
	bind:        func(v int64) any { return v },
}

var realCodec = &codec[float64]{
	kind:        KindReal,
	placeholder: "?",
	arg:         formatReal,
	literal:     formatReal,
	decode:      asFloat64,
	bind:        func(v float64) any { return v },
}

var textCodec = &codec[string]{
	kind:        KindText,
	placeholder: "?",
	arg:         func(v string) string { return v },
	literal:     quoteLiteral,
	decode:      asString,
	bind:        func(v string) any { return v },
}

var blobCodec = &codec[[]byte]{
	kind:        KindBlob,
	placeholder: "CAST(? AS BLOB)",
	arg:         func(v []byte) string { return string(v) },
	literal:     func(v []byte) string { return "X'" + strings.ToUpper(hex.EncodeToString(v)) + "'" },
	decode:      asBytes,
	bind:        func(v []byte) any { return v },
}

var boolCodec = &codec[bool]{
	kind:        KindInteger,
	placeholder: "?",
	arg:         formatBool,
	literal:     formatBool,
	decode: func(v any) (bool, bool) {
		n, ok := asInt64(v)
		return n != 0, ok
	},
	bind: func(v bool) any {
		if v {
			return int64(1)
		}
		return int64(0)
	},
}

func formatReal(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Column is an immutable column descriptor carrying the Go type V of its values.
type Column[V Value] struct {
	*column
	codec *codec[V]
}

var (
	_ Field = Column[int64]{}
	_ Field = Column[bool]{}
)

// ColumnBuilder accumulates column flags until Build.
type ColumnBuilder[V Value] struct {
	c     column
	codec *codec[V]
}

func newColumnBuilder[V Value](table, name string, cd *codec[V]) *ColumnBuilder[V] {
	return &ColumnBuilder[V]{
		c:     column{table: table, name: name, kind: cd.kind},
		codec: cd,
	}
}

// IntegerColumn starts an INTEGER column holding int64 values.
func IntegerColumn(table, name string) *ColumnBuilder[int64] {
	return newColumnBuilder(table, name, integerCodec)
}

// RealColumn starts a REAL column holding float64 values.
func RealColumn(table, name string) *ColumnBuilder[float64] {
	return newColumnBuilder(table, name, realCodec)
}

// TextColumn starts a TEXT column holding string values.
func TextColumn(table, name string) *ColumnBuilder[string] {
	return newColumnBuilder(table, name, textCodec)
}

// BlobColumn starts a BLOB column holding []byte values.
func BlobColumn(table, name string) *ColumnBuilder[[]byte] {
	return newColumnBuilder(table, name, blobCodec)
}

// BoolColumn starts an INTEGER column holding bool values as 1 and 0.
func BoolColumn(table, name string) *ColumnBuilder[bool] {
	return newColumnBuilder(table, name, boolCodec)
}

// PrimaryKey marks the column as part of the table's primary key. Several
// primary key columns form one composite key. Implies NotNull.
func (b *ColumnBuilder[V]) PrimaryKey() *ColumnBuilder[V] {
	b.c.primaryKey = true
	b.c.notNull = true
	return b
}

// Unique marks the column as part of the table's UNIQUE constraint. Implies NotNull.
func (b *ColumnBuilder[V]) Unique() *ColumnBuilder[V] {
	b.c.unique = true
	b.c.notNull = true
	return b
}

func (b *ColumnBuilder[V]) NotNull() *ColumnBuilder[V] {
	b.c.notNull = true
	return b
}

func (b *ColumnBuilder[V]) Default(v V) *ColumnBuilder[V] {
	b.c.hasDefault = true
	b.c.defaultSQL = b.codec.literal(v)
	return b
}

// Build validates the names and returns the immutable column.
func (b *ColumnBuilder[V]) Build() (Column[V], error) {
	if err := validateName(b.c.table); err != nil {
		return Column[V]{}, buildErr("column "+b.c.table+"."+b.c.name, err)
	}
	if err := validateName(b.c.name); err != nil {
		return Column[V]{}, buildErr("column "+b.c.table+"."+b.c.name, err)
	}
	c := b.c
	return Column[V]{column: &c, codec: b.codec}, nil
}

// MustBuild is Build for package-level declarations; it panics on error.
func (b *ColumnBuilder[V]) MustBuild() Column[V] {
	return Mustv(b.Build())
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.Contains(name, AliasSeparator) {
		return fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, AliasSeparator)
	}
	return nil
}

// Decode converts a raw value read from the database into the column's type.
// ok is false for NULL.
func (c Column[V]) Decode(raw any) (v V, ok bool) {
	if raw == nil {
		return v, false
	}
	return c.codec.decode(raw)
}

func (c Column[V]) bindValue(v V) any {
	return c.codec.bind(v)
}
