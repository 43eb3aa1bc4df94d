package sqlkit

import (
	"fmt"
	"strings"
)

// Conflict is the conflict-resolution algorithm of INSERT and UPDATE.
type Conflict int

const (
	ConflictNone Conflict = iota
	ConflictRollback
	ConflictAbort
	ConflictFail
	ConflictIgnore
	ConflictReplace
)

func (c Conflict) String() string {
	switch c {
	case ConflictNone:
		return ""
	case ConflictRollback:
		return "ROLLBACK"
	case ConflictAbort:
		return "ABORT"
	case ConflictFail:
		return "FAIL"
	case ConflictIgnore:
		return "IGNORE"
	case ConflictReplace:
		return "REPLACE"
	}
	return fmt.Sprintf("Conflict(%d)", int(c))
}

// or renders the " OR <algorithm>" suffix of the statement verb.
func (c Conflict) or() string {
	if c == ConflictNone {
		return ""
	}
	return " OR " + c.String()
}

// Aggregate is an aggregate function projected by SELECT under an alias.
type Aggregate struct {
	fn    string
	args  []string
	alias string
}

func newAggregate(fn string, fields []Field, extra ...string) Aggregate {
	args := append(fullNames(fields), extra...)
	aliases := make([]string, len(fields))
	for i, f := range fields {
		aliases[i] = f.Alias()
	}
	return Aggregate{fn: fn, args: args, alias: fn + "_" + strings.Join(aliases, "_")}
}

// Count counts rows, or non-null values of the given columns. With no
// columns it renders count(*) AS "count_all".
func Count(fields ...Field) Aggregate {
	if len(fields) == 0 {
		return Aggregate{fn: "count", args: []string{"*"}, alias: "count_all"}
	}
	return newAggregate("count", fields)
}

func Avg(f Field) Aggregate   { return newAggregate("avg", []Field{f}) }
func Sum(f Field) Aggregate   { return newAggregate("sum", []Field{f}) }
func Min(f Field) Aggregate   { return newAggregate("min", []Field{f}) }
func Max(f Field) Aggregate   { return newAggregate("max", []Field{f}) }
func Total(f Field) Aggregate { return newAggregate("total", []Field{f}) }

// GroupConcat concatenates the non-null values of f with the default separator.
func GroupConcat(f Field) Aggregate {
	return newAggregate("group_concat", []Field{f})
}

// GroupConcatSep concatenates the non-null values of f with sep.
func GroupConcatSep(f Field, sep string) Aggregate {
	return newAggregate("group_concat", []Field{f}, quoteLiteral(sep))
}

// As replaces the default alias.
func (a Aggregate) As(alias string) Aggregate {
	a.alias = alias
	return a
}

func (a Aggregate) Alias() string {
	return a.alias
}

// SQL renders the projection, fn(args) AS "alias".
func (a Aggregate) SQL() string {
	return a.fn + "(" + strings.Join(a.args, ", ") + ") AS " + quoteIdent(a.alias)
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

type joinKind string

const (
	joinInner joinKind = "INNER JOIN"
	joinLeft  joinKind = "LEFT JOIN"
	joinCross joinKind = "CROSS JOIN"
)

type join struct {
	kind  joinKind
	table string
	on    Expression
}

func (j join) sql() string {
	if j.on == nil {
		return string(j.kind) + " " + j.table
	}
	return string(j.kind) + " " + j.table + " ON " + j.on.Raw()
}

func (j join) args() []string {
	if j.on == nil {
		return nil
	}
	return j.on.Args()
}

type order struct {
	fields []Field
	desc   bool
}

func (o order) sql() string {
	dir := " ASC"
	if o.desc {
		dir = " DESC"
	}
	terms := fullNames(o.fields)
	for i := range terms {
		terms[i] += dir
	}
	return "ORDER BY " + strings.Join(terms, ", ")
}
