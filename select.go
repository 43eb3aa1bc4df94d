package sqlkit

import (
	"fmt"
	"strings"
)

// SelectBuilder renders a SELECT. Every column is projected under its alias
// so rows can be read back by column descriptor.
type SelectBuilder struct {
	distinct   bool
	fields     []Field
	aggregates []Aggregate
	from       string
	joins      []join
	where      Expression
	groupBy    []Field
	order      *order
	limit      int
	offset     int
	hasLimit   bool
	hasOffset  bool
}

// Select starts a query projecting fields. With no From, the table of the
// first field is used.
func Select(fields ...Field) *SelectBuilder {
	return &SelectBuilder{fields: fields}
}

func (b *SelectBuilder) Distinct() *SelectBuilder {
	b.distinct = true
	return b
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.from = table
	return b
}

// Aggregates appends aggregate projections after the plain columns.
func (b *SelectBuilder) Aggregates(aggs ...Aggregate) *SelectBuilder {
	b.aggregates = append(b.aggregates, aggs...)
	return b
}

func (b *SelectBuilder) InnerJoin(table string, on Expression) *SelectBuilder {
	b.joins = append(b.joins, join{kind: joinInner, table: table, on: on})
	return b
}

func (b *SelectBuilder) LeftJoin(table string, on Expression) *SelectBuilder {
	b.joins = append(b.joins, join{kind: joinLeft, table: table, on: on})
	return b
}

func (b *SelectBuilder) CrossJoin(table string) *SelectBuilder {
	b.joins = append(b.joins, join{kind: joinCross, table: table})
	return b
}

// Where sets the filter, replacing any earlier one. Combine with And and Or.
func (b *SelectBuilder) Where(e Expression) *SelectBuilder {
	b.where = e
	return b
}

func (b *SelectBuilder) GroupBy(fields ...Field) *SelectBuilder {
	b.groupBy = append(b.groupBy, fields...)
	return b
}

func (b *SelectBuilder) OrderAsc(fields ...Field) *SelectBuilder {
	b.order = &order{fields: fields}
	return b
}

func (b *SelectBuilder) OrderDesc(fields ...Field) *SelectBuilder {
	b.order = &order{fields: fields, desc: true}
	return b
}

func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit, b.hasLimit = n, true
	return b
}

func (b *SelectBuilder) Offset(n int) *SelectBuilder {
	b.offset, b.hasOffset = n, true
	return b
}

func (b *SelectBuilder) Build() (Statement[*Query], error) {
	if len(b.fields) == 0 && len(b.aggregates) == 0 {
		return Statement[*Query]{}, buildErr("select", ErrMissingColumns)
	}
	from := b.from
	if from == "" && len(b.fields) > 0 {
		from = b.fields[0].TableName()
	}
	if from == "" {
		return Statement[*Query]{}, buildErr("select", ErrMissingTable)
	}

	var sb strings.Builder
	var args []string
	sb.WriteString("SELECT ")
	if b.distinct {
		sb.WriteString("DISTINCT ")
	}
	projections := make([]string, 0, len(b.fields)+len(b.aggregates))
	for _, f := range b.fields {
		projections = append(projections, f.FullName()+" AS "+quoteIdent(f.Alias()))
	}
	for _, a := range b.aggregates {
		projections = append(projections, a.SQL())
	}
	sb.WriteString(strings.Join(projections, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(from)
	for _, j := range b.joins {
		sb.WriteByte(' ')
		sb.WriteString(j.sql())
		args = append(args, j.args()...)
	}
	if b.where != nil {
		sb.WriteString(" WHERE (")
		sb.WriteString(b.where.Raw())
		sb.WriteByte(')')
		args = append(args, b.where.Args()...)
	}
	if len(b.groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(fullNames(b.groupBy), ", "))
	}
	if b.order != nil && len(b.order.fields) > 0 {
		sb.WriteByte(' ')
		sb.WriteString(b.order.sql())
	}
	switch {
	case b.hasLimit && b.hasOffset:
		fmt.Fprintf(&sb, " LIMIT %d OFFSET %d", b.limit, b.offset)
	case b.hasLimit:
		fmt.Fprintf(&sb, " LIMIT %d", b.limit)
	case b.hasOffset:
		// OFFSET is only valid after LIMIT; -1 means no limit.
		fmt.Fprintf(&sb, " LIMIT -1 OFFSET %d", b.offset)
	}

	return Statement[*Query]{
		sql:     sb.String(),
		args:    args,
		compile: prepared(newQuery),
	}, nil
}

func (b *SelectBuilder) MustBuild() Statement[*Query] {
	return Mustv(b.Build())
}
