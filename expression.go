package sqlkit

import "strings"

// Expression is a self-contained SQL predicate and the bind arguments for
// its placeholders, left to right.
type Expression interface {
	Raw() string
	Args() []string
}

type expr struct {
	raw  string
	args []string
}

func (e expr) Raw() string    { return e.raw }
func (e expr) Args() []string { return append([]string(nil), e.args...) }
func (e expr) String() string { return e.raw }

// SQL wraps a caller-written fragment. args must match its placeholders.
func SQL(fragment string, args ...string) Expression {
	return expr{raw: fragment, args: append([]string(nil), args...)}
}

// And joins at least two expressions with AND.
func And(a, b Expression, more ...Expression) Expression {
	return compound("AND", a, b, more)
}

// Or joins at least two expressions with OR.
func Or(a, b Expression, more ...Expression) Expression {
	return compound("OR", a, b, more)
}

func compound(keyword string, a, b Expression, more []Expression) Expression {
	operands := append([]Expression{a, b}, more...)
	raws := make([]string, len(operands))
	var args []string
	for i, e := range operands {
		raws[i] = e.Raw()
		args = append(args, e.Args()...)
	}
	return expr{raw: "(" + strings.Join(raws, " "+keyword+" ") + ")", args: args}
}

// Not negates e.
func Not(e Expression) Expression {
	return expr{raw: "NOT (" + e.Raw() + ")", args: e.Args()}
}

func (c Column[V]) compare(op string, v V) Expression {
	return expr{
		raw:  c.FullName() + " " + op + " " + c.codec.placeholder,
		args: []string{c.codec.arg(v)},
	}
}

func (c Column[V]) compareColumn(op string, other Field) Expression {
	return expr{raw: c.FullName() + " " + op + " " + other.FullName()}
}

func (c Column[V]) Eq(v V) Expression    { return c.compare("=", v) }
func (c Column[V]) NotEq(v V) Expression { return c.compare("<>", v) }
func (c Column[V]) Gt(v V) Expression    { return c.compare(">", v) }
func (c Column[V]) Lt(v V) Expression    { return c.compare("<", v) }
func (c Column[V]) Ge(v V) Expression    { return c.compare(">=", v) }
func (c Column[V]) Le(v V) Expression    { return c.compare("<=", v) }

func (c Column[V]) EqColumn(other Field) Expression    { return c.compareColumn("=", other) }
func (c Column[V]) NotEqColumn(other Field) Expression { return c.compareColumn("<>", other) }
func (c Column[V]) GtColumn(other Field) Expression    { return c.compareColumn(">", other) }
func (c Column[V]) LtColumn(other Field) Expression    { return c.compareColumn("<", other) }
func (c Column[V]) GeColumn(other Field) Expression    { return c.compareColumn(">=", other) }
func (c Column[V]) LeColumn(other Field) Expression    { return c.compareColumn("<=", other) }

// Like matches the column against a LIKE pattern.
func (c Column[V]) Like(pattern string) Expression {
	return expr{raw: c.FullName() + " LIKE ?", args: []string{pattern}}
}

func (c Column[V]) Between(lo, hi V) Expression {
	return expr{
		raw:  c.FullName() + " BETWEEN " + c.codec.placeholder + " AND " + c.codec.placeholder,
		args: []string{c.codec.arg(lo), c.codec.arg(hi)},
	}
}

func (c Column[V]) BetweenColumns(lo, hi Field) Expression {
	return expr{raw: c.FullName() + " BETWEEN " + lo.FullName() + " AND " + hi.FullName()}
}

func (c Column[V]) In(values ...V) Expression    { return c.in("IN", values) }
func (c Column[V]) NotIn(values ...V) Expression { return c.in("NOT IN", values) }

func (c Column[V]) in(op string, values []V) Expression {
	marks := make([]string, len(values))
	args := make([]string, len(values))
	for i, v := range values {
		marks[i] = c.codec.placeholder
		args[i] = c.codec.arg(v)
	}
	return expr{raw: c.FullName() + " " + op + " (" + strings.Join(marks, ", ") + ")", args: args}
}

func (c Column[V]) InColumns(others ...Field) Expression    { return c.inColumns("IN", others) }
func (c Column[V]) NotInColumns(others ...Field) Expression { return c.inColumns("NOT IN", others) }

func (c Column[V]) inColumns(op string, others []Field) Expression {
	return expr{raw: c.FullName() + " " + op + " (" + strings.Join(fullNames(others), ", ") + ")"}
}

func (c Column[V]) IsNullExpr() Expression    { return expr{raw: c.FullName() + " IS NULL"} }
func (c Column[V]) IsNotNullExpr() Expression { return expr{raw: c.FullName() + " IS NOT NULL"} }

func fullNames(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.FullName()
	}
	return out
}

func names(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name()
	}
	return out
}
