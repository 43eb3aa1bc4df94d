package sqlkit

import (
	"fmt"
	"strings"
)

// Clause is the referenced-row event a foreign key action applies to.
type Clause int

const (
	OnUpdate Clause = iota + 1
	OnDelete
)

func (c Clause) String() string {
	switch c {
	case OnUpdate:
		return "ON UPDATE"
	case OnDelete:
		return "ON DELETE"
	}
	return fmt.Sprintf("Clause(%d)", int(c))
}

// Action is what happens to referencing rows when the referenced row changes.
type Action int

const (
	ActionNone Action = iota + 1
	ActionRestrict
	ActionSetNull
	ActionSetDefault
	ActionCascade
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "NO ACTION"
	case ActionRestrict:
		return "RESTRICT"
	case ActionSetNull:
		return "SET NULL"
	case ActionSetDefault:
		return "SET DEFAULT"
	case ActionCascade:
		return "CASCADE"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// ConflictStrategy pairs a clause with its action.
type ConflictStrategy struct {
	Clause Clause
	Action Action
}

// ForeignKey is an immutable cross-reference from columns of one table to
// columns of another, matched by position.
type ForeignKey struct {
	from       []string
	toTable    string
	to         []string
	strategies []ConflictStrategy
}

func (fk ForeignKey) FromColumns() []string { return append([]string(nil), fk.from...) }
func (fk ForeignKey) ToTable() string       { return fk.toTable }
func (fk ForeignKey) ToColumns() []string   { return append([]string(nil), fk.to...) }

func (fk ForeignKey) Strategies() []ConflictStrategy {
	return append([]ConflictStrategy(nil), fk.strategies...)
}

// Action returns the action declared for clause, if any.
func (fk ForeignKey) Action(clause Clause) (Action, bool) {
	for _, s := range fk.strategies {
		if s.Clause == clause {
			return s.Action, true
		}
	}
	return 0, false
}

// Definition renders the trailing FOREIGN KEY fragment of CREATE TABLE.
func (fk ForeignKey) Definition() string {
	var sb strings.Builder
	sb.WriteString("FOREIGN KEY(")
	sb.WriteString(strings.Join(fk.from, ", "))
	sb.WriteString(") REFERENCES ")
	sb.WriteString(fk.toTable)
	sb.WriteByte('(')
	sb.WriteString(strings.Join(fk.to, ", "))
	sb.WriteByte(')')
	for _, s := range fk.strategies {
		sb.WriteByte(' ')
		sb.WriteString(s.Clause.String())
		sb.WriteByte(' ')
		sb.WriteString(s.Action.String())
	}
	return sb.String()
}

// ForeignKeyBuilder declares a foreign key one piece at a time.
type ForeignKeyBuilder struct {
	from       []string
	toTable    string
	to         []string
	strategies []ConflictStrategy
}

// References starts a foreign key pointing at toTable.
func References(toTable string) *ForeignKeyBuilder {
	return &ForeignKeyBuilder{toTable: toTable}
}

// From appends referencing column names.
func (b *ForeignKeyBuilder) From(columns ...string) *ForeignKeyBuilder {
	b.from = append(b.from, columns...)
	return b
}

// To appends referenced column names.
func (b *ForeignKeyBuilder) To(columns ...string) *ForeignKeyBuilder {
	b.to = append(b.to, columns...)
	return b
}

// On sets the action for clause, replacing any earlier action for it.
func (b *ForeignKeyBuilder) On(clause Clause, action Action) *ForeignKeyBuilder {
	for i, s := range b.strategies {
		if s.Clause == clause {
			b.strategies[i].Action = action
			return b
		}
	}
	b.strategies = append(b.strategies, ConflictStrategy{Clause: clause, Action: action})
	return b
}

func (b *ForeignKeyBuilder) Build() (ForeignKey, error) {
	name := "foreign key to " + b.toTable
	if err := validateName(b.toTable); err != nil {
		return ForeignKey{}, buildErr(name, err)
	}
	switch {
	case len(b.from) == 0:
		return ForeignKey{}, buildErr(name, fmt.Errorf("%w: no from columns", ErrForeignKeyColumns))
	case len(b.to) == 0:
		return ForeignKey{}, buildErr(name, fmt.Errorf("%w: no to columns", ErrForeignKeyColumns))
	case len(b.from) != len(b.to):
		return ForeignKey{}, buildErr(name, fmt.Errorf("%w: %d from columns, %d to columns",
			ErrForeignKeyColumns, len(b.from), len(b.to)))
	}
	return ForeignKey{
		from:       append([]string(nil), b.from...),
		toTable:    b.toTable,
		to:         append([]string(nil), b.to...),
		strategies: append([]ConflictStrategy(nil), b.strategies...),
	}, nil
}

func (b *ForeignKeyBuilder) MustBuild() ForeignKey {
	return Mustv(b.Build())
}

// ForeignKeyConfig is the declarative form of a foreign key, for tables
// written as struct literals. Zero actions are left undeclared.
type ForeignKeyConfig struct {
	From     []string
	ToTable  string
	To       []string
	OnUpdate Action
	OnDelete Action
}

// NewForeignKey builds a foreign key from its declarative form.
func NewForeignKey(cfg ForeignKeyConfig) (ForeignKey, error) {
	b := References(cfg.ToTable).From(cfg.From...).To(cfg.To...)
	if cfg.OnUpdate != 0 {
		b.On(OnUpdate, cfg.OnUpdate)
	}
	if cfg.OnDelete != 0 {
		b.On(OnDelete, cfg.OnDelete)
	}
	return b.Build()
}
