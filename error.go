package sqlkit

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumns is returned by builders that need at least one column
	// (or aggregate) and were given none.
	ErrMissingColumns = errors.New("sqlkit: no columns")
	// ErrMissingTable is returned when a builder has no target table.
	ErrMissingTable = errors.New("sqlkit: no table")
	// ErrMissingTarget is returned by ALTER TABLE sub-builders whose one
	// mandatory field was never set.
	ErrMissingTarget = errors.New("sqlkit: no alter target")
	// ErrInvalidName is returned when a table or column name is empty or
	// contains the alias separator.
	ErrInvalidName = errors.New("sqlkit: invalid name")
	// ErrForeignKeyColumns is returned when a foreign key has no source
	// columns, no target columns, or a different number of each.
	ErrForeignKeyColumns = errors.New("sqlkit: foreign key column mismatch")
	// ErrNoKeyColumn is returned when a WITHOUT ROWID table declares neither
	// a primary key nor a unique column.
	ErrNoKeyColumn = errors.New("sqlkit: without rowid table has no key column")
	// ErrDuplicateColumn is returned when a table declares a column name twice.
	ErrDuplicateColumn = errors.New("sqlkit: duplicate column")
	// ErrForeignColumn is returned when a table is given a column that belongs
	// to another table.
	ErrForeignColumn = errors.New("sqlkit: column belongs to another table")

	// ErrNotFound is returned by First and the Simple readers when the
	// query produced no rows.
	ErrNotFound = errors.New("sqlkit: not found")
	// ErrUnboundColumn is returned by Execute when a declared column was not bound.
	ErrUnboundColumn = errors.New("sqlkit: column not bound")
	// ErrUnknownColumn is returned by Execute when a bind call named a column
	// the statement does not declare.
	ErrUnknownColumn = errors.New("sqlkit: column not declared by statement")
	// ErrKindMismatch is returned by Execute when a bind call used a value kind
	// that does not match the column.
	ErrKindMismatch = errors.New("sqlkit: value kind does not match column")
	// ErrHandleClosed is returned when a Query is used after its cursor was released.
	ErrHandleClosed = errors.New("sqlkit: query handle closed")
	// ErrNotReady is returned when a resource is used before it was attached.
	ErrNotReady = errors.New("sqlkit: not attached")
)

// Error wraps errors raised through panics by the Must helpers.
type Error struct {
	err error
}

func (e Error) Error() string {
	if e.err == nil {
		return "sqlkit: unknown error"
	}
	return e.err.Error()
}

func (e Error) Unwrap() error {
	return e.err
}

// If err is not nil, it panics with the error wrapped in the sqlkit.Error type.
// Otherwise, it returns the value param
func Mustv[T any](value T, err error) T {
	if err != nil {
		panic(Error{err})
	}
	return value
}

// If err is not nil, it panics with the error wrapped in the sqlkit.Error type.
func Must(err error) {
	if err != nil {
		panic(Error{err})
	}
}

// BuildError reports a configuration mistake detected while building a
// descriptor or a statement. These are programming errors and are never retried.
type BuildError struct {
	// Builder names what was being built, e.g. "insert into manga".
	Builder string
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("sqlkit: build %s: %v", e.Builder, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

func buildErr(builder string, err error) error {
	return &BuildError{Builder: builder, Err: err}
}

// DowngradeError is returned when the persisted schema version is newer than
// the version the client was configured with.
type DowngradeError struct {
	Current int
	Target  int
}

func (e *DowngradeError) Error() string {
	return fmt.Sprintf("sqlkit: cannot downgrade database from version %d to %d", e.Current, e.Target)
}

// SchemaConflictError holds detailed information about a single schema mismatch
// detected while verifying the live database against the declared tables.
type SchemaConflictError struct {
	// ElementName is the name of the schema element (e.g., table name) that has a conflict.
	ElementName string
	// ConflictType provides a category for the conflict
	// (e.g., "MissingTable", "ColumnTypeMismatch", "DefinitionMismatch").
	ConflictType string
	// PropertyName describes the specific part of the element that has a conflict
	// (e.g., "Column 'title'.Type").
	PropertyName string
	// ExpectedValue is the string representation of what the declaration expected.
	ExpectedValue string
	// ActualValue is the string representation of what was found in the database.
	ActualValue string
	// Err is an optional underlying error that might have caused or been related to this conflict.
	Err error
}

// Error implements the error interface, providing a human-readable description of the conflict.
func (e *SchemaConflictError) Error() string {
	return fmt.Sprintf("schema conflict for %s (%s): property '%s', expected '%s', got '%s'",
		e.ElementName, e.ConflictType, e.PropertyName, e.ExpectedValue, e.ActualValue)
}

// Unwrap allows for inspecting the underlying error using errors.Is or errors.As.
func (e *SchemaConflictError) Unwrap() error {
	return e.Err
}

// ErrSchemaConflicts aggregates one or more SchemaConflictError instances.
// It is returned by Verify when the database does not match the declared tables.
type ErrSchemaConflicts struct {
	Conflicts []SchemaConflictError
}

// Error returns the single conflict's message, or a summary with the first
// conflict when there are several.
func (e *ErrSchemaConflicts) Error() string {
	if len(e.Conflicts) == 0 {
		return "no schema conflicts"
	}
	if len(e.Conflicts) == 1 {
		return e.Conflicts[0].Error()
	}
	return fmt.Sprintf("%d schema conflicts found; first: %s", len(e.Conflicts), e.Conflicts[0].Error())
}
