package sqlkit

// TableDefinition describes a table as it exists in a live database.
type TableDefinition struct {
	// Name is the name of the table.
	Name string
	// SQL is the CREATE TABLE statement in canonical form.
	SQL string
	// Columns are in declaration order.
	Columns []ColumnDefinition
	// PrimaryKey lists the primary key columns in key order.
	PrimaryKey []string
	// ForeignKeys lists the table's references to other tables.
	ForeignKeys []ForeignKeyDefinition
}

// ColumnDefinition describes a single column within a table.
type ColumnDefinition struct {
	// Name is the name of the column.
	Name string
	// Type is the declared type (e.g., "INTEGER", "TEXT").
	Type string
	// IsNullable indicates whether the column can store NULL values.
	IsNullable bool
	// DefaultValue is the SQL text of the column default. A nil pointer
	// indicates that the column has no explicit default value.
	DefaultValue *string
	// IsPrimaryKey indicates if this column is part of the table's primary key.
	IsPrimaryKey bool
}

// ForeignKeyDefinition describes a foreign key constraint over one or more columns.
type ForeignKeyDefinition struct {
	// Columns are the referencing columns, matched by position with TargetColumns.
	Columns []string
	// TargetTable is the name of the table that this foreign key references.
	TargetTable string
	// TargetColumns is a slice of column names in the target table that this
	// foreign key references.
	TargetColumns []string
	// OnUpdate specifies the action to take when a referenced key is updated
	// (e.g., "CASCADE", "SET NULL", "NO ACTION").
	OnUpdate string
	// OnDelete specifies the action to take when a referenced key is deleted
	// (e.g., "CASCADE", "SET NULL", "NO ACTION").
	OnDelete string
}
