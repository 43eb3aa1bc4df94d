package sqlkit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	rsql "github.com/rqlite/sql"
)

type masterRow struct {
	Name string `db:"name"`
	SQL  string `db:"sql"`
}

func masterTables(ctx context.Context, db Database) ([]masterRow, error) {
	var rows []masterRow
	err := db.Select(ctx, &rows,
		"SELECT name, sql FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("read sqlite_master: %w", err)
	}
	return rows, nil
}

// canonicalSQL renders a statement through the rqlite parser so that
// quoting, spacing and keyword case do not count as differences. Statements
// the parser rejects are compared with whitespace collapsed.
func canonicalSQL(stmt string) string {
	parsed, err := rsql.NewParser(strings.NewReader(stmt)).ParseStatement()
	if err != nil {
		return strings.Join(strings.Fields(stmt), " ")
	}
	return parsed.String()
}

// Verify checks that db holds exactly the given tables, each defined the way
// CreateTable renders it. Differences are reported together in an
// *ErrSchemaConflicts.
func Verify(ctx context.Context, db Database, tables []*Table) error {
	expected := make(map[string]string, len(tables))
	for _, t := range tables {
		stmt, err := CreateTable(t).Build()
		if err != nil {
			return err
		}
		expected[t.Name()] = canonicalSQL(stmt.SQL())
	}
	return verify(ctx, db, expected)
}

// VerifySQL is Verify against the CREATE TABLE statements of a SQL script.
// Other statements in the script are ignored.
func VerifySQL(ctx context.Context, db Database, reader io.Reader) error {
	expected := make(map[string]string)
	parser := rsql.NewParser(reader)
	for {
		stmt, err := parser.ParseStatement()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return fmt.Errorf("could not parse schema: %w", err)
		}
		create, ok := stmt.(*rsql.CreateTableStatement)
		if !ok || create.Name == nil {
			continue
		}
		expected[create.Name.Name] = stmt.String()
	}
	return verify(ctx, db, expected)
}

func verify(ctx context.Context, db Database, expected map[string]string) error {
	rows, err := masterTables(ctx, db)
	if err != nil {
		return err
	}
	var conflicts []SchemaConflictError
	found := make(map[string]bool, len(rows))
	for _, row := range rows {
		found[row.Name] = true
		want, ok := expected[row.Name]
		if !ok {
			conflicts = append(conflicts, SchemaConflictError{
				ElementName:  row.Name,
				ConflictType: "UnexpectedTable",
				PropertyName: "Table",
				ActualValue:  row.SQL,
			})
			continue
		}
		if got := canonicalSQL(row.SQL); got != want {
			conflicts = append(conflicts, SchemaConflictError{
				ElementName:   row.Name,
				ConflictType:  "DefinitionMismatch",
				PropertyName:  "SQL",
				ExpectedValue: want,
				ActualValue:   got,
			})
		}
	}
	missing := make([]string, 0, len(expected))
	for name := range expected {
		if !found[name] {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	for _, name := range missing {
		conflicts = append(conflicts, SchemaConflictError{
			ElementName:   name,
			ConflictType:  "MissingTable",
			PropertyName:  "Table",
			ExpectedValue: expected[name],
		})
	}
	if len(conflicts) > 0 {
		return &ErrSchemaConflicts{Conflicts: conflicts}
	}
	return nil
}
