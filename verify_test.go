package sqlkit_test

import (
	"strings"
	"testing"

	"github.com/james-darko/gort"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-darko/sqlkit"
)

func openEmpty(t *testing.T) sqlkit.Database {
	t.Helper()
	db, err := sqlx.Open(sqlkit.DriverName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return sqlkit.Wrap(db)
}

func TestVerify_Match(t *testing.T) {
	db := openMemory(t)
	assert.NoError(t, sqlkit.Verify(gort.Context(), db, []*sqlkit.Table{chapterTable, mangaTable}))
}

func TestVerify_Conflicts(t *testing.T) {
	ctx := gort.Context()
	db := openEmpty(t)
	require.NoError(t, sqlkit.ExecScriptString(ctx, db, `
		CREATE TABLE manga(id INTEGER PRIMARY KEY, title TEXT);
		CREATE TABLE stray(x INTEGER);
	`))

	err := sqlkit.Verify(ctx, db, []*sqlkit.Table{mangaTable, chapterTable})
	var conflicts *sqlkit.ErrSchemaConflicts
	require.ErrorAs(t, err, &conflicts)
	require.Len(t, conflicts.Conflicts, 3)

	mismatch := conflicts.Conflicts[0]
	assert.Equal(t, "manga", mismatch.ElementName)
	assert.Equal(t, "DefinitionMismatch", mismatch.ConflictType)
	assert.Contains(t, mismatch.ExpectedValue, "favorite")
	assert.NotContains(t, mismatch.ActualValue, "favorite")

	assert.Equal(t, "stray", conflicts.Conflicts[1].ElementName)
	assert.Equal(t, "UnexpectedTable", conflicts.Conflicts[1].ConflictType)

	assert.Equal(t, "chapter", conflicts.Conflicts[2].ElementName)
	assert.Equal(t, "MissingTable", conflicts.Conflicts[2].ConflictType)

	assert.Contains(t, err.Error(), "3 schema conflicts found")
}

func TestVerifySQL(t *testing.T) {
	ctx := gort.Context()
	db := openEmpty(t)
	require.NoError(t, sqlkit.ExecScriptString(ctx, db, `
		CREATE TABLE author(id INTEGER PRIMARY KEY, name TEXT NOT NULL);
		CREATE TABLE book(id INTEGER PRIMARY KEY, author INTEGER REFERENCES author(id));
	`))

	schema := `
CREATE TABLE author(
    id   INTEGER PRIMARY KEY,
    name TEXT NOT NULL
);
CREATE TABLE book(
    id     INTEGER PRIMARY KEY,
    author INTEGER REFERENCES author(id)
);
`
	assert.NoError(t, sqlkit.VerifySQL(ctx, db, strings.NewReader(schema)))

	err := sqlkit.VerifySQL(ctx, db, strings.NewReader("CREATE TABLE author(id INTEGER PRIMARY KEY, name TEXT NOT NULL);"))
	var conflicts *sqlkit.ErrSchemaConflicts
	require.ErrorAs(t, err, &conflicts)
	require.Len(t, conflicts.Conflicts, 1)
	assert.Equal(t, "book", conflicts.Conflicts[0].ElementName)
	assert.Equal(t, "UnexpectedTable", conflicts.Conflicts[0].ConflictType)

	err = sqlkit.VerifySQL(ctx, db, strings.NewReader("CREATE TABLE ("))
	assert.ErrorContains(t, err, "could not parse schema")
}
