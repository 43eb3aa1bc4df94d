package sqlkit_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-darko/sqlkit"
)

func TestColumn_Names(t *testing.T) {
	assert.Equal(t, "manga", mangaTitle.TableName())
	assert.Equal(t, "title", mangaTitle.Name())
	assert.Equal(t, "manga.title", mangaTitle.FullName())
	assert.Equal(t, "manga@title", mangaTitle.Alias())
	assert.Equal(t, sqlkit.KindText, mangaTitle.Kind())
	assert.Equal(t, sqlkit.KindInteger, mangaFavorite.Kind(), "bool columns are stored as INTEGER")
}

func TestColumn_KeyFlagsImplyNotNull(t *testing.T) {
	pk := sqlkit.IntegerColumn("t", "a").PrimaryKey().MustBuild()
	assert.True(t, pk.IsPrimaryKey())
	assert.True(t, pk.IsNotNull())

	uq := sqlkit.TextColumn("t", "b").Unique().MustBuild()
	assert.True(t, uq.IsUnique())
	assert.True(t, uq.IsNotNull())

	plain := sqlkit.TextColumn("t", "c").MustBuild()
	assert.False(t, plain.IsNotNull())
	assert.False(t, plain.HasDefault())
}

func TestColumn_Definition(t *testing.T) {
	tests := []struct {
		name   string
		column sqlkit.Field
		want   string
	}{
		{"integer pk", mangaID, "id INTEGER NOT NULL"},
		{"nullable real", mangaRating, "rating REAL"},
		{"blob", mangaCover, "cover BLOB"},
		{"bool default", mangaFavorite, "favorite INTEGER NOT NULL DEFAULT 0"},
		{"text default quoted", sqlkit.TextColumn("t", "s").Default("it's").MustBuild(), "s TEXT DEFAULT 'it''s'"},
		{"blob default hex", sqlkit.BlobColumn("t", "b").Default([]byte{0xca, 0xfe}).MustBuild(), "b BLOB DEFAULT X'CAFE'"},
		{"real default", sqlkit.RealColumn("t", "r").NotNull().Default(1.5).MustBuild(), "r REAL NOT NULL DEFAULT 1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.column.Definition())
		})
	}
}

func TestColumn_InvalidName(t *testing.T) {
	_, err := sqlkit.TextColumn("t", "a@b").Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, sqlkit.ErrInvalidName)

	var buildErr *sqlkit.BuildError
	require.True(t, errors.As(err, &buildErr))
	assert.Equal(t, "column t.a@b", buildErr.Builder)

	_, err = sqlkit.TextColumn("", "a").Build()
	assert.ErrorIs(t, err, sqlkit.ErrInvalidName)

	assert.Panics(t, func() { sqlkit.IntegerColumn("t", "").MustBuild() })
}

func TestColumn_Decode(t *testing.T) {
	v, ok := mangaID.Decode(int64(7))
	assert.True(t, ok)
	assert.Equal(t, int64(7), v)

	_, ok = mangaID.Decode(nil)
	assert.False(t, ok)

	b, ok := mangaFavorite.Decode(int64(1))
	assert.True(t, ok)
	assert.True(t, b)

	s, ok := mangaTitle.Decode([]byte("bytes as text"))
	assert.True(t, ok)
	assert.Equal(t, "bytes as text", s)
}

func TestForeignKey_Build(t *testing.T) {
	fk, err := sqlkit.References("manga").
		From("manga", "lang").
		To("id", "lang").
		On(sqlkit.OnDelete, sqlkit.ActionSetNull).
		On(sqlkit.OnUpdate, sqlkit.ActionCascade).
		On(sqlkit.OnDelete, sqlkit.ActionCascade).
		Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"manga", "lang"}, fk.FromColumns())
	assert.Equal(t, []string{"id", "lang"}, fk.ToColumns())
	action, ok := fk.Action(sqlkit.OnDelete)
	assert.True(t, ok)
	assert.Equal(t, sqlkit.ActionCascade, action, "a later On replaces the earlier action")
	assert.Len(t, fk.Strategies(), 2)
	assert.Equal(t, "FOREIGN KEY(manga, lang) REFERENCES manga(id, lang) ON DELETE CASCADE ON UPDATE CASCADE", fk.Definition())
}

func TestForeignKey_ColumnMismatch(t *testing.T) {
	_, err := sqlkit.References("manga").From("a", "b").To("id").Build()
	assert.ErrorIs(t, err, sqlkit.ErrForeignKeyColumns)

	_, err = sqlkit.References("manga").To("id").Build()
	assert.ErrorIs(t, err, sqlkit.ErrForeignKeyColumns)

	_, err = sqlkit.References("manga").From("a").Build()
	assert.ErrorIs(t, err, sqlkit.ErrForeignKeyColumns)

	_, err = sqlkit.NewForeignKey(sqlkit.ForeignKeyConfig{
		From:     []string{"manga"},
		ToTable:  "manga",
		To:       []string{"id"},
		OnDelete: sqlkit.ActionRestrict,
	})
	assert.NoError(t, err)
}

func TestTable_Build(t *testing.T) {
	assert.Equal(t, "manga", mangaTable.Name())
	assert.True(t, mangaTable.WithRowID())
	assert.Len(t, mangaTable.Columns(), 5)
	assert.Equal(t, []sqlkit.Field{mangaID}, mangaTable.PrimaryKey())
	assert.Equal(t, []sqlkit.Field{mangaTitle}, mangaTable.UniqueColumns())

	c, ok := mangaTable.Column("rating")
	require.True(t, ok)
	assert.Equal(t, "manga.rating", c.FullName())
	_, ok = mangaTable.Column("missing")
	assert.False(t, ok)
}

func TestTable_BuildErrors(t *testing.T) {
	_, err := sqlkit.NewTable("empty").Build()
	assert.ErrorIs(t, err, sqlkit.ErrMissingColumns)

	_, err = sqlkit.NewTable("chapter").Columns(mangaID).Build()
	assert.ErrorIs(t, err, sqlkit.ErrForeignColumn)

	dup := sqlkit.TextColumn("manga", "title").MustBuild()
	_, err = sqlkit.NewTable("manga").Columns(mangaTitle, dup).Build()
	assert.ErrorIs(t, err, sqlkit.ErrDuplicateColumn)

	plain := sqlkit.TextColumn("kv", "v").MustBuild()
	_, err = sqlkit.NewTable("kv").Columns(plain).WithoutRowID().Build()
	assert.ErrorIs(t, err, sqlkit.ErrNoKeyColumn)

	_, err = sqlkit.NewTable("bad@name").Columns(plain).Build()
	assert.ErrorIs(t, err, sqlkit.ErrInvalidName)
}

func TestSchema_Tables(t *testing.T) {
	calls := 0
	schema := sqlkit.NewSchema(2, func() ([]*sqlkit.Table, error) {
		calls++
		return []*sqlkit.Table{mangaTable, chapterTable}, nil
	})
	assert.Equal(t, 2, schema.Version())

	tables, err := schema.Tables()
	require.NoError(t, err)
	assert.Equal(t, []*sqlkit.Table{mangaTable, chapterTable}, tables)

	got, ok := schema.Table("chapter")
	assert.True(t, ok)
	assert.Same(t, chapterTable, got)
	_, ok = schema.Table("nope")
	assert.False(t, ok)
	assert.Equal(t, 1, calls, "tables are registered once")

	failing := sqlkit.NewSchema(1, func() ([]*sqlkit.Table, error) { return nil, assert.AnError })
	_, err = failing.Tables()
	assert.ErrorIs(t, err, assert.AnError)
}
