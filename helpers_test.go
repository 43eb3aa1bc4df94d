package sqlkit_test

import (
	"testing"

	"github.com/james-darko/gort"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/james-darko/sqlkit"
)

var (
	mangaID       = sqlkit.IntegerColumn("manga", "id").PrimaryKey().MustBuild()
	mangaTitle    = sqlkit.TextColumn("manga", "title").Unique().MustBuild()
	mangaRating   = sqlkit.RealColumn("manga", "rating").MustBuild()
	mangaCover    = sqlkit.BlobColumn("manga", "cover").MustBuild()
	mangaFavorite = sqlkit.BoolColumn("manga", "favorite").NotNull().Default(false).MustBuild()

	mangaTable = sqlkit.NewTable("manga").
		Columns(mangaID, mangaTitle, mangaRating, mangaCover, mangaFavorite).
		MustBuild()

	chapterID    = sqlkit.IntegerColumn("chapter", "id").PrimaryKey().MustBuild()
	chapterManga = sqlkit.IntegerColumn("chapter", "manga").NotNull().MustBuild()
	chapterName  = sqlkit.TextColumn("chapter", "name").NotNull().MustBuild()

	chapterTable = sqlkit.NewTable("chapter").
		Columns(chapterID, chapterManga, chapterName).
		ForeignKeys(sqlkit.References("manga").From("manga").To("id").On(sqlkit.OnDelete, sqlkit.ActionCascade).MustBuild()).
		MustBuild()
)

// openMemory returns an in-memory database holding the manga and chapter tables.
func openMemory(t *testing.T) sqlkit.Database {
	t.Helper()
	db, err := sqlx.Open(sqlkit.DriverName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	d := sqlkit.Wrap(db)
	ctx := gort.Context()
	_, err = d.Exec(ctx, "PRAGMA foreign_keys = ON")
	require.NoError(t, err)
	for _, table := range []*sqlkit.Table{mangaTable, chapterTable} {
		require.NoError(t, sqlkit.Run(ctx, d, sqlkit.CreateTable(table).MustBuild()))
	}
	return d
}

// insertManga inserts a row and returns its id.
func insertManga(t *testing.T, db sqlkit.Database, title string, rating float64) int64 {
	t.Helper()
	ctx := gort.Context()
	ins, err := sqlkit.InsertInto("manga").
		Columns(mangaTitle, mangaRating, mangaFavorite).
		MustBuild().
		Compile(ctx, db)
	require.NoError(t, err)
	defer ins.Close()
	sqlkit.Bind(ins, mangaTitle, title)
	sqlkit.Bind(ins, mangaRating, rating)
	sqlkit.Bind(ins, mangaFavorite, false)
	id, err := ins.Execute(ctx)
	require.NoError(t, err)
	return id
}
