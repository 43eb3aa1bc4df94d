package sqlkit_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/james-darko/gort"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-darko/sqlkit"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func dbPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "test.db")
}

func newClient(t *testing.T, opts sqlkit.Options) *sqlkit.Client {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quiet
	}
	c, err := sqlkit.NewClient(opts)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// seed creates name at version with the given tables and closes it.
func seed(t *testing.T, name string, version int, hooks sqlkit.Hooks, tables ...*sqlkit.Table) {
	t.Helper()
	c := newClient(t, sqlkit.Options{Name: name, Schema: sqlkit.StaticSchema(version, tables...), Hooks: hooks})
	_, err := c.Database(gort.Context())
	require.NoError(t, err)
	require.NoError(t, c.Close())
}

func TestNewClient_Validates(t *testing.T) {
	_, err := sqlkit.NewClient(sqlkit.Options{Schema: sqlkit.StaticSchema(1, mangaTable)})
	assert.Error(t, err)
	_, err = sqlkit.NewClient(sqlkit.Options{Name: "x.db"})
	assert.Error(t, err)
	_, err = sqlkit.NewClient(sqlkit.Options{Name: "x.db", Schema: sqlkit.StaticSchema(0, mangaTable)})
	assert.Error(t, err)
}

func TestClient_CreatesSchema(t *testing.T) {
	ctx := gort.Context()
	var created, postCreated, opened int
	c := newClient(t, sqlkit.Options{
		Name:        dbPath(t),
		Schema:      sqlkit.StaticSchema(3, mangaTable, chapterTable),
		ForeignKeys: true,
		Hooks: sqlkit.Hooks{
			OnCreate: func(ctx context.Context, tx sqlkit.Database, schema *sqlkit.Schema) error {
				created++
				_, err := tx.Exec(ctx, "INSERT INTO manga(title, favorite) VALUES('seeded', 1)")
				return err
			},
			OnPostCreate: func(context.Context, sqlkit.Database, *sqlkit.Schema) error {
				postCreated++
				return nil
			},
			OnOpen: func(context.Context, sqlkit.Database) error {
				opened++
				return nil
			},
		},
	})
	assert.Equal(t, sqlkit.StateUninitialized, c.State())

	db, err := c.Database(ctx)
	require.NoError(t, err)
	assert.Equal(t, sqlkit.StateReady, c.State())
	assert.Equal(t, 0, c.PreviousVersion())
	assert.Equal(t, [3]int{1, 1, 1}, [3]int{created, postCreated, opened})

	v, err := db.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	var title string
	require.NoError(t, db.Get(ctx, &title, "SELECT title FROM manga"))
	assert.Equal(t, "seeded", title)

	again, err := c.Database(ctx)
	require.NoError(t, err)
	assert.Same(t, db, again)
	c.Create()
	assert.Equal(t, 1, created)
}

func TestClient_Upgrades(t *testing.T) {
	ctx := gort.Context()
	name := dbPath(t)
	seed(t, name, 1, sqlkit.Hooks{}, mangaTable)

	type call struct{ old, new int }
	var upgrades, posts []call
	c := newClient(t, sqlkit.Options{
		Name:   name,
		Schema: sqlkit.StaticSchema(3, mangaTable, chapterTable),
		Upgrade: sqlkit.UpgradeFuncs{
			Upgrade: func(ctx context.Context, tx sqlkit.Database, old, new int, _ *sqlkit.Schema) error {
				upgrades = append(upgrades, call{old, new})
				return sqlkit.Run(ctx, tx, sqlkit.CreateTable(chapterTable).MustBuild())
			},
			PostUpgrade: func(_ context.Context, _ sqlkit.Database, old, new int, _ *sqlkit.Schema) error {
				posts = append(posts, call{old, new})
				return nil
			},
		},
		ForeignKeys:  true,
		VerifySchema: true,
	})
	db, err := c.Database(ctx)
	require.NoError(t, err)
	assert.Equal(t, []call{{1, 3}}, upgrades)
	assert.Equal(t, []call{{1, 3}}, posts)
	assert.Equal(t, 1, c.PreviousVersion())

	v, err := db.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestClient_UpgradeStepsRollBack(t *testing.T) {
	ctx := gort.Context()
	name := dbPath(t)
	seed(t, name, 1, sqlkit.Hooks{}, mangaTable)

	c := newClient(t, sqlkit.Options{
		Name:    name,
		Schema:  sqlkit.StaticSchema(3, mangaTable),
		Upgrade: sqlkit.UpgradeSteps{1: sqlkit.SQLStep("CREATE TABLE extra(x INTEGER);")},
	})
	_, err := c.Database(ctx)
	require.ErrorContains(t, err, "no upgrade step from version 2")
	assert.Equal(t, sqlkit.StateFailed, c.State())
	require.NoError(t, c.Close())

	raw, err := sqlx.Open(sqlkit.DriverName, name)
	require.NoError(t, err)
	defer raw.Close()
	db := sqlkit.Wrap(raw)
	v, err := db.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	var n int
	require.NoError(t, db.Get(ctx, &n, "SELECT count(*) FROM sqlite_master WHERE name = 'extra'"))
	assert.Zero(t, n)
}

func TestClient_UpgradeStepsRunInOrder(t *testing.T) {
	ctx := gort.Context()
	name := dbPath(t)
	seed(t, name, 1, sqlkit.Hooks{}, mangaTable)

	author := sqlkit.TextColumn("manga", "author").MustBuild()
	c := newClient(t, sqlkit.Options{
		Name:   name,
		Schema: sqlkit.StaticSchema(3, mangaTable, chapterTable),
		Upgrade: sqlkit.UpgradeSteps{
			1: func(ctx context.Context, tx sqlkit.Database) error {
				return sqlkit.Run(ctx, tx, sqlkit.CreateTable(chapterTable).MustBuild())
			},
			2: func(ctx context.Context, tx sqlkit.Database) error {
				return sqlkit.Run(ctx, tx, sqlkit.AlterTable("manga").AddColumn(author).MustBuild())
			},
		},
	})
	db, err := c.Database(ctx)
	require.NoError(t, err)
	var columns []string
	require.NoError(t, db.Select(ctx, &columns, "SELECT name FROM pragma_table_info('manga')"))
	assert.Contains(t, columns, "author")
}

func TestClient_RecreateTables(t *testing.T) {
	ctx := gort.Context()
	name := dbPath(t)
	seed(t, name, 1, sqlkit.Hooks{
		OnCreate: func(ctx context.Context, tx sqlkit.Database, _ *sqlkit.Schema) error {
			_, err := tx.Exec(ctx, "INSERT INTO manga(title, favorite) VALUES('old', 0)")
			return err
		},
	}, mangaTable)

	c := newClient(t, sqlkit.Options{
		Name:        name,
		Schema:      sqlkit.StaticSchema(2, mangaTable, chapterTable),
		Upgrade:     sqlkit.RecreateTables{},
		ForeignKeys: true,
	})
	db, err := c.Database(ctx)
	require.NoError(t, err)
	var n int
	require.NoError(t, db.Get(ctx, &n, "SELECT count(*) FROM manga"))
	assert.Zero(t, n)
	require.NoError(t, db.Get(ctx, &n, "SELECT count(*) FROM chapter"))
	assert.Zero(t, n)
}

func TestClient_ForeignKeyCheckFailsUpgrade(t *testing.T) {
	ctx := gort.Context()
	name := dbPath(t)
	seed(t, name, 1, sqlkit.Hooks{
		OnCreate: func(ctx context.Context, tx sqlkit.Database, _ *sqlkit.Schema) error {
			_, err := tx.Exec(ctx, "INSERT INTO chapter(manga, name) VALUES(99, 'orphan')")
			return err
		},
	}, mangaTable, chapterTable)

	c := newClient(t, sqlkit.Options{
		Name:        name,
		Schema:      sqlkit.StaticSchema(2, mangaTable, chapterTable),
		Upgrade:     sqlkit.UpgradeFuncs{},
		ForeignKeys: true,
	})
	_, err := c.Database(ctx)
	require.ErrorContains(t, err, "foreign key check")
	assert.Equal(t, sqlkit.StateFailed, c.State())
}

func TestClient_RefusesDowngrade(t *testing.T) {
	ctx := gort.Context()
	name := dbPath(t)
	seed(t, name, 5, sqlkit.Hooks{}, mangaTable)

	c := newClient(t, sqlkit.Options{Name: name, Schema: sqlkit.StaticSchema(3, mangaTable)})
	_, err := c.Database(ctx)
	var downgrade *sqlkit.DowngradeError
	require.ErrorAs(t, err, &downgrade)
	assert.Equal(t, 5, downgrade.Current)
	assert.Equal(t, 3, downgrade.Target)
	assert.Equal(t, sqlkit.StateFailed, c.State())
}

func TestClient_UpgradeWithoutStrategy(t *testing.T) {
	name := dbPath(t)
	seed(t, name, 1, sqlkit.Hooks{}, mangaTable)
	c := newClient(t, sqlkit.Options{Name: name, Schema: sqlkit.StaticSchema(2, mangaTable)})
	_, err := c.Database(gort.Context())
	assert.ErrorContains(t, err, "no upgrade strategy")
}

func TestClient_WaitersBlockUntilReady(t *testing.T) {
	ctx := gort.Context()
	gate := make(chan struct{})
	var opened atomic.Bool
	c := newClient(t, sqlkit.Options{
		Name:   dbPath(t),
		Schema: sqlkit.StaticSchema(1, mangaTable),
		Opener: sqlkit.OpenerFunc(func(ctx context.Context, name string) (*sqlx.DB, error) {
			<-gate
			return sqlkit.DefaultOpener{}.OpenOrCreate(ctx, name)
		}),
		Hooks: sqlkit.Hooks{
			OnOpen: func(context.Context, sqlkit.Database) error {
				time.Sleep(10 * time.Millisecond)
				opened.Store(true)
				return nil
			},
		},
	})
	c.Create()
	assert.Equal(t, sqlkit.StateInitializing, c.State())

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err := c.Database(short)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	const waiters = 4
	results := make(chan sqlkit.Database, waiters)
	var wg sync.WaitGroup
	for range waiters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			db, err := c.Database(ctx)
			assert.NoError(t, err)
			assert.True(t, opened.Load(), "OnOpen finished before the database was handed out")
			results <- db
		}()
	}
	close(gate)
	wg.Wait()
	close(results)

	var first sqlkit.Database
	for db := range results {
		require.NotNil(t, db)
		if first == nil {
			first = db
		}
		assert.Same(t, first, db)
	}
	assert.Equal(t, sqlkit.StateReady, c.State())
}

func TestClient_FailureReachesEveryWaiter(t *testing.T) {
	ctx := gort.Context()
	boom := errors.New("boom")
	gate := make(chan struct{})
	c := newClient(t, sqlkit.Options{
		Name:   dbPath(t),
		Schema: sqlkit.StaticSchema(1, mangaTable),
		Opener: sqlkit.OpenerFunc(func(context.Context, string) (*sqlx.DB, error) {
			<-gate
			return nil, boom
		}),
	})

	const waiters = 3
	errs := make(chan error, waiters)
	for range waiters {
		go func() {
			_, err := c.Database(ctx)
			errs <- err
		}()
	}
	close(gate)
	for range waiters {
		assert.ErrorIs(t, <-errs, boom)
	}
	assert.Equal(t, sqlkit.StateFailed, c.State())

	_, err := c.Database(ctx)
	assert.ErrorIs(t, err, boom, "the client does not retry")
}

func TestClient_VerifySchema(t *testing.T) {
	ctx := gort.Context()
	name := dbPath(t)
	seed(t, name, 1, sqlkit.Hooks{}, mangaTable)

	c := newClient(t, sqlkit.Options{
		Name:         name,
		Schema:       sqlkit.StaticSchema(1, mangaTable, chapterTable),
		VerifySchema: true,
	})
	_, err := c.Database(ctx)
	var conflicts *sqlkit.ErrSchemaConflicts
	require.ErrorAs(t, err, &conflicts)
	require.Len(t, conflicts.Conflicts, 1)
	assert.Equal(t, "chapter", conflicts.Conflicts[0].ElementName)
	assert.Equal(t, "MissingTable", conflicts.Conflicts[0].ConflictType)
}

func TestClient_RemovesCorruptFile(t *testing.T) {
	ctx := gort.Context()
	name := dbPath(t)
	garbage := make([]byte, 4096)
	for i := range garbage {
		garbage[i] = byte('a' + i%26)
	}
	require.NoError(t, os.WriteFile(name, garbage, 0o600))

	var handled []error
	remove := sqlkit.RemoveOnCorruption{Logger: quiet}
	c := newClient(t, sqlkit.Options{
		Name:   name,
		Schema: sqlkit.StaticSchema(1, mangaTable),
		Corruption: sqlkit.CorruptionFunc(func(ctx context.Context, name string, db sqlkit.Database, err error) {
			handled = append(handled, err)
			remove.OnCorruption(ctx, name, db, err)
		}),
	})
	_, err := c.Database(ctx)
	require.Error(t, err)
	assert.True(t, sqlkit.IsCorruption(err), "got %v", err)
	assert.Len(t, handled, 1)
	assert.NoFileExists(t, name)

	// A fresh client starts over on an empty file.
	fresh := newClient(t, sqlkit.Options{Name: name, Schema: sqlkit.StaticSchema(1, mangaTable)})
	_, err = fresh.Database(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.PreviousVersion())
}

func TestClient_Close(t *testing.T) {
	ctx := gort.Context()

	unopened := newClient(t, sqlkit.Options{Name: dbPath(t), Schema: sqlkit.StaticSchema(1, mangaTable)})
	require.NoError(t, unopened.Close())
	assert.Equal(t, sqlkit.StateClosed, unopened.State())
	_, err := unopened.Database(ctx)
	assert.ErrorIs(t, err, sqlkit.ErrClientClosed)

	c := newClient(t, sqlkit.Options{Name: dbPath(t), Schema: sqlkit.StaticSchema(1, mangaTable)})
	db, err := c.Database(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.Equal(t, sqlkit.StateClosed, c.State())
	_, err = c.Database(ctx)
	assert.ErrorIs(t, err, sqlkit.ErrClientClosed)
	_, err = db.Exec(ctx, "SELECT 1")
	assert.Error(t, err)
	assert.NoError(t, c.Close())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "ready", sqlkit.StateReady.String())
	assert.Equal(t, "failed", sqlkit.StateFailed.String())
	assert.Equal(t, "State(42)", sqlkit.State(42).String())
}

func TestClient_NestedStatementsUseThePool(t *testing.T) {
	ctx, cancel := context.WithTimeout(gort.Context(), 10*time.Second)
	defer cancel()
	c := newClient(t, sqlkit.Options{
		Name:        dbPath(t),
		Schema:      sqlkit.StaticSchema(1, mangaTable, chapterTable),
		ForeignKeys: true,
	})
	db, err := c.Database(ctx)
	require.NoError(t, err)

	a := insertManga(t, db, "a", 0)
	insertManga(t, db, "b", 0)
	ins, err := sqlkit.InsertInto("chapter").Columns(chapterManga, chapterName).MustBuild().Compile(ctx, db)
	require.NoError(t, err)
	defer ins.Close()
	for _, name := range []string{"a1", "a2"} {
		_, err := ins.BindInteger(chapterManga, a).BindText(chapterName, name).Execute(ctx)
		require.NoError(t, err)
	}
	_, err = ins.BindInteger(chapterManga, 99).BindText(chapterName, "orphan").Execute(ctx)
	require.Error(t, err, "foreign keys are enforced on pooled connections")

	counts := make(map[string]int64)
	err = titles(t, db, nil).ForEach(ctx, func(r sqlkit.Row) error {
		id := sqlkit.Get(r, mangaID)
		inner, err := sqlkit.Select().
			Aggregates(sqlkit.Count()).
			From("chapter").
			Where(chapterManga.Eq(id)).
			MustBuild().
			Compile(ctx, db)
		if err != nil {
			return err
		}
		n, err := inner.SimpleInteger(ctx)
		if err != nil {
			return err
		}
		counts[sqlkit.Get(r, mangaTitle)] = n
		return db.Transaction(ctx, func(tx sqlkit.Database) error {
			_, err := tx.Exec(ctx, "UPDATE manga SET rating = ? WHERE id = ?", float64(n), id)
			return err
		})
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a": 2, "b": 0}, counts)

	var rating float64
	require.NoError(t, db.Get(ctx, &rating, "SELECT rating FROM manga WHERE id = ?", a))
	assert.Equal(t, 2.0, rating)
}
