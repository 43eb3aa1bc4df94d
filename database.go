package sqlkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Database is an open SQLite database, or a transaction on one. Statements
// are compiled against it.
//
// A file database opened by DefaultOpener is a connection pool, and
// statements run beside open cursors on their own connections. An
// in-memory database has a single connection: while a Query cursor or a
// Transaction holds it, other statements on the outer Database wait for it.
type Database interface {
	// SQLX returns the underlying pool.
	SQLX() *sqlx.DB
	Exec(ctx context.Context, query string, args ...any) (Result, error)
	// Get scans a single row into dest with sqlx column mapping.
	Get(ctx context.Context, dest any, query string, args ...any) error
	// Select scans every row into the slice dest points to.
	Select(ctx context.Context, dest any, query string, args ...any) error
	// SelectIn expands slice arguments with sqlx.In before running Select.
	SelectIn(ctx context.Context, dest any, query string, args ...any) error
	// Transaction runs fn in a transaction that commits when fn returns nil.
	// Called on a Database that is already a transaction, fn joins it.
	Transaction(ctx context.Context, fn func(tx Database) error) error
	// TransactionImmediate is Transaction taking the write lock up front.
	TransactionImmediate(ctx context.Context, fn func(tx Database) error) error
	// Version reads PRAGMA user_version.
	Version(ctx context.Context) (int, error)
	Close() error

	database() *database
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.ExtContext
	PreparexContext(ctx context.Context, query string) (*sqlx.Stmt, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

type database struct {
	db *sqlx.DB
	tx *sqlx.Tx
	// corrupt, if set, is told about errors the driver reports as corruption.
	corrupt func(ctx context.Context, err error)
}

// Wrap adopts a pool opened elsewhere. The caller keeps ownership of schema
// management; statements compile against it like against a client database.
func Wrap(db *sqlx.DB) Database {
	return &database{db: db}
}

func attached(db Database) (*database, error) {
	if db == nil {
		return nil, ErrNotReady
	}
	d := db.database()
	if d == nil || d.db == nil {
		return nil, ErrNotReady
	}
	return d, nil
}

func (d *database) database() *database { return d }
func (d *database) SQLX() *sqlx.DB      { return d.db }

func (d *database) ext() queryer {
	if d.tx != nil {
		return d.tx
	}
	return d.db
}

func (d *database) check(ctx context.Context, err error) error {
	if err != nil && d.corrupt != nil && IsCorruption(err) {
		d.corrupt(ctx, err)
	}
	return err
}

func (d *database) prepare(ctx context.Context, query string) (*sqlx.Stmt, error) {
	stmt, err := d.ext().PreparexContext(ctx, query)
	return stmt, d.check(ctx, err)
}

func (d *database) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	r, err := d.ext().ExecContext(ctx, query, args...)
	if err != nil {
		return nil, d.check(ctx, err)
	}
	return execResult{r}, nil
}

func (d *database) Get(ctx context.Context, dest any, query string, args ...any) error {
	return d.check(ctx, d.ext().GetContext(ctx, dest, query, args...))
}

func (d *database) Select(ctx context.Context, dest any, query string, args ...any) error {
	return d.check(ctx, d.ext().SelectContext(ctx, dest, query, args...))
}

func (d *database) SelectIn(ctx context.Context, dest any, query string, args ...any) error {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return err
	}
	return d.Select(ctx, dest, d.ext().Rebind(q), a...)
}

func (d *database) Transaction(ctx context.Context, fn func(tx Database) error) error {
	return d.transaction(ctx, false, fn)
}

func (d *database) TransactionImmediate(ctx context.Context, fn func(tx Database) error) error {
	return d.transaction(ctx, true, fn)
}

func (d *database) transaction(ctx context.Context, write bool, fn func(tx Database) error) error {
	if d.tx != nil {
		return fn(d)
	}
	return transaction(ctx, d.db, write, func(tx *sqlx.Tx) error {
		return fn(&database{db: d.db, tx: tx, corrupt: d.corrupt})
	})
}

func (d *database) Version(ctx context.Context) (int, error) {
	var v int
	if err := d.Get(ctx, &v, "PRAGMA user_version"); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

func (d *database) setVersion(ctx context.Context, v int) error {
	// PRAGMA takes no bind parameters.
	if _, err := d.Exec(ctx, fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
		return fmt.Errorf("write user_version: %w", err)
	}
	return nil
}

// Close closes the pool. It is an error to close a transaction.
func (d *database) Close() error {
	if d.tx != nil {
		return errors.New("sqlkit: close called inside a transaction")
	}
	return d.db.Close()
}
