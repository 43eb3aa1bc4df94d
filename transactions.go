package sqlkit

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Tx runs fn in a deferred transaction on db. It commits when fn returns nil
// and rolls back otherwise.
func Tx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	return transaction(ctx, db, false, fn)
}

// TxImm runs fn in a transaction that takes the write lock up front.
func TxImm(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	return transaction(ctx, db, true, fn)
}

func transaction(ctx context.Context, db *sqlx.DB, write bool, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if write && immediateDriver(db.DriverName()) {
		// database/sql always issues a plain BEGIN; swap it for BEGIN IMMEDIATE
		// so concurrent writers fail at the start instead of at commit.
		if _, err = tx.ExecContext(ctx, "ROLLBACK"); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
			return err
		}
	}
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func immediateDriver(name string) bool {
	switch name {
	case "libsql", "sqlite3", "sqlite":
		return true
	}
	return false
}
