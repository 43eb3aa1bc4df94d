//go:build purego

package sqlkit

import (
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const DriverName = "sqlite"

func driverCorruption(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_NOTADB:
		return true
	}
	return false
}

// connParams returns DSN parameters applied to every connection the pool opens.
func connParams(foreignKeys, wal bool) []string {
	params := []string{"_pragma=busy_timeout(5000)", "_pragma=foreign_keys(" + onOff(foreignKeys) + ")"}
	if wal {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	return params
}
