//go:build !purego

package sqlkit

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// DriverName is the database/sql driver DefaultOpener uses. Build with
// -tags purego to switch to the cgo-free driver.
const DriverName = "sqlite3"

func driverCorruption(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrCorrupt || se.Code == sqlite3.ErrNotADB
}

// connParams returns DSN parameters applied to every connection the pool opens.
func connParams(foreignKeys, wal bool) []string {
	params := []string{"_busy_timeout=5000", "_foreign_keys=" + onOff(foreignKeys)}
	if wal {
		params = append(params, "_journal_mode=WAL")
	}
	return params
}
