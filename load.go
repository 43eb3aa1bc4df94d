package sqlkit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/james-darko/gort"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// OptionsFromEnv returns client options for the database named by the
// environment. Schema, Upgrade and Hooks are left for the caller.
//
// Env vars:
//
// DATABASE_URL: required
//
// DATABASE_DRIVER: optional. Defaults to DriverName. Switches to "libsql" if DATABASE_URL starts with "libsql".
//
// DATABASE_TOKEN: required if DATABASE_URL starts with "libsql", and appended accordingly for turso auth.
//
// DATABASE_FOREIGN_KEYS: optional boolean, enforce foreign keys.
//
// DATABASE_VERIFY: optional boolean, verify the schema on every open.
func OptionsFromEnv() (Options, error) {
	var opts Options
	url, ok := gort.Env("DATABASE_URL")
	if !ok || url == "" {
		return opts, fmt.Errorf("DATABASE_URL env var not found")
	}
	driver, _ := gort.Env("DATABASE_DRIVER")
	if strings.HasPrefix(url, "libsql:") {
		driver = "libsql"
		token, ok := gort.Env("DATABASE_TOKEN")
		if !ok || token == "" {
			return opts, fmt.Errorf("DATABASE_TOKEN env var not found")
		}
		url = url + "?authToken=" + token
	}
	fk, err := envBool("DATABASE_FOREIGN_KEYS")
	if err != nil {
		return opts, err
	}
	verify, err := envBool("DATABASE_VERIFY")
	if err != nil {
		return opts, err
	}
	opts.Name = url
	opts.Opener = DefaultOpener{Driver: driver, WAL: true}
	opts.ForeignKeys = fk
	opts.VerifySchema = verify
	return opts, nil
}

func envBool(name string) (bool, error) {
	v, ok := gort.Env(name)
	if !ok || v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", name, err)
	}
	return b, nil
}
