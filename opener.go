package sqlkit

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Opener opens the database named by the client, creating it if needed.
// Openers returning a pool of more than one connection must enable foreign
// keys on every connection themselves when the client asks for them.
type Opener interface {
	OpenOrCreate(ctx context.Context, name string) (*sqlx.DB, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, name string) (*sqlx.DB, error)

func (f OpenerFunc) OpenOrCreate(ctx context.Context, name string) (*sqlx.DB, error) {
	return f(ctx, name)
}

// DefaultOpener opens name with database/sql. An empty Driver means DriverName.
//
// File databases get a connection pool, so reads nested inside an open
// cursor and writes from other goroutines use their own connections. For
// DriverName the DSN also sets a busy timeout, the foreign_keys pragma and,
// with WAL, the journal mode on each connection. In-memory databases exist
// per connection and are capped at one.
type DefaultOpener struct {
	Driver      string
	ForeignKeys bool
	WAL         bool
}

func (o DefaultOpener) OpenOrCreate(ctx context.Context, name string) (*sqlx.DB, error) {
	driver := o.Driver
	if driver == "" {
		driver = DriverName
	}
	memory := inMemory(name)
	dsn := name
	if driver == DriverName {
		dsn = withParams(name, connParams(o.ForeignKeys, o.WAL && !memory))
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database %s: %w", driver, name, err)
	}
	if memory {
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database %s: %w", driver, name, err)
	}
	return db, nil
}

func inMemory(name string) bool {
	return name == "" || name == ":memory:" || strings.Contains(name, "mode=memory")
}

func withParams(name string, params []string) string {
	if len(params) == 0 {
		return name
	}
	sep := "?"
	if strings.Contains(name, "?") {
		sep = "&"
	}
	return name + sep + strings.Join(params, "&")
}

func onOff(on bool) string {
	if on {
		return "1"
	}
	return "0"
}
