package sqlkit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// State is where a Client is in its open sequence.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrClientClosed is returned by Database after Close.
var ErrClientClosed = errors.New("sqlkit: client closed")

// Hooks are optional callbacks into the open sequence.
type Hooks struct {
	// OnCreate runs inside the creation transaction, after the tables exist
	// and before the version is written. Use it to seed rows.
	OnCreate func(ctx context.Context, tx Database, schema *Schema) error
	// OnPostCreate runs after the creation transaction commits.
	OnPostCreate func(ctx context.Context, db Database, schema *Schema) error
	// OnOpen runs on every open, last, once the schema is current.
	OnOpen func(ctx context.Context, db Database) error
}

// Options configure a Client. Name and Schema are required.
type Options struct {
	// Name is the database file path, or any name Opener understands.
	Name   string
	Schema *Schema
	// Upgrade is required once a persisted database can be older than Schema.
	Upgrade UpgradeStrategy
	// Corruption defaults to LogCorruption.
	Corruption CorruptionHandler
	// Opener defaults to DefaultOpener.
	Opener Opener
	// ForeignKeys turns on PRAGMA foreign_keys for the connection and checks
	// references after an upgrade.
	ForeignKeys bool
	// VerifySchema compares the live tables with Schema after every open.
	VerifySchema bool
	Logger       *slog.Logger
	Hooks        Hooks
}

// Client owns one SQLite database and brings its schema to the declared
// version before handing it out. The open sequence runs once, in the
// background, on the first Create or Database call.
//
// Hooks, upgrade strategies and corruption handlers run on the open
// goroutine and must not call Database on the client that runs them; they
// are given the Database to use.
type Client struct {
	opts Options
	log  *slog.Logger

	mu       sync.Mutex
	state    State
	done     chan struct{}
	db       *database
	err      error
	previous int
}

// NewClient validates opts. Nothing is opened until Create or Database.
func NewClient(opts Options) (*Client, error) {
	if opts.Name == "" {
		return nil, errors.New("sqlkit: client needs a database name")
	}
	if opts.Schema == nil {
		return nil, errors.New("sqlkit: client needs a schema")
	}
	if opts.Schema.Version() < 1 {
		return nil, fmt.Errorf("sqlkit: schema version must be at least 1, got %d", opts.Schema.Version())
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	switch o := opts.Opener.(type) {
	case nil:
		opts.Opener = DefaultOpener{ForeignKeys: opts.ForeignKeys, WAL: true}
	case DefaultOpener:
		o.ForeignKeys = o.ForeignKeys || opts.ForeignKeys
		opts.Opener = o
	}
	if opts.Corruption == nil {
		opts.Corruption = LogCorruption{Logger: opts.Logger}
	}
	return &Client{
		opts: opts,
		log:  opts.Logger.With("database", opts.Name),
		done: make(chan struct{}),
	}, nil
}

func (c *Client) Name() string {
	return c.opts.Name
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PreviousVersion is the schema version found on disk by the last open:
// 0 when the schema was created. It is only meaningful once Ready.
func (c *Client) PreviousVersion() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previous
}

// Create starts the open sequence in the background. Calls made while it
// runs or after it finished have no effect.
func (c *Client) Create() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start()
}

// start must be called with c.mu held. It returns the channel closed when
// the current open sequence ends.
func (c *Client) start() chan struct{} {
	if c.state == StateUninitialized {
		c.state = StateInitializing
		go c.open(c.done)
	}
	return c.done
}

// Database starts the open sequence if needed and waits for it. A failed
// open returns its error to every caller; the client does not retry.
// After a corruption report the client drops its database, and the next
// call opens it again.
func (c *Client) Database(ctx context.Context) (Database, error) {
	for {
		c.mu.Lock()
		done := c.start()
		c.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		c.mu.Lock()
		db, state, err := c.db, c.state, c.err
		c.mu.Unlock()
		if err != nil {
			return nil, err
		}
		if state == StateReady {
			return db, nil
		}
		// dropped after a corruption report
	}
}

// Close waits for an open in progress and closes the database.
func (c *Client) Close() error {
	c.mu.Lock()
	for c.state == StateInitializing {
		done := c.done
		c.mu.Unlock()
		<-done
		c.mu.Lock()
	}
	defer c.mu.Unlock()
	switch c.state {
	case StateClosed:
		return nil
	case StateUninitialized:
		c.state, c.err = StateClosed, ErrClientClosed
		close(c.done)
		return nil
	}
	db := c.db
	c.state, c.db, c.err = StateClosed, nil, ErrClientClosed
	if db == nil {
		return nil
	}
	return db.Close()
}

func (c *Client) open(done chan struct{}) {
	ctx := context.Background()
	db, previous, err := c.initialize(ctx)
	if err != nil {
		if IsCorruption(err) {
			var handle Database
			if db != nil {
				handle = db
			}
			c.opts.Corruption.OnCorruption(ctx, c.opts.Name, handle, err)
		}
		if db != nil {
			db.db.Close()
		}
		c.log.Error("database open failed", "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	defer close(done)
	if err != nil {
		c.state, c.err = StateFailed, err
		return
	}
	db.corrupt = func(ctx context.Context, err error) {
		if !c.current(db) {
			return
		}
		c.opts.Corruption.OnCorruption(ctx, c.opts.Name, db, err)
		c.drop(db)
	}
	c.state, c.db, c.previous = StateReady, db, previous
	c.log.Info("database ready", "version", c.opts.Schema.Version(), "previous", previous)
}

func (c *Client) current(db *database) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateReady && c.db == db
}

// drop closes db after a corruption report and returns the client to
// StateUninitialized, so the next Database call runs the open sequence again.
func (c *Client) drop(db *database) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady || c.db != db {
		return
	}
	if err := db.db.Close(); err != nil {
		c.log.Warn("close corrupt database", "error", err)
	}
	c.log.Warn("database dropped after corruption, reopening on next use")
	c.state, c.db, c.err, c.previous = StateUninitialized, nil, nil, 0
	c.done = make(chan struct{})
}

// initialize opens the database and brings its schema to the target
// version. The returned database is non-nil whenever it was opened, even
// on error, so the caller can hand it to the corruption handler.
func (c *Client) initialize(ctx context.Context) (*database, int, error) {
	sdb, err := c.opts.Opener.OpenOrCreate(ctx, c.opts.Name)
	if err != nil {
		return nil, 0, fmt.Errorf("open database %s: %w", c.opts.Name, err)
	}
	d := &database{db: sdb}

	// DefaultOpener sets this on every pooled connection through the DSN;
	// this covers single-connection openers.
	fk := "OFF"
	if c.opts.ForeignKeys {
		fk = "ON"
	}
	if _, err := d.Exec(ctx, "PRAGMA foreign_keys = "+fk); err != nil {
		return d, 0, fmt.Errorf("set foreign_keys: %w", err)
	}

	schema := c.opts.Schema
	target := schema.Version()
	current, err := d.Version(ctx)
	if err != nil {
		return d, 0, err
	}
	switch {
	case current > target:
		c.log.Error("refusing to downgrade database", "current", current, "target", target)
		return d, current, &DowngradeError{Current: current, Target: target}
	case current == 0:
		if err := c.create(ctx, d, schema); err != nil {
			return d, current, err
		}
	case current < target:
		if err := c.upgrade(ctx, d, current, target, schema); err != nil {
			return d, current, err
		}
	}

	if c.opts.VerifySchema {
		tables, err := schema.Tables()
		if err != nil {
			return d, current, err
		}
		if err := Verify(ctx, d, tables); err != nil {
			return d, current, err
		}
	}
	if c.opts.Hooks.OnOpen != nil {
		if err := c.opts.Hooks.OnOpen(ctx, d); err != nil {
			return d, current, fmt.Errorf("open hook: %w", err)
		}
	}
	return d, current, nil
}

func (c *Client) create(ctx context.Context, d *database, schema *Schema) error {
	tables, err := schema.Tables()
	if err != nil {
		return err
	}
	c.log.Info("creating database schema", "version", schema.Version(), "tables", len(tables))
	err = d.TransactionImmediate(ctx, func(tx Database) error {
		if err := createTables(ctx, tx, tables); err != nil {
			return err
		}
		if c.opts.Hooks.OnCreate != nil {
			if err := c.opts.Hooks.OnCreate(ctx, tx, schema); err != nil {
				return fmt.Errorf("create hook: %w", err)
			}
		}
		return tx.database().setVersion(ctx, schema.Version())
	})
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if c.opts.Hooks.OnPostCreate != nil {
		if err := c.opts.Hooks.OnPostCreate(ctx, d, schema); err != nil {
			return fmt.Errorf("post-create hook: %w", err)
		}
	}
	return nil
}

// foreignKeyViolation is a row of PRAGMA foreign_key_check.
type foreignKeyViolation struct {
	Table  string        `db:"table"`
	RowID  sql.NullInt64 `db:"rowid"`
	Parent string        `db:"parent"`
	FKID   int64         `db:"fkid"`
}

func (c *Client) upgrade(ctx context.Context, d *database, current, target int, schema *Schema) error {
	if c.opts.Upgrade == nil {
		return fmt.Errorf("database is at version %d, needs %d, and no upgrade strategy is set", current, target)
	}
	c.log.Info("upgrading database schema", "from", current, "to", target)
	err := d.TransactionImmediate(ctx, func(tx Database) error {
		if err := c.opts.Upgrade.OnUpgrade(ctx, tx, current, target, schema); err != nil {
			return err
		}
		if c.opts.ForeignKeys {
			var violations []foreignKeyViolation
			if err := tx.Select(ctx, &violations, "PRAGMA foreign_key_check"); err != nil {
				return fmt.Errorf("foreign key check: %w", err)
			}
			if len(violations) > 0 {
				return fmt.Errorf("foreign key check: %d violations, first in %s referencing %s",
					len(violations), violations[0].Table, violations[0].Parent)
			}
		}
		return tx.database().setVersion(ctx, target)
	})
	if err != nil {
		return fmt.Errorf("upgrade schema from %d to %d: %w", current, target, err)
	}
	if err := c.opts.Upgrade.OnPostUpgrade(ctx, d, current, target, schema); err != nil {
		return fmt.Errorf("post-upgrade: %w", err)
	}
	return nil
}
