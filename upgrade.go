package sqlkit

import (
	"context"
	"fmt"
)

// UpgradeStrategy moves a database from an older schema version to the
// client's version. OnUpgrade runs once per open, for the whole version
// range, inside the transaction that also writes the new version; any error
// rolls all of it back. OnPostUpgrade runs after that transaction commits.
type UpgradeStrategy interface {
	OnUpgrade(ctx context.Context, tx Database, oldVersion, newVersion int, schema *Schema) error
	OnPostUpgrade(ctx context.Context, db Database, oldVersion, newVersion int, schema *Schema) error
}

// UpgradeFunc is a single upgrade step.
type UpgradeFunc func(ctx context.Context, tx Database) error

// UpgradeSteps maps a version to the step that upgrades it to the next one.
// Steps old through new-1 run in order; a missing step fails the upgrade.
type UpgradeSteps map[int]UpgradeFunc

func (s UpgradeSteps) OnUpgrade(ctx context.Context, tx Database, oldVersion, newVersion int, _ *Schema) error {
	for v := oldVersion; v < newVersion; v++ {
		step, ok := s[v]
		if !ok {
			return fmt.Errorf("no upgrade step from version %d", v)
		}
		if err := step(ctx, tx); err != nil {
			return fmt.Errorf("upgrade from version %d to %d: %w", v, v+1, err)
		}
	}
	return nil
}

func (s UpgradeSteps) OnPostUpgrade(context.Context, Database, int, int, *Schema) error {
	return nil
}

// SQLStep returns an upgrade step running a SQL script.
func SQLStep(script string) UpgradeFunc {
	return func(ctx context.Context, tx Database) error {
		return ExecScriptString(ctx, tx, script)
	}
}

// RecreateTables discards every table and its data and creates the
// schema's tables from scratch. Suitable for caches.
type RecreateTables struct{}

func (RecreateTables) OnUpgrade(ctx context.Context, tx Database, _, _ int, schema *Schema) error {
	tables, err := schema.Tables()
	if err != nil {
		return err
	}
	var existing []string
	err = tx.Select(ctx, &existing, "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	// References between dropped tables are checked at commit, when none remain.
	if _, err := tx.Exec(ctx, "PRAGMA defer_foreign_keys = ON"); err != nil {
		return err
	}
	for _, name := range existing {
		if err := Run(ctx, tx, DropTable(name).IfExists().MustBuild()); err != nil {
			return fmt.Errorf("drop %s: %w", name, err)
		}
	}
	return createTables(ctx, tx, tables)
}

func (RecreateTables) OnPostUpgrade(context.Context, Database, int, int, *Schema) error {
	return nil
}

// UpgradeFuncs adapts plain functions to UpgradeStrategy. Nil fields are no-ops.
type UpgradeFuncs struct {
	Upgrade     func(ctx context.Context, tx Database, oldVersion, newVersion int, schema *Schema) error
	PostUpgrade func(ctx context.Context, db Database, oldVersion, newVersion int, schema *Schema) error
}

func (f UpgradeFuncs) OnUpgrade(ctx context.Context, tx Database, oldVersion, newVersion int, schema *Schema) error {
	if f.Upgrade == nil {
		return nil
	}
	return f.Upgrade(ctx, tx, oldVersion, newVersion, schema)
}

func (f UpgradeFuncs) OnPostUpgrade(ctx context.Context, db Database, oldVersion, newVersion int, schema *Schema) error {
	if f.PostUpgrade == nil {
		return nil
	}
	return f.PostUpgrade(ctx, db, oldVersion, newVersion, schema)
}

func createTables(ctx context.Context, tx Database, tables []*Table) error {
	for _, t := range tables {
		stmt, err := CreateTable(t).Build()
		if err != nil {
			return err
		}
		if err := Run(ctx, tx, stmt); err != nil {
			return fmt.Errorf("create %s: %w", t.Name(), err)
		}
	}
	return nil
}
