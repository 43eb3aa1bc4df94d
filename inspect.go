package sqlkit

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

type tableInfoRow struct {
	CID          int            `db:"cid"`
	Name         string         `db:"name"`
	Type         string         `db:"type"`
	NotNull      bool           `db:"notnull"`
	DefaultValue sql.NullString `db:"dflt_value"`
	PK           int            `db:"pk"`
}

type foreignKeyListRow struct {
	ID       int            `db:"id"`
	Seq      int            `db:"seq"`
	Table    string         `db:"table"`
	From     string         `db:"from"`
	To       sql.NullString `db:"to"`
	OnUpdate string         `db:"on_update"`
	OnDelete string         `db:"on_delete"`
	Match    string         `db:"match"`
}

// Inspect describes every user table in db, ordered by name.
func Inspect(ctx context.Context, db Database) ([]TableDefinition, error) {
	rows, err := masterTables(ctx, db)
	if err != nil {
		return nil, err
	}
	defs := make([]TableDefinition, 0, len(rows))
	for _, row := range rows {
		def, err := inspectTable(ctx, db, row)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func inspectTable(ctx context.Context, db Database, row masterRow) (TableDefinition, error) {
	def := TableDefinition{Name: row.Name, SQL: canonicalSQL(row.SQL)}

	// PRAGMA arguments cannot be bound.
	var columns []tableInfoRow
	if err := db.Select(ctx, &columns, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(row.Name))); err != nil {
		return def, fmt.Errorf("table_info %s: %w", row.Name, err)
	}
	var pk []tableInfoRow
	for _, c := range columns {
		col := ColumnDefinition{
			Name:         c.Name,
			Type:         c.Type,
			IsNullable:   !c.NotNull,
			IsPrimaryKey: c.PK > 0,
		}
		if c.DefaultValue.Valid {
			v := c.DefaultValue.String
			col.DefaultValue = &v
		}
		def.Columns = append(def.Columns, col)
		if c.PK > 0 {
			pk = append(pk, c)
		}
	}
	sort.Slice(pk, func(i, j int) bool { return pk[i].PK < pk[j].PK })
	for _, c := range pk {
		def.PrimaryKey = append(def.PrimaryKey, c.Name)
	}

	var refs []foreignKeyListRow
	if err := db.Select(ctx, &refs, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdent(row.Name))); err != nil {
		return def, fmt.Errorf("foreign_key_list %s: %w", row.Name, err)
	}
	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].ID != refs[j].ID {
			return refs[i].ID < refs[j].ID
		}
		return refs[i].Seq < refs[j].Seq
	})
	byID := make(map[int]int)
	for _, r := range refs {
		i, ok := byID[r.ID]
		if !ok {
			i = len(def.ForeignKeys)
			byID[r.ID] = i
			def.ForeignKeys = append(def.ForeignKeys, ForeignKeyDefinition{
				TargetTable: r.Table,
				OnUpdate:    r.OnUpdate,
				OnDelete:    r.OnDelete,
			})
		}
		fk := &def.ForeignKeys[i]
		fk.Columns = append(fk.Columns, r.From)
		fk.TargetColumns = append(fk.TargetColumns, r.To.String)
	}
	return def, nil
}
