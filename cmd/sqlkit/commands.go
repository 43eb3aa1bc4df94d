package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/james-darko/sqlkit"
)

const modulePath = "github.com/james-darko/sqlkit"

func newVersionCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sqlkit version, and the database schema version with --database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "sqlkit %s\n", buildVersion())
			if v.GetString(cfgKeyDatabase) == "" {
				return nil
			}
			db, err := openDatabase(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer db.Close()
			version, err := db.Version(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		},
	}
}

func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "(devel)"
	}
	if info.Main.Path == modulePath && info.Main.Version != "" {
		return info.Main.Version
	}
	for _, dep := range info.Deps {
		if dep.Path == modulePath {
			return dep.Version
		}
	}
	return "(devel)"
}

func newTablesCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the database with their columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer db.Close()
			tables, err := sqlkit.Inspect(cmd.Context(), db)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if v.GetBool(cfgKeyJSON) {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(tables)
			}
			if len(tables) == 0 {
				fmt.Fprintln(out, "no tables found")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, t := range tables {
				fmt.Fprintf(tw, "%s\n", t.Name)
				for _, c := range t.Columns {
					flags := ""
					if c.IsPrimaryKey {
						flags += " pk"
					}
					if !c.IsNullable {
						flags += " not-null"
					}
					fmt.Fprintf(tw, "  %s\t%s\t%s\n", c.Name, c.Type, flags)
				}
				for _, fk := range t.ForeignKeys {
					fmt.Fprintf(tw, "  -> %s%v\t%v\tdelete:%s update:%s\n",
						fk.TargetTable, fk.TargetColumns, fk.Columns, fk.OnDelete, fk.OnUpdate)
				}
			}
			return tw.Flush()
		},
	}
}

func newVerifyCmd(v *viper.Viper) *cobra.Command {
	var schemaFile string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare the database tables with the CREATE TABLE statements of a schema file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(schemaFile)
			if err != nil {
				return userError{fmt.Errorf("open schema: %w", err)}
			}
			defer f.Close()
			db, err := openDatabase(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := sqlkit.VerifySQL(cmd.Context(), db, f); err != nil {
				var conflicts *sqlkit.ErrSchemaConflicts
				if errors.As(err, &conflicts) {
					for _, c := range conflicts.Conflicts {
						fmt.Fprintln(cmd.ErrOrStderr(), c.Error())
					}
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema matches")
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaFile, "schema", "", "SQL schema file")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func newVacuumCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "vacuum",
		Short: "Rebuild the database file, reclaiming free pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer db.Close()
			return sqlkit.Run(cmd.Context(), db, sqlkit.Vacuum())
		},
	}
}
