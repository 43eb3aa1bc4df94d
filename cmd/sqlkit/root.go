package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/james-darko/sqlkit"
)

const (
	cfgKeyDatabase = "database"
	cfgKeyDriver   = "driver"
	cfgKeyJSON     = "json"
	cfgKeyVerbose  = "verbose"
)

// userError marks failures caused by bad input rather than the system.
type userError struct {
	err error
}

func (e userError) Error() string { return e.err.Error() }
func (e userError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ue userError
	var conflicts *sqlkit.ErrSchemaConflicts
	if errors.As(err, &ue) || errors.As(err, &conflicts) {
		return exitUserError
	}
	return exitSysError
}

// newRootCmd creates the top-level command. Flags are bound into a viper
// instance so each can also come from a SQLKIT_* environment variable or
// the file named by --config.
func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	root := &cobra.Command{
		Use:          "sqlkit",
		Short:        "Inspect and maintain sqlkit SQLite databases",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(v, configFile); err != nil {
				return userError{err}
			}
			level := slog.LevelWarn
			if v.GetBool(cfgKeyVerbose) {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, toml or json)")
	root.PersistentFlags().StringP(cfgKeyDatabase, "d", "", "database file or URL")
	root.PersistentFlags().String(cfgKeyDriver, "", "database/sql driver name (default: "+sqlkit.DriverName+")")
	root.PersistentFlags().Bool(cfgKeyJSON, false, "output in JSON format")
	root.PersistentFlags().BoolP(cfgKeyVerbose, "v", false, "log debug output to stderr")
	for _, key := range []string{cfgKeyDatabase, cfgKeyDriver, cfgKeyJSON, cfgKeyVerbose} {
		_ = v.BindPFlag(key, root.PersistentFlags().Lookup(key))
	}

	root.AddCommand(newVersionCmd(v))
	root.AddCommand(newTablesCmd(v))
	root.AddCommand(newVerifyCmd(v))
	root.AddCommand(newVacuumCmd(v))
	return root
}

func loadConfig(v *viper.Viper, configFile string) error {
	v.SetEnvPrefix("SQLKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if configFile == "" {
		return nil
	}
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// openDatabase opens the configured database without touching its schema.
func openDatabase(ctx context.Context, v *viper.Viper) (sqlkit.Database, error) {
	name := v.GetString(cfgKeyDatabase)
	if name == "" {
		return nil, userError{errors.New("no database: pass --database or set SQLKIT_DATABASE")}
	}
	if !strings.Contains(name, ":") {
		if _, err := os.Stat(name); err != nil {
			return nil, userError{fmt.Errorf("database %s: %w", name, err)}
		}
	}
	opener := sqlkit.DefaultOpener{Driver: v.GetString(cfgKeyDriver)}
	db, err := opener.OpenOrCreate(ctx, name)
	if err != nil {
		return nil, err
	}
	slog.Debug("opened database", "database", name, "driver", db.DriverName())
	return sqlkit.Wrap(db), nil
}
