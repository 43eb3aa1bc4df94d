package sqlkit

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
)

// IsCorruption reports whether the driver classified err as a corrupt or
// non-database file.
func IsCorruption(err error) bool {
	return err != nil && driverCorruption(err)
}

// CorruptionHandler is told when an operation on the client's database fails
// because the file is corrupt. db may be closed by the handler. It runs on
// the goroutine that hit the error and must not call Client.Database.
type CorruptionHandler interface {
	OnCorruption(ctx context.Context, name string, db Database, err error)
}

// CorruptionFunc adapts a function to CorruptionHandler.
type CorruptionFunc func(ctx context.Context, name string, db Database, err error)

func (f CorruptionFunc) OnCorruption(ctx context.Context, name string, db Database, err error) {
	f(ctx, name, db, err)
}

// LogCorruption logs and leaves the file alone.
type LogCorruption struct {
	Logger *slog.Logger
}

func (h LogCorruption) OnCorruption(ctx context.Context, name string, _ Database, err error) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.ErrorContext(ctx, "database corruption detected", "database", name, "error", err)
}

// RemoveOnCorruption closes the database and deletes its file along with the
// rollback journal and WAL files, so the next client open starts from an
// empty database. In-memory and URI names are only closed.
type RemoveOnCorruption struct {
	Logger *slog.Logger
}

func (h RemoveOnCorruption) OnCorruption(ctx context.Context, name string, db Database, err error) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.ErrorContext(ctx, "database corruption detected, removing file", "database", name, "error", err)
	if db != nil {
		if cerr := db.Close(); cerr != nil {
			logger.WarnContext(ctx, "close corrupt database", "database", name, "error", cerr)
		}
	}
	if !removable(name) {
		return
	}
	for _, suffix := range []string{"", "-journal", "-wal", "-shm"} {
		if rerr := os.Remove(name + suffix); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			logger.WarnContext(ctx, "remove corrupt database file", "file", name+suffix, "error", rerr)
		}
	}
}

func removable(name string) bool {
	return name != "" && name != ":memory:" && !strings.HasPrefix(name, "file:")
}
