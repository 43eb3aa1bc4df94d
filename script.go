package sqlkit

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ExecScriptString is ExecScript over a string.
func ExecScriptString(ctx context.Context, db Database, script string) error {
	return ExecScript(ctx, db, strings.NewReader(script))
}

// ExecScript runs the ';'-separated statements read from reader in one
// transaction, or in the caller's transaction when db is one. Line comments
// are stripped and CREATE TRIGGER bodies are kept whole.
func ExecScript(ctx context.Context, db Database, reader io.Reader) error {
	return db.Transaction(ctx, func(tx Database) error {
		return execScript(ctx, tx, reader)
	})
}

func execScript(ctx context.Context, tx Database, reader io.Reader) error {
	var buf []byte
	r := bufio.NewReader(reader)
	for {
		chunk, err := r.ReadString(';')
		eof := errors.Is(err, io.EOF)
		if err != nil && !eof {
			return err
		}
		buf = append(buf, chunk...)
		stmt := strings.TrimSpace(stripLineComments(string(buf)))
		upper := strings.ToUpper(stmt)
		if !eof && strings.Contains(upper, "CREATE TRIGGER") && !strings.HasSuffix(upper, "END;") {
			// inside a trigger body
			continue
		}
		buf = buf[:0]
		if stmt != "" && stmt != ";" {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("exec %q: %w", stmt, err)
			}
		}
		if eof {
			return nil
		}
	}
}

func stripLineComments(s string) string {
	var sb strings.Builder
	for _, line := range strings.SplitAfter(s, "\n") {
		if i := strings.Index(line, "--"); i >= 0 {
			sb.WriteString(line[:i])
			if strings.HasSuffix(line, "\n") {
				sb.WriteByte('\n')
			}
			continue
		}
		sb.WriteString(line)
	}
	return sb.String()
}
