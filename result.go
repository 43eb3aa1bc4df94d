package sqlkit

import "database/sql"

// Result is the outcome of Database.Exec.
type Result interface {
	sql.Result
	// RowID is the id of the row an INSERT added, or -1 when the conflict
	// algorithm dropped it and no row changed.
	RowID() (int64, error)
	// MustRowsAffected is RowsAffected panicking with Error on failure.
	MustRowsAffected() int64
}

type execResult struct {
	sql.Result
}

func (r execResult) RowID() (int64, error) {
	n, err := r.RowsAffected()
	if err != nil {
		return -1, err
	}
	if n == 0 {
		return -1, nil
	}
	return r.LastInsertId()
}

func (r execResult) MustRowsAffected() int64 {
	return Mustv(r.RowsAffected())
}
