package database

import (
	"database/sql"
	"strings"
	"time"
)

// Queryer is the subset of *sql.DB and *sql.Tx used by read helpers,
// so lookups work both inside and outside a transaction.
type Queryer interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
	Exec(query string, args ...any) (sql.Result, error)
}

const txMaxAttempts = 5

// WithTx runs fn inside a transaction and commits if fn returns nil.
// On SQLITE_BUSY / locked errors the whole body is re-executed, up to
// txMaxAttempts times, so fn must be safe to re-run: it may only write
// through tx and must not produce side effects that survive a rollback.
func WithTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	var err error
	for attempt := 1; attempt <= txMaxAttempts; attempt++ {
		err = runTx(db, fn)
		if err == nil || !isBusy(err) {
			return err
		}
		time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
	}
	return err
}

func runTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database table is locked")
}
