package database

import (
	"database/sql"
	"fmt"
	"time"
)

// NextID allocates the next human-readable ID for a prefix, e.g.
// NextID(tx, "ORD", 4) -> "ORD-0001". Sequence state lives in the
// id_sequences table so allocation participates in the caller's
// transaction.
func NextID(q Queryer, prefix string, digits int) string {
	q.Exec(`INSERT INTO id_sequences (prefix, next_num) VALUES (?, 1)
		ON CONFLICT(prefix) DO UPDATE SET next_num = next_num + 1`, prefix)
	var n int
	q.QueryRow("SELECT next_num FROM id_sequences WHERE prefix=?", prefix).Scan(&n)
	return fmt.Sprintf("%s-%0*d", prefix, digits, n)
}

// Now returns the current time in the canonical timestamp format used
// across all tables.
func Now() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

// SP converts a nullable string column to *string.
func SP(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
