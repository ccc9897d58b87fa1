package database_test

import (
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"depot/internal/database"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestNextIDSequential(t *testing.T) {
	db := openTestDB(t)

	first := database.NextID(db, "ORD", 4)
	second := database.NextID(db, "ORD", 4)
	if first != "ORD-0001" {
		t.Errorf("Expected ORD-0001, got %s", first)
	}
	if second != "ORD-0002" {
		t.Errorf("Expected ORD-0002, got %s", second)
	}

	// Independent sequence per prefix
	if got := database.NextID(db, "ISS", 4); got != "ISS-0001" {
		t.Errorf("Expected ISS-0001, got %s", got)
	}
}

func TestWithTxCommits(t *testing.T) {
	db := openTestDB(t)

	err := database.WithTx(db, func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO clients (id, name) VALUES ('CLT-0001', 'Acme')")
		return err
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM clients").Scan(&count)
	if count != 1 {
		t.Errorf("Expected 1 client, got %d", count)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	boom := errors.New("boom")

	err := database.WithTx(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO clients (id, name) VALUES ('CLT-0001', 'Acme')"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM clients").Scan(&count)
	if count != 0 {
		t.Errorf("Expected rollback, found %d clients", count)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Second migrate failed: %v", err)
	}
}

func TestStockCheckConstraint(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.Exec("INSERT INTO products (id, name, stock) VALUES ('PRD-0001', 'Widget', 5)"); err != nil {
		t.Fatal(err)
	}
	// The schema itself refuses negative stock
	if _, err := db.Exec("UPDATE products SET stock=-1 WHERE id='PRD-0001'"); err == nil {
		t.Error("Expected CHECK constraint to reject negative stock")
	}
}
