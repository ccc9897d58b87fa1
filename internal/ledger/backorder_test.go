package ledger_test

import (
	"database/sql"
	"errors"
	"testing"

	"depot/internal/database"
	"depot/internal/ledger"
	"depot/internal/testutil"
)

func TestResolveBackorderOnlyOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	clt := testutil.CreateTestClient(t, db, "Acme")
	prd := testutil.CreateTestProduct(t, db, "Widget", 1.00, 0)

	var backorderID string
	inTx(t, db, func(tx *sql.Tx) error {
		var err error
		backorderID, err = ledger.RecordShortfall(tx, "ORD-0001", clt, prd, 3)
		return err
	})

	inTx(t, db, func(tx *sql.Tx) error {
		return ledger.ResolveBackorder(tx, backorderID)
	})

	var status string
	var fulfilledAt sql.NullString
	db.QueryRow("SELECT status, fulfilled_at FROM backorders WHERE id=?", backorderID).Scan(&status, &fulfilledAt)
	if status != "Fulfilled" {
		t.Errorf("Expected 'Fulfilled', got %q", status)
	}
	if !fulfilledAt.Valid {
		t.Error("Expected fulfilled_at to be set")
	}

	// Resolving again fails: it is no longer Pending
	err := database.WithTx(db, func(tx *sql.Tx) error {
		return ledger.ResolveBackorder(tx, backorderID)
	})
	var notFound *ledger.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected NotFoundError on second resolve, got %v", err)
	}
}

func TestRecordShortfallUniquePerOrderProduct(t *testing.T) {
	db := testutil.SetupTestDB(t)
	clt := testutil.CreateTestClient(t, db, "Acme")
	prd := testutil.CreateTestProduct(t, db, "Widget", 1.00, 0)

	inTx(t, db, func(tx *sql.Tx) error {
		_, err := ledger.RecordShortfall(tx, "ORD-0001", clt, prd, 3)
		return err
	})

	// A second shortfall for the same (order, product) violates the
	// schema constraint
	err := database.WithTx(db, func(tx *sql.Tx) error {
		_, err := ledger.RecordShortfall(tx, "ORD-0001", clt, prd, 2)
		return err
	})
	if err == nil {
		t.Fatal("Expected unique constraint violation")
	}
}
