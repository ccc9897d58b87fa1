package ledger_test

import (
	"database/sql"
	"errors"
	"testing"

	"depot/internal/database"
	"depot/internal/ledger"
	"depot/internal/testutil"
)

// inTx runs fn inside a transaction, failing the test on error.
func inTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx) error) {
	t.Helper()
	if err := database.WithTx(db, fn); err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
}

func TestApplyDeltaWritesHistory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	prd := testutil.CreateTestProduct(t, db, "Widget", 5.00, 10)

	inTx(t, db, func(tx *sql.Tx) error {
		newStock, err := ledger.ApplyDelta(tx, prd, -3, "issuance")
		if err != nil {
			return err
		}
		if newStock != 7 {
			t.Errorf("Expected new stock 7, got %d", newStock)
		}
		return nil
	})

	if got := testutil.Stock(t, db, prd); got != 7 {
		t.Errorf("Expected stock 7, got %d", got)
	}

	var historyStock int
	var reason string
	err := db.QueryRow("SELECT stock, reason FROM stock_history WHERE product_id=? ORDER BY id DESC LIMIT 1", prd).
		Scan(&historyStock, &reason)
	if err != nil {
		t.Fatalf("Expected a stock_history row: %v", err)
	}
	if historyStock != 7 {
		t.Errorf("Expected history to record resulting stock 7, got %d", historyStock)
	}
	if reason != "issuance" {
		t.Errorf("Expected reason 'issuance', got %q", reason)
	}
}

func TestApplyDeltaRejectsNegativeStock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	prd := testutil.CreateTestProduct(t, db, "Widget", 5.00, 3)

	err := database.WithTx(db, func(tx *sql.Tx) error {
		_, err := ledger.ApplyDelta(tx, prd, -5, "issuance")
		return err
	})
	var insufficient *ledger.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientStockError, got %v", err)
	}
	if insufficient.Available != 3 || insufficient.Requested != 5 {
		t.Errorf("Expected available=3 requested=5, got available=%d requested=%d",
			insufficient.Available, insufficient.Requested)
	}

	// Rolled back: stock and history untouched
	if got := testutil.Stock(t, db, prd); got != 3 {
		t.Errorf("Expected stock unchanged at 3, got %d", got)
	}
	var historyCount int
	db.QueryRow("SELECT COUNT(*) FROM stock_history WHERE product_id=?", prd).Scan(&historyCount)
	if historyCount != 0 {
		t.Errorf("Expected no history rows after rollback, got %d", historyCount)
	}
}

func TestApplyDeltaUnknownProduct(t *testing.T) {
	db := testutil.SetupTestDB(t)

	err := database.WithTx(db, func(tx *sql.Tx) error {
		_, err := ledger.ApplyDelta(tx, "PRD-9999", 1, "manual adjustment")
		return err
	})
	var notFound *ledger.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
}

func TestApplyDeltaPartialFailureRollsBackWhole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	clt := testutil.CreateTestClient(t, db, "Acme")
	ok := testutil.CreateTestProduct(t, db, "Plenty", 1.00, 100)
	scarce := testutil.CreateTestProduct(t, db, "Scarce", 1.00, 1)

	err := database.WithTx(db, func(tx *sql.Tx) error {
		_, err := ledger.CreateIssuance(tx, ledger.IssuanceRequest{
			ClientID: clt,
			Lines: []ledger.IssuanceLine{
				{ProductID: ok, Qty: 10},
				{ProductID: scarce, Qty: 5},
			},
		})
		return err
	})
	if err == nil {
		t.Fatal("Expected issuance to fail on the scarce line")
	}

	// First line's decrement must have rolled back with the rest
	if got := testutil.Stock(t, db, ok); got != 100 {
		t.Errorf("Expected first product untouched at 100, got %d", got)
	}
	if got := testutil.Stock(t, db, scarce); got != 1 {
		t.Errorf("Expected second product untouched at 1, got %d", got)
	}
	var issuances int
	db.QueryRow("SELECT COUNT(*) FROM issuances").Scan(&issuances)
	if issuances != 0 {
		t.Errorf("Expected no issuance documents, got %d", issuances)
	}
}
