package ledger_test

import (
	"database/sql"
	"errors"
	"math"
	"testing"

	"depot/internal/database"
	"depot/internal/ledger"
	"depot/internal/testutil"
)

func createOrder(t *testing.T, db *sql.DB, req ledger.OrderRequest) *ledger.OrderResult {
	t.Helper()
	var result *ledger.OrderResult
	inTx(t, db, func(tx *sql.Tx) error {
		var err error
		result, err = ledger.CreateOrder(tx, req)
		return err
	})
	return result
}

func TestCreateOrderFullyInStock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	clt := testutil.CreateTestClient(t, db, "Acme")
	prd := testutil.CreateTestProduct(t, db, "Widget", 4.50, 10)

	result := createOrder(t, db, ledger.OrderRequest{
		ClientID:  clt,
		Lines:     []ledger.OrderLineRequest{{ProductID: prd, Qty: 4}},
		CreatedBy: "admin",
	})

	if result.Status != "Ready for Issuance" {
		t.Errorf("Expected status 'Ready for Issuance', got %q", result.Status)
	}
	if result.Total != 18.00 {
		t.Errorf("Expected total 18.00, got %.2f", result.Total)
	}
	if got := testutil.Stock(t, db, prd); got != 6 {
		t.Errorf("Expected stock 6 after issuance, got %d", got)
	}

	var issuances, backorders int
	db.QueryRow("SELECT COUNT(*) FROM issuances WHERE order_id=?", result.OrderID).Scan(&issuances)
	db.QueryRow("SELECT COUNT(*) FROM backorders WHERE order_id=?", result.OrderID).Scan(&backorders)
	if issuances != 1 {
		t.Errorf("Expected exactly one issuance, got %d", issuances)
	}
	if backorders != 0 {
		t.Errorf("Expected no backorders, got %d", backorders)
	}
}

func TestCreateOrderSplitFulfillment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	clt := testutil.CreateTestClient(t, db, "Acme")
	prd := testutil.CreateTestProduct(t, db, "Widget", 2.00, 3)

	result := createOrder(t, db, ledger.OrderRequest{
		ClientID: clt,
		Lines:    []ledger.OrderLineRequest{{ProductID: prd, Qty: 5}},
	})

	if result.Status != "Partially Fulfilled" {
		t.Errorf("Expected status 'Partially Fulfilled', got %q", result.Status)
	}
	// Total reflects the full requested quantity, not just what shipped
	if result.Total != 10.00 {
		t.Errorf("Expected total 10.00 for 5 units, got %.2f", result.Total)
	}
	if got := testutil.Stock(t, db, prd); got != 0 {
		t.Errorf("Expected stock drained to 0, got %d", got)
	}

	var issuedQty int
	err := db.QueryRow(`SELECT il.qty FROM issuance_lines il
		JOIN issuances i ON il.issuance_id = i.id WHERE i.order_id=?`, result.OrderID).Scan(&issuedQty)
	if err != nil {
		t.Fatalf("Expected an issuance line: %v", err)
	}
	if issuedQty != 3 {
		t.Errorf("Expected 3 units issued, got %d", issuedQty)
	}

	var backQty int
	var backStatus string
	err = db.QueryRow("SELECT qty, status FROM backorders WHERE order_id=?", result.OrderID).Scan(&backQty, &backStatus)
	if err != nil {
		t.Fatalf("Expected a backorder: %v", err)
	}
	if backQty != 2 {
		t.Errorf("Expected 2 units backordered, got %d", backQty)
	}
	if backStatus != "Pending" {
		t.Errorf("Expected backorder status 'Pending', got %q", backStatus)
	}
}

func TestCreateOrderNothingInStock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	clt := testutil.CreateTestClient(t, db, "Acme")
	prd := testutil.CreateTestProduct(t, db, "Widget", 2.00, 0)

	result := createOrder(t, db, ledger.OrderRequest{
		ClientID: clt,
		Lines:    []ledger.OrderLineRequest{{ProductID: prd, Qty: 5}},
	})

	if result.Status != "Awaiting Purchase" {
		t.Errorf("Expected status 'Awaiting Purchase', got %q", result.Status)
	}
	var issuances int
	db.QueryRow("SELECT COUNT(*) FROM issuances WHERE order_id=?", result.OrderID).Scan(&issuances)
	if issuances != 0 {
		t.Errorf("Expected no issuance when nothing ships, got %d", issuances)
	}
}

func TestCreateOrderSingleIssuanceForBatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	clt := testutil.CreateTestClient(t, db, "Acme")
	a := testutil.CreateTestProduct(t, db, "Alpha", 1.00, 10)
	b := testutil.CreateTestProduct(t, db, "Beta", 1.00, 10)
	c := testutil.CreateTestProduct(t, db, "Gamma", 1.00, 10)

	result := createOrder(t, db, ledger.OrderRequest{
		ClientID: clt,
		Lines: []ledger.OrderLineRequest{
			{ProductID: a, Qty: 2},
			{ProductID: b, Qty: 3},
			{ProductID: c, Qty: 4},
		},
	})

	var issuances int
	db.QueryRow("SELECT COUNT(*) FROM issuances WHERE order_id=?", result.OrderID).Scan(&issuances)
	if issuances != 1 {
		t.Fatalf("Expected one issuance covering all lines, got %d", issuances)
	}
	var lines int
	db.QueryRow(`SELECT COUNT(*) FROM issuance_lines il
		JOIN issuances i ON il.issuance_id = i.id WHERE i.order_id=?`, result.OrderID).Scan(&lines)
	if lines != 3 {
		t.Errorf("Expected 3 issuance lines, got %d", lines)
	}
}

func TestCreateOrderNoCrossProductSubstitution(t *testing.T) {
	db := testutil.SetupTestDB(t)
	clt := testutil.CreateTestClient(t, db, "Acme")
	plenty := testutil.CreateTestProduct(t, db, "Plenty", 1.00, 100)
	scarce := testutil.CreateTestProduct(t, db, "Scarce", 1.00, 0)

	result := createOrder(t, db, ledger.OrderRequest{
		ClientID: clt,
		Lines: []ledger.OrderLineRequest{
			{ProductID: plenty, Qty: 5},
			{ProductID: scarce, Qty: 5},
		},
	})

	if result.Status != "Partially Fulfilled" {
		t.Errorf("Expected status 'Partially Fulfilled', got %q", result.Status)
	}
	// The surplus of one product never covers another's shortage
	var backProduct string
	var backQty int
	err := db.QueryRow("SELECT product_id, qty FROM backorders WHERE order_id=?", result.OrderID).Scan(&backProduct, &backQty)
	if err != nil {
		t.Fatalf("Expected a backorder for the scarce product: %v", err)
	}
	if backProduct != scarce || backQty != 5 {
		t.Errorf("Expected backorder of 5 for %s, got %d for %s", scarce, backQty, backProduct)
	}
	if got := testutil.Stock(t, db, plenty); got != 95 {
		t.Errorf("Expected plenty stock 95, got %d", got)
	}
}

func TestCreateOrderPriceSnapshot(t *testing.T) {
	db := testutil.SetupTestDB(t)
	clt := testutil.CreateTestClient(t, db, "Acme")
	prd := testutil.CreateTestProduct(t, db, "Widget", 3.00, 10)

	result := createOrder(t, db, ledger.OrderRequest{
		ClientID: clt,
		Lines:    []ledger.OrderLineRequest{{ProductID: prd, Qty: 2}},
	})

	// Price change after the order must not affect the snapshot
	if _, err := db.Exec("UPDATE products SET price=99.99 WHERE id=?", prd); err != nil {
		t.Fatal(err)
	}

	var unitPrice float64
	if err := db.QueryRow("SELECT unit_price FROM order_lines WHERE order_id=?", result.OrderID).Scan(&unitPrice); err != nil {
		t.Fatal(err)
	}
	if unitPrice != 3.00 {
		t.Errorf("Expected snapshotted unit price 3.00, got %.2f", unitPrice)
	}

	var total float64
	db.QueryRow("SELECT total FROM orders WHERE id=?", result.OrderID).Scan(&total)
	if math.Abs(total-6.00) > 0.001 {
		t.Errorf("Expected total 6.00, got %.2f", total)
	}
}

func TestCreateOrderTotalMatchesLines(t *testing.T) {
	db := testutil.SetupTestDB(t)
	clt := testutil.CreateTestClient(t, db, "Acme")
	a := testutil.CreateTestProduct(t, db, "Alpha", 1.99, 1)
	b := testutil.CreateTestProduct(t, db, "Beta", 0.33, 0)

	result := createOrder(t, db, ledger.OrderRequest{
		ClientID: clt,
		Lines: []ledger.OrderLineRequest{
			{ProductID: a, Qty: 3},
			{ProductID: b, Qty: 7},
		},
	})

	var sum float64
	db.QueryRow("SELECT SUM(qty * unit_price) FROM order_lines WHERE order_id=?", result.OrderID).Scan(&sum)
	if math.Abs(result.Total-math.Round(sum*100)/100) > 0.001 {
		t.Errorf("Expected total %.2f to match line sum %.2f", result.Total, sum)
	}
}

func TestCreateOrderUnknownClient(t *testing.T) {
	db := testutil.SetupTestDB(t)
	prd := testutil.CreateTestProduct(t, db, "Widget", 1.00, 5)

	err := database.WithTx(db, func(tx *sql.Tx) error {
		_, err := ledger.CreateOrder(tx, ledger.OrderRequest{
			ClientID: "CLT-9999",
			Lines:    []ledger.OrderLineRequest{{ProductID: prd, Qty: 1}},
		})
		return err
	})
	var notFound *ledger.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected NotFoundError for client, got %v", err)
	}
	if notFound.Kind != "client" {
		t.Errorf("Expected kind 'client', got %q", notFound.Kind)
	}
}

func TestCreateOrderUnknownProductRollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	clt := testutil.CreateTestClient(t, db, "Acme")
	prd := testutil.CreateTestProduct(t, db, "Widget", 1.00, 5)

	err := database.WithTx(db, func(tx *sql.Tx) error {
		_, err := ledger.CreateOrder(tx, ledger.OrderRequest{
			ClientID: clt,
			Lines: []ledger.OrderLineRequest{
				{ProductID: prd, Qty: 2},
				{ProductID: "PRD-9999", Qty: 1},
			},
		})
		return err
	})
	if err == nil {
		t.Fatal("Expected order creation to fail")
	}

	var orders int
	db.QueryRow("SELECT COUNT(*) FROM orders").Scan(&orders)
	if orders != 0 {
		t.Errorf("Expected no orders after rollback, got %d", orders)
	}
	if got := testutil.Stock(t, db, prd); got != 5 {
		t.Errorf("Expected stock unchanged at 5, got %d", got)
	}
}
