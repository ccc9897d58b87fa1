package inventory_test

import (
	"net/http/httptest"
	"testing"

	"depot/internal/handlers/inventory"
	"depot/internal/models"
	"depot/internal/testutil"
	"depot/internal/websocket"
)

func TestCreateProductRecordsInitialStock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := &inventory.Handler{DB: db, Hub: websocket.NewHub()}

	req := testutil.JSONRequest("POST", "/api/v1/products", map[string]interface{}{
		"name":  "Widget",
		"price": 2.50,
		"stock": 25,
	})
	w := httptest.NewRecorder()
	h.CreateProduct(w, req)
	testutil.AssertStatus(t, w, 200)

	var p models.Product
	testutil.DecodeEnvelope(t, w, &p)
	if p.Stock != 25 {
		t.Errorf("Expected stock 25, got %d", p.Stock)
	}

	// Initial stock must leave a history trail
	var historyStock int
	var reason string
	err := db.QueryRow("SELECT stock, reason FROM stock_history WHERE product_id=?", p.ID).Scan(&historyStock, &reason)
	if err != nil {
		t.Fatalf("Expected a stock_history row: %v", err)
	}
	if historyStock != 25 || reason != "initial stock" {
		t.Errorf("Expected history (25, 'initial stock'), got (%d, %q)", historyStock, reason)
	}
}

func TestAdjustStock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := &inventory.Handler{DB: db, Hub: websocket.NewHub()}
	prd := testutil.CreateTestProduct(t, db, "Widget", 1.00, 10)

	req := testutil.JSONRequest("POST", "/api/v1/products/"+prd+"/adjust", map[string]interface{}{
		"delta":  -4,
		"reason": "cycle count",
	})
	w := httptest.NewRecorder()
	h.AdjustStock(w, req, prd)
	testutil.AssertStatus(t, w, 200)

	if got := testutil.Stock(t, db, prd); got != 6 {
		t.Errorf("Expected stock 6, got %d", got)
	}

	// Driving stock below zero is refused
	req = testutil.JSONRequest("POST", "/api/v1/products/"+prd+"/adjust", map[string]interface{}{
		"delta": -100,
	})
	w = httptest.NewRecorder()
	h.AdjustStock(w, req, prd)
	testutil.AssertStatus(t, w, 409)
	if got := testutil.Stock(t, db, prd); got != 6 {
		t.Errorf("Expected stock unchanged at 6, got %d", got)
	}
}

func TestStockHistoryEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := &inventory.Handler{DB: db, Hub: websocket.NewHub()}
	prd := testutil.CreateTestProduct(t, db, "Widget", 1.00, 10)

	for _, delta := range []int{-2, 5, -1} {
		req := testutil.JSONRequest("POST", "/api/v1/products/"+prd+"/adjust", map[string]interface{}{"delta": delta})
		w := httptest.NewRecorder()
		h.AdjustStock(w, req, prd)
		testutil.AssertStatus(t, w, 200)
	}

	w := httptest.NewRecorder()
	h.History(w, testutil.JSONRequest("GET", "/api/v1/products/"+prd+"/history", nil), prd)
	testutil.AssertStatus(t, w, 200)

	var entries []models.StockEntry
	testutil.DecodeEnvelope(t, w, &entries)
	if len(entries) != 3 {
		t.Fatalf("Expected 3 history entries, got %d", len(entries))
	}
	// Newest first: 10-2=8, +5=13, -1=12
	if entries[0].Stock != 12 || entries[2].Stock != 8 {
		t.Errorf("Expected newest 12 and oldest 8, got %d and %d", entries[0].Stock, entries[2].Stock)
	}
}

func TestListProductsLowStockFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := &inventory.Handler{DB: db, Hub: websocket.NewHub()}

	low := testutil.CreateTestProduct(t, db, "Low", 1.00, 2)
	db.Exec("UPDATE products SET reorder_point=5 WHERE id=?", low)
	ok := testutil.CreateTestProduct(t, db, "Fine", 1.00, 50)
	db.Exec("UPDATE products SET reorder_point=5 WHERE id=?", ok)

	w := httptest.NewRecorder()
	h.ListProducts(w, testutil.JSONRequest("GET", "/api/v1/products?low_stock=true", nil))
	testutil.AssertStatus(t, w, 200)

	var items []models.Product
	testutil.DecodeEnvelope(t, w, &items)
	if len(items) != 1 {
		t.Fatalf("Expected 1 low-stock product, got %d", len(items))
	}
	if items[0].ID != low {
		t.Errorf("Expected %s, got %s", low, items[0].ID)
	}
}

func TestUpdateProductDoesNotTouchStock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := &inventory.Handler{DB: db, Hub: websocket.NewHub()}
	prd := testutil.CreateTestProduct(t, db, "Widget", 1.00, 10)

	req := testutil.JSONRequest("PUT", "/api/v1/products/"+prd, map[string]interface{}{
		"name":  "Widget v2",
		"price": 2.00,
		"stock": 999,
	})
	w := httptest.NewRecorder()
	h.UpdateProduct(w, req, prd)
	testutil.AssertStatus(t, w, 200)

	if got := testutil.Stock(t, db, prd); got != 10 {
		t.Errorf("Expected stock untouched at 10, got %d", got)
	}
	var name string
	db.QueryRow("SELECT name FROM products WHERE id=?", prd).Scan(&name)
	if name != "Widget v2" {
		t.Errorf("Expected name updated, got %q", name)
	}
}

func TestDeleteReferencedProductRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := &inventory.Handler{DB: db, Hub: websocket.NewHub()}
	prd := testutil.CreateTestProduct(t, db, "Widget", 1.00, 10)
	clt := testutil.CreateTestClient(t, db, "Acme")
	if _, err := db.Exec("INSERT INTO orders (id, client_id, status) VALUES ('ORD-0001', ?, 'Processing')", clt); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("INSERT INTO order_lines (order_id, product_id, qty) VALUES ('ORD-0001', ?, 1)", prd); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	h.DeleteProduct(w, testutil.JSONRequest("DELETE", "/api/v1/products/"+prd, nil), prd)
	testutil.AssertStatus(t, w, 409)
}
