package procurement_test

import (
	"database/sql"
	"net/http/httptest"
	"testing"

	"depot/internal/database"
	"depot/internal/handlers/procurement"
	"depot/internal/ledger"
	"depot/internal/models"
	"depot/internal/testutil"
	"depot/internal/websocket"
)

type poLine struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

func TestCreateAndReceivePO(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := &procurement.Handler{DB: db, Hub: websocket.NewHub()}
	sup := testutil.CreateTestSupplier(t, db, "Supply Co")
	prd := testutil.CreateTestProduct(t, db, "Widget", 1.00, 0)

	req := testutil.JSONRequest("POST", "/api/v1/pos", map[string]interface{}{
		"supplier_id": sup,
		"lines":       []poLine{{ProductID: prd, Qty: 10}},
	})
	w := httptest.NewRecorder()
	h.CreatePO(w, req)
	testutil.AssertStatus(t, w, 200)

	var po models.PurchaseOrder
	testutil.DecodeEnvelope(t, w, &po)
	if po.Status != "Pending" {
		t.Errorf("Expected status 'Pending', got %q", po.Status)
	}

	w = httptest.NewRecorder()
	h.UpdatePOStatus(w, testutil.JSONRequest("PUT", "/api/v1/pos/"+po.ID+"/status",
		map[string]string{"status": "Received"}), po.ID)
	testutil.AssertStatus(t, w, 200)

	if got := testutil.Stock(t, db, prd); got != 10 {
		t.Errorf("Expected stock 10 after receipt, got %d", got)
	}

	// Receiving again must not double the stock
	w = httptest.NewRecorder()
	h.UpdatePOStatus(w, testutil.JSONRequest("PUT", "/api/v1/pos/"+po.ID+"/status",
		map[string]string{"status": "Received"}), po.ID)
	testutil.AssertStatus(t, w, 200)
	if got := testutil.Stock(t, db, prd); got != 10 {
		t.Errorf("Expected stock still 10 after duplicate receipt, got %d", got)
	}
}

func TestReceivedPOCannotChangeStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := &procurement.Handler{DB: db, Hub: websocket.NewHub()}
	sup := testutil.CreateTestSupplier(t, db, "Supply Co")
	prd := testutil.CreateTestProduct(t, db, "Widget", 1.00, 0)

	req := testutil.JSONRequest("POST", "/api/v1/pos", map[string]interface{}{
		"supplier_id": sup,
		"lines":       []poLine{{ProductID: prd, Qty: 5}},
	})
	w := httptest.NewRecorder()
	h.CreatePO(w, req)
	var po models.PurchaseOrder
	testutil.DecodeEnvelope(t, w, &po)

	w = httptest.NewRecorder()
	h.UpdatePOStatus(w, testutil.JSONRequest("PUT", "/api/v1/pos/"+po.ID+"/status",
		map[string]string{"status": "Received"}), po.ID)
	testutil.AssertStatus(t, w, 200)

	// Demoting a Received PO is refused
	w = httptest.NewRecorder()
	h.UpdatePOStatus(w, testutil.JSONRequest("PUT", "/api/v1/pos/"+po.ID+"/status",
		map[string]string{"status": "Shipped"}), po.ID)
	testutil.AssertStatus(t, w, 400)
}

func TestCreatePOLinksBackorders(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := &procurement.Handler{DB: db, Hub: websocket.NewHub()}
	clt := testutil.CreateTestClient(t, db, "Acme")
	sup := testutil.CreateTestSupplier(t, db, "Supply Co")
	prd := testutil.CreateTestProduct(t, db, "Widget", 1.00, 0)

	// Shortfall of 4 against this product
	var orderResult *ledger.OrderResult
	if err := database.WithTx(db, func(tx *sql.Tx) error {
		var err error
		orderResult, err = ledger.CreateOrder(tx, ledger.OrderRequest{
			ClientID: clt,
			Lines:    []ledger.OrderLineRequest{{ProductID: prd, Qty: 4}},
		})
		return err
	}); err != nil {
		t.Fatalf("order creation failed: %v", err)
	}

	var backorderID string
	if err := db.QueryRow("SELECT id FROM backorders WHERE order_id=?", orderResult.OrderID).Scan(&backorderID); err != nil {
		t.Fatalf("Expected a backorder: %v", err)
	}

	req := testutil.JSONRequest("POST", "/api/v1/pos", map[string]interface{}{
		"supplier_id":   sup,
		"lines":         []poLine{{ProductID: prd, Qty: 10}},
		"backorder_ids": []string{backorderID},
	})
	w := httptest.NewRecorder()
	h.CreatePO(w, req)
	testutil.AssertStatus(t, w, 200)

	var po models.PurchaseOrder
	testutil.DecodeEnvelope(t, w, &po)

	var linkedPO string
	db.QueryRow("SELECT purchase_order_id FROM backorders WHERE id=?", backorderID).Scan(&linkedPO)
	if linkedPO != po.ID {
		t.Errorf("Expected backorder linked to %s, got %q", po.ID, linkedPO)
	}

	// Receiving the PO auto-issues the backorder and fulfills the order
	w = httptest.NewRecorder()
	h.UpdatePOStatus(w, testutil.JSONRequest("PUT", "/api/v1/pos/"+po.ID+"/status",
		map[string]string{"status": "Received"}), po.ID)
	testutil.AssertStatus(t, w, 200)

	if got := testutil.Stock(t, db, prd); got != 6 {
		t.Errorf("Expected stock 6 (10 in - 4 auto-issued), got %d", got)
	}
	var orderStatus string
	db.QueryRow("SELECT status FROM orders WHERE id=?", orderResult.OrderID).Scan(&orderStatus)
	if orderStatus != "Fulfilled" {
		t.Errorf("Expected order 'Fulfilled', got %q", orderStatus)
	}
}

func TestCreatePOUnknownSupplier(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := &procurement.Handler{DB: db, Hub: websocket.NewHub()}
	prd := testutil.CreateTestProduct(t, db, "Widget", 1.00, 0)

	req := testutil.JSONRequest("POST", "/api/v1/pos", map[string]interface{}{
		"supplier_id": "SUP-9999",
		"lines":       []poLine{{ProductID: prd, Qty: 5}},
	})
	w := httptest.NewRecorder()
	h.CreatePO(w, req)
	testutil.AssertStatus(t, w, 400)
}
