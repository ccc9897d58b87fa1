package sales

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"depot/internal/audit"
	"depot/internal/database"
	"depot/internal/ledger"
	"depot/internal/models"
	"depot/internal/notify"
	"depot/internal/response"
	"depot/internal/validation"
)

// ListOrders handles GET /api/v1/orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	clientID := r.URL.Query().Get("client_id")

	query := "SELECT id,client_id,status,total,COALESCE(reordered_from,''),COALESCE(created_by,''),created_at,updated_at FROM orders"
	var conditions []string
	var args []interface{}
	if status != "" {
		conditions = append(conditions, "status=?")
		args = append(args, status)
	}
	if clientID != "" {
		conditions = append(conditions, "client_id=?")
		args = append(args, clientID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + conditions[0]
		for _, c := range conditions[1:] {
			query += " AND " + c
		}
	}
	query += " ORDER BY created_at DESC"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	var items []models.Order
	for rows.Next() {
		var o models.Order
		rows.Scan(&o.ID, &o.ClientID, &o.Status, &o.Total, &o.ReorderedFrom, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
		items = append(items, o)
	}
	if items == nil {
		items = []models.Order{}
	}
	response.JSON(w, items)
}

// GetOrder handles GET /api/v1/orders/:id.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request, id string) {
	var o models.Order
	err := h.DB.QueryRow("SELECT id,client_id,status,total,COALESCE(reordered_from,''),COALESCE(created_by,''),created_at,updated_at FROM orders WHERE id=?", id).
		Scan(&o.ID, &o.ClientID, &o.Status, &o.Total, &o.ReorderedFrom, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		response.Err(w, "not found", 404)
		return
	}
	o.Lines = h.getOrderLines(id)
	response.JSON(w, o)
}

func (h *Handler) getOrderLines(orderID string) []models.OrderLine {
	rows, err := h.DB.Query("SELECT id,order_id,product_id,qty,unit_price FROM order_lines WHERE order_id=?", orderID)
	if err != nil {
		return []models.OrderLine{}
	}
	defer rows.Close()
	var lines []models.OrderLine
	for rows.Next() {
		var l models.OrderLine
		rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Qty, &l.UnitPrice)
		lines = append(lines, l)
	}
	if lines == nil {
		lines = []models.OrderLine{}
	}
	return lines
}

// GetOrderBackorders handles GET /api/v1/orders/:id/backorders.
func (h *Handler) GetOrderBackorders(w http.ResponseWriter, r *http.Request, id string) {
	rows, err := h.DB.Query(`SELECT id,order_id,client_id,product_id,qty,status,COALESCE(purchase_order_id,''),created_at,fulfilled_at
		FROM backorders WHERE order_id=? ORDER BY created_at`, id)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	var items []models.Backorder
	for rows.Next() {
		var b models.Backorder
		var fa sql.NullString
		rows.Scan(&b.ID, &b.OrderID, &b.ClientID, &b.ProductID, &b.Qty, &b.Status, &b.PurchaseOrderID, &b.CreatedAt, &fa)
		b.FulfilledAt = database.SP(fa)
		items = append(items, b)
	}
	if items == nil {
		items = []models.Backorder{}
	}
	response.JSON(w, items)
}

type orderBody struct {
	ClientID string `json:"client_id"`
	Lines    []struct {
		ProductID string `json:"product_id"`
		Qty       int    `json:"qty"`
	} `json:"lines"`
	ReorderedFrom string `json:"reordered_from"`
}

// CreateOrder handles POST /api/v1/orders. Stock checks, the issuance
// for whatever can be fulfilled now, and any backorders all commit in
// one transaction; the notification goes out only after the commit.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var body orderBody
	if err := response.DecodeBody(r, &body); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "client_id", body.ClientID)
	if len(body.Lines) == 0 {
		ve.Add("lines", "at least one line is required")
	}
	for i, l := range body.Lines {
		validation.RequireField(ve, fmt.Sprintf("lines[%d].product_id", i), l.ProductID)
		validation.ValidatePositiveInt(ve, fmt.Sprintf("lines[%d].qty", i), l.Qty)
		validation.ValidateMaxQuantity(ve, fmt.Sprintf("lines[%d].qty", i), l.Qty)
	}
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	req := ledger.OrderRequest{
		ClientID:      body.ClientID,
		ReorderedFrom: body.ReorderedFrom,
		CreatedBy:     audit.GetUsername(h.DB, r),
	}
	for _, l := range body.Lines {
		req.Lines = append(req.Lines, ledger.OrderLineRequest{ProductID: l.ProductID, Qty: l.Qty})
	}

	var result *ledger.OrderResult
	err := database.WithTx(h.DB, func(tx *sql.Tx) error {
		var err error
		result, err = ledger.CreateOrder(tx, req)
		return err
	})
	if err != nil {
		writeLedgerErr(w, err)
		return
	}

	audit.LogAudit(h.DB, h.Hub, req.CreatedBy, "created", "order", result.OrderID,
		fmt.Sprintf("Created order %s (%s, total %.2f)", result.OrderID, result.Status, result.Total))
	notify.Create(h.DB, h.Hub, "order_created", "info",
		"Order "+result.OrderID+" created",
		fmt.Sprintf("Status: %s, total %.2f", result.Status, result.Total),
		result.OrderID, "orders")
	h.GetOrder(w, r, result.OrderID)
}

// ReorderOrder handles POST /api/v1/orders/:id/reorder. A reorder is a
// brand-new order built from the original's lines at current prices
// and stock; the fulfillment decision runs from scratch.
func (h *Handler) ReorderOrder(w http.ResponseWriter, r *http.Request, id string) {
	var clientID string
	err := h.DB.QueryRow("SELECT client_id FROM orders WHERE id=?", id).Scan(&clientID)
	if err != nil {
		response.Err(w, "not found", 404)
		return
	}

	req := ledger.OrderRequest{
		ClientID:      clientID,
		ReorderedFrom: id,
		CreatedBy:     audit.GetUsername(h.DB, r),
	}
	for _, l := range h.getOrderLines(id) {
		req.Lines = append(req.Lines, ledger.OrderLineRequest{ProductID: l.ProductID, Qty: l.Qty})
	}
	if len(req.Lines) == 0 {
		response.Err(w, "order has no lines to reorder", 400)
		return
	}

	var result *ledger.OrderResult
	err = database.WithTx(h.DB, func(tx *sql.Tx) error {
		var err error
		result, err = ledger.CreateOrder(tx, req)
		return err
	})
	if err != nil {
		writeLedgerErr(w, err)
		return
	}

	audit.LogAudit(h.DB, h.Hub, req.CreatedBy, "created", "order", result.OrderID,
		fmt.Sprintf("Reordered %s as %s", id, result.OrderID))
	notify.Create(h.DB, h.Hub, "order_created", "info",
		"Order "+result.OrderID+" created",
		"Reorder of "+id, result.OrderID, "orders")
	h.GetOrder(w, r, result.OrderID)
}

// CancelOrder handles PUT /api/v1/orders/:id/cancel. Cancellation is
// a soft termination: issuances and backorders already linked to the
// order are left untouched.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request, id string) {
	var status string
	err := h.DB.QueryRow("SELECT status FROM orders WHERE id=?", id).Scan(&status)
	if err != nil {
		response.Err(w, "not found", 404)
		return
	}
	if status == "Cancelled" {
		response.Err(w, "order is already cancelled", 400)
		return
	}
	if status == "Shipped" {
		response.Err(w, "shipped orders cannot be cancelled", 400)
		return
	}
	h.DB.Exec("UPDATE orders SET status='Cancelled', updated_at=? WHERE id=?", database.Now(), id)
	audit.LogAudit(h.DB, h.Hub, audit.GetUsername(h.DB, r), "cancelled", "order", id, "Cancelled order "+id)
	h.GetOrder(w, r, id)
}

// ShipOrder handles PUT /api/v1/orders/:id/ship. Shipping is an
// external transition accepted once all goods have been issued.
func (h *Handler) ShipOrder(w http.ResponseWriter, r *http.Request, id string) {
	var status string
	err := h.DB.QueryRow("SELECT status FROM orders WHERE id=?", id).Scan(&status)
	if err != nil {
		response.Err(w, "not found", 404)
		return
	}
	if status != "Ready for Issuance" && status != "Fulfilled" {
		response.Err(w, fmt.Sprintf("order must be 'Ready for Issuance' or 'Fulfilled' to ship (currently '%s')", status), 400)
		return
	}
	h.DB.Exec("UPDATE orders SET status='Shipped', updated_at=? WHERE id=?", database.Now(), id)
	audit.LogAudit(h.DB, h.Hub, audit.GetUsername(h.DB, r), "shipped", "order", id, "Shipped order "+id)
	h.GetOrder(w, r, id)
}

// DeleteOrder handles DELETE /api/v1/orders/:id. An order can only be
// hard-deleted while nothing depends on it: no linked issuance and no
// fulfilled backorder. Its pending backorders are removed with it.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request, id string) {
	var count int
	err := h.DB.QueryRow("SELECT COUNT(*) FROM orders WHERE id=?", id).Scan(&count)
	if err != nil || count == 0 {
		response.Err(w, "not found", 404)
		return
	}

	var issuances, fulfilled int
	h.DB.QueryRow("SELECT COUNT(*) FROM issuances WHERE order_id=?", id).Scan(&issuances)
	h.DB.QueryRow("SELECT COUNT(*) FROM backorders WHERE order_id=? AND status='Fulfilled'", id).Scan(&fulfilled)
	if issuances > 0 || fulfilled > 0 {
		response.Err(w, "order has issuances or fulfilled backorders and cannot be deleted", 409)
		return
	}

	err = database.WithTx(h.DB, func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM backorders WHERE order_id=?", id); err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM order_lines WHERE order_id=?", id); err != nil {
			return err
		}
		_, err := tx.Exec("DELETE FROM orders WHERE id=?", id)
		return err
	})
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	audit.LogAudit(h.DB, h.Hub, audit.GetUsername(h.DB, r), "deleted", "order", id, "Deleted order "+id)
	response.JSON(w, map[string]string{"status": "deleted"})
}

// writeLedgerErr maps ledger errors onto HTTP status codes.
func writeLedgerErr(w http.ResponseWriter, err error) {
	var nf *ledger.NotFoundError
	var is *ledger.InsufficientStockError
	switch {
	case errors.As(err, &nf):
		response.Err(w, nf.Error(), 404)
	case errors.As(err, &is):
		response.Err(w, is.Error(), 409)
	default:
		response.Err(w, err.Error(), 500)
	}
}
