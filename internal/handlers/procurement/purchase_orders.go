package procurement

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

// ListPOs handles GET /api/v1/pos.
func (h *Handler) ListPOs(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	query := "SELECT id,supplier_id,status,COALESCE(expected_date,''),received_at,COALESCE(created_by,''),created_at FROM purchase_orders"
	var args []interface{}
	if status != "" {
		query += " WHERE status=?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	var items []models.PurchaseOrder
	for rows.Next() {
		var p models.PurchaseOrder
		var ra sql.NullString
		rows.Scan(&p.ID, &p.SupplierID, &p.Status, &p.ExpectedDate, &ra, &p.CreatedBy, &p.CreatedAt)
		p.ReceivedAt = database.SP(ra)
		items = append(items, p)
	}
	if items == nil {
		items = []models.PurchaseOrder{}
	}
	response.JSON(w, items)
}

// GetPO handles GET /api/v1/pos/:id.
func (h *Handler) GetPO(w http.ResponseWriter, r *http.Request, id string) {
	var p models.PurchaseOrder
	var ra sql.NullString
	err := h.DB.QueryRow("SELECT id,supplier_id,status,COALESCE(expected_date,''),received_at,COALESCE(created_by,''),created_at FROM purchase_orders WHERE id=?", id).
		Scan(&p.ID, &p.SupplierID, &p.Status, &p.ExpectedDate, &ra, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		response.Err(w, "not found", 404)
		return
	}
	p.ReceivedAt = database.SP(ra)

	rows, _ := h.DB.Query("SELECT id,po_id,product_id,qty FROM po_lines WHERE po_id=?", id)
	if rows != nil {
		defer rows.Close()
		for rows.Next() {
			var l models.POLine
			rows.Scan(&l.ID, &l.POID, &l.ProductID, &l.Qty)
			p.Lines = append(p.Lines, l)
		}
	}
	if p.Lines == nil {
		p.Lines = []models.POLine{}
	}
	response.JSON(w, p)
}

type poBody struct {
	SupplierID   string `json:"supplier_id"`
	ExpectedDate string `json:"expected_date"`
	Lines        []struct {
		ProductID string `json:"product_id"`
		Qty       int    `json:"qty"`
	} `json:"lines"`
	BackorderIDs []string `json:"backorder_ids"`
}

// CreatePO handles POST /api/v1/pos. Pending backorders passed in
// backorder_ids are linked to the new PO so receipt can resolve them.
func (h *Handler) CreatePO(w http.ResponseWriter, r *http.Request) {
	var body poBody
	if err := response.DecodeBody(r, &body); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "supplier_id", body.SupplierID)
	validation.ValidateForeignKey(ve, h.DB, "supplier_id", "suppliers", body.SupplierID)
	validation.ValidateDate(ve, "expected_date", body.ExpectedDate)
	if len(body.Lines) == 0 {
		ve.Add("lines", "at least one line is required")
	}
	for i, l := range body.Lines {
		validation.RequireField(ve, fmt.Sprintf("lines[%d].product_id", i), l.ProductID)
		validation.ValidateForeignKey(ve, h.DB, fmt.Sprintf("lines[%d].product_id", i), "products", l.ProductID)
		validation.ValidatePositiveInt(ve, fmt.Sprintf("lines[%d].qty", i), l.Qty)
		validation.ValidateMaxQuantity(ve, fmt.Sprintf("lines[%d].qty", i), l.Qty)
	}
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	createdBy := audit.GetUsername(h.DB, r)
	var poID string
	err := database.WithTx(h.DB, func(tx *sql.Tx) error {
		poID = database.NextID(tx, "PO", 4)
		_, err := tx.Exec(`INSERT INTO purchase_orders (id,supplier_id,status,expected_date,created_by,created_at)
			VALUES (?,?,'Pending',?,?,?)`,
			poID, body.SupplierID, body.ExpectedDate, createdBy, database.Now())
		if err != nil {
			return err
		}
		for _, l := range body.Lines {
			if _, err := tx.Exec("INSERT INTO po_lines (po_id,product_id,qty) VALUES (?,?,?)", poID, l.ProductID, l.Qty); err != nil {
				return err
			}
		}
		for _, boID := range body.BackorderIDs {
			res, err := tx.Exec("UPDATE backorders SET purchase_order_id=? WHERE id=? AND status='Pending'", poID, boID)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("backorder %s not found or not pending", boID)
			}
		}
		return nil
	})
	if err != nil {
		response.Err(w, err.Error(), 400)
		return
	}

	audit.LogAudit(h.DB, h.Hub, createdBy, "created", "po", poID,
		fmt.Sprintf("Created PO %s with %d line(s)", poID, len(body.Lines)))
	h.GetPO(w, r, poID)
}

// UpdatePOStatus handles PUT /api/v1/pos/:id/status. Moving a PO to
// Received runs the full reconciliation — stock increments, backorder
// auto-issuances, and the awaiting-order sweep — in one transaction.
// Receiving an already-Received PO is a no-op.
func (h *Handler) UpdatePOStatus(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Status string `json:"status"`
	}
	if err := response.DecodeBody(r, &body); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "status", body.Status)
	validation.ValidateEnum(ve, "status", body.Status, validation.ValidPOStatuses)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	if body.Status != "Received" {
		var current string
		err := h.DB.QueryRow("SELECT status FROM purchase_orders WHERE id=?", id).Scan(&current)
		if err != nil {
			response.Err(w, "not found", 404)
			return
		}
		if current == "Received" {
			response.Err(w, "received purchase orders cannot change status", 400)
			return
		}
		h.DB.Exec("UPDATE purchase_orders SET status=? WHERE id=?", body.Status, id)
		audit.LogAudit(h.DB, h.Hub, audit.GetUsername(h.DB, r), "updated", "po", id, "PO "+id+" marked "+body.Status)
		h.GetPO(w, r, id)
		return
	}

	var received bool
	var advanced int
	err := database.WithTx(h.DB, func(tx *sql.Tx) error {
		var err error
		received, err = ledger.ReceivePurchaseOrder(tx, id)
		if err != nil || !received {
			return err
		}
		advanced, err = ledger.AdvanceAwaitingOrders(tx)
		return err
	})
	if err != nil {
		var nf *ledger.NotFoundError
		if errors.As(err, &nf) {
			response.Err(w, nf.Error(), 404)
			return
		}
		response.Err(w, err.Error(), 500)
		return
	}

	if received {
		username := audit.GetUsername(h.DB, r)
		audit.LogAudit(h.DB, h.Hub, username, "received", "po", id,
			fmt.Sprintf("Received PO %s (%d waiting order(s) advanced)", id, advanced))
		notify.Create(h.DB, h.Hub, "po_received", "info", "PO "+id+" received",
			fmt.Sprintf("%d waiting order(s) advanced", advanced), id, "purchase_orders")
	}
	h.GetPO(w, r, id)
}

// ListBackorders handles GET /api/v1/backorders.
func (h *Handler) ListBackorders(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	query := `SELECT id,order_id,client_id,product_id,qty,status,COALESCE(purchase_order_id,''),created_at,fulfilled_at FROM backorders`
	var args []interface{}
	if status != "" {
		query += " WHERE status=?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := h.DB.Query(query, args...)
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
