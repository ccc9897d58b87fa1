package sales

import (
	"database/sql"
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

// ListIssuances handles GET /api/v1/issuances.
func (h *Handler) ListIssuances(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	query := "SELECT id,number,client_id,COALESCE(order_id,''),COALESCE(issued_by,''),COALESCE(remarks,''),created_at FROM issuances"
	var args []interface{}
	if clientID != "" {
		query += " WHERE client_id=?"
		args = append(args, clientID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	var items []models.Issuance
	for rows.Next() {
		var i models.Issuance
		rows.Scan(&i.ID, &i.Number, &i.ClientID, &i.OrderID, &i.IssuedBy, &i.Remarks, &i.CreatedAt)
		items = append(items, i)
	}
	if items == nil {
		items = []models.Issuance{}
	}
	response.JSON(w, items)
}

// GetIssuance handles GET /api/v1/issuances/:id.
func (h *Handler) GetIssuance(w http.ResponseWriter, r *http.Request, id string) {
	var i models.Issuance
	err := h.DB.QueryRow("SELECT id,number,client_id,COALESCE(order_id,''),COALESCE(issued_by,''),COALESCE(remarks,''),created_at FROM issuances WHERE id=?", id).
		Scan(&i.ID, &i.Number, &i.ClientID, &i.OrderID, &i.IssuedBy, &i.Remarks, &i.CreatedAt)
	if err != nil {
		response.Err(w, "not found", 404)
		return
	}

	rows, _ := h.DB.Query("SELECT id,issuance_id,product_id,qty FROM issuance_lines WHERE issuance_id=?", id)
	if rows != nil {
		defer rows.Close()
		for rows.Next() {
			var l models.IssuanceLine
			rows.Scan(&l.ID, &l.IssuanceID, &l.ProductID, &l.Qty)
			i.Lines = append(i.Lines, l)
		}
	}
	if i.Lines == nil {
		i.Lines = []models.IssuanceLine{}
	}
	response.JSON(w, i)
}

type issuanceBody struct {
	ClientID string `json:"client_id"`
	Lines    []struct {
		ProductID string `json:"product_id"`
		Qty       int    `json:"qty"`
	} `json:"lines"`
	IssuedBy string `json:"issued_by"`
	OrderID  string `json:"order_id"`
	Remarks  string `json:"remarks"`
}

// CreateIssuance handles POST /api/v1/issuances: a standalone issuance
// not driven by order creation. All stock decrements and the issuance
// document commit together or not at all.
func (h *Handler) CreateIssuance(w http.ResponseWriter, r *http.Request) {
	var body issuanceBody
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
	}
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	issuedBy := body.IssuedBy
	if issuedBy == "" {
		issuedBy = audit.GetUsername(h.DB, r)
	}
	req := ledger.IssuanceRequest{
		ClientID: body.ClientID,
		IssuedBy: issuedBy,
		OrderID:  body.OrderID,
		Remarks:  body.Remarks,
	}
	for _, l := range body.Lines {
		req.Lines = append(req.Lines, ledger.IssuanceLine{ProductID: l.ProductID, Qty: l.Qty})
	}

	var issuanceID string
	err := database.WithTx(h.DB, func(tx *sql.Tx) error {
		var err error
		issuanceID, err = ledger.CreateIssuance(tx, req)
		return err
	})
	if err != nil {
		writeLedgerErr(w, err)
		return
	}

	audit.LogAudit(h.DB, h.Hub, issuedBy, "created", "issuance", issuanceID,
		fmt.Sprintf("Issued %d line(s) to %s", len(req.Lines), req.ClientID))
	notify.Create(h.DB, h.Hub, "issuance_created", "info",
		"Goods issued to "+req.ClientID, "", issuanceID, "issuances")
	h.GetIssuance(w, r, issuanceID)
}

// DeleteIssuance handles DELETE /api/v1/issuances/:id. Stock
// restoration and document deletion are atomic, and the awaiting-order
// sweep runs in the same transaction since the restored stock may
// unblock other orders.
func (h *Handler) DeleteIssuance(w http.ResponseWriter, r *http.Request, id string) {
	err := database.WithTx(h.DB, func(tx *sql.Tx) error {
		if err := ledger.DeleteIssuance(tx, id); err != nil {
			return err
		}
		_, err := ledger.AdvanceAwaitingOrders(tx)
		return err
	})
	if err != nil {
		writeLedgerErr(w, err)
		return
	}

	audit.LogAudit(h.DB, h.Hub, audit.GetUsername(h.DB, r), "deleted", "issuance", id, "Deleted issuance "+id+" and restored stock")
	response.JSON(w, map[string]string{"status": "deleted"})
}
