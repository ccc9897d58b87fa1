package common

import (
	"net/http"

	"depot/internal/models"
	"depot/internal/response"
)

// DashboardStats is the summary payload for the dashboard landing view.
type DashboardStats struct {
	TotalProducts     int              `json:"total_products"`
	TotalClients      int              `json:"total_clients"`
	TotalSuppliers    int              `json:"total_suppliers"`
	OpenOrders        int              `json:"open_orders"`
	PendingBackorders int              `json:"pending_backorders"`
	PendingPOs        int              `json:"pending_pos"`
	IssuancesToday    int              `json:"issuances_today"`
	InventoryValue    float64          `json:"inventory_value"`
	LowStock          []models.Product `json:"low_stock"`
}

// Dashboard handles GET /api/v1/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	var s DashboardStats
	h.DB.QueryRow("SELECT COUNT(*) FROM products").Scan(&s.TotalProducts)
	h.DB.QueryRow("SELECT COUNT(*) FROM clients").Scan(&s.TotalClients)
	h.DB.QueryRow("SELECT COUNT(*) FROM suppliers").Scan(&s.TotalSuppliers)
	h.DB.QueryRow("SELECT COUNT(*) FROM orders WHERE status NOT IN ('Shipped','Cancelled')").Scan(&s.OpenOrders)
	h.DB.QueryRow("SELECT COUNT(*) FROM backorders WHERE status='Pending'").Scan(&s.PendingBackorders)
	h.DB.QueryRow("SELECT COUNT(*) FROM purchase_orders WHERE status!='Received'").Scan(&s.PendingPOs)
	h.DB.QueryRow("SELECT COUNT(*) FROM issuances WHERE date(created_at)=date('now','localtime')").Scan(&s.IssuancesToday)
	h.DB.QueryRow("SELECT COALESCE(SUM(stock*price),0) FROM products").Scan(&s.InventoryValue)

	rows, err := h.DB.Query(`SELECT id,name,COALESCE(sku,''),price,stock,reorder_point,max_stock,COALESCE(location,''),COALESCE(supplier_id,''),created_at,updated_at
		FROM products WHERE reorder_point > 0 AND stock <= reorder_point ORDER BY stock LIMIT 20`)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var p models.Product
			rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &p.Stock, &p.ReorderPoint, &p.MaxStock, &p.Location, &p.SupplierID, &p.CreatedAt, &p.UpdatedAt)
			s.LowStock = append(s.LowStock, p)
		}
	}
	if s.LowStock == nil {
		s.LowStock = []models.Product{}
	}
	response.JSON(w, s)
}

// ListAudit handles GET /api/v1/audit.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	query := "SELECT id,username,action,module,record_id,summary,created_at FROM audit_log"
	var args []interface{}
	if m := r.URL.Query().Get("module"); m != "" {
		query += " WHERE module=?"
		args = append(args, m)
	}
	query += " ORDER BY id DESC LIMIT 200"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	var items []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		rows.Scan(&e.ID, &e.Username, &e.Action, &e.Module, &e.RecordID, &e.Summary, &e.CreatedAt)
		items = append(items, e)
	}
	if items == nil {
		items = []models.AuditEntry{}
	}
	response.JSON(w, items)
}
