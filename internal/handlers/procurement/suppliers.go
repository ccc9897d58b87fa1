package procurement

import (
	"net/http"

	"depot/internal/audit"
	"depot/internal/database"
	"depot/internal/models"
	"depot/internal/response"
	"depot/internal/validation"
)

// ListSuppliers handles GET /api/v1/suppliers.
func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.DB.Query(`SELECT id,name,COALESCE(contact_name,''),COALESCE(contact_email,''),COALESCE(contact_phone,''),
		COALESCE(address,''),lead_time_days,COALESCE(notes,''),created_at FROM suppliers ORDER BY name`)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	var items []models.Supplier
	for rows.Next() {
		var s models.Supplier
		rows.Scan(&s.ID, &s.Name, &s.ContactName, &s.ContactEmail, &s.ContactPhone, &s.Address, &s.LeadTimeDays, &s.Notes, &s.CreatedAt)
		items = append(items, s)
	}
	if items == nil {
		items = []models.Supplier{}
	}
	response.JSON(w, items)
}

// GetSupplier handles GET /api/v1/suppliers/:id.
func (h *Handler) GetSupplier(w http.ResponseWriter, r *http.Request, id string) {
	var s models.Supplier
	err := h.DB.QueryRow(`SELECT id,name,COALESCE(contact_name,''),COALESCE(contact_email,''),COALESCE(contact_phone,''),
		COALESCE(address,''),lead_time_days,COALESCE(notes,''),created_at FROM suppliers WHERE id=?`, id).
		Scan(&s.ID, &s.Name, &s.ContactName, &s.ContactEmail, &s.ContactPhone, &s.Address, &s.LeadTimeDays, &s.Notes, &s.CreatedAt)
	if err != nil {
		response.Err(w, "not found", 404)
		return
	}
	response.JSON(w, s)
}

// CreateSupplier handles POST /api/v1/suppliers.
func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var s models.Supplier
	if err := response.DecodeBody(r, &s); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "name", s.Name)
	validation.ValidateEmail(ve, "contact_email", s.ContactEmail)
	if s.LeadTimeDays < 0 {
		ve.Add("lead_time_days", "must be non-negative")
	}
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	s.ID = database.NextID(h.DB, "SUP", 4)
	now := database.Now()
	_, err := h.DB.Exec(`INSERT INTO suppliers (id,name,contact_name,contact_email,contact_phone,address,lead_time_days,notes,created_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		s.ID, s.Name, s.ContactName, s.ContactEmail, s.ContactPhone, s.Address, s.LeadTimeDays, s.Notes, now)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	s.CreatedAt = now
	audit.LogAudit(h.DB, h.Hub, audit.GetUsername(h.DB, r), "created", "supplier", s.ID, "Created supplier "+s.Name)
	response.JSON(w, s)
}

// UpdateSupplier handles PUT /api/v1/suppliers/:id.
func (h *Handler) UpdateSupplier(w http.ResponseWriter, r *http.Request, id string) {
	var s models.Supplier
	if err := response.DecodeBody(r, &s); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "name", s.Name)
	validation.ValidateEmail(ve, "contact_email", s.ContactEmail)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	res, err := h.DB.Exec(`UPDATE suppliers SET name=?,contact_name=?,contact_email=?,contact_phone=?,address=?,lead_time_days=?,notes=? WHERE id=?`,
		s.Name, s.ContactName, s.ContactEmail, s.ContactPhone, s.Address, s.LeadTimeDays, s.Notes, id)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		response.Err(w, "not found", 404)
		return
	}
	audit.LogAudit(h.DB, h.Hub, audit.GetUsername(h.DB, r), "updated", "supplier", id, "Updated supplier "+id)
	h.GetSupplier(w, r, id)
}

// DeleteSupplier handles DELETE /api/v1/suppliers/:id. Suppliers with
// purchase orders or products cannot be deleted.
func (h *Handler) DeleteSupplier(w http.ResponseWriter, r *http.Request, id string) {
	var refs int
	h.DB.QueryRow("SELECT (SELECT COUNT(*) FROM purchase_orders WHERE supplier_id=?) + (SELECT COUNT(*) FROM products WHERE supplier_id=?)", id, id).Scan(&refs)
	if refs > 0 {
		response.Err(w, "supplier has purchase orders or products and cannot be deleted", 409)
		return
	}
	res, err := h.DB.Exec("DELETE FROM suppliers WHERE id=?", id)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		response.Err(w, "not found", 404)
		return
	}
	audit.LogAudit(h.DB, h.Hub, audit.GetUsername(h.DB, r), "deleted", "supplier", id, "Deleted supplier "+id)
	response.JSON(w, map[string]string{"status": "deleted"})
}
