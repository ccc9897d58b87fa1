package sales

import (
	"net/http"

	"depot/internal/audit"
	"depot/internal/database"
	"depot/internal/models"
	"depot/internal/response"
	"depot/internal/validation"
)

// ListClients handles GET /api/v1/clients.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	rows, err := h.DB.Query("SELECT id,name,COALESCE(email,''),COALESCE(phone,''),COALESCE(address,''),COALESCE(notes,''),created_at FROM clients ORDER BY name")
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	var items []models.Client
	for rows.Next() {
		var c models.Client
		rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt)
		items = append(items, c)
	}
	if items == nil {
		items = []models.Client{}
	}
	response.JSON(w, items)
}

// GetClient handles GET /api/v1/clients/:id.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request, id string) {
	var c models.Client
	err := h.DB.QueryRow("SELECT id,name,COALESCE(email,''),COALESCE(phone,''),COALESCE(address,''),COALESCE(notes,''),created_at FROM clients WHERE id=?", id).
		Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt)
	if err != nil {
		response.Err(w, "not found", 404)
		return
	}
	response.JSON(w, c)
}

// CreateClient handles POST /api/v1/clients.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var c models.Client
	if err := response.DecodeBody(r, &c); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "name", c.Name)
	validation.ValidateEmail(ve, "email", c.Email)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	c.ID = database.NextID(h.DB, "CLT", 4)
	now := database.Now()
	_, err := h.DB.Exec("INSERT INTO clients (id,name,email,phone,address,notes,created_at) VALUES (?,?,?,?,?,?,?)",
		c.ID, c.Name, c.Email, c.Phone, c.Address, c.Notes, now)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	c.CreatedAt = now
	audit.LogAudit(h.DB, h.Hub, audit.GetUsername(h.DB, r), "created", "client", c.ID, "Created client "+c.Name)
	response.JSON(w, c)
}

// UpdateClient handles PUT /api/v1/clients/:id.
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request, id string) {
	var c models.Client
	if err := response.DecodeBody(r, &c); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "name", c.Name)
	validation.ValidateEmail(ve, "email", c.Email)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	res, err := h.DB.Exec("UPDATE clients SET name=?,email=?,phone=?,address=?,notes=? WHERE id=?",
		c.Name, c.Email, c.Phone, c.Address, c.Notes, id)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		response.Err(w, "not found", 404)
		return
	}
	audit.LogAudit(h.DB, h.Hub, audit.GetUsername(h.DB, r), "updated", "client", id, "Updated client "+id)
	h.GetClient(w, r, id)
}

// DeleteClient handles DELETE /api/v1/clients/:id. Clients with orders
// or issuances cannot be deleted.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request, id string) {
	var refs int
	h.DB.QueryRow("SELECT (SELECT COUNT(*) FROM orders WHERE client_id=?) + (SELECT COUNT(*) FROM issuances WHERE client_id=?)", id, id).Scan(&refs)
	if refs > 0 {
		response.Err(w, "client has orders or issuances and cannot be deleted", 409)
		return
	}
	res, err := h.DB.Exec("DELETE FROM clients WHERE id=?", id)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		response.Err(w, "not found", 404)
		return
	}
	audit.LogAudit(h.DB, h.Hub, audit.GetUsername(h.DB, r), "deleted", "client", id, "Deleted client "+id)
	response.JSON(w, map[string]string{"status": "deleted"})
}
