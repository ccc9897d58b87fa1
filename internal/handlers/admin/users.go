package admin

import (
	"database/sql"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"depot/internal/audit"
	"depot/internal/database"
	"depot/internal/models"
	"depot/internal/response"
	"depot/internal/validation"
)

// ListUsers handles GET /api/v1/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.DB.Query("SELECT id,username,COALESCE(display_name,''),role,active,last_login,created_at FROM users ORDER BY username")
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	var items []models.User
	for rows.Next() {
		var u models.User
		var active int
		var ll sql.NullString
		rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role, &active, &ll, &u.CreatedAt)
		u.Active = active != 0
		u.LastLogin = database.SP(ll)
		items = append(items, u)
	}
	if items == nil {
		items = []models.User{}
	}
	response.JSON(w, items)
}

// CreateUser handles POST /api/v1/users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
		Password    string `json:"password"`
		Role        string `json:"role"`
	}
	if err := response.DecodeBody(r, &body); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "username", body.Username)
	validation.RequireField(ve, "role", body.Role)
	validation.ValidateEnum(ve, "role", body.Role, validation.ValidUserRoles)
	if len(body.Password) < 8 {
		ve.Add("password", "must be at least 8 characters")
	}
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		response.Err(w, "failed to hash password", 500)
		return
	}

	res, err := h.DB.Exec("INSERT INTO users (username,display_name,password_hash,role,active,created_at) VALUES (?,?,?,?,1,?)",
		body.Username, body.DisplayName, string(hash), body.Role, database.Now())
	if err != nil {
		response.Err(w, "username already exists", 409)
		return
	}
	id, _ := res.LastInsertId()

	audit.LogAudit(h.DB, h.Hub, audit.GetUsername(h.DB, r), "created", "user", body.Username, "Created user "+body.Username)
	response.JSON(w, map[string]interface{}{"id": id, "username": body.Username})
}

// UpdateUser handles PUT /api/v1/users/:id. Updates display name, role,
// and active flag; passwords change through ResetPassword.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request, id string) {
	uid, err := strconv.Atoi(id)
	if err != nil {
		response.Err(w, "invalid user id", 400)
		return
	}

	var body struct {
		DisplayName string `json:"display_name"`
		Role        string `json:"role"`
		Active      *bool  `json:"active"`
	}
	if err := response.DecodeBody(r, &body); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "role", body.Role)
	validation.ValidateEnum(ve, "role", body.Role, validation.ValidUserRoles)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	active := 1
	if body.Active != nil && !*body.Active {
		active = 0
	}
	res, err := h.DB.Exec("UPDATE users SET display_name=?, role=?, active=? WHERE id=?",
		body.DisplayName, body.Role, active, uid)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		response.Err(w, "not found", 404)
		return
	}
	if active == 0 {
		h.DB.Exec("DELETE FROM sessions WHERE user_id=?", uid)
	}
	audit.LogAudit(h.DB, h.Hub, audit.GetUsername(h.DB, r), "updated", "user", id, "Updated user "+id)
	response.JSON(w, map[string]string{"status": "updated"})
}

// ResetPassword handles PUT /api/v1/users/:id/password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request, id string) {
	uid, err := strconv.Atoi(id)
	if err != nil {
		response.Err(w, "invalid user id", 400)
		return
	}

	var body struct {
		Password string `json:"password"`
	}
	if err := response.DecodeBody(r, &body); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}
	if len(body.Password) < 8 {
		response.Err(w, "password must be at least 8 characters", 400)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		response.Err(w, "failed to hash password", 500)
		return
	}
	res, err := h.DB.Exec("UPDATE users SET password_hash=? WHERE id=?", string(hash), uid)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		response.Err(w, "not found", 404)
		return
	}
	h.DB.Exec("DELETE FROM sessions WHERE user_id=?", uid)
	audit.LogAudit(h.DB, h.Hub, audit.GetUsername(h.DB, r), "updated", "user", id, "Reset password for user "+id)
	response.JSON(w, map[string]string{"status": "password_reset"})
}
