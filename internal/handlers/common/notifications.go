package common

import (
	"database/sql"
	"net/http"
	"strconv"

	"depot/internal/database"
	"depot/internal/models"
	"depot/internal/response"
)

// ListNotifications handles GET /api/v1/notifications. ?unread=true
// filters to notifications without a read_at timestamp.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	query := "SELECT id,type,severity,title,message,record_id,module,read_at,created_at FROM notifications"
	if r.URL.Query().Get("unread") == "true" {
		query += " WHERE read_at IS NULL"
	}
	query += " ORDER BY created_at DESC LIMIT 200"

	rows, err := h.DB.Query(query)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	var items []models.Notification
	for rows.Next() {
		var n models.Notification
		var msg, rec, mod, read sql.NullString
		rows.Scan(&n.ID, &n.Type, &n.Severity, &n.Title, &msg, &rec, &mod, &read, &n.CreatedAt)
		n.Message = database.SP(msg)
		n.RecordID = database.SP(rec)
		n.Module = database.SP(mod)
		n.ReadAt = database.SP(read)
		items = append(items, n)
	}
	if items == nil {
		items = []models.Notification{}
	}
	response.JSON(w, items)
}

// MarkRead handles PUT /api/v1/notifications/:id/read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request, id string) {
	nid, err := strconv.Atoi(id)
	if err != nil {
		response.Err(w, "invalid notification id", 400)
		return
	}
	res, err := h.DB.Exec("UPDATE notifications SET read_at=? WHERE id=? AND read_at IS NULL", database.Now(), nid)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		response.Err(w, "not found or already read", 404)
		return
	}
	response.JSON(w, map[string]string{"status": "read"})
}

// MarkAllRead handles PUT /api/v1/notifications/read-all.
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	res, err := h.DB.Exec("UPDATE notifications SET read_at=? WHERE read_at IS NULL", database.Now())
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	n, _ := res.RowsAffected()
	response.JSON(w, map[string]int64{"marked": n})
}
