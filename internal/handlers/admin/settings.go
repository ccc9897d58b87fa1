package admin

import (
	"net/http"

	"depot/internal/audit"
	"depot/internal/response"
)

// GetSettings handles GET /api/v1/settings, returning all settings as a
// key-value map.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	rows, err := h.DB.Query("SELECT key, value FROM settings ORDER BY key")
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	settings := map[string]string{}
	for rows.Next() {
		var k, v string
		rows.Scan(&k, &v)
		settings[k] = v
	}
	response.JSON(w, settings)
}

// UpdateSettings handles PUT /api/v1/settings, upserting the provided
// key-value pairs.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := response.DecodeBody(r, &body); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}
	if len(body) == 0 {
		response.Err(w, "no settings provided", 400)
		return
	}

	for k, v := range body {
		if _, err := h.DB.Exec("INSERT INTO settings (key, value) VALUES (?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value", k, v); err != nil {
			response.Err(w, err.Error(), 500)
			return
		}
	}
	audit.LogAudit(h.DB, h.Hub, audit.GetUsername(h.DB, r), "updated", "settings", "", "Updated settings")
	h.GetSettings(w, r)
}
