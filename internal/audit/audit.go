package audit

import (
	"database/sql"
	"log"
	"net/http"

	"depot/internal/websocket"
)

// LogAudit records an audit entry and broadcasts the change to
// connected clients. Audit failures are logged, never surfaced: an
// audit write must not fail the operation it describes.
func LogAudit(db *sql.DB, hub *websocket.Hub, username, action, module, recordID, summary string) {
	_, err := db.Exec("INSERT INTO audit_log (username, action, module, record_id, summary) VALUES (?, ?, ?, ?, ?)",
		username, action, module, recordID, summary)
	if err != nil {
		log.Printf("audit log error: %v", err)
	}
	if hub != nil {
		hub.Broadcast(websocket.Event{Type: action, Module: module, ID: recordID})
	}
}

// GetUsername extracts the username from a session cookie, falling
// back to "system" for unauthenticated or expired sessions.
func GetUsername(db *sql.DB, r *http.Request) string {
	cookie, err := r.Cookie("depot_session")
	if err != nil {
		return "system"
	}
	var username string
	err = db.QueryRow(`SELECT u.username FROM users u JOIN sessions s ON u.id = s.user_id
		WHERE s.token = ? AND s.expires_at > CURRENT_TIMESTAMP`, cookie.Value).Scan(&username)
	if err != nil {
		return "system"
	}
	return username
}
