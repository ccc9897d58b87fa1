package notify

import (
	"database/sql"
	"log"

	"depot/internal/websocket"
)

// Create inserts a notification feed entry and broadcasts it.
// Best-effort by design: callers invoke this after their transaction
// has committed, and a failed notification never affects the outcome
// it announces.
func Create(db *sql.DB, hub *websocket.Hub, ntype, severity, title, message, recordID, module string) {
	_, err := db.Exec(`INSERT INTO notifications (type, severity, title, message, record_id, module)
		VALUES (?, ?, ?, ?, ?, ?)`, ntype, severity, title, message, recordID, module)
	if err != nil {
		log.Printf("notify: %v", err)
		return
	}
	if hub != nil {
		hub.Broadcast(websocket.Event{Type: "notification", Module: module, ID: recordID})
	}
}
