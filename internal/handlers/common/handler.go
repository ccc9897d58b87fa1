package common

import (
	"database/sql"

	"depot/internal/websocket"
)

// Handler holds dependencies for notification, dashboard, and export handlers.
type Handler struct {
	DB  *sql.DB
	Hub *websocket.Hub
}
