package procurement

import (
	"database/sql"

	"depot/internal/websocket"
)

// Handler holds dependencies for supplier and purchase order handlers.
type Handler struct {
	DB  *sql.DB
	Hub *websocket.Hub
}
