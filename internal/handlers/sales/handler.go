package sales

import (
	"database/sql"

	"depot/internal/websocket"
)

// Handler holds dependencies for client, order, and issuance handlers.
type Handler struct {
	DB  *sql.DB
	Hub *websocket.Hub
}
