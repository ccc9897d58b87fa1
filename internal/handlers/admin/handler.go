package admin

import (
	"database/sql"

	"depot/internal/websocket"
)

// Handler holds dependencies for auth, user, and settings handlers.
type Handler struct {
	DB  *sql.DB
	Hub *websocket.Hub
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserResponse is the user payload returned by auth endpoints.
type UserResponse struct {
	ID          int    `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}
