package admin

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"depot/internal/response"
)

const sessionCookie = "depot_session"

// Login authenticates a user and creates a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	var id int
	var passwordHash, displayName, role string
	var active int
	err := h.DB.QueryRow("SELECT id, password_hash, display_name, role, active FROM users WHERE username=?", req.Username).
		Scan(&id, &passwordHash, &displayName, &role, &active)
	if err != nil {
		response.Err(w, "invalid username or password", 401)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
		response.Err(w, "invalid username or password", 401)
		return
	}
	if active == 0 {
		response.Err(w, "account deactivated", 403)
		return
	}

	h.DB.Exec("DELETE FROM sessions WHERE expires_at < ?", time.Now().Format("2006-01-02 15:04:05"))

	token := uuid.NewString()
	expires := time.Now().Add(24 * time.Hour)
	_, err = h.DB.Exec("INSERT INTO sessions (token, user_id, expires_at) VALUES (?,?,?)",
		token, id, expires.Format("2006-01-02 15:04:05"))
	if err != nil {
		response.Err(w, "failed to create session", 500)
		return
	}

	h.DB.Exec("UPDATE users SET last_login=? WHERE id=?", time.Now().Format("2006-01-02 15:04:05"), id)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
	response.JSON(w, UserResponse{ID: id, Username: req.Username, DisplayName: displayName, Role: role})
}

// Logout destroys the session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		h.DB.Exec("DELETE FROM sessions WHERE token=?", cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	response.JSON(w, map[string]string{"status": "ok"})
}

// Me returns the current user's info.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		response.Err(w, "unauthorized", 401)
		return
	}

	var u UserResponse
	err = h.DB.QueryRow(`SELECT u.id, u.username, u.display_name, u.role
		FROM sessions s JOIN users u ON s.user_id = u.id
		WHERE s.token=? AND s.expires_at > ?`, cookie.Value, time.Now().Format("2006-01-02 15:04:05")).
		Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role)
	if err != nil {
		response.Err(w, "unauthorized", 401)
		return
	}
	response.JSON(w, u)
}

// ChangePassword changes the current user's password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		response.Err(w, "unauthorized", 401)
		return
	}
	var userID int
	err = h.DB.QueryRow("SELECT user_id FROM sessions WHERE token=? AND expires_at > ?",
		cookie.Value, time.Now().Format("2006-01-02 15:04:05")).Scan(&userID)
	if err != nil {
		response.Err(w, "unauthorized", 401)
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}
	if len(req.NewPassword) < 8 {
		response.Err(w, "new password must be at least 8 characters", 400)
		return
	}

	var currentHash string
	if err := h.DB.QueryRow("SELECT password_hash FROM users WHERE id=?", userID).Scan(&currentHash); err != nil {
		response.Err(w, "user not found", 404)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(currentHash), []byte(req.CurrentPassword)); err != nil {
		response.Err(w, "current password is incorrect", 401)
		return
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		response.Err(w, "failed to hash password", 500)
		return
	}
	if _, err := h.DB.Exec("UPDATE users SET password_hash=? WHERE id=?", string(newHash), userID); err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	response.JSON(w, map[string]string{"status": "password_changed"})
}
