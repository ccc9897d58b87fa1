package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"
)

type ctxKey string

// Context keys set by RequireAuth.
const (
	CtxUserID ctxKey = "user_id"
	CtxRole   ctxKey = "role"
)

// LoggingMiddleware logs request method, path, and duration. Also sets CORS headers.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(401)
	json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized", "code": "UNAUTHORIZED"})
}

// RequireAuth returns an auth middleware that checks the session cookie
// on /api/ routes. Auth endpoints, the websocket upgrade, and static
// assets pass through.
func RequireAuth(dbConn *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if !strings.HasPrefix(path, "/api/") || path == "/api/health" {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie("depot_session")
			if err != nil {
				writeUnauthorized(w)
				return
			}

			var userID int
			var role string
			var active int
			err = dbConn.QueryRow(`SELECT s.user_id, u.role, u.active FROM sessions s JOIN users u ON s.user_id = u.id
				WHERE s.token = ? AND s.expires_at > ?`, cookie.Value, time.Now().Format("2006-01-02 15:04:05")).
				Scan(&userID, &role, &active)
			if err != nil {
				writeUnauthorized(w)
				return
			}
			if active == 0 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(403)
				json.NewEncoder(w).Encode(map[string]string{"error": "Account deactivated", "code": "FORBIDDEN"})
				return
			}

			// Sliding window: extend session expiry
			newExpiry := time.Now().Add(24 * time.Hour)
			dbConn.Exec("UPDATE sessions SET expires_at = ? WHERE token = ?",
				newExpiry.Format("2006-01-02 15:04:05"), cookie.Value)

			ctx := context.WithValue(r.Context(), CtxUserID, userID)
			ctx = context.WithValue(ctx, CtxRole, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly restricts a handler to users with the admin role. Must run
// inside RequireAuth so the role is on the context.
func AdminOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role, _ := r.Context().Value(CtxRole).(string)
		if role != "admin" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(403)
			json.NewEncoder(w).Encode(map[string]string{"error": "Admin access required", "code": "FORBIDDEN"})
			return
		}
		h(w, r)
	}
}
