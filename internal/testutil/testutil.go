// Package testutil provides shared helpers for package tests: an
// in-memory database with the full schema, seed records, and HTTP
// request/response plumbing.
package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"depot/internal/database"
	"depot/internal/models"
)

// SetupTestDB creates an in-memory SQLite database with the full schema
// and a seeded admin user.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// In-memory databases vanish when their last connection closes;
	// keep exactly one.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test DB: %v", err)
	}
	seedAdminUser(t, db)
	return db
}

func seedAdminUser(t *testing.T, db *sql.DB) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("Failed to hash admin password: %v", err)
	}
	_, err = db.Exec("INSERT INTO users (username, password_hash, display_name, role) VALUES (?, ?, ?, ?)",
		"admin", string(hash), "Administrator", "admin")
	if err != nil {
		t.Fatalf("Failed to create default admin user: %v", err)
	}
}

// CreateTestSession creates a session token for the admin user.
func CreateTestSession(t *testing.T, db *sql.DB) string {
	t.Helper()
	var adminID int
	if err := db.QueryRow("SELECT id FROM users WHERE username='admin'").Scan(&adminID); err != nil {
		t.Fatalf("Failed to find admin user: %v", err)
	}
	token := "test-session-" + time.Now().Format("20060102150405.000000")
	_, err := db.Exec("INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, adminID, time.Now().Add(24*time.Hour).Format("2006-01-02 15:04:05"))
	if err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}
	return token
}

// CreateTestClient inserts a client and returns its id.
func CreateTestClient(t *testing.T, db *sql.DB, name string) string {
	t.Helper()
	id := fmt.Sprintf("CLT-%04d", nextSeq())
	_, err := db.Exec("INSERT INTO clients (id, name) VALUES (?, ?)", id, name)
	if err != nil {
		t.Fatalf("Failed to create test client: %v", err)
	}
	return id
}

// CreateTestSupplier inserts a supplier and returns its id.
func CreateTestSupplier(t *testing.T, db *sql.DB, name string) string {
	t.Helper()
	id := fmt.Sprintf("SUP-%04d", nextSeq())
	_, err := db.Exec("INSERT INTO suppliers (id, name) VALUES (?, ?)", id, name)
	if err != nil {
		t.Fatalf("Failed to create test supplier: %v", err)
	}
	return id
}

// CreateTestProduct inserts a product with the given price and stock
// and returns its id.
func CreateTestProduct(t *testing.T, db *sql.DB, name string, price float64, stock int) string {
	t.Helper()
	id := fmt.Sprintf("PRD-%04d", nextSeq())
	_, err := db.Exec("INSERT INTO products (id, name, price, stock) VALUES (?, ?, ?, ?)", id, name, price, stock)
	if err != nil {
		t.Fatalf("Failed to create test product: %v", err)
	}
	return id
}

var seq int

func nextSeq() int {
	seq++
	return seq
}

// JSONRequest creates an HTTP request with a JSON body.
func JSONRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertStatus checks that the HTTP status code matches expected.
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// DecodeEnvelope decodes an API response envelope and extracts the data.
func DecodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var resp models.APIResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode API envelope: %v", err)
	}
	dataBytes, _ := json.Marshal(resp.Data)
	if err := json.Unmarshal(dataBytes, v); err != nil {
		t.Fatalf("Failed to decode data from envelope: %v", err)
	}
}

// Stock returns the current stock for a product.
func Stock(t *testing.T, db *sql.DB, productID string) int {
	t.Helper()
	var stock int
	if err := db.QueryRow("SELECT stock FROM products WHERE id=?", productID).Scan(&stock); err != nil {
		t.Fatalf("Failed to read stock for %s: %v", productID, err)
	}
	return stock
}
