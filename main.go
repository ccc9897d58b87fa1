package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"depot/internal/config"
	"depot/internal/database"
	"depot/internal/handlers/admin"
	"depot/internal/handlers/common"
	"depot/internal/handlers/inventory"
	"depot/internal/handlers/procurement"
	"depot/internal/handlers/sales"
	"depot/internal/notify"
	"depot/internal/server"
	"depot/internal/websocket"
)

func main() {
	configPath := flag.String("config", "depot.yaml", "Path to YAML config file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("config load failed:", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("DB init failed:", err)
	}
	if err := seed(db, cfg); err != nil {
		log.Fatal("seed failed:", err)
	}

	hub := websocket.NewHub()

	// Background low-stock notifier (run once after short delay, then every 5 min)
	go func() {
		time.Sleep(5 * time.Second)
		generateLowStockNotifications(db, hub)
		for {
			time.Sleep(5 * time.Minute)
			generateLowStockNotifications(db, hub)
		}
	}()

	salesH := &sales.Handler{DB: db, Hub: hub}
	procH := &procurement.Handler{DB: db, Hub: hub}
	invH := &inventory.Handler{DB: db, Hub: hub}
	commonH := &common.Handler{DB: db, Hub: hub}
	adminH := &admin.Handler{DB: db, Hub: hub}

	mux := http.NewServeMux()

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		websocket.Serve(hub, w, r)
	})

	// Auth routes
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			adminH.Login(w, r)
		} else {
			http.Error(w, "Method not allowed", 405)
		}
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			adminH.Logout(w, r)
		} else {
			http.Error(w, "Method not allowed", 405)
		}
	})
	mux.HandleFunc("/auth/me", adminH.Me)
	mux.HandleFunc("/auth/password", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "PUT" {
			adminH.ChangePassword(w, r)
		} else {
			http.Error(w, "Method not allowed", 405)
		}
	})

	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok"}`)
	})

	// API routes - using a simple router
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/")
		path = strings.TrimSuffix(path, "/")
		parts := strings.Split(path, "/")

		switch {
		// Dashboard
		case path == "dashboard" && r.Method == "GET":
			commonH.Dashboard(w, r)
		case path == "audit" && r.Method == "GET":
			commonH.ListAudit(w, r)

		// Clients
		case parts[0] == "clients" && len(parts) == 1 && r.Method == "GET":
			salesH.ListClients(w, r)
		case parts[0] == "clients" && len(parts) == 1 && r.Method == "POST":
			salesH.CreateClient(w, r)
		case parts[0] == "clients" && len(parts) == 2 && r.Method == "GET":
			salesH.GetClient(w, r, parts[1])
		case parts[0] == "clients" && len(parts) == 2 && r.Method == "PUT":
			salesH.UpdateClient(w, r, parts[1])
		case parts[0] == "clients" && len(parts) == 2 && r.Method == "DELETE":
			salesH.DeleteClient(w, r, parts[1])

		// Suppliers
		case parts[0] == "suppliers" && len(parts) == 1 && r.Method == "GET":
			procH.ListSuppliers(w, r)
		case parts[0] == "suppliers" && len(parts) == 1 && r.Method == "POST":
			procH.CreateSupplier(w, r)
		case parts[0] == "suppliers" && len(parts) == 2 && r.Method == "GET":
			procH.GetSupplier(w, r, parts[1])
		case parts[0] == "suppliers" && len(parts) == 2 && r.Method == "PUT":
			procH.UpdateSupplier(w, r, parts[1])
		case parts[0] == "suppliers" && len(parts) == 2 && r.Method == "DELETE":
			procH.DeleteSupplier(w, r, parts[1])

		// Products
		case parts[0] == "products" && len(parts) == 1 && r.Method == "GET":
			invH.ListProducts(w, r)
		case parts[0] == "products" && len(parts) == 1 && r.Method == "POST":
			invH.CreateProduct(w, r)
		case parts[0] == "products" && len(parts) == 2 && r.Method == "GET":
			invH.GetProduct(w, r, parts[1])
		case parts[0] == "products" && len(parts) == 2 && r.Method == "PUT":
			invH.UpdateProduct(w, r, parts[1])
		case parts[0] == "products" && len(parts) == 2 && r.Method == "DELETE":
			invH.DeleteProduct(w, r, parts[1])
		case parts[0] == "products" && len(parts) == 3 && parts[2] == "adjust" && r.Method == "POST":
			invH.AdjustStock(w, r, parts[1])
		case parts[0] == "products" && len(parts) == 3 && parts[2] == "history" && r.Method == "GET":
			invH.History(w, r, parts[1])

		// Orders
		case parts[0] == "orders" && len(parts) == 1 && r.Method == "GET":
			salesH.ListOrders(w, r)
		case parts[0] == "orders" && len(parts) == 1 && r.Method == "POST":
			salesH.CreateOrder(w, r)
		case parts[0] == "orders" && len(parts) == 2 && r.Method == "GET":
			salesH.GetOrder(w, r, parts[1])
		case parts[0] == "orders" && len(parts) == 2 && r.Method == "DELETE":
			salesH.DeleteOrder(w, r, parts[1])
		case parts[0] == "orders" && len(parts) == 3 && parts[2] == "backorders" && r.Method == "GET":
			salesH.GetOrderBackorders(w, r, parts[1])
		case parts[0] == "orders" && len(parts) == 3 && parts[2] == "reorder" && r.Method == "POST":
			salesH.ReorderOrder(w, r, parts[1])
		case parts[0] == "orders" && len(parts) == 3 && parts[2] == "cancel" && r.Method == "PUT":
			salesH.CancelOrder(w, r, parts[1])
		case parts[0] == "orders" && len(parts) == 3 && parts[2] == "ship" && r.Method == "PUT":
			salesH.ShipOrder(w, r, parts[1])

		// Issuances
		case parts[0] == "issuances" && len(parts) == 1 && r.Method == "GET":
			salesH.ListIssuances(w, r)
		case parts[0] == "issuances" && len(parts) == 1 && r.Method == "POST":
			salesH.CreateIssuance(w, r)
		case parts[0] == "issuances" && len(parts) == 2 && r.Method == "GET":
			salesH.GetIssuance(w, r, parts[1])
		case parts[0] == "issuances" && len(parts) == 2 && r.Method == "DELETE":
			salesH.DeleteIssuance(w, r, parts[1])

		// Purchase orders
		case parts[0] == "pos" && len(parts) == 1 && r.Method == "GET":
			procH.ListPOs(w, r)
		case parts[0] == "pos" && len(parts) == 1 && r.Method == "POST":
			procH.CreatePO(w, r)
		case parts[0] == "pos" && len(parts) == 2 && r.Method == "GET":
			procH.GetPO(w, r, parts[1])
		case parts[0] == "pos" && len(parts) == 3 && parts[2] == "status" && r.Method == "PUT":
			procH.UpdatePOStatus(w, r, parts[1])

		// Backorders
		case parts[0] == "backorders" && len(parts) == 1 && r.Method == "GET":
			procH.ListBackorders(w, r)

		// Notifications
		case parts[0] == "notifications" && len(parts) == 1 && r.Method == "GET":
			commonH.ListNotifications(w, r)
		case path == "notifications/read-all" && r.Method == "PUT":
			commonH.MarkAllRead(w, r)
		case parts[0] == "notifications" && len(parts) == 3 && parts[2] == "read" && r.Method == "PUT":
			commonH.MarkRead(w, r, parts[1])

		// Exports
		case path == "export/inventory" && r.Method == "GET":
			commonH.ExportInventory(w, r)
		case path == "export/orders" && r.Method == "GET":
			commonH.ExportOrders(w, r)
		case path == "export/backorders" && r.Method == "GET":
			commonH.ExportBackorders(w, r)

		// Users (admin only)
		case parts[0] == "users" && len(parts) == 1 && r.Method == "GET":
			server.AdminOnly(adminH.ListUsers)(w, r)
		case parts[0] == "users" && len(parts) == 1 && r.Method == "POST":
			server.AdminOnly(adminH.CreateUser)(w, r)
		case parts[0] == "users" && len(parts) == 2 && r.Method == "PUT":
			server.AdminOnly(func(w http.ResponseWriter, r *http.Request) {
				adminH.UpdateUser(w, r, parts[1])
			})(w, r)
		case parts[0] == "users" && len(parts) == 3 && parts[2] == "password" && r.Method == "PUT":
			server.AdminOnly(func(w http.ResponseWriter, r *http.Request) {
				adminH.ResetPassword(w, r, parts[1])
			})(w, r)

		// Settings
		case path == "settings" && r.Method == "GET":
			adminH.GetSettings(w, r)
		case path == "settings" && r.Method == "PUT":
			server.AdminOnly(adminH.UpdateSettings)(w, r)

		default:
			http.NotFound(w, r)
		}
	})

	handler := server.LoggingMiddleware(server.RequireAuth(db)(mux))

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("depot listening on %s (db: %s)", addr, cfg.DBPath)
	log.Fatal(http.ListenAndServe(addr, handler))
}

// seed creates the default admin account and company settings on first run.
func seed(db *sql.DB, cfg *config.Config) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		_, err = db.Exec("INSERT INTO users (username, password_hash, display_name, role, active) VALUES ('admin', ?, 'Administrator', 'admin', 1)", string(hash))
		if err != nil {
			return err
		}
		log.Println("seeded default admin user (admin/admin123) - change the password")
	}

	for k, v := range map[string]string{
		"company_name":  cfg.CompanyName,
		"company_email": cfg.CompanyEmail,
	} {
		if _, err := db.Exec("INSERT INTO settings (key, value) VALUES (?,?) ON CONFLICT(key) DO NOTHING", k, v); err != nil {
			return err
		}
	}
	return nil
}

// generateLowStockNotifications raises a warning for each product at or
// below its reorder point, skipping products already flagged by an
// unread notification.
func generateLowStockNotifications(db *sql.DB, hub *websocket.Hub) {
	rows, err := db.Query(`SELECT id, name, stock, reorder_point FROM products
		WHERE reorder_point > 0 AND stock <= reorder_point
		AND id NOT IN (SELECT COALESCE(record_id,'') FROM notifications WHERE type='low_stock' AND read_at IS NULL)`)
	if err != nil {
		log.Printf("low stock scan: %v", err)
		return
	}
	defer rows.Close()

	type hit struct {
		id, name     string
		stock, point int
	}
	var hits []hit
	for rows.Next() {
		var h hit
		rows.Scan(&h.id, &h.name, &h.stock, &h.point)
		hits = append(hits, h)
	}
	rows.Close()

	for _, h := range hits {
		notify.Create(db, hub, "low_stock", "warning",
			fmt.Sprintf("Low stock: %s", h.name),
			fmt.Sprintf("%s has %d on hand (reorder point %d)", h.id, h.stock, h.point),
			h.id, "products")
	}
}
