package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string) (*sql.DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", path+sep+"_journal_mode=WAL&_busy_timeout=10000&_foreign_keys=1")
	if err != nil {
		return nil, err
	}

	// SQLite handles 1 writer + multiple readers with WAL mode
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	// Some drivers don't parse connection string params correctly
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000"); err != nil {
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates all tables if they do not exist.
func Migrate(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS clients (
			id TEXT PRIMARY KEY, name TEXT NOT NULL,
			email TEXT DEFAULT '', phone TEXT DEFAULT '',
			address TEXT DEFAULT '', notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS suppliers (
			id TEXT PRIMARY KEY, name TEXT NOT NULL,
			contact_name TEXT DEFAULT '', contact_email TEXT DEFAULT '',
			contact_phone TEXT DEFAULT '', address TEXT DEFAULT '',
			lead_time_days INTEGER DEFAULT 0 CHECK(lead_time_days >= 0),
			notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY, name TEXT NOT NULL,
			sku TEXT DEFAULT '', price REAL DEFAULT 0 CHECK(price >= 0),
			stock INTEGER DEFAULT 0 CHECK(stock >= 0),
			reorder_point INTEGER DEFAULT 0 CHECK(reorder_point >= 0),
			max_stock INTEGER DEFAULT 0 CHECK(max_stock >= 0),
			location TEXT DEFAULT '', supplier_id TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS stock_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			product_id TEXT NOT NULL,
			stock INTEGER NOT NULL,
			reason TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY, client_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'Processing' CHECK(status IN
				('Processing','Awaiting Purchase','Partially Fulfilled','Ready for Issuance','Fulfilled','Shipped','Cancelled')),
			total REAL DEFAULT 0 CHECK(total >= 0),
			reordered_from TEXT DEFAULT '',
			created_by TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (client_id) REFERENCES clients(id) ON DELETE RESTRICT
		)`,
		`CREATE TABLE IF NOT EXISTS order_lines (
			id INTEGER PRIMARY KEY AUTOINCREMENT, order_id TEXT NOT NULL,
			product_id TEXT NOT NULL, qty INTEGER NOT NULL CHECK(qty > 0),
			unit_price REAL DEFAULT 0 CHECK(unit_price >= 0),
			FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS issuances (
			id TEXT PRIMARY KEY,
			number TEXT NOT NULL UNIQUE,
			client_id TEXT NOT NULL,
			order_id TEXT DEFAULT '',
			issued_by TEXT DEFAULT '',
			remarks TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS issuance_lines (
			id INTEGER PRIMARY KEY AUTOINCREMENT, issuance_id TEXT NOT NULL,
			product_id TEXT NOT NULL, qty INTEGER NOT NULL CHECK(qty > 0),
			FOREIGN KEY (issuance_id) REFERENCES issuances(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS backorders (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			qty INTEGER NOT NULL CHECK(qty > 0),
			status TEXT NOT NULL DEFAULT 'Pending' CHECK(status IN ('Pending','Fulfilled')),
			purchase_order_id TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			fulfilled_at DATETIME,
			UNIQUE(order_id, product_id)
		)`,
		`CREATE TABLE IF NOT EXISTS purchase_orders (
			id TEXT PRIMARY KEY, supplier_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'Pending' CHECK(status IN ('Pending','Shipped','Received')),
			expected_date DATE DEFAULT '',
			received_at DATETIME,
			created_by TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (supplier_id) REFERENCES suppliers(id) ON DELETE RESTRICT
		)`,
		`CREATE TABLE IF NOT EXISTS po_lines (
			id INTEGER PRIMARY KEY AUTOINCREMENT, po_id TEXT NOT NULL,
			product_id TEXT NOT NULL, qty INTEGER NOT NULL CHECK(qty > 0),
			FOREIGN KEY (po_id) REFERENCES purchase_orders(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			display_name TEXT DEFAULT '',
			role TEXT DEFAULT 'user' CHECK(role IN ('admin','user')),
			active INTEGER DEFAULT 1,
			last_login DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			expires_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL,
			severity TEXT DEFAULT 'info' CHECK(severity IN ('info','warning','critical')),
			title TEXT NOT NULL,
			message TEXT,
			record_id TEXT,
			module TEXT,
			read_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT DEFAULT 'system',
			action TEXT NOT NULL,
			module TEXT NOT NULL,
			record_id TEXT NOT NULL,
			summary TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS id_sequences (
			prefix TEXT PRIMARY KEY,
			next_num INTEGER DEFAULT 1
		)`,
	}
	for _, t := range tables {
		if _, err := db.Exec(t); err != nil {
			return fmt.Errorf("migration: %w", err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_stock_history_product ON stock_history(product_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
		`CREATE INDEX IF NOT EXISTS idx_backorders_po ON backorders(purchase_order_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_issuance_lines_issuance ON issuance_lines(issuance_id)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return fmt.Errorf("index migration: %w", err)
		}
	}
	return nil
}
