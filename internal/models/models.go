package models

// APIResponse is the standard JSON envelope for all API responses.
type APIResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total int `json:"total,omitempty"`
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

type Client struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Notes     string `json:"notes"`
	CreatedAt string `json:"created_at"`
}

type Supplier struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	Address      string `json:"address"`
	LeadTimeDays int    `json:"lead_time_days"`
	Notes        string `json:"notes"`
	CreatedAt    string `json:"created_at"`
}

// Product is a stock item. Stock is only ever mutated through the
// ledger so every change leaves a stock_history row behind.
type Product struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	Price        float64 `json:"price"`
	Stock        int     `json:"stock"`
	ReorderPoint int     `json:"reorder_point"`
	MaxStock     int     `json:"max_stock"`
	Location     string  `json:"location"`
	SupplierID   string  `json:"supplier_id"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// StockEntry is one append-only stock history record. Stock is the
// resulting quantity after the change, not the delta.
type StockEntry struct {
	ID        int64  `json:"id"`
	ProductID string `json:"product_id"`
	Stock     int    `json:"stock"`
	Reason    string `json:"reason"`
	CreatedAt string `json:"created_at"`
}

type Order struct {
	ID            string      `json:"id"`
	ClientID      string      `json:"client_id"`
	Status        string      `json:"status"`
	Total         float64     `json:"total"`
	ReorderedFrom string      `json:"reordered_from,omitempty"`
	CreatedBy     string      `json:"created_by"`
	CreatedAt     string      `json:"created_at"`
	UpdatedAt     string      `json:"updated_at"`
	Lines         []OrderLine `json:"lines"`
}

// OrderLine snapshots the unit price at order creation time.
type OrderLine struct {
	ID        int64   `json:"id"`
	OrderID   string  `json:"order_id"`
	ProductID string  `json:"product_id"`
	Qty       int     `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
}

type Issuance struct {
	ID        string         `json:"id"`
	Number    string         `json:"number"`
	ClientID  string         `json:"client_id"`
	OrderID   string         `json:"order_id,omitempty"`
	IssuedBy  string         `json:"issued_by"`
	Remarks   string         `json:"remarks"`
	CreatedAt string         `json:"created_at"`
	Lines     []IssuanceLine `json:"lines"`
}

type IssuanceLine struct {
	ID         int64  `json:"id"`
	IssuanceID string `json:"issuance_id"`
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
}

type Backorder struct {
	ID              string  `json:"id"`
	OrderID         string  `json:"order_id"`
	ClientID        string  `json:"client_id"`
	ProductID       string  `json:"product_id"`
	Qty             int     `json:"qty"`
	Status          string  `json:"status"`
	PurchaseOrderID string  `json:"purchase_order_id,omitempty"`
	CreatedAt       string  `json:"created_at"`
	FulfilledAt     *string `json:"fulfilled_at"`
}

type PurchaseOrder struct {
	ID           string   `json:"id"`
	SupplierID   string   `json:"supplier_id"`
	Status       string   `json:"status"`
	ExpectedDate string   `json:"expected_date"`
	ReceivedAt   *string  `json:"received_at"`
	CreatedBy    string   `json:"created_by"`
	CreatedAt    string   `json:"created_at"`
	Lines        []POLine `json:"lines"`
}

type POLine struct {
	ID        int64  `json:"id"`
	POID      string `json:"po_id"`
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type User struct {
	ID          int     `json:"id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	Role        string  `json:"role"`
	Active      bool    `json:"active"`
	LastLogin   *string `json:"last_login"`
	CreatedAt   string  `json:"created_at"`
}

type Notification struct {
	ID        int     `json:"id"`
	Type      string  `json:"type"`
	Severity  string  `json:"severity"`
	Title     string  `json:"title"`
	Message   *string `json:"message"`
	RecordID  *string `json:"record_id"`
	Module    *string `json:"module"`
	ReadAt    *string `json:"read_at"`
	CreatedAt string  `json:"created_at"`
}

type AuditEntry struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Action    string `json:"action"`
	Module    string `json:"module"`
	RecordID  string `json:"record_id"`
	Summary   string `json:"summary"`
	CreatedAt string `json:"created_at"`
}
