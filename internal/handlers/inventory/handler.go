package inventory

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"depot/internal/audit"
	"depot/internal/database"
	"depot/internal/ledger"
	"depot/internal/models"
	"depot/internal/response"
	"depot/internal/validation"
	"depot/internal/websocket"
)

// Handler holds dependencies for product and stock handlers.
type Handler struct {
	DB  *sql.DB
	Hub *websocket.Hub
}

const productCols = "id,name,COALESCE(sku,''),price,stock,reorder_point,max_stock,COALESCE(location,''),COALESCE(supplier_id,''),created_at,updated_at"

func scanProduct(row interface{ Scan(...any) error }) (models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &p.Stock, &p.ReorderPoint, &p.MaxStock, &p.Location, &p.SupplierID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListProducts handles GET /api/v1/products. ?low_stock=true filters to
// products at or below their reorder point.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	query := "SELECT " + productCols + " FROM products"
	if r.URL.Query().Get("low_stock") == "true" {
		query += " WHERE reorder_point > 0 AND stock <= reorder_point"
	}
	query += " ORDER BY name"

	rows, err := h.DB.Query(query)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	var items []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			continue
		}
		items = append(items, p)
	}
	if items == nil {
		items = []models.Product{}
	}
	response.JSON(w, items)
}

// GetProduct handles GET /api/v1/products/:id.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request, id string) {
	p, err := scanProduct(h.DB.QueryRow("SELECT "+productCols+" FROM products WHERE id=?", id))
	if err != nil {
		response.Err(w, "not found", 404)
		return
	}
	response.JSON(w, p)
}

// CreateProduct handles POST /api/v1/products. Initial stock goes
// through the ledger so the first history entry exists from day one.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if err := response.DecodeBody(r, &p); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "name", p.Name)
	validation.ValidateNonNegativeFloat(ve, "price", p.Price)
	validation.ValidateMaxPrice(ve, "price", p.Price)
	if p.Stock < 0 {
		ve.Add("stock", "must be non-negative")
	}
	if p.ReorderPoint < 0 {
		ve.Add("reorder_point", "must be non-negative")
	}
	validation.ValidateForeignKey(ve, h.DB, "supplier_id", "suppliers", p.SupplierID)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	initialStock := p.Stock
	p.ID = database.NextID(h.DB, "PRD", 4)
	now := database.Now()
	err := database.WithTx(h.DB, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO products (id,name,sku,price,stock,reorder_point,max_stock,location,supplier_id,created_at,updated_at)
			VALUES (?,?,?,?,0,?,?,?,?,?,?)`,
			p.ID, p.Name, p.SKU, p.Price, p.ReorderPoint, p.MaxStock, p.Location, p.SupplierID, now, now)
		if err != nil {
			return err
		}
		if initialStock > 0 {
			if _, err := ledger.ApplyDelta(tx, p.ID, initialStock, "initial stock"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}

	audit.LogAudit(h.DB, h.Hub, audit.GetUsername(h.DB, r), "created", "product", p.ID, "Created product "+p.Name)
	h.GetProduct(w, r, p.ID)
}

// UpdateProduct handles PUT /api/v1/products/:id. Stock is not
// updatable here — only the ledger moves stock.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request, id string) {
	var p models.Product
	if err := response.DecodeBody(r, &p); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "name", p.Name)
	validation.ValidateNonNegativeFloat(ve, "price", p.Price)
	validation.ValidateMaxPrice(ve, "price", p.Price)
	validation.ValidateForeignKey(ve, h.DB, "supplier_id", "suppliers", p.SupplierID)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	res, err := h.DB.Exec(`UPDATE products SET name=?,sku=?,price=?,reorder_point=?,max_stock=?,location=?,supplier_id=?,updated_at=? WHERE id=?`,
		p.Name, p.SKU, p.Price, p.ReorderPoint, p.MaxStock, p.Location, p.SupplierID, database.Now(), id)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		response.Err(w, "not found", 404)
		return
	}
	audit.LogAudit(h.DB, h.Hub, audit.GetUsername(h.DB, r), "updated", "product", id, "Updated product "+id)
	h.GetProduct(w, r, id)
}

// AdjustStock handles POST /api/v1/products/:id/adjust: a manual stock
// correction routed through the ledger so history stays complete.
func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Delta  int    `json:"delta"`
		Reason string `json:"reason"`
	}
	if err := response.DecodeBody(r, &body); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}
	if body.Delta == 0 {
		response.Err(w, "delta must be non-zero", 400)
		return
	}
	reason := body.Reason
	if reason == "" {
		reason = "manual adjustment"
	}

	var newStock int
	err := database.WithTx(h.DB, func(tx *sql.Tx) error {
		var err error
		newStock, err = ledger.ApplyDelta(tx, id, body.Delta, reason)
		return err
	})
	if err != nil {
		var nf *ledger.NotFoundError
		var is *ledger.InsufficientStockError
		switch {
		case errors.As(err, &nf):
			response.Err(w, nf.Error(), 404)
		case errors.As(err, &is):
			response.Err(w, is.Error(), 409)
		default:
			response.Err(w, err.Error(), 500)
		}
		return
	}

	audit.LogAudit(h.DB, h.Hub, audit.GetUsername(h.DB, r), "adjusted", "product", id,
		fmt.Sprintf("Stock adjusted by %+d (%s), now %d", body.Delta, reason, newStock))
	response.JSON(w, map[string]int{"stock": newStock})
}

// History handles GET /api/v1/products/:id/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request, id string) {
	rows, err := h.DB.Query("SELECT id,product_id,stock,reason,created_at FROM stock_history WHERE product_id=? ORDER BY id DESC", id)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	var items []models.StockEntry
	for rows.Next() {
		var e models.StockEntry
		rows.Scan(&e.ID, &e.ProductID, &e.Stock, &e.Reason, &e.CreatedAt)
		items = append(items, e)
	}
	if items == nil {
		items = []models.StockEntry{}
	}
	response.JSON(w, items)
}

// DeleteProduct handles DELETE /api/v1/products/:id. Products
// referenced by order, issuance, or PO lines cannot be deleted.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request, id string) {
	var refs int
	h.DB.QueryRow(`SELECT (SELECT COUNT(*) FROM order_lines WHERE product_id=?)
		+ (SELECT COUNT(*) FROM issuance_lines WHERE product_id=?)
		+ (SELECT COUNT(*) FROM po_lines WHERE product_id=?)`, id, id, id).Scan(&refs)
	if refs > 0 {
		response.Err(w, "product is referenced by orders, issuances, or purchase orders", 409)
		return
	}
	res, err := h.DB.Exec("DELETE FROM products WHERE id=?", id)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		response.Err(w, "not found", 404)
		return
	}
	audit.LogAudit(h.DB, h.Hub, audit.GetUsername(h.DB, r), "deleted", "product", id, "Deleted product "+id)
	response.JSON(w, map[string]string{"status": "deleted"})
}
