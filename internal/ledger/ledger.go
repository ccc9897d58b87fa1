// Package ledger implements the inventory core: the stock ledger,
// issuance engine, backorder tracker, order orchestrator, and
// replenishment reconciler. Every entry point composes over *sql.Tx
// so callers can group multiple operations into one atomic unit;
// correctness under concurrent callers comes from the database's
// transaction isolation, not application-level locking.
package ledger

import (
	"database/sql"

	"depot/internal/database"
)

// Stock change reasons recorded in stock_history.
const (
	ReasonIssuance         = "issuance"
	ReasonIssuanceDeletion = "issuance deletion"
	ReasonPOReceived       = "purchase order received"
)

// CurrentStock returns the available quantity for a product.
func CurrentStock(q database.Queryer, productID string) (int, error) {
	var stock int
	err := q.QueryRow("SELECT stock FROM products WHERE id=?", productID).Scan(&stock)
	if err == sql.ErrNoRows {
		return 0, &NotFoundError{Kind: "product", ID: productID}
	}
	if err != nil {
		return 0, err
	}
	return stock, nil
}

// ApplyDelta adjusts a product's stock by delta and appends one
// stock_history entry recording the resulting quantity, both inside
// the caller's transaction. Stock is never mutated without a matching
// history row. A result below zero fails with InsufficientStockError
// and leaves the transaction to roll back.
func ApplyDelta(tx *sql.Tx, productID string, delta int, reason string) (int, error) {
	var name string
	var stock int
	err := tx.QueryRow("SELECT name, stock FROM products WHERE id=?", productID).Scan(&name, &stock)
	if err == sql.ErrNoRows {
		return 0, &NotFoundError{Kind: "product", ID: productID}
	}
	if err != nil {
		return 0, err
	}

	newStock := stock + delta
	if newStock < 0 {
		return 0, &InsufficientStockError{Product: name, Available: stock, Requested: -delta}
	}

	now := database.Now()
	if _, err := tx.Exec("UPDATE products SET stock=?, updated_at=? WHERE id=?", newStock, now, productID); err != nil {
		return 0, err
	}
	if _, err := tx.Exec("INSERT INTO stock_history (product_id, stock, reason, created_at) VALUES (?,?,?,?)",
		productID, newStock, reason, now); err != nil {
		return 0, err
	}
	return newStock, nil
}
