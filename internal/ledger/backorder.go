package ledger

import (
	"database/sql"

	"depot/internal/database"
	"depot/internal/models"
)

// RecordShortfall writes one Pending backorder for a shorted product
// line. The orchestrator calls this once per (order, product)
// shortfall; the UNIQUE(order_id, product_id) constraint backs that
// invariant at the schema level.
func RecordShortfall(tx *sql.Tx, orderID, clientID, productID string, qty int) (string, error) {
	id := database.NextID(tx, "BO", 4)
	_, err := tx.Exec(`INSERT INTO backorders (id, order_id, client_id, product_id, qty, status, created_at)
		VALUES (?,?,?,?,?,'Pending',?)`,
		id, orderID, clientID, productID, qty, database.Now())
	if err != nil {
		return "", err
	}
	return id, nil
}

// ResolveBackorder flips a backorder to Fulfilled. It has no other
// side effects: the caller is responsible for having issued the
// compensating stock movement first.
func ResolveBackorder(tx *sql.Tx, backorderID string) error {
	res, err := tx.Exec("UPDATE backorders SET status='Fulfilled', fulfilled_at=? WHERE id=? AND status='Pending'",
		database.Now(), backorderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &NotFoundError{Kind: "pending backorder", ID: backorderID}
	}
	return nil
}

// PendingBackordersForPO returns all Pending backorders linked to the
// given purchase order.
func PendingBackordersForPO(q database.Queryer, poID string) ([]models.Backorder, error) {
	rows, err := q.Query(`SELECT id, order_id, client_id, product_id, qty, status, COALESCE(purchase_order_id,''), created_at
		FROM backorders WHERE purchase_order_id=? AND status='Pending'`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Backorder
	for rows.Next() {
		var b models.Backorder
		if err := rows.Scan(&b.ID, &b.OrderID, &b.ClientID, &b.ProductID, &b.Qty, &b.Status, &b.PurchaseOrderID, &b.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}
