package ledger

import (
	"database/sql"
	"fmt"

	"depot/internal/database"
)

// ReceivePurchaseOrder marks a PO received and reconciles the stock it
// brings in, all inside the caller's transaction:
//
//  1. already-Received POs are a no-op (received=false) — receipt is
//     applied exactly once
//  2. every PO line's quantity is added to stock
//  3. each Pending backorder linked to this PO is auto-issued for
//     exactly the backordered quantity to its original client/order
//     and flipped to Fulfilled; any surplus over the backordered
//     quantity simply stays in stock
//  4. an order whose backorders are all resolved advances to Fulfilled
//
// Callers should run AdvanceAwaitingOrders afterwards, still inside
// the same transaction, so orders blocked on this stock via other
// paths catch up too.
func ReceivePurchaseOrder(tx *sql.Tx, poID string) (received bool, err error) {
	var status string
	err = tx.QueryRow("SELECT status FROM purchase_orders WHERE id=?", poID).Scan(&status)
	if err == sql.ErrNoRows {
		return false, &NotFoundError{Kind: "purchase order", ID: poID}
	}
	if err != nil {
		return false, err
	}
	if status == "Received" {
		return false, nil
	}

	now := database.Now()
	if _, err := tx.Exec("UPDATE purchase_orders SET status='Received', received_at=? WHERE id=?", now, poID); err != nil {
		return false, err
	}

	pending, err := PendingBackordersForPO(tx, poID)
	if err != nil {
		return false, err
	}
	byProduct := make(map[string][]int)
	for i, b := range pending {
		byProduct[b.ProductID] = append(byProduct[b.ProductID], i)
	}

	type poLine struct {
		productID string
		qty       int
	}
	rows, err := tx.Query("SELECT product_id, qty FROM po_lines WHERE po_id=?", poID)
	if err != nil {
		return false, err
	}
	var lines []poLine
	for rows.Next() {
		var l poLine
		if err := rows.Scan(&l.productID, &l.qty); err != nil {
			rows.Close()
			return false, err
		}
		lines = append(lines, l)
	}
	rows.Close()

	for _, l := range lines {
		if _, err := ApplyDelta(tx, l.productID, l.qty, ReasonPOReceived); err != nil {
			return false, err
		}

		for _, i := range byProduct[l.productID] {
			b := pending[i]
			_, err := CreateIssuance(tx, IssuanceRequest{
				ClientID: b.ClientID,
				Lines:    []IssuanceLine{{ProductID: b.ProductID, Qty: b.Qty}},
				IssuedBy: "System (Auto)",
				OrderID:  b.OrderID,
				Remarks:  fmt.Sprintf("Backorder %s fulfilled from %s", b.ID, poID),
			})
			if err != nil {
				return false, err
			}
			if err := ResolveBackorder(tx, b.ID); err != nil {
				return false, err
			}
			if err := advanceOrderIfResolved(tx, b.OrderID); err != nil {
				return false, err
			}
		}
	}

	return true, nil
}

// advanceOrderIfResolved flips an order to Fulfilled once it has no
// Pending backorders left. Cancelled and Shipped orders are left
// alone: those transitions come from outside and must not be undone
// by reconciliation.
func advanceOrderIfResolved(tx *sql.Tx, orderID string) error {
	var pending int
	if err := tx.QueryRow("SELECT COUNT(*) FROM backorders WHERE order_id=? AND status='Pending'", orderID).Scan(&pending); err != nil {
		return err
	}
	if pending > 0 {
		return nil
	}
	_, err := tx.Exec(`UPDATE orders SET status='Fulfilled', updated_at=?
		WHERE id=? AND status IN ('Awaiting Purchase','Partially Fulfilled')`,
		database.Now(), orderID)
	return err
}

// AdvanceAwaitingOrders re-checks every order waiting on stock and
// upgrades its status when current stock now covers all of its lines:
// Awaiting Purchase becomes Ready for Issuance and Partially Fulfilled
// becomes Fulfilled. It only upgrades status; moving the stock is the
// receipt path's job. Product reads are memoized across the sweep
// since many waiting orders tend to share products. Returns how many
// orders advanced.
func AdvanceAwaitingOrders(tx *sql.Tx) (int, error) {
	rows, err := tx.Query("SELECT id, status FROM orders WHERE status IN ('Awaiting Purchase','Partially Fulfilled')")
	if err != nil {
		return 0, err
	}
	type waiting struct {
		id     string
		status string
	}
	var orders []waiting
	for rows.Next() {
		var o waiting
		if err := rows.Scan(&o.id, &o.status); err != nil {
			rows.Close()
			return 0, err
		}
		orders = append(orders, o)
	}
	rows.Close()

	stockCache := make(map[string]int)
	advanced := 0
	for _, o := range orders {
		lineRows, err := tx.Query("SELECT product_id, qty FROM order_lines WHERE order_id=?", o.id)
		if err != nil {
			return advanced, err
		}
		covered := true
		for lineRows.Next() {
			var productID string
			var qty int
			if err := lineRows.Scan(&productID, &qty); err != nil {
				lineRows.Close()
				return advanced, err
			}
			stock, ok := stockCache[productID]
			if !ok {
				stock, err = CurrentStock(tx, productID)
				if err != nil {
					lineRows.Close()
					return advanced, err
				}
				stockCache[productID] = stock
			}
			if stock < qty {
				covered = false
			}
		}
		lineRows.Close()
		if !covered {
			continue
		}

		newStatus := "Ready for Issuance"
		if o.status == "Partially Fulfilled" {
			newStatus = "Fulfilled"
		}
		if _, err := tx.Exec("UPDATE orders SET status=?, updated_at=? WHERE id=?",
			newStatus, database.Now(), o.id); err != nil {
			return advanced, err
		}
		advanced++
	}
	return advanced, nil
}
