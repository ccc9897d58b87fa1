package ledger

import (
	"database/sql"
	"errors"
	"math"

	"depot/internal/database"
)

// OrderLineRequest is one requested (product, quantity) pair.
type OrderLineRequest struct {
	ProductID string
	Qty       int
}

// OrderRequest describes a new order for a client.
type OrderRequest struct {
	ClientID      string
	Lines         []OrderLineRequest
	ReorderedFrom string
	CreatedBy     string
}

// OrderResult is what order creation reports back to the caller.
type OrderResult struct {
	OrderID string
	Status  string
	Total   float64
}

// CreateOrder runs the full fulfillment decision for a new order
// inside the caller's transaction:
//
//   - every line's price is snapshotted from the product's current
//     price; the total always reflects requested quantities,
//     regardless of how much can be fulfilled now
//   - per line, whatever stock covers is added to a single issuance
//     batch and the remainder becomes a Pending backorder; one
//     product's surplus is never substituted for another's shortage
//   - a non-empty batch produces exactly one issuance tagged with the
//     order id, covering all immediately-fulfillable lines
//   - the final status is Ready for Issuance (no shortfalls),
//     Awaiting Purchase (nothing issued), or Partially Fulfilled
func CreateOrder(tx *sql.Tx, req OrderRequest) (*OrderResult, error) {
	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM clients WHERE id=?", req.ClientID).Scan(&count); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, &NotFoundError{Kind: "client", ID: req.ClientID}
	}
	if len(req.Lines) == 0 {
		return nil, errors.New("order requires at least one line")
	}

	type resolvedLine struct {
		productID string
		qty       int
		price     float64
		issueQty  int
		shortQty  int
	}

	var total float64
	resolved := make([]resolvedLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		if l.Qty <= 0 {
			return nil, errors.New("order line quantity must be positive")
		}
		var price float64
		var stock int
		err := tx.QueryRow("SELECT price, stock FROM products WHERE id=?", l.ProductID).Scan(&price, &stock)
		if err == sql.ErrNoRows {
			return nil, &NotFoundError{Kind: "product", ID: l.ProductID}
		}
		if err != nil {
			return nil, err
		}

		rl := resolvedLine{productID: l.ProductID, qty: l.Qty, price: price}
		if stock >= l.Qty {
			rl.issueQty = l.Qty
		} else {
			rl.issueQty = stock
			rl.shortQty = l.Qty - stock
		}
		total += price * float64(l.Qty)
		resolved = append(resolved, rl)
	}
	total = math.Round(total*100) / 100

	orderID := database.NextID(tx, "ORD", 4)

	var batch []IssuanceLine
	backordered := false
	for _, rl := range resolved {
		if rl.issueQty > 0 {
			batch = append(batch, IssuanceLine{ProductID: rl.productID, Qty: rl.issueQty})
		}
		if rl.shortQty > 0 {
			backordered = true
			if _, err := RecordShortfall(tx, orderID, req.ClientID, rl.productID, rl.shortQty); err != nil {
				return nil, err
			}
		}
	}

	if len(batch) > 0 {
		_, err := CreateIssuance(tx, IssuanceRequest{
			ClientID: req.ClientID,
			Lines:    batch,
			IssuedBy: req.CreatedBy,
			OrderID:  orderID,
			Remarks:  "Issued at order creation",
		})
		if err != nil {
			return nil, err
		}
	}

	status := "Ready for Issuance"
	switch {
	case backordered && len(batch) == 0:
		status = "Awaiting Purchase"
	case backordered:
		status = "Partially Fulfilled"
	}

	now := database.Now()
	_, err := tx.Exec(`INSERT INTO orders (id, client_id, status, total, reordered_from, created_by, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		orderID, req.ClientID, status, total, req.ReorderedFrom, req.CreatedBy, now, now)
	if err != nil {
		return nil, err
	}
	for _, rl := range resolved {
		if _, err := tx.Exec("INSERT INTO order_lines (order_id, product_id, qty, unit_price) VALUES (?,?,?,?)",
			orderID, rl.productID, rl.qty, rl.price); err != nil {
			return nil, err
		}
	}

	return &OrderResult{OrderID: orderID, Status: status, Total: total}, nil
}
