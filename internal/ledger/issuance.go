package ledger

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"depot/internal/database"
)

// IssuanceLine is one (product, quantity) pair to be issued.
type IssuanceLine struct {
	ProductID string
	Qty       int
}

// IssuanceRequest describes goods to be handed out to a client.
type IssuanceRequest struct {
	ClientID string
	Lines    []IssuanceLine
	IssuedBy string
	OrderID  string
	Remarks  string
}

// CreateIssuance decrements stock for every line and writes one
// issuance document covering all of them, atomically within the
// caller's transaction: either every line issues or the whole call
// fails. The issuance is never written without its stock decrements.
func CreateIssuance(tx *sql.Tx, req IssuanceRequest) (string, error) {
	if len(req.Lines) == 0 {
		return "", errors.New("issuance requires at least one line")
	}

	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM clients WHERE id=?", req.ClientID).Scan(&count); err != nil {
		return "", err
	}
	if count == 0 {
		return "", &NotFoundError{Kind: "client", ID: req.ClientID}
	}

	for _, l := range req.Lines {
		if l.Qty <= 0 {
			return "", errors.New("issuance line quantity must be positive")
		}
		if _, err := ApplyDelta(tx, l.ProductID, -l.Qty, ReasonIssuance); err != nil {
			return "", err
		}
	}

	id := uuid.NewString()
	number := database.NextID(tx, "ISS", 4)
	now := database.Now()
	_, err := tx.Exec(`INSERT INTO issuances (id, number, client_id, order_id, issued_by, remarks, created_at)
		VALUES (?,?,?,?,?,?,?)`,
		id, number, req.ClientID, req.OrderID, req.IssuedBy, req.Remarks, now)
	if err != nil {
		return "", err
	}
	for _, l := range req.Lines {
		if _, err := tx.Exec("INSERT INTO issuance_lines (issuance_id, product_id, qty) VALUES (?,?,?)",
			id, l.ProductID, l.Qty); err != nil {
			return "", err
		}
	}
	return id, nil
}

// DeleteIssuance undoes an issuance: each line's stock is restored and
// the document is deleted, in the same transaction. This is the only
// supported way to remove an issuance. Callers should run
// AdvanceAwaitingOrders afterwards since the restored stock may
// unblock waiting orders.
func DeleteIssuance(tx *sql.Tx, issuanceID string) error {
	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM issuances WHERE id=?", issuanceID).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return &NotFoundError{Kind: "issuance", ID: issuanceID}
	}

	rows, err := tx.Query("SELECT product_id, qty FROM issuance_lines WHERE issuance_id=?", issuanceID)
	if err != nil {
		return err
	}
	var lines []IssuanceLine
	for rows.Next() {
		var l IssuanceLine
		if err := rows.Scan(&l.ProductID, &l.Qty); err != nil {
			rows.Close()
			return err
		}
		lines = append(lines, l)
	}
	rows.Close()

	for _, l := range lines {
		if _, err := ApplyDelta(tx, l.ProductID, l.Qty, ReasonIssuanceDeletion); err != nil {
			return err
		}
	}

	if _, err := tx.Exec("DELETE FROM issuance_lines WHERE issuance_id=?", issuanceID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM issuances WHERE id=?", issuanceID); err != nil {
		return err
	}
	return nil
}
