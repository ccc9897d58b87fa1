package ledger

import "fmt"

// NotFoundError is returned when a referenced record does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// InsufficientStockError is returned when an issuance would drive a
// product's stock below zero. It carries enough detail for the caller
// to re-submit with a lower quantity.
type InsufficientStockError struct {
	Product   string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.Product, e.Requested, e.Available)
}
