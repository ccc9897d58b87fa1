package validation

import (
	"database/sql"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// ValidationError represents a structured validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects multiple field errors.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (ve *ValidationErrors) Add(field, message string) {
	ve.Errors = append(ve.Errors, ValidationError{Field: field, Message: message})
}

func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

func (ve *ValidationErrors) Error() string {
	msgs := make([]string, len(ve.Errors))
	for i, e := range ve.Errors {
		msgs[i] = e.Field + ": " + e.Message
	}
	return strings.Join(msgs, "; ")
}

// RequireField checks a required string field is non-empty.
func RequireField(ve *ValidationErrors, field, value string) {
	if strings.TrimSpace(value) == "" {
		ve.Add(field, "is required")
	}
}

// ValidateEnum checks a field is one of allowed values.
func ValidateEnum(ve *ValidationErrors, field, value string, allowed []string) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	ve.Add(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
}

// ValidateDate checks a field is a valid date (YYYY-MM-DD).
func ValidateDate(ve *ValidationErrors, field, value string) {
	if value == "" {
		return
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		ve.Add(field, "must be a valid date (YYYY-MM-DD)")
	}
}

// ValidatePositiveInt checks a field is > 0.
func ValidatePositiveInt(ve *ValidationErrors, field string, value int) {
	if value <= 0 {
		ve.Add(field, "must be a positive integer")
	}
}

// ValidateNonNegativeFloat checks a field is >= 0.
func ValidateNonNegativeFloat(ve *ValidationErrors, field string, value float64) {
	if value < 0 {
		ve.Add(field, "must be non-negative")
	}
}

// ValidateEmail checks a field is a valid email (if non-empty).
func ValidateEmail(ve *ValidationErrors, field, value string) {
	if value == "" {
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		ve.Add(field, "must be a valid email address")
	}
}

// Maximum value constants to keep quantities and prices in sane ranges.
const (
	MaxQuantity = 1000000
	MaxPrice    = 1000000.0
)

// ValidateMaxQuantity checks quantity doesn't exceed the maximum.
func ValidateMaxQuantity(ve *ValidationErrors, field string, value int) {
	if value > MaxQuantity {
		ve.Add(field, fmt.Sprintf("exceeds maximum allowed quantity of %d", MaxQuantity))
	}
}

// ValidateMaxPrice checks price doesn't exceed the maximum.
func ValidateMaxPrice(ve *ValidationErrors, field string, value float64) {
	if value > MaxPrice {
		ve.Add(field, fmt.Sprintf("exceeds maximum allowed price of %.2f", MaxPrice))
	}
}

// ForeignKeyTables is the whitelist of tables ValidateForeignKey may
// query; table names never come from user input.
var ForeignKeyTables = map[string]bool{
	"clients":         true,
	"suppliers":       true,
	"products":        true,
	"orders":          true,
	"purchase_orders": true,
	"issuances":       true,
	"backorders":      true,
}

// ValidateForeignKey checks that a referenced record exists.
func ValidateForeignKey(ve *ValidationErrors, db *sql.DB, field, table, id string) {
	if id == "" {
		return
	}
	if !ForeignKeyTables[table] {
		ve.Add(field, "invalid table reference")
		return
	}
	var count int
	err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id=?", table), id).Scan(&count)
	if err != nil || count == 0 {
		ve.Add(field, fmt.Sprintf("references non-existent %s: %s", table, id))
	}
}
