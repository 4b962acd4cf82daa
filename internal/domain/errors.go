package domain

import "errors"

// Sentinel errors for domain-level error handling.
var (
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrUnknownOrder        = errors.New("unknown_order")
)

// ValidationError represents an order validation failure at the API
// boundary, before any ledger or book state changes.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
