// internal/domain/shared/errors.go
package shared

import "fmt"

// DomainError represents a domain-level error with a stable machine-readable code.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is lets errors.Is match any DomainError against its sentinel by code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes
const (
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeOverShipment        = "OVER_SHIPMENT"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeInvariantViolation  = "INVARIANT_VIOLATION"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInsufficientStock   = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrOverShipment        = NewDomainError(CodeOverShipment, "Ship quantity exceeds remaining undelivered quantity")
	ErrInvalidTransition   = NewDomainError(CodeInvalidTransition, "Operation not allowed in current order status")
	ErrInvariantViolation  = NewDomainError(CodeInvariantViolation, "Internal stock consistency check failed")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
)

// NewInsufficientStockError names the part that could not be reserved.
func NewInsufficientStockError(partID uint, available, requested int) *DomainError {
	return NewDomainError(CodeInsufficientStock,
		fmt.Sprintf("Insufficient stock for part %d: available %d, requested %d", partID, available, requested))
}

// NewOverShipmentError names the line that exceeded its remaining quantity.
func NewOverShipmentError(partID uint, remaining, requested int) *DomainError {
	return NewDomainError(CodeOverShipment,
		fmt.Sprintf("Over-shipment for part %d: remaining %d, requested %d", partID, remaining, requested))
}

// NewInvalidTransitionError describes a rejected order status transition.
func NewInvalidTransitionError(operation, status string) *DomainError {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("Cannot %s order in status '%s'", operation, status))
}
