package shared

import (
	"errors"
	"fmt"
)

// Error codes used across the ledger
const (
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidQuantity   = "INVALID_QUANTITY"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeValidation        = "VALIDATION_ERROR"
	CodeStorage           = "STORAGE_ERROR"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code.
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

// NewNotFoundError reports an unknown item or batch.
func NewNotFoundError(format string, args ...any) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf(format, args...))
}

// NewInvalidQuantityError reports a non-positive quantity where a positive one is required.
func NewInvalidQuantityError(format string, args ...any) *DomainError {
	return NewDomainError(CodeInvalidQuantity, fmt.Sprintf(format, args...))
}

// NewInsufficientStockError reports a request for more than the available stock.
func NewInsufficientStockError(requested, available int64, unit string) *DomainError {
	if unit == "" {
		return NewDomainError(CodeInsufficientStock,
			fmt.Sprintf("insufficient stock: requested %d, available %d", requested, available))
	}
	return NewDomainError(CodeInsufficientStock,
		fmt.Sprintf("insufficient stock: requested %d %s, available %d %s", requested, unit, available, unit))
}

// NewValidationError reports a missing or malformed field.
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewStorageError wraps a store failure. The message is the cause's message, unchanged.
func NewStorageError(err error) *DomainError {
	if err == nil {
		return nil
	}
	return &DomainError{
		Code:    CodeStorage,
		Message: err.Error(),
		Cause:   err,
	}
}

// Common domain errors, usable as errors.Is targets
var (
	ErrNotFound          = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidQuantity   = NewDomainError(CodeInvalidQuantity, "Quantity must be positive")
	ErrInsufficientStock = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrValidation        = NewDomainError(CodeValidation, "Validation failed")
	ErrStorage           = NewDomainError(CodeStorage, "Storage failure")
)

// IsCode reports whether err carries a DomainError with the given code
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of the first DomainError in err's chain, or "".
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
