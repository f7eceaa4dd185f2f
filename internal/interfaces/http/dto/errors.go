package dto

import (
	"net/http"

	"github.com/medstock/backend/internal/domain/shared"
)

// Error codes returned in the response envelope.
// Domain codes pass through unchanged; the rest are produced by the HTTP layer.
const (
	ErrCodeNotFound          = shared.CodeNotFound
	ErrCodeInvalidQuantity   = shared.CodeInvalidQuantity
	ErrCodeInsufficientStock = shared.CodeInsufficientStock
	ErrCodeValidation        = shared.CodeValidation
	ErrCodeStorage           = shared.CodeStorage

	// ErrCodeBadRequest is used for bodies or parameters that cannot be decoded
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeRequestTooLarge is used when a body exceeds the configured limit
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeInvalidQuantity:   http.StatusBadRequest,
	ErrCodeValidation:        http.StatusBadRequest,
	ErrCodeBadRequest:        http.StatusBadRequest,
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,
	ErrCodeRequestTooLarge:   http.StatusRequestEntityTooLarge,
	ErrCodeStorage:           http.StatusServiceUnavailable,
	ErrCodeInternal:          http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
